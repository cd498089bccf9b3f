package main

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/productjump/ship-cli/internal/orders"
	"github.com/productjump/ship-cli/internal/quote"
)

var (
	batchCSV         string
	batchLimit       int
	batchConcurrency int
	batchOutput      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Quote every order in a CSV export",
	Long: `Reads all orders from the sales-platform export and quotes each one.
Each order is still a single-shipment synchronous run; only the orders
themselves fan out.

Examples:
  # Quote the first 10 orders, 3 at a time
  ship-cli batch --csv orders_export.csv --limit 10 --weight-oz 16`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, err := initEngine()
		if err != nil {
			return err
		}

		csvPath := batchCSV
		if csvPath == "" {
			csvPath = cfg.Orders.CSVPath
		}
		all, err := orders.ReadAll(csvPath)
		if err != nil {
			return eris.Wrap(err, "batch: read orders")
		}
		zap.L().Info("batch: parsed orders", zap.Int("orders", len(all)))

		if batchLimit > 0 && batchLimit < len(all) {
			all = all[:batchLimit]
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)

		var mu sync.Mutex
		var results []*quote.Result
		var quoted, skipped, failed atomic.Int64

		from := cfg.ShipFrom.Address()
		parcel := parcelFromFlags()

		for _, order := range all {
			order := order
			g.Go(func() error {
				result, runErr := engine.Quote(gCtx, from, order.ShipTo, parcel)
				if runErr != nil {
					failed.Add(1)
					zap.L().Error("batch: order failed",
						zap.String("order", order.CustomerOrderID),
						zap.Error(runErr),
					)
					return nil // don't abort the batch on individual failure
				}

				if result.Quoted() {
					quoted.Add(1)
				} else {
					skipped.Add(1)
				}
				logResult(order.CustomerOrderID, result)

				mu.Lock()
				results = append(results, result)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("batch: complete",
			zap.Int("total", len(all)),
			zap.Int64("quoted", quoted.Load()),
			zap.Int64("skipped", skipped.Load()),
			zap.Int64("failed", failed.Load()),
		)

		var w *os.File
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output file")
			}
			defer f.Close() //nolint:errcheck
			w = f
		} else {
			w = os.Stdout
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to orders export CSV (default from config)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max orders to quote (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "max orders to quote concurrently")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results JSON to file (default: stdout)")
	addParcelFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
