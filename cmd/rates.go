package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/orders"
)

var (
	ratesOrder string
	ratesCSV   string
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List every available rate for an order without quoting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, err := initEngine()
		if err != nil {
			return err
		}

		csvPath := ratesCSV
		if csvPath == "" {
			csvPath = cfg.Orders.CSVPath
		}
		order, err := orders.Find(csvPath, ratesOrder)
		if err != nil {
			return eris.Wrap(err, "rates: look up order")
		}

		records, err := engine.Rates(ctx, cfg.ShipFrom.Address(), order.ShipTo, parcelFromFlags())
		if err != nil {
			return eris.Wrapf(err, "rates: order %s", order.CustomerOrderID)
		}

		zap.L().Info("rates fetched",
			zap.String("order", order.CustomerOrderID),
			zap.Int("count", len(records)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesOrder, "order", "", "order name to fetch rates for (required)")
	ratesCmd.Flags().StringVar(&ratesCSV, "csv", "", "path to orders export CSV (default from config)")
	addParcelFlags(ratesCmd)
	_ = ratesCmd.MarkFlagRequired("order")
	rootCmd.AddCommand(ratesCmd)
}
