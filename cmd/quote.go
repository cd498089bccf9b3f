package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/model"
	"github.com/productjump/ship-cli/internal/orders"
	"github.com/productjump/ship-cli/internal/quote"
)

var (
	quoteOrder          string
	quoteCSV            string
	quoteLength         float64
	quoteWidth          float64
	quoteHeight         float64
	quoteWeightOz       float64
	quotePredefinedPkg  string
	quoteDescription    string
	quoteInsuranceValue float64
	quoteOutput         string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote the cheapest shipping rate for one order",
	Long: `Looks up an order in the sales-platform CSV export, pulls rates from
both providers, and prints the customer quote, the internal ledger, and
every alternative rate.

Examples:
  # Quote order #1234 with explicit parcel dimensions
  ship-cli quote --order "#1234" --length 12.4 --width 9.4 --height 0.5 --weight-oz 16

  # Quote a flat-rate envelope
  ship-cli quote --order "#1234" --predefined-package FlatRateEnvelope --weight-oz 16`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, err := initEngine()
		if err != nil {
			return err
		}

		csvPath := quoteCSV
		if csvPath == "" {
			csvPath = cfg.Orders.CSVPath
		}
		order, err := orders.Find(csvPath, quoteOrder)
		if err != nil {
			return eris.Wrap(err, "quote: look up order")
		}

		result, err := engine.Quote(ctx, cfg.ShipFrom.Address(), order.ShipTo, parcelFromFlags())
		if err != nil {
			return eris.Wrapf(err, "quote: order %s", order.CustomerOrderID)
		}

		logResult(order.CustomerOrderID, result)
		return writeResult(result)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteOrder, "order", "", "order name to quote (required)")
	quoteCmd.Flags().StringVar(&quoteCSV, "csv", "", "path to orders export CSV (default from config)")
	addParcelFlags(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteOutput, "output", "", "write result JSON to file (default: stdout)")
	_ = quoteCmd.MarkFlagRequired("order")
	rootCmd.AddCommand(quoteCmd)
}

// addParcelFlags registers the shared parcel flags on a command that
// quotes a shipment.
func addParcelFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&quoteLength, "length", 0, "parcel length in inches")
	cmd.Flags().Float64Var(&quoteWidth, "width", 0, "parcel width in inches")
	cmd.Flags().Float64Var(&quoteHeight, "height", 0, "parcel height in inches")
	cmd.Flags().Float64Var(&quoteWeightOz, "weight-oz", 0, "parcel weight in ounces (required)")
	cmd.Flags().StringVar(&quotePredefinedPkg, "predefined-package", "", "carrier flat-rate package, e.g. FlatRateEnvelope")
	cmd.Flags().StringVar(&quoteDescription, "description", "", "item description shown to the customer")
	cmd.Flags().Float64Var(&quoteInsuranceValue, "insurance-value", 0, "declared value for insurance")
	_ = cmd.MarkFlagRequired("weight-oz")
}

func parcelFromFlags() model.Parcel {
	return model.Parcel{
		Length:            quoteLength,
		Width:             quoteWidth,
		Height:            quoteHeight,
		WeightOz:          quoteWeightOz,
		PredefinedPackage: quotePredefinedPkg,
		Description:       quoteDescription,
		InsuranceValue:    quoteInsuranceValue,
	}
}

// logResult logs the outcome, the customer summary when quoted, and
// every alternative rate for operator comparison.
func logResult(orderID string, result *quote.Result) {
	log := zap.L().With(
		zap.String("order", orderID),
		zap.String("request_id", result.RequestID),
	)

	if !result.Quoted() {
		log.Info("no quote to present",
			zap.String("outcome", string(result.Outcome)),
			zap.String("reason", result.Reason),
		)
	} else {
		log.Info("present to customer",
			zap.String("service", result.Customer.Service),
			zap.Float64("our_quote", result.Customer.Rate),
			zap.Float64("comparison_quote", result.Customer.ComparisonRate),
			zap.String("comparison_service", result.Customer.ComparisonService),
			zap.Float64("savings", result.Customer.Savings),
			zap.Float64("savings_percent", result.Customer.SavingsPercent),
		)
		log.Info("internal accounting",
			zap.Float64("platform_fee", result.Ledger.PlatformFee),
			zap.Float64("cost_shipping", result.Ledger.ShippingCost),
			zap.Float64("account_holder_payable", result.Ledger.AccountHolderPayable),
			zap.Float64("customer_receivable", result.Ledger.CustomerReceivable),
			zap.Float64("gross", result.Ledger.Gross),
			zap.Float64("gross_margin", result.Ledger.GrossMargin),
		)
	}

	for _, alt := range result.Alternatives {
		days := "?"
		if alt.EstDeliveryDays != nil {
			days = fmt.Sprintf("%d", *alt.EstDeliveryDays)
		}
		log.Info(fmt.Sprintf("alternative: %s $%.2f, est delivery %s days",
			quote.DisplayService(alt.Carrier, alt.Service), alt.Rate, days))
	}
}

// writeResult writes the result to the output file or stdout.
func writeResult(result *quote.Result) error {
	var w *os.File
	if quoteOutput != "" {
		f, err := os.Create(quoteOutput)
		if err != nil {
			return eris.Wrap(err, "quote: create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	} else {
		w = os.Stdout
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
