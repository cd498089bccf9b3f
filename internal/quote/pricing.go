package quote

import (
	"math"

	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/config"
	"github.com/productjump/ship-cli/internal/model"
)

// Pricer projects a winning quote into the customer price and the
// internal accounting ledger. It assumes the platform fee was already
// validated at config load (0 <= f < 1).
type Pricer struct {
	cfg config.PricingConfig
}

// NewPricer creates a Pricer with the given pricing configuration.
func NewPricer(cfg config.PricingConfig) *Pricer {
	return &Pricer{cfg: cfg}
}

// OurRate applies the platform markup: our_rate = rate / (1 - f).
// Unrounded; rounding happens at the output boundary.
func (p *Pricer) OurRate(rate float64) float64 {
	return rate / (1 - p.cfg.PlatformFee)
}

// Price builds the customer-facing quote and the ledger. Returns false
// when the marked-up price no longer beats the baseline: the run ends
// with no quote rather than a worse one.
func (p *Pricer) Price(best model.BestQuote, comparison model.ComparisonQuote) (*model.CustomerQuote, *model.Ledger, bool) {
	ourRate := p.OurRate(best.Rate)

	if comparison.Rate < ourRate {
		zap.L().Info("pricing: marked-up rate exceeds comparison, no quote",
			zap.Float64("our_rate", ourRate),
			zap.Float64("comparison_rate", comparison.Rate),
		)
		return nil, nil, false
	}

	customer := &model.CustomerQuote{
		From:              best.From,
		To:                best.To,
		Parcel:            best.Parcel,
		Service:           DisplayService(best.Carrier, best.Service),
		Rate:              round2(ourRate),
		ComparisonRate:    round2(comparison.Rate),
		ComparisonService: comparison.DisplayService,
	}
	customer.Savings = round2(customer.ComparisonRate - customer.Rate)
	customer.SavingsPercent = math.Round(100 * customer.Savings / customer.ComparisonRate)

	shippingCost := round2(best.Rate)
	// Insurance is a pass-through placeholder until coverage is wired
	// into the provider calls.
	insuranceCost := 0.0
	receivable := round2(ourRate)
	costOfGoods := round2(shippingCost + insuranceCost)

	ledger := &model.Ledger{
		PlatformFee:        p.cfg.PlatformFee,
		ShippingCost:       shippingCost,
		InsuranceCost:      insuranceCost,
		AccountHolderCost:  shippingCost,
		AccountHolderFee:   round2(best.Rate * p.cfg.AccountHolderRate),
		CustomerReceivable: receivable,
		CostOfGoods:        costOfGoods,
		Gross:              receivable - costOfGoods,
	}
	ledger.AccountHolderPayable = round2(ledger.AccountHolderFee + ledger.ShippingCost)
	ledger.GrossMargin = round2(ledger.Gross / ledger.CustomerReceivable)

	return customer, ledger, true
}
