package quote

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/model"
)

// CorrectionMarker is appended to the service label of a healed record
// so operators and customers can see the correction happened.
const CorrectionMarker = " *** LIST RATE (CPP, corrected) ***"

// CorrectListRateAnomaly heals the known defect where the trusted
// carrier's quoted rate disagrees with its own list rate: multiple
// upstream providers under-quoted USPS Priority tiers in 2019 while the
// list rate stayed correct. The record is healed to the larger of the
// two amounts and its service label is marked. Idempotent: an already
// marked record passes through untouched.
//
// Must run before eligibility filtering and before the minimum-cost
// fold: an uncorrected record could win selection on a spuriously low
// price the business cannot fulfill at cost.
func CorrectListRateAnomaly(rec model.RateRecord, trustedCarrier string) model.RateRecord {
	if !strings.EqualFold(rec.Carrier, trustedCarrier) {
		return rec
	}
	if rec.ListRate == nil || rec.Rate == *rec.ListRate {
		return rec
	}
	if strings.Contains(rec.Service, CorrectionMarker) {
		return rec
	}

	zap.L().Warn("correct: quoted rate disagrees with list rate, healing",
		zap.String("carrier", rec.Carrier),
		zap.String("service", rec.Service),
		zap.Float64("rate", rec.Rate),
		zap.Float64("list_rate", *rec.ListRate),
	)

	rec.Rate = round2(math.Max(rec.Rate, *rec.ListRate))
	rec.Service += CorrectionMarker
	return rec
}

// CorrectAll applies the anomaly correction to every record, preserving
// order.
func CorrectAll(records []model.RateRecord, trustedCarrier string) []model.RateRecord {
	out := make([]model.RateRecord, len(records))
	for i, rec := range records {
		out[i] = CorrectListRateAnomaly(rec, trustedCarrier)
	}
	return out
}

// round2 rounds a monetary amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
