package quote

import (
	"math"
	"strings"

	"github.com/productjump/ship-cli/internal/model"
)

// SelectBest folds the corrected records from every provider down to
// the single cheapest eligible one. The fold starts from an infinitely
// expensive sentinel and replaces it on strictly lower rates only, so
// ties keep the earliest-seen record: callers must pass records in
// provider order (all of source A before any of source B), because that
// iteration order *is* the tie-break policy.
//
// Returns false when no record was eligible, a normal terminal state
// rather than an error.
func SelectBest(records []model.RateRecord, policy ExclusionPolicy) (model.RateRecord, bool) {
	best := model.RateRecord{Rate: math.Inf(1)}
	found := false

	for _, rec := range records {
		if !policy.EligibleRecord(rec) {
			continue
		}
		if rec.Rate < best.Rate {
			best = rec
			found = true
		}
	}

	return best, found
}

// SelectBaseline scans the first provider's full rate set, corrected
// but NOT filtered, for the reference carrier+service. The comparison
// must reflect a realistic alternative regardless of exclusions. The
// carrier must match exactly (case-insensitive) and the service must
// contain serviceMatch as a case-insensitive substring; the exact
// Priority label varies by account.
//
// The scan does not short-circuit: when several records match, the last
// one wins. That differs from the selector's first-wins tie-break and
// must stay that way, or different quotes get presented.
//
// insurance is added to the matched rate. Returns false when nothing
// matched, which downstream must treat as "cannot produce a quote".
func SelectBaseline(records []model.RateRecord, carrier, serviceMatch string, insurance float64) (model.ComparisonQuote, bool) {
	var baseline model.ComparisonQuote
	found := false

	foldedMatch := strings.ToLower(serviceMatch)
	for _, rec := range records {
		if !strings.EqualFold(rec.Carrier, carrier) {
			continue
		}
		if !strings.Contains(strings.ToLower(rec.Service), foldedMatch) {
			continue
		}

		baseline = model.ComparisonQuote{
			Carrier:         rec.Carrier,
			Service:         rec.Service,
			DisplayService:  DisplayService(rec.Carrier, rec.Service),
			Rate:            rec.Rate + insurance,
			Source:          rec.Source,
			EstDeliveryDays: rec.EstDeliveryDays,
		}
		found = true
	}

	return baseline, found
}

// DisplayService prefixes the service label with the carrier name
// unless the carrier is already a substring of the service name (some
// providers bake it in).
func DisplayService(carrier, service string) string {
	if strings.Contains(strings.ToLower(service), strings.ToLower(carrier)) {
		return service
	}
	return carrier + " " + service
}
