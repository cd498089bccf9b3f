// Package quote implements the rate aggregation and decision engine:
// normalize raw provider rates into a common record, heal the USPS
// list-rate defect, filter by exclusion policy, fold to the cheapest
// eligible quote, pick a comparison baseline, and price the winner.
package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/productjump/ship-cli/internal/model"
	"github.com/productjump/ship-cli/pkg/easypost"
	"github.com/productjump/ship-cli/pkg/shipstation"
)

// MissingFieldError reports a required field absent from a provider's
// raw rate entry. It is an input defect, never retried.
type MissingFieldError struct {
	Provider string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Provider, e.Field)
}

// NormalizeItemized converts an EasyPost rate into a RateRecord. The
// provider quotes amounts as strings; parse failures are surfaced, not
// truncated to zero.
func NormalizeItemized(r easypost.Rate) (model.RateRecord, error) {
	if r.Carrier == "" {
		return model.RateRecord{}, &MissingFieldError{Provider: "easypost", Field: "carrier"}
	}
	if r.Service == "" {
		return model.RateRecord{}, &MissingFieldError{Provider: "easypost", Field: "service"}
	}
	if r.Rate == "" {
		return model.RateRecord{}, &MissingFieldError{Provider: "easypost", Field: "rate"}
	}

	amount, err := strconv.ParseFloat(r.Rate, 64)
	if err != nil {
		return model.RateRecord{}, eris.Wrapf(err, "easypost: parse rate %q for %s %s", r.Rate, r.Carrier, r.Service)
	}

	rec := model.RateRecord{
		Carrier:         r.Carrier,
		Service:         r.Service,
		Rate:            amount,
		EstDeliveryDays: r.EstDeliveryDays,
		Source:          "easypost/" + strings.ToLower(r.CarrierAccountID),
		QuoteID:         r.ID,
	}

	if r.ListRate != "" {
		list, err := strconv.ParseFloat(r.ListRate, 64)
		if err != nil {
			return model.RateRecord{}, eris.Wrapf(err, "easypost: parse list rate %q for %s %s", r.ListRate, r.Carrier, r.Service)
		}
		rec.ListRate = &list
	}

	return rec, nil
}

// NormalizeBundled converts a ShipStation rate into a RateRecord. The
// quoted cost is shipmentCost plus otherCost, rounded to cents; the
// provider never estimates delivery time, so EstDeliveryDays stays nil.
func NormalizeBundled(r shipstation.Rate, accountName string) (model.RateRecord, error) {
	if r.CarrierCode == "" {
		return model.RateRecord{}, &MissingFieldError{Provider: "shipstation", Field: "carrierCode"}
	}
	if r.ServiceName == "" {
		return model.RateRecord{}, &MissingFieldError{Provider: "shipstation", Field: "serviceName"}
	}

	return model.RateRecord{
		Carrier:     r.CarrierCode,
		Service:     r.ServiceName,
		ServiceCode: r.ServiceCode,
		Rate:        round2(r.ShipmentCost + r.OtherCost),
		Source:      "shipstation/" + strings.ToLower(accountName),
	}, nil
}
