package quote

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/config"
	"github.com/productjump/ship-cli/internal/model"
	"github.com/productjump/ship-cli/internal/units"
	"github.com/productjump/ship-cli/pkg/easypost"
	"github.com/productjump/ship-cli/pkg/shipstation"
)

// Outcome is the terminal state of one quoting run. Every state other
// than OutcomeQuoted means "no quote to present" for a stated reason;
// these are branches for the caller, not errors.
type Outcome string

const (
	// OutcomeQuoted means a customer quote and ledger were produced.
	OutcomeQuoted Outcome = "quoted"
	// OutcomeNoEligibleQuote means no record survived the exclusion policy.
	OutcomeNoEligibleQuote Outcome = "no_eligible_quote"
	// OutcomeNoBaseline means the reference carrier+service was absent
	// from the first provider's rates, so there is nothing to compare to.
	OutcomeNoBaseline Outcome = "no_baseline"
	// OutcomeNoAdvantage means the best quote IS the baseline service.
	OutcomeNoAdvantage Outcome = "no_advantage"
	// OutcomeNotCompetitive means the baseline beats the selection,
	// either outright or after the platform markup.
	OutcomeNotCompetitive Outcome = "not_competitive"
)

// Result is the output of one quoting run. Customer and Ledger are set
// only when Outcome is OutcomeQuoted; Alternatives always lists every
// normalized record for operator display.
type Result struct {
	RequestID    string                 `json:"request_id"`
	Outcome      Outcome                `json:"outcome"`
	Reason       string                 `json:"reason,omitempty"`
	Customer     *model.CustomerQuote   `json:"customer,omitempty"`
	Ledger       *model.Ledger          `json:"ledger,omitempty"`
	Best         *model.BestQuote       `json:"best,omitempty"`
	Comparison   *model.ComparisonQuote `json:"comparison,omitempty"`
	Alternatives []model.RateRecord     `json:"alternatives"`
}

// Quoted reports whether the run produced a presentable quote.
func (r *Result) Quoted() bool { return r.Outcome == OutcomeQuoted }

// EasyPostClient is the slice of the EasyPost client the engine uses.
type EasyPostClient interface {
	CreateShipment(ctx context.Context, req easypost.ShipmentRequest) (*easypost.Shipment, error)
}

// ShipStationClient is the slice of the ShipStation client the engine uses.
type ShipStationClient interface {
	GetRates(ctx context.Context, req shipstation.RateRequest) ([]shipstation.Rate, error)
}

// benignDHLMessage is the one shipment diagnostic known to be harmless:
// DHL simply has no product for US domestic, and the engine already
// excludes it for those shipments.
const benignDHLMessage = "unable to retrieve dhlexpress rates for us domestic"

// flatRateDimensions maps predefined flat-rate package names to the
// physical dimensions ShipStation needs (it has no predefined-package
// concept on the rating call).
var flatRateDimensions = map[string]shipstation.Dimensions{
	"FlatRateEnvelope":      {Length: 12.5, Width: 9.5, Height: 0.1, Units: "inches"},
	"FlatRateLegalEnvelope": {Length: 15, Width: 9.5, Height: 0.1, Units: "inches"},
}

// Engine sequences one quoting run: fetch raw rates from both
// providers, normalize, correct, filter, fold to the cheapest eligible
// quote, pick the baseline, gate, and price. One shipment per call;
// everything is request-scoped.
type Engine struct {
	ep      EasyPostClient
	ss      ShipStationClient
	ssCfg   config.ShipStationConfig
	policy  ExclusionPolicy
	pricing config.PricingConfig
	pricer  *Pricer
}

// New creates an Engine. ss may be nil when no ShipStation account is
// configured; the engine then quotes from EasyPost alone.
func New(ep EasyPostClient, ss ShipStationClient, ssCfg config.ShipStationConfig, policy ExclusionPolicy, pricing config.PricingConfig) *Engine {
	return &Engine{
		ep:      ep,
		ss:      ss,
		ssCfg:   ssCfg,
		policy:  policy,
		pricing: pricing,
		pricer:  NewPricer(pricing),
	}
}

// Quote runs the full pipeline for one shipment. Provider failures and
// malformed responses are returned as errors; "no quote to present"
// states come back as a Result with the corresponding Outcome.
func (e *Engine) Quote(ctx context.Context, from, to model.Address, parcel model.Parcel) (*Result, error) {
	if err := validateAddress(from, "from"); err != nil {
		return nil, err
	}
	if err := validateAddress(to, "to"); err != nil {
		return nil, err
	}
	if parcel.WeightOz <= 0 {
		return nil, &MissingFieldError{Provider: "parcel", Field: "weight_oz"}
	}

	requestID := uuid.NewString()
	log := zap.L().With(zap.String("request_id", requestID))

	policy := e.policy.Clone()
	if IsDomesticUS(from, to) {
		// EasyPost reports the carrier as DHLExpress.
		policy.ExcludeCarrier("dhl")
		policy.ExcludeCarrier("dhlexpress")
	}

	// Provider A: EasyPost. The verified addresses come back on the
	// shipment and are reused for provider B.
	shipment, err := e.ep.CreateShipment(ctx, buildShipmentRequest(from, to, parcel))
	if err != nil {
		return nil, eris.Wrap(err, "quote: easypost shipment")
	}
	logShipmentMessages(log, shipment.Messages)

	epRecords := make([]model.RateRecord, 0, len(shipment.Rates))
	for _, raw := range shipment.Rates {
		rec, err := NormalizeItemized(raw)
		if err != nil {
			return nil, eris.Wrap(err, "quote: normalize easypost rate")
		}
		epRecords = append(epRecords, rec)
	}
	epRecords = CorrectAll(epRecords, e.pricing.TrustedListRateCarrier)

	// Provider B: ShipStation, one carrier per call. Skipped when that
	// carrier is excluded for this shipment.
	var ssRecords []model.RateRecord
	if e.ss != nil && !policy.ExcludesCarrier(e.ssCfg.CarrierCode) {
		ssRecords, err = e.shipStationRecords(ctx, shipment, parcel)
		if err != nil {
			return nil, err
		}
		ssRecords = CorrectAll(ssRecords, e.pricing.TrustedListRateCarrier)
	}

	alternatives := make([]model.RateRecord, 0, len(epRecords)+len(ssRecords))
	alternatives = append(alternatives, epRecords...)
	alternatives = append(alternatives, ssRecords...)

	result := &Result{RequestID: requestID, Alternatives: alternatives}

	// Provider A records fold before provider B's: that order is the
	// tie-break.
	best, ok := SelectBest(alternatives, policy)
	if !ok {
		log.Info("quote: no eligible rate survived the exclusion policy")
		result.Outcome = OutcomeNoEligibleQuote
		result.Reason = "no eligible quote after exclusions"
		return result, nil
	}

	// Baseline scans provider A only, unfiltered. The parcel's declared
	// insurance value wins over the configured estimate.
	insurance := e.pricing.InsuranceEstimate
	if parcel.InsuranceValue > 0 {
		insurance = parcel.InsuranceValue
	}
	comparison, ok := SelectBaseline(epRecords, e.pricing.BaselineCarrier, e.pricing.BaselineServiceMatch, insurance)
	if !ok {
		log.Warn("quote: baseline service missing from provider rates",
			zap.String("carrier", e.pricing.BaselineCarrier),
			zap.String("service_match", e.pricing.BaselineServiceMatch),
		)
		result.Outcome = OutcomeNoBaseline
		result.Reason = "comparison baseline unavailable"
		return result, nil
	}
	result.Comparison = &comparison

	if strings.EqualFold(best.Carrier, comparison.Carrier) && strings.EqualFold(best.Service, comparison.Service) {
		log.Info("quote: best quote is the baseline service, nothing to offer",
			zap.String("carrier", best.Carrier),
			zap.String("service", best.Service),
		)
		result.Outcome = OutcomeNoAdvantage
		result.Reason = "best quote equals comparison quote"
		return result, nil
	}

	if comparison.Rate < best.Rate {
		log.Info("quote: selection is not cheaper than baseline",
			zap.Float64("best_rate", best.Rate),
			zap.Float64("comparison_rate", comparison.Rate),
		)
		result.Outcome = OutcomeNotCompetitive
		result.Reason = "comparison quote is cheaper than best quote"
		return result, nil
	}

	// Context attaches only after the gates: selection itself stays
	// context-free.
	bestQuote := model.BestQuote{RateRecord: best, From: from, To: to, Parcel: parcel}
	result.Best = &bestQuote

	customer, ledger, ok := e.pricer.Price(bestQuote, comparison)
	if !ok {
		result.Outcome = OutcomeNotCompetitive
		result.Reason = "platform markup erases the advantage"
		return result, nil
	}

	result.Outcome = OutcomeQuoted
	result.Customer = customer
	result.Ledger = ledger

	log.Info("quote: produced",
		zap.String("carrier", best.Carrier),
		zap.String("service", best.Service),
		zap.Float64("cost", best.Rate),
		zap.Float64("our_rate", customer.Rate),
		zap.Float64("savings", customer.Savings),
	)

	return result, nil
}

// Rates fetches and normalizes every rate from both providers without
// selecting or pricing. This is the operator-facing alternatives view.
func (e *Engine) Rates(ctx context.Context, from, to model.Address, parcel model.Parcel) ([]model.RateRecord, error) {
	result, err := e.Quote(ctx, from, to, parcel)
	if err != nil {
		return nil, err
	}
	return result.Alternatives, nil
}

// shipStationRecords quotes the configured carrier through ShipStation
// using the EasyPost-verified addresses, then normalizes the response.
func (e *Engine) shipStationRecords(ctx context.Context, shipment *easypost.Shipment, parcel model.Parcel) ([]model.RateRecord, error) {
	dims, ok := flatRateDimensions[parcel.PredefinedPackage]
	if !ok {
		dims = shipstation.Dimensions{
			Length: parcel.Length,
			Width:  parcel.Width,
			Height: parcel.Height,
			Units:  "inches",
		}
	}

	req := shipstation.RateRequest{
		CarrierCode:    e.ssCfg.CarrierCode,
		FromPostalCode: shipment.From.Zip,
		ToPostalCode:   shipment.To.Zip,
		ToCity:         shipment.To.City,
		ToState:        shipment.To.State,
		ToCountry:      shipment.To.Country,
		Weight: shipstation.Weight{
			Value: units.OuncesToGrams(parcel.WeightOz),
			Units: "grams",
		},
		Dimensions: &dims,
		// SIGNATURE passes through to the shipment without adding cost;
		// the other confirmation levels either do not register or error.
		Confirmation: "SIGNATURE",
		Residential:  shipment.To.Residential,
	}

	raw, err := e.ss.GetRates(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "quote: shipstation rates")
	}

	records := make([]model.RateRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := NormalizeBundled(r, e.ssCfg.AccountName)
		if err != nil {
			return nil, eris.Wrap(err, "quote: normalize shipstation rate")
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildShipmentRequest maps the model types onto the EasyPost payload,
// including the customs declaration DHL requires for rating.
func buildShipmentRequest(from, to model.Address, parcel model.Parcel) easypost.ShipmentRequest {
	req := easypost.ShipmentRequest{
		From:   easypostAddress(from),
		To:     easypostAddress(to),
		Parcel: easypostParcel(parcel),
		CustomsInfo: &easypost.CustomsInfo{
			EELPFC:          "NOEEI 30.37(a)",
			ContentsType:    "sample",
			CustomsCertify:  true,
			CustomsSigner:   from.Name,
			RestrictionType: "none",
			CustomsItems: []easypost.CustomsItem{{
				Description:   parcel.Description,
				Quantity:      1,
				Value:         1,
				Weight:        parcel.WeightOz,
				OriginCountry: "US",
			}},
		},
	}
	return req
}

func easypostAddress(a model.Address) easypost.Address {
	return easypost.Address{
		Name:        a.Name,
		Company:     a.Company,
		Street1:     a.Street1,
		Street2:     a.Street2,
		City:        a.City,
		State:       a.State,
		Zip:         a.PostalCode,
		Country:     a.Country,
		Phone:       a.Phone,
		Residential: a.Residential,
	}
}

func easypostParcel(p model.Parcel) easypost.Parcel {
	if p.PredefinedPackage != "" {
		return easypost.Parcel{
			PredefinedPackage: p.PredefinedPackage,
			Weight:            p.WeightOz,
		}
	}
	return easypost.Parcel{
		Length: p.Length,
		Width:  p.Width,
		Height: p.Height,
		Weight: p.WeightOz,
	}
}

// validateAddress fails fast on input defects before any provider is
// queried.
func validateAddress(a model.Address, which string) error {
	switch {
	case a.Name == "":
		return &MissingFieldError{Provider: which + " address", Field: "name"}
	case a.Street1 == "":
		return &MissingFieldError{Provider: which + " address", Field: "street1"}
	case a.PostalCode == "":
		return &MissingFieldError{Provider: which + " address", Field: "postal_code"}
	case a.Country == "":
		return &MissingFieldError{Provider: which + " address", Field: "country"}
	}
	return nil
}

// logShipmentMessages logs carrier diagnostics, suppressing the one
// whitelisted benign DHL message.
func logShipmentMessages(log *zap.Logger, messages []easypost.Message) {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Message), benignDHLMessage) {
			continue
		}
		log.Warn("quote: shipment diagnostic",
			zap.String("carrier", m.Carrier),
			zap.String("type", m.Type),
			zap.String("message", m.Message),
		)
	}
}
