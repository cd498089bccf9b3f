package quote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productjump/ship-cli/internal/config"
	"github.com/productjump/ship-cli/internal/model"
	"github.com/productjump/ship-cli/pkg/easypost"
	"github.com/productjump/ship-cli/pkg/shipstation"
)

type stubEasyPost struct {
	shipment *easypost.Shipment
	err      error
	calls    int
	lastReq  easypost.ShipmentRequest
}

func (s *stubEasyPost) CreateShipment(_ context.Context, req easypost.ShipmentRequest) (*easypost.Shipment, error) {
	s.calls++
	s.lastReq = req
	return s.shipment, s.err
}

type stubShipStation struct {
	rates   []shipstation.Rate
	err     error
	calls   int
	lastReq shipstation.RateRequest
}

func (s *stubShipStation) GetRates(_ context.Context, req shipstation.RateRequest) ([]shipstation.Rate, error) {
	s.calls++
	s.lastReq = req
	return s.rates, s.err
}

func epRate(carrier, service, rate, listRate string) easypost.Rate {
	return easypost.Rate{
		ID:               "rate_" + service,
		Carrier:          carrier,
		Service:          service,
		Rate:             rate,
		ListRate:         listRate,
		CarrierAccountID: "ca_main",
	}
}

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		PlatformFee:            0.20,
		AccountHolderRate:      0.05,
		TrustedListRateCarrier: "usps",
		BaselineCarrier:        "usps",
		BaselineServiceMatch:   "priority",
	}
}

func testAddresses() (model.Address, model.Address) {
	from := model.Address{Name: "Warehouse", Street1: "1 Dock St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	to := model.Address{Name: "Jo Customer", Street1: "9 Elm St", City: "Denver", State: "CO", PostalCode: "80202", Country: "US"}
	return from, to
}

func testParcel() model.Parcel {
	return model.Parcel{Length: 10, Width: 8, Height: 4, WeightOz: 16}
}

func newTestEngine(ep EasyPostClient, ss ShipStationClient) *Engine {
	ssCfg := config.ShipStationConfig{AccountName: "main", CarrierCode: "fedex"}
	return New(ep, ss, ssCfg, DefaultExclusionPolicy(), testPricing())
}

func TestQuote_HappyPath(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		ID:   "shp_1",
		From: easypost.Address{Zip: "78701"},
		To:   easypost.Address{Zip: "80202", City: "Denver", State: "CO", Country: "US"},
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", "8.40"),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{rates: []shipstation.Rate{
		{CarrierCode: "fedex", ServiceName: "FedEx Ground", ShipmentCost: 9.00, OtherCost: 0.50},
	}}

	result, err := newTestEngine(ep, ss).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.NotEmpty(t, result.RequestID)

	require.NotNil(t, result.Best)
	assert.Equal(t, "UPS", result.Best.Carrier)
	assert.Equal(t, 6.00, result.Best.Rate)

	require.NotNil(t, result.Comparison)
	assert.Equal(t, 8.40, result.Comparison.Rate)

	require.NotNil(t, result.Customer)
	assert.Equal(t, 7.50, result.Customer.Rate)
	assert.Equal(t, 0.90, result.Customer.Savings)

	require.NotNil(t, result.Ledger)
	assert.Equal(t, 6.30, result.Ledger.AccountHolderPayable)

	assert.Len(t, result.Alternatives, 3)
}

func TestQuote_InputDefectsFailBeforeProviderCalls(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{}
	engine := newTestEngine(ep, nil)

	_, err := engine.Quote(context.Background(), model.Address{}, to, testParcel())
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "from address", missing.Provider)

	_, err = engine.Quote(context.Background(), from, model.Address{Name: "X", Street1: "Y", PostalCode: "1"}, testParcel())
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "country", missing.Field)

	_, err = engine.Quote(context.Background(), from, to, model.Parcel{})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "weight_oz", missing.Field)

	assert.Zero(t, ep.calls)
}

func TestQuote_CorrectionRunsBeforeSelection(t *testing.T) {
	// USPS Priority is quoted at an anomalous 5.00 against an 8.40 list
	// rate. Uncorrected it would win outright; healed it loses to UPS.
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		To: easypost.Address{Zip: "80202"},
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "5.00", "8.40"),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, "UPS", result.Best.Carrier)

	// The healed record also feeds the baseline.
	assert.Equal(t, 8.40, result.Comparison.Rate)
	assert.Contains(t, result.Comparison.Service, CorrectionMarker)
}

func TestQuote_NoEligibleQuote(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "First", "3.00", ""),
			epRate("fedex", "fedex_smartpost_parcel_select", "4.00", ""),
		},
	}}

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoEligibleQuote, result.Outcome)
	assert.Nil(t, result.Customer)
	assert.Len(t, result.Alternatives, 2)
}

func TestQuote_NoBaseline(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{epRate("UPS", "Ground", "6.00", "")},
	}}

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoBaseline, result.Outcome)
	assert.Nil(t, result.Comparison)
}

func TestQuote_NoAdvantageWhenBestIsBaseline(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.10", ""),
			epRate("UPS", "Ground", "9.50", ""),
		},
	}}

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAdvantage, result.Outcome)
	require.NotNil(t, result.Comparison)
	assert.Nil(t, result.Customer)
}

func TestQuote_NotCompetitiveOutright(t *testing.T) {
	// Priority is selectable only as the baseline here, so the fold lands
	// on a UPS rate the baseline already beats.
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "9.00", ""),
		},
	}}

	policy := ExclusionPolicy{Services: map[string][]string{"usps": {"priority"}}}
	engine := New(ep, nil, config.ShipStationConfig{}, policy, testPricing())

	result, err := engine.Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotCompetitive, result.Outcome)
	assert.Equal(t, "comparison quote is cheaper than best quote", result.Reason)
}

func TestQuote_NotCompetitiveAfterMarkup(t *testing.T) {
	// 7.25 is below the 8.40 baseline, but 7.25 / 0.8 = 9.06 is not.
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "7.25", ""),
		},
	}}

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotCompetitive, result.Outcome)
	require.NotNil(t, result.Best)
	assert.Nil(t, result.Customer)
	assert.Nil(t, result.Ledger)
}

func TestQuote_CrossProviderTieBreak(t *testing.T) {
	// Equal rates from both providers: provider A folds first and keeps
	// the win.
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		To: easypost.Address{Zip: "80202"},
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{rates: []shipstation.Rate{
		{CarrierCode: "fedex", ServiceName: "FedEx Ground", ShipmentCost: 6.00},
	}}

	result, err := newTestEngine(ep, ss).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, "easypost/ca_main", result.Best.Source)
}

func TestQuote_DomesticExcludesDHL(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("DHLExpress", "Express Worldwide", "4.00", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}

	engine := New(ep, nil, config.ShipStationConfig{}, ExclusionPolicy{}, testPricing())
	result, err := engine.Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, "UPS", result.Best.Carrier)
}

func TestQuote_InternationalKeepsDHL(t *testing.T) {
	from, to := testAddresses()
	to.Country = "DE"
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority Mail International", "32.00", ""),
			epRate("DHL", "Express Worldwide", "24.00", ""),
		},
	}}

	engine := New(ep, nil, config.ShipStationConfig{}, ExclusionPolicy{}, testPricing())
	result, err := engine.Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, "DHL", result.Best.Carrier)
}

func TestQuote_SkipsShipStationWhenCarrierExcluded(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{}

	policy := DefaultExclusionPolicy()
	policy.ExcludeCarrier("fedex")
	engine := New(ep, ss, config.ShipStationConfig{AccountName: "main", CarrierCode: "fedex"}, policy, testPricing())

	result, err := engine.Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	assert.Zero(t, ss.calls)
	assert.Len(t, result.Alternatives, 2)
}

func TestQuote_ExcludedServiceCodeNeverWinsFold(t *testing.T) {
	// SmartPost comes back dirt cheap with the policy-listed code only in
	// serviceCode; it must still lose to the eligible UPS rate.
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		To: easypost.Address{Zip: "80202"},
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{rates: []shipstation.Rate{
		{CarrierCode: "fedex", ServiceName: "FedEx SmartPost Parcel Select", ServiceCode: "fedex_smartpost_parcel_select", ShipmentCost: 2.50, OtherCost: 0.25},
	}}

	result, err := newTestEngine(ep, ss).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, "UPS", result.Best.Carrier)
	assert.Len(t, result.Alternatives, 3)
}

func TestQuote_ParcelInsuranceRaisesBaseline(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}

	parcel := testParcel()
	parcel.InsuranceValue = 1.25

	result, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, parcel)
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.InDelta(t, 9.65, result.Comparison.Rate, 1e-9)

	// Unset declared value falls back to the configured estimate.
	result, err = newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.True(t, result.Quoted())
	assert.Equal(t, 8.40, result.Comparison.Rate)
}

func TestQuote_ShipStationRequestUsesVerifiedAddresses(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		From: easypost.Address{Zip: "78701-1234"},
		To:   easypost.Address{Zip: "80202-9999", City: "DENVER", State: "CO", Country: "US", Residential: true},
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{}

	_, err := newTestEngine(ep, ss).Quote(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	require.Equal(t, 1, ss.calls)

	assert.Equal(t, "fedex", ss.lastReq.CarrierCode)
	assert.Equal(t, "78701-1234", ss.lastReq.FromPostalCode)
	assert.Equal(t, "80202-9999", ss.lastReq.ToPostalCode)
	assert.True(t, ss.lastReq.Residential)
	assert.Equal(t, "grams", ss.lastReq.Weight.Units)
	assert.InDelta(t, 453.59, ss.lastReq.Weight.Value, 0.01)
	assert.Equal(t, "SIGNATURE", ss.lastReq.Confirmation)
}

func TestQuote_FlatRatePackageMapsToDimensions(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "Priority", "8.40", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}
	ss := &stubShipStation{}

	parcel := model.Parcel{PredefinedPackage: "FlatRateEnvelope", WeightOz: 8}
	_, err := newTestEngine(ep, ss).Quote(context.Background(), from, to, parcel)
	require.NoError(t, err)
	require.Equal(t, 1, ss.calls)

	require.NotNil(t, ss.lastReq.Dimensions)
	assert.Equal(t, 12.5, ss.lastReq.Dimensions.Length)
	assert.Equal(t, 9.5, ss.lastReq.Dimensions.Width)

	// The EasyPost side keeps the predefined package instead.
	assert.Equal(t, "FlatRateEnvelope", ep.lastReq.Parcel.PredefinedPackage)
	assert.Zero(t, ep.lastReq.Parcel.Length)
}

func TestQuote_EasyPostErrorPropagates(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{err: assert.AnError}

	_, err := newTestEngine(ep, nil).Quote(context.Background(), from, to, testParcel())
	require.Error(t, err)
}

func TestRates_ReturnsAllAlternatives(t *testing.T) {
	from, to := testAddresses()
	ep := &stubEasyPost{shipment: &easypost.Shipment{
		Rates: []easypost.Rate{
			epRate("USPS", "First", "3.00", ""),
			epRate("UPS", "Ground", "6.00", ""),
		},
	}}

	records, err := newTestEngine(ep, nil).Rates(context.Background(), from, to, testParcel())
	require.NoError(t, err)
	// Excluded services still appear in the operator view.
	assert.Len(t, records, 2)
}
