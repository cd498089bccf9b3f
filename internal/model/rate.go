package model

// RateRecord is one quoted price for one carrier+service combination,
// normalized from either provider's raw shape. Carrier and Service keep
// their original casing for display; comparisons case-fold.
type RateRecord struct {
	Carrier string `json:"carrier"`
	Service string `json:"service"`
	// ServiceCode is the provider's canonical service identifier when it
	// differs from the display name (the bundled source splits the two).
	// Exclusion checks match against it when present.
	ServiceCode string  `json:"service_code,omitempty"`
	Rate        float64 `json:"rate"`
	// ListRate is the provider's published reference price. Only the
	// EasyPost source supplies it; nil means absent. When present it
	// should equal Rate; inequality signals the USPS quoting defect.
	ListRate *float64 `json:"list_rate,omitempty"`
	// EstDeliveryDays is nil when the provider gives no estimate
	// (ShipStation never does).
	EstDeliveryDays *int `json:"est_delivery_days,omitempty"`
	// Source identifies provider and account, e.g. "easypost/ca_abc123".
	Source  string `json:"source"`
	QuoteID string `json:"quote_id,omitempty"`
}

// BestQuote is the single minimum-cost eligible record, augmented with
// shipment context once selection is finalized.
type BestQuote struct {
	RateRecord
	From   Address `json:"from"`
	To     Address `json:"to"`
	Parcel Parcel  `json:"parcel"`
}

// ComparisonQuote is the fixed-reference baseline (USPS Priority plus an
// insurance estimate). Carrier and Service hold the raw values for the
// same-carrier gate; DisplayService is the customer-facing label.
type ComparisonQuote struct {
	Carrier         string  `json:"carrier"`
	Service         string  `json:"service"`
	DisplayService  string  `json:"display_service"`
	Rate            float64 `json:"rate"`
	Source          string  `json:"source"`
	EstDeliveryDays *int    `json:"est_delivery_days,omitempty"`
}

// CustomerQuote is the customer-facing projection of a priced best
// quote. All amounts are rounded to cents.
type CustomerQuote struct {
	From              Address `json:"from"`
	To                Address `json:"to"`
	Parcel            Parcel  `json:"parcel"`
	Service           string  `json:"service"`
	Rate              float64 `json:"rate"`
	ComparisonRate    float64 `json:"comparison_rate"`
	ComparisonService string  `json:"comparison_service"`
	Savings           float64 `json:"savings"`
	SavingsPercent    float64 `json:"savings_percent"`
}

// Ledger is the internal cost/fee/margin breakdown for one quoted
// shipment. Purely derived; it owns no state of its own.
type Ledger struct {
	PlatformFee          float64 `json:"platform_fee"`
	ShippingCost         float64 `json:"shipping_cost"`
	InsuranceCost        float64 `json:"insurance_cost"`
	AccountHolderCost    float64 `json:"account_holder_cost"`
	AccountHolderFee     float64 `json:"account_holder_fee"`
	AccountHolderPayable float64 `json:"account_holder_payable"`
	CustomerReceivable   float64 `json:"customer_receivable"`
	CostOfGoods          float64 `json:"cost_of_goods"`
	Gross                float64 `json:"gross"`
	GrossMargin          float64 `json:"gross_margin"`
}
