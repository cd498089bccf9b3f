// Package model defines the request-scoped value types shared across the
// quoting pipeline. Nothing in here carries state between requests.
package model

// Address is a verified postal address. Verification happens upstream
// (the EasyPost address API); the engine treats these as already clean.
type Address struct {
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
	Residential bool   `json:"residential,omitempty"`
}

// Parcel describes one package: dimensions in inches, weight in ounces.
// PredefinedPackage, when set, names a carrier flat-rate package and
// overrides the dimensions for quoting.
type Parcel struct {
	Length            float64 `json:"length"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	WeightOz          float64 `json:"weight_oz"`
	PredefinedPackage string  `json:"predefined_package,omitempty"`
	Description       string  `json:"description,omitempty"`
	InsuranceValue    float64 `json:"insurance_value,omitempty"`
}

// Order is one row from the sales-platform export, reduced to what
// quoting needs. Multi-item orders are out of scope.
type Order struct {
	CustomerOrderID string  `json:"customer_order_id"`
	PlatformOrderID string  `json:"platform_order_id"`
	ShipTo          Address `json:"ship_to"`
}
