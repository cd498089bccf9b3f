package quote

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/productjump/ship-cli/internal/model"
)

// ExclusionPolicy lists carriers and per-carrier services that are not
// eligible for selection. All lookups case-fold. The comparison
// baseline does not consult the policy at all.
type ExclusionPolicy struct {
	// Carriers are excluded outright, every service.
	Carriers []string `yaml:"carriers"`
	// Services maps a carrier to its excluded service codes. A carrier
	// with no entry is always eligible.
	Services map[string][]string `yaml:"services"`
}

// DefaultExclusionPolicy returns the built-in policy: slow USPS tiers
// and FedEx SmartPost are never offered.
func DefaultExclusionPolicy() ExclusionPolicy {
	return ExclusionPolicy{
		Services: map[string][]string{
			"usps":  {"parcelselect", "first"},
			"fedex": {"fedex_smartpost_parcel_select"},
		},
	}
}

// LoadExclusionPolicy reads a policy from a YAML file.
func LoadExclusionPolicy(path string) (ExclusionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExclusionPolicy{}, eris.Wrapf(err, "exclusions: read %s", path)
	}

	var p ExclusionPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return ExclusionPolicy{}, eris.Wrapf(err, "exclusions: parse %s", path)
	}
	return p, nil
}

// Clone returns a deep copy, so per-request additions (the domestic DHL
// rule) never leak into the configured policy.
func (p ExclusionPolicy) Clone() ExclusionPolicy {
	out := ExclusionPolicy{
		Carriers: append([]string(nil), p.Carriers...),
		Services: make(map[string][]string, len(p.Services)),
	}
	for carrier, services := range p.Services {
		out.Services[carrier] = append([]string(nil), services...)
	}
	return out
}

// ExcludeCarrier adds a whole-carrier exclusion.
func (p *ExclusionPolicy) ExcludeCarrier(carrier string) {
	p.Carriers = append(p.Carriers, carrier)
}

// ExcludesCarrier reports whether every service of carrier is excluded.
func (p ExclusionPolicy) ExcludesCarrier(carrier string) bool {
	folded := strings.ToLower(carrier)
	for _, c := range p.Carriers {
		if strings.ToLower(c) == folded {
			return true
		}
	}
	return false
}

// Eligible reports whether a carrier+service may be selected. The
// carrier key and service entries compare case-folded; a carrier absent
// from both lists is always eligible.
func (p ExclusionPolicy) Eligible(carrier, service string) bool {
	if p.ExcludesCarrier(carrier) {
		return false
	}

	foldedCarrier := strings.ToLower(carrier)
	foldedService := strings.ToLower(service)
	for key, services := range p.Services {
		if strings.ToLower(key) != foldedCarrier {
			continue
		}
		for _, s := range services {
			if strings.ToLower(s) == foldedService {
				return false
			}
		}
	}
	return true
}

// EligibleRecord applies Eligible to a normalized record, matching on
// the provider's service code when it carries one. Policy entries name
// codes, not display labels; for the itemized source the two are the
// same string.
func (p ExclusionPolicy) EligibleRecord(rec model.RateRecord) bool {
	service := rec.Service
	if rec.ServiceCode != "" {
		service = rec.ServiceCode
	}
	return p.Eligible(rec.Carrier, service)
}

// IsDomesticUS reports whether a shipment stays inside the US. DHL
// cannot rate US domestic shipments ("Unable to retrieve DHLExpress
// rates for US domestic shipments"), so the engine carrier-excludes DHL
// when this holds.
func IsDomesticUS(from, to model.Address) bool {
	return strings.EqualFold(from.Country, "US") && strings.EqualFold(to.Country, "US")
}
