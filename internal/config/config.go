package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/productjump/ship-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	EasyPost    EasyPostConfig    `yaml:"easypost" mapstructure:"easypost"`
	ShipStation ShipStationConfig `yaml:"shipstation" mapstructure:"shipstation"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Orders      OrdersConfig      `yaml:"orders" mapstructure:"orders"`
	ShipFrom    AddressConfig     `yaml:"ship_from" mapstructure:"ship_from"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// EasyPostConfig holds EasyPost API settings.
type EasyPostConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ShipStationConfig holds ShipStation API settings. AccountName tags
// quotes sourced from this account in results and the ledger.
type ShipStationConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Secret      string `yaml:"secret" mapstructure:"secret"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AccountName string `yaml:"account_name" mapstructure:"account_name"`
	CarrierCode string `yaml:"carrier_code" mapstructure:"carrier_code"`
}

// PricingConfig holds markup and accounting rates. PlatformFee and
// AccountHolderRate have no defaults: they are business-sensitive and
// must be supplied explicitly.
type PricingConfig struct {
	// PlatformFee is the markup fraction f in our_rate = rate / (1 - f).
	PlatformFee float64 `yaml:"platform_fee" mapstructure:"platform_fee"`
	// AccountHolderRate is the fee fraction charged against the shipping
	// account used to fulfill the shipment.
	AccountHolderRate float64 `yaml:"account_holder_rate" mapstructure:"account_holder_rate"`
	// InsuranceEstimate is added to the comparison baseline rate.
	InsuranceEstimate float64 `yaml:"insurance_estimate" mapstructure:"insurance_estimate"`
	// TrustedListRateCarrier is the carrier whose list rate is believed
	// over its quoted rate when the two disagree.
	TrustedListRateCarrier string `yaml:"trusted_list_rate_carrier" mapstructure:"trusted_list_rate_carrier"`
	// BaselineCarrier + BaselineServiceMatch pick the comparison quote:
	// carrier equality plus case-insensitive substring on the service.
	BaselineCarrier      string `yaml:"baseline_carrier" mapstructure:"baseline_carrier"`
	BaselineServiceMatch string `yaml:"baseline_service_match" mapstructure:"baseline_service_match"`
}

// OrdersConfig configures order CSV ingestion.
type OrdersConfig struct {
	CSVPath string `yaml:"csv_path" mapstructure:"csv_path"`
	// ExclusionsPath optionally points at a YAML exclusion policy that
	// replaces the built-in default.
	ExclusionsPath string `yaml:"exclusions_path" mapstructure:"exclusions_path"`
}

// AddressConfig is the configured ship-from address.
type AddressConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Company     string `yaml:"company" mapstructure:"company"`
	Street1     string `yaml:"street1" mapstructure:"street1"`
	Street2     string `yaml:"street2" mapstructure:"street2"`
	City        string `yaml:"city" mapstructure:"city"`
	State       string `yaml:"state" mapstructure:"state"`
	PostalCode  string `yaml:"postal_code" mapstructure:"postal_code"`
	Country     string `yaml:"country" mapstructure:"country"`
	Phone       string `yaml:"phone" mapstructure:"phone"`
	Residential bool   `yaml:"residential" mapstructure:"residential"`
}

// Address converts the configured ship-from address to a model.Address.
func (a AddressConfig) Address() model.Address {
	return model.Address{
		Name:        a.Name,
		Company:     a.Company,
		Street1:     a.Street1,
		Street2:     a.Street2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country,
		Phone:       a.Phone,
		Residential: a.Residential,
	}
}

// ServerConfig configures the quote webhook server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("easypost.base_url", "https://api.easypost.com/v2")
	v.SetDefault("shipstation.base_url", "https://ssapi.shipstation.com")
	v.SetDefault("shipstation.carrier_code", "fedex")
	v.SetDefault("orders.csv_path", "csv/orders_export.csv")
	// Sentinels: fee rates are required inputs, never guessed.
	v.SetDefault("pricing.platform_fee", -1.0)
	v.SetDefault("pricing.account_holder_rate", -1.0)
	v.SetDefault("pricing.insurance_estimate", 0.0)
	v.SetDefault("pricing.trusted_list_rate_carrier", "usps")
	v.SetDefault("pricing.baseline_carrier", "usps")
	v.SetDefault("pricing.baseline_service_match", "priority")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects configurations that would fail mid-computation. A
// platform fee of 1 divides by zero at pricing time, so it is refused
// here instead.
func (c *Config) Validate() error {
	if c.Pricing.PlatformFee < 0 || c.Pricing.PlatformFee >= 1 {
		return eris.Errorf("config: pricing.platform_fee must be set in [0, 1), got %v", c.Pricing.PlatformFee)
	}
	if c.Pricing.AccountHolderRate < 0 {
		return eris.Errorf("config: pricing.account_holder_rate must be set and non-negative, got %v", c.Pricing.AccountHolderRate)
	}
	if c.Pricing.InsuranceEstimate < 0 {
		return eris.Errorf("config: pricing.insurance_estimate must be non-negative, got %v", c.Pricing.InsuranceEstimate)
	}
	if c.Pricing.TrustedListRateCarrier == "" {
		return eris.New("config: pricing.trusted_list_rate_carrier is required")
	}
	if c.Pricing.BaselineCarrier == "" || c.Pricing.BaselineServiceMatch == "" {
		return eris.New("config: pricing.baseline_carrier and pricing.baseline_service_match are required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
