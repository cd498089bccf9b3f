package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/productjump/ship-cli/internal/quote"
	"github.com/productjump/ship-cli/pkg/easypost"
	"github.com/productjump/ship-cli/pkg/shipstation"
)

// initEngine builds a quoting engine from config: provider clients,
// exclusion policy, and validated pricing.
func initEngine() (*quote.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EasyPost.Key == "" {
		return nil, eris.New("SHIP_EASYPOST_KEY is required: EasyPost is the primary rate source")
	}

	ep := easypost.NewClient(cfg.EasyPost.Key, easypost.WithBaseURL(cfg.EasyPost.BaseURL))

	// ShipStation is optional; without it the engine quotes from
	// EasyPost alone.
	var ss quote.ShipStationClient
	if cfg.ShipStation.Key != "" && cfg.ShipStation.Secret != "" {
		ss = shipstation.NewClient(cfg.ShipStation.Key, cfg.ShipStation.Secret,
			shipstation.WithBaseURL(cfg.ShipStation.BaseURL))
	} else {
		zap.L().Warn("SHIP_SHIPSTATION_KEY/SECRET not set, quoting from EasyPost only")
	}

	policy := quote.DefaultExclusionPolicy()
	if cfg.Orders.ExclusionsPath != "" {
		p, err := quote.LoadExclusionPolicy(cfg.Orders.ExclusionsPath)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	return quote.New(ep, ss, cfg.ShipStation, policy, cfg.Pricing), nil
}
