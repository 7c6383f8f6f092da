package service

import (
	"fmt"
	"time"

	"kline_trader/internal/modules/config"
)

func NewModel(cfg *config.Config) (Model, error) {
	s := cfg.Strategy
	switch s.Model {
	case "emarsi", "":
		return NewEMARSI(EMARSIConfig{
			RSIOverbought: s.RSIOverbought,
			RSIOversold:   s.RSIOversold,
			ModelVersion:  s.ModelVersion,
		}), nil
	case "random", "mock":
		seed := s.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return NewRandom(seed, s.ModelVersion), nil
	}
	return nil, fmt.Errorf("unknown strategy.model %q", s.Model)
}

func NewFeatures(cfg *config.Config) FeatureFunc {
	return Technical(TechnicalConfig{
		EMAShort:  cfg.Strategy.EMAShort,
		EMALong:   cfg.Strategy.EMALong,
		RSIPeriod: cfg.Strategy.RSIPeriod,
	})
}
