package service

import (
	"fmt"

	"kline_trader/internal/models"
)

type EMARSIConfig struct {
	RSIOverbought float64
	RSIOversold   float64
	ModelVersion  string
}

// EMARSI — пороговая модель по признакам Technical:
// BUY при EMA short > EMA long и RSI ниже oversold, SELL при обратном пересечении и RSI выше overbought.
type EMARSI struct {
	cfg EMARSIConfig
}

func NewEMARSI(cfg EMARSIConfig) *EMARSI {
	return &EMARSI{cfg: cfg}
}

func (e *EMARSI) Name() string    { return "emarsi" }
func (e *EMARSI) Version() string { return e.cfg.ModelVersion }

func (e *EMARSI) Predict(f models.Features) (models.Signal, error) {
	if len(f) < featCount {
		return models.SignalHold, fmt.Errorf("emarsi: want %d features, got %d", featCount, len(f))
	}
	// прогрев: ждём достаточно точек
	if f[FeatReady] == 0 {
		return models.SignalHold, nil
	}

	emaS, emaL, rsi := f[FeatEMAShort], f[FeatEMALong], f[FeatRSI]
	switch {
	case emaS > emaL && rsi < e.cfg.RSIOversold:
		return models.SignalBuy, nil
	case emaS < emaL && rsi > e.cfg.RSIOverbought:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
