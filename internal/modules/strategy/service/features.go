package service

import (
	"fmt"
	"math"

	"kline_trader/internal/models"
	"kline_trader/pkg/ringbuf"
)

// Индексы в векторе признаков Technical.
const (
	FeatClose = iota
	FeatLogReturn
	FeatEMAShort
	FeatEMALong
	FeatRSI
	// 1 — индикаторы прогреты
	FeatReady
	featCount
)

type TechnicalConfig struct {
	EMAShort  int
	EMALong   int
	RSIPeriod int
}

// Technical — признаки по ценам закрытия: close, лог-доходность, EMA short/long, RSI.
func Technical(cfg TechnicalConfig) FeatureFunc {
	return func(window ringbuf.View[models.Candle], next models.Candle) (models.Features, error) {
		if next.Close <= 0 {
			return nil, fmt.Errorf("features: non-positive close %v", next.Close)
		}

		emaS, emaL := newEMA(cfg.EMAShort), newEMA(cfg.EMALong)
		rsi := newRSI(cfg.RSIPeriod)
		update := func(price float64) {
			emaS.Update(price)
			emaL.Update(price)
			rsi.Update(price)
		}

		prev := 0.0
		for i := 0; i < window.Len(); i++ {
			c, _ := window.At(i)
			update(c.Close)
			prev = c.Close
		}
		update(next.Close)

		f := make(models.Features, featCount)
		f[FeatClose] = next.Close
		if prev > 0 {
			f[FeatLogReturn] = math.Log(next.Close / prev)
		}
		f[FeatEMAShort] = emaS.Value()
		f[FeatEMALong] = emaL.Value()
		f[FeatRSI] = rsi.Value()
		if emaS.Ready() && emaL.Ready() && rsi.Ready() {
			f[FeatReady] = 1
		}
		return f, nil
	}
}
