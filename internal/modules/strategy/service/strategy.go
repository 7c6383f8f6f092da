package service

import (
	"kline_trader/internal/models"
	"kline_trader/pkg/ringbuf"
)

// FeatureFunc считает вектор признаков по окну закрытых свечей и новой свече.
// Окно только читается.
type FeatureFunc func(window ringbuf.View[models.Candle], next models.Candle) (models.Features, error)

// Model — сигнальная модель: признаки -> BUY / SELL / HOLD.
type Model interface {
	Predict(f models.Features) (models.Signal, error)
	Name() string
	Version() string
}
