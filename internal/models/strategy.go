package models

// Signal — выход сигнальной модели.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Features — вектор признаков, который считает feature-функция по окну свечей.
type Features []float64

// Side — сторона ордера на бирже.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite возвращает сторону закрытия.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}
