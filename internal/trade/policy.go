package trade

import "kline_trader/internal/models"

// Policy решает, когда покупать и продавать и какие защитные ноги ставить после входа.
// Новая стратегия — новая реализация Policy, цикл не меняется.
type Policy interface {
	Name() string
	// LongCondition — нужен BUY: вход в LONG или закрытие SHORT.
	LongCondition(sig models.Signal, status models.PositionStatus) bool
	// ShortCondition — нужен SELL: закрытие LONG или вход в SHORT.
	ShortCondition(sig models.Signal, status models.PositionStatus) bool
	StopLossCondition() bool
	TakeProfitCondition() bool
}

// LongOnly — только длинные позиции, стоп-лосс обязателен.
type LongOnly struct {
	TakeProfit bool
}

func (LongOnly) Name() string { return "long_only" }

func (LongOnly) LongCondition(sig models.Signal, status models.PositionStatus) bool {
	return sig == models.SignalBuy && status == models.StatusEmpty
}

func (LongOnly) ShortCondition(sig models.Signal, status models.PositionStatus) bool {
	return sig == models.SignalSell && status == models.StatusLong
}

func (LongOnly) StopLossCondition() bool     { return true }
func (p LongOnly) TakeProfitCondition() bool { return p.TakeProfit }

// LongShort — симметричная: SELL из EMPTY открывает SHORT, BUY из SHORT закрывает.
// Защитные ордера не ставит.
type LongShort struct{}

func (LongShort) Name() string { return "long_short" }

func (LongShort) LongCondition(sig models.Signal, status models.PositionStatus) bool {
	return sig == models.SignalBuy && (status == models.StatusEmpty || status == models.StatusShort)
}

func (LongShort) ShortCondition(sig models.Signal, status models.PositionStatus) bool {
	return sig == models.SignalSell && (status == models.StatusEmpty || status == models.StatusLong)
}

func (LongShort) StopLossCondition() bool   { return false }
func (LongShort) TakeProfitCondition() bool { return false }

func legsFor(p Policy) Legs {
	return Legs{StopLoss: p.StopLossCondition(), TakeProfit: p.TakeProfitCondition()}
}
