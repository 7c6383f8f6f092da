package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kline_trader/internal/metrics"
	"kline_trader/internal/models"
)

type PriceAPI interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type TradeHistory interface {
	MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
}

// Outcome — что произошло с позицией за один сигнал.
type Outcome struct {
	From   models.PositionStatus
	To     models.PositionStatus
	Orders []models.OrderResult
	// Alerts — то, что оператор должен увидеть, даже если перехода не было
	Alerts []string
}

func (o Outcome) Transitioned() bool { return o.From != o.To }

// Machine — конечный автомат позиции по одному символу: EMPTY, LONG, SHORT.
// Переход только по FILLED, без усреднения, защитные ноги снимаются до выхода.
type Machine struct {
	policy   Policy
	brackets *BracketManager
	prices   PriceAPI
	quantity decimal.Decimal

	pos    models.Position
	logger *zap.Logger
	now    func() time.Time
}

func NewMachine(policy Policy, brackets *BracketManager, prices PriceAPI, quantity decimal.Decimal, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	symbol := brackets.Rules().Symbol
	m := &Machine{
		policy:   policy,
		brackets: brackets,
		prices:   prices,
		quantity: quantity,
		pos:      models.EmptyPosition(symbol),
		logger:   logger.With(zap.String("symbol", symbol), zap.String("policy", policy.Name())),
		now:      time.Now,
	}
	m.publish()
	return m
}

func (m *Machine) Position() models.Position { return m.pos }

func (m *Machine) symbol() string { return m.brackets.Rules().Symbol }

// OnSignal применяет сигнал к позиции. Ордера в Outcome возвращаются даже при ошибке,
// если биржа успела их принять.
func (m *Machine) OnSignal(ctx context.Context, sig models.Signal) (Outcome, error) {
	out := Outcome{From: m.pos.Status, To: m.pos.Status}

	if len(m.pos.BracketIDs()) > 0 {
		closed, err := m.syncBrackets(ctx, &out)
		if err != nil || closed {
			return out, err
		}
	}

	status := m.pos.Status
	var err error
	switch {
	case m.policy.ShortCondition(sig, status):
		if status == models.StatusLong {
			err = m.exit(ctx, models.SideSell, &out)
		} else if status == models.StatusEmpty {
			err = m.enter(ctx, models.StatusShort, &out)
		}
	case m.policy.LongCondition(sig, status):
		if status == models.StatusEmpty {
			err = m.enter(ctx, models.StatusLong, &out)
		} else if status == models.StatusShort {
			err = m.exit(ctx, models.SideBuy, &out)
		}
	}
	return out, err
}

func (m *Machine) enter(ctx context.Context, target models.PositionStatus, out *Outcome) error {
	rules := m.brackets.Rules()

	price, err := m.prices.Price(ctx, rules.Symbol)
	if err != nil {
		return asExchangeError("price", err)
	}
	qty, err := NormalizeQuantity(rules, m.quantity, price)
	if err != nil {
		return err
	}

	side := target.EntrySide()
	res, err := m.brackets.EnterMarket(ctx, side, qty)
	if res.OrderID != 0 {
		out.Orders = append(out.Orders, res)
	}
	if err != nil {
		return err
	}
	if !res.Filled() {
		m.logger.Warn("entry not filled, position unchanged",
			zap.Int64("order_id", res.OrderID), zap.String("status", string(res.Status)))
		out.Alerts = append(out.Alerts, fmt.Sprintf("entry order %d is %s, position stays %s",
			res.OrderID, res.Status, m.pos.Status))
		return nil
	}

	avg := res.AvgFillPrice
	if !avg.IsPositive() {
		avg = price
	}
	held := res.ExecutedQty
	if side == models.SideBuy && rules.BaseAsset != "" {
		held = res.NetQty(rules.BaseAsset)
	}

	m.pos = models.Position{
		Symbol:            rules.Symbol,
		Status:            target,
		AverageEntryPrice: avg,
		Quantity:          held,
		UpdatedAt:         m.now(),
	}
	out.To = target
	m.publish()

	legs := legsFor(m.policy)
	if !legs.Any() {
		return nil
	}
	br, err := m.brackets.AttachBrackets(ctx, target, avg, held, legs)
	m.pos.StopLossOrderID = br.StopLossOrderID
	m.pos.TakeProfitOrderID = br.TakeProfitOrderID
	return err
}

func (m *Machine) exit(ctx context.Context, side models.Side, out *Outcome) error {
	if ids := m.pos.BracketIDs(); len(ids) > 0 {
		if err := m.brackets.CancelBrackets(ctx, ids); err != nil {
			return err
		}
		m.pos.StopLossOrderID, m.pos.TakeProfitOrderID = 0, 0
	}

	qty, err := NormalizeLot(m.brackets.Rules(), m.pos.Quantity)
	if err != nil {
		return err
	}

	res, err := m.brackets.ExitMarket(ctx, side, qty)
	if res.OrderID != 0 {
		out.Orders = append(out.Orders, res)
	}
	if err != nil {
		return err
	}
	if !res.Filled() {
		m.logger.Warn("exit not filled, position kept",
			zap.Int64("order_id", res.OrderID), zap.String("status", string(res.Status)),
			zap.String("executed", res.ExecutedQty.String()))
		if rest := m.pos.Quantity.Sub(res.ExecutedQty); rest.IsPositive() {
			m.pos.Quantity = rest
		}
		out.Alerts = append(out.Alerts, fmt.Sprintf("exit order %d is %s, %s qty=%s still open",
			res.OrderID, res.Status, m.pos.Status, m.pos.Quantity))
		return m.protect(ctx, out)
	}

	m.close(out)
	return nil
}

// protect заново ставит защитные ноги на остаток позиции после неисполненного выхода.
func (m *Machine) protect(ctx context.Context, out *Outcome) error {
	legs := legsFor(m.policy)
	if !legs.Any() {
		out.Alerts = append(out.Alerts, "policy "+m.policy.Name()+" places no brackets, position is unprotected")
		return nil
	}
	qty, err := NormalizeLot(m.brackets.Rules(), m.pos.Quantity)
	if err != nil {
		out.Alerts = append(out.Alerts, fmt.Sprintf("remaining qty %s cannot carry brackets: %v", m.pos.Quantity, err))
		return nil
	}
	br, err := m.brackets.AttachBrackets(ctx, m.pos.Status, m.pos.AverageEntryPrice, qty, legs)
	m.pos.StopLossOrderID = br.StopLossOrderID
	m.pos.TakeProfitOrderID = br.TakeProfitOrderID
	if err != nil {
		return err
	}
	out.Alerts = append(out.Alerts, fmt.Sprintf("brackets re-attached: sl=%d tp=%d", br.StopLossOrderID, br.TakeProfitOrderID))
	return nil
}

// syncBrackets проверяет ноги на бирже. Исполненная нога значит, что биржа уже закрыла
// позицию: вторую ногу снимаем, позиция становится EMPTY без рыночного выхода.
func (m *Machine) syncBrackets(ctx context.Context, out *Outcome) (bool, error) {
	for _, id := range m.pos.BracketIDs() {
		st, err := m.brackets.BracketState(ctx, id)
		if err != nil {
			return false, err
		}

		switch {
		case st.Filled():
			out.Orders = append(out.Orders, st)
			var rest []int64
			for _, other := range m.pos.BracketIDs() {
				if other != id {
					rest = append(rest, other)
				}
			}
			if err := m.brackets.CancelBrackets(ctx, rest); err != nil {
				return false, err
			}
			m.logger.Info("position closed by bracket",
				zap.Int64("order_id", id), zap.String("type", string(st.Type)))
			m.close(out)
			return true, nil

		case st.Status.Failed():
			m.logger.Warn("bracket leg is gone", zap.Int64("order_id", id), zap.String("status", string(st.Status)))
			if m.pos.StopLossOrderID == id {
				m.pos.StopLossOrderID = 0
			}
			if m.pos.TakeProfitOrderID == id {
				m.pos.TakeProfitOrderID = 0
			}
		}
	}
	return false, nil
}

func (m *Machine) close(out *Outcome) {
	m.pos = models.EmptyPosition(m.symbol())
	m.pos.UpdatedAt = m.now()
	out.To = models.StatusEmpty
	m.publish()
}

// Restore поднимает позицию по состоянию биржи: висящие защитные ноги означают
// открытую позицию, средняя цена считается по последним сделкам.
func (m *Machine) Restore(ctx context.Context, history TradeHistory) error {
	sl, tp, err := m.brackets.OpenBrackets(ctx)
	if err != nil {
		return err
	}
	if len(sl) == 0 && len(tp) == 0 {
		m.pos = models.EmptyPosition(m.symbol())
		m.publish()
		return nil
	}

	legs := append(append([]models.OrderResult{}, sl...), tp...)
	leg := legs[0]
	status := models.StatusLong
	if leg.Side == models.SideBuy {
		status = models.StatusShort
	}

	pos := models.Position{
		Symbol:    m.symbol(),
		Status:    status,
		Quantity:  leg.OrigQty,
		UpdatedAt: m.now(),
	}
	if len(sl) > 0 {
		pos.StopLossOrderID = sl[0].OrderID
	}
	if len(tp) > 0 {
		pos.TakeProfitOrderID = tp[0].OrderID
	}

	if history != nil {
		trades, err := history.MyTrades(ctx, m.symbol(), 100)
		if err != nil {
			return asExchangeError("my trades", err)
		}
		pos.AverageEntryPrice = entryPrice(trades, status == models.StatusLong, pos.Quantity)
	}

	m.pos = pos
	m.publish()
	m.logger.Info("position restored",
		zap.String("status", string(pos.Status)),
		zap.String("qty", pos.Quantity.String()),
		zap.String("avg_price", pos.AverageEntryPrice.String()),
		zap.Int64("stop_loss_id", pos.StopLossOrderID),
		zap.Int64("take_profit_id", pos.TakeProfitOrderID),
	)
	return nil
}

// entryPrice — средневзвешенная цена последних сделок входа, покрывающих qty.
func entryPrice(trades []models.Trade, buyer bool, qty decimal.Decimal) decimal.Decimal {
	var filled, quote decimal.Decimal
	for i := len(trades) - 1; i >= 0 && filled.LessThan(qty); i-- {
		t := trades[i]
		if t.IsBuyer != buyer {
			continue
		}
		filled = filled.Add(t.Qty)
		quote = quote.Add(t.QuoteQty)
	}
	if !filled.IsPositive() {
		return decimal.Zero
	}
	return quote.DivRound(filled, 16)
}

func (m *Machine) publish() {
	metrics.SetPositionStatus(m.symbol(), string(m.pos.Status),
		string(models.StatusEmpty), string(models.StatusLong), string(models.StatusShort))
}
