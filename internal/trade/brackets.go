package trade

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kline_trader/internal/metrics"
	"kline_trader/internal/models"
)

// OrderAPI — торговая часть REST-клиента биржи.
type OrderAPI interface {
	MarketOrder(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (models.OrderResult, error)
	CreateOrder(ctx context.Context, in models.OrderIntent) (models.OrderResult, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderResult, error)
	OpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error)
}

// BracketRates — доли от средней цены входа.
// Trigger — цена срабатывания (stopPrice), без Trigger — лимитная цена ноги.
type BracketRates struct {
	StopLoss          decimal.Decimal
	StopLossTrigger   decimal.Decimal
	TakeProfit        decimal.Decimal
	TakeProfitTrigger decimal.Decimal
}

func RatesFromFloats(sl, slTrigger, tp, tpTrigger float64) BracketRates {
	return BracketRates{
		StopLoss:          decimal.NewFromFloat(sl),
		StopLossTrigger:   decimal.NewFromFloat(slTrigger),
		TakeProfit:        decimal.NewFromFloat(tp),
		TakeProfitTrigger: decimal.NewFromFloat(tpTrigger),
	}
}

// Legs — какие защитные ноги ставить.
type Legs struct {
	StopLoss   bool
	TakeProfit bool
}

func (l Legs) Any() bool { return l.StopLoss || l.TakeProfit }

type Brackets struct {
	StopLossOrderID   int64
	TakeProfitOrderID int64
}

// BracketManager ставит вход/выход по рынку и защитные stop-limit ордера
// по одному символу.
type BracketManager struct {
	api    OrderAPI
	rules  models.SymbolRules
	rates  BracketRates
	logger *zap.Logger
}

func NewBracketManager(api OrderAPI, rules models.SymbolRules, rates BracketRates, logger *zap.Logger) *BracketManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BracketManager{
		api:    api,
		rules:  rules,
		rates:  rates,
		logger: logger.With(zap.String("symbol", rules.Symbol)),
	}
}

func (b *BracketManager) Rules() models.SymbolRules { return b.rules }

func (b *BracketManager) EnterMarket(ctx context.Context, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	return b.market(ctx, "enter", side, qty)
}

func (b *BracketManager) ExitMarket(ctx context.Context, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	return b.market(ctx, "exit", side, qty)
}

func (b *BracketManager) market(ctx context.Context, op string, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	res, err := b.api.MarketOrder(ctx, b.rules.Symbol, side, qty)
	if err != nil {
		metrics.ObserveOrder(b.rules.Symbol, string(side), string(models.OrderTypeMarket), "error")
		return models.OrderResult{}, asExchangeError(op, err)
	}
	metrics.ObserveOrder(b.rules.Symbol, string(side), string(models.OrderTypeMarket), string(res.Status))

	b.logger.Info("market order",
		zap.String("op", op),
		zap.String("side", string(side)),
		zap.String("qty", qty.String()),
		zap.Int64("order_id", res.OrderID),
		zap.String("status", string(res.Status)),
		zap.String("avg_price", res.AvgFillPrice.String()),
	)

	if res.Status.Failed() {
		return res, models.Errorf(models.KindExchangeRejected, op, "%s %s order %d status %s",
			side, b.rules.Symbol, res.OrderID, res.Status)
	}
	return res, nil
}

// AttachBrackets ставит stop-loss и/или take-profit на весь объём позиции.
// Для LONG обе ноги SELL: стоп ниже цены входа, тейк выше; для SHORT зеркально.
// При ошибке на второй ноге возвращает уже поставленные id вместе с ошибкой.
func (b *BracketManager) AttachBrackets(ctx context.Context, status models.PositionStatus, entryAvgPrice, qty decimal.Decimal, legs Legs) (Brackets, error) {
	var out Brackets
	if status == models.StatusEmpty || !legs.Any() {
		return out, nil
	}

	lot, err := NormalizeLot(b.rules, qty)
	if err != nil {
		return out, err
	}

	closeSide := status.EntrySide().Opposite()
	one := decimal.NewFromInt(1)
	// sign: для LONG стоп ниже (1 - r), для SHORT выше (1 + r)
	below := func(r decimal.Decimal) decimal.Decimal {
		if status == models.StatusShort {
			return entryAvgPrice.Mul(one.Add(r))
		}
		return entryAvgPrice.Mul(one.Sub(r))
	}
	above := func(r decimal.Decimal) decimal.Decimal {
		if status == models.StatusShort {
			return entryAvgPrice.Mul(one.Sub(r))
		}
		return entryAvgPrice.Mul(one.Add(r))
	}

	if legs.StopLoss {
		id, err := b.placeLeg(ctx, models.OrderTypeStopLossLimit, closeSide, lot,
			below(b.rates.StopLossTrigger), below(b.rates.StopLoss))
		if err != nil {
			return out, err
		}
		out.StopLossOrderID = id
	}
	if legs.TakeProfit {
		id, err := b.placeLeg(ctx, models.OrderTypeTakeProfitLimit, closeSide, lot,
			above(b.rates.TakeProfitTrigger), above(b.rates.TakeProfit))
		if err != nil {
			return out, err
		}
		out.TakeProfitOrderID = id
	}
	return out, nil
}

func (b *BracketManager) placeLeg(ctx context.Context, typ models.OrderType, side models.Side, qty, stop, limit decimal.Decimal) (int64, error) {
	stopPrice, err := NormalizePrice(b.rules, stop)
	if err != nil {
		return 0, err
	}
	price, err := NormalizePrice(b.rules, limit)
	if err != nil {
		return 0, err
	}

	res, err := b.api.CreateOrder(ctx, models.OrderIntent{
		Symbol:      b.rules.Symbol,
		Side:        side,
		Type:        typ,
		Quantity:    qty,
		Price:       price,
		StopPrice:   stopPrice,
		TimeInForce: models.TimeInForceGTC,
	})
	if err != nil {
		metrics.ObserveOrder(b.rules.Symbol, string(side), string(typ), "error")
		return 0, asExchangeError("attach "+string(typ), err)
	}
	metrics.ObserveOrder(b.rules.Symbol, string(side), string(typ), string(res.Status))
	if res.Status.Failed() {
		return 0, models.Errorf(models.KindExchangeRejected, "attach", "%s order %d status %s", typ, res.OrderID, res.Status)
	}

	b.logger.Info("bracket placed",
		zap.String("type", string(typ)),
		zap.Int64("order_id", res.OrderID),
		zap.String("stop_price", stopPrice),
		zap.String("price", price),
		zap.String("qty", qty.String()),
	)
	return res.OrderID, nil
}

// CancelBrackets отменяет все переданные ноги. Ордер, которого биржа уже не знает,
// считается отменённым, поэтому повторный вызов безопасен.
func (b *BracketManager) CancelBrackets(ctx context.Context, ids []int64) error {
	var firstErr error
	for _, id := range ids {
		if id == 0 {
			continue
		}
		err := b.api.CancelOrder(ctx, b.rules.Symbol, id)
		switch {
		case err == nil:
			b.logger.Info("bracket canceled", zap.Int64("order_id", id))
		case errors.Is(err, models.ErrOrderNotFound):
			b.logger.Info("bracket already gone", zap.Int64("order_id", id))
		default:
			if firstErr == nil {
				firstErr = asExchangeError("cancel", err)
			}
		}
	}
	return firstErr
}

// BracketState — статус ноги на бирже. Неизвестный ордер считается отменённым.
func (b *BracketManager) BracketState(ctx context.Context, id int64) (models.OrderResult, error) {
	res, err := b.api.GetOrder(ctx, b.rules.Symbol, id)
	if errors.Is(err, models.ErrOrderNotFound) {
		return models.OrderResult{OrderID: id, Symbol: b.rules.Symbol, Status: models.OrderStatusCanceled}, nil
	}
	if err != nil {
		return models.OrderResult{}, asExchangeError("bracket state", err)
	}
	return res, nil
}

// OpenBrackets — висящие на бирже stop-loss/take-profit ордера по символу.
func (b *BracketManager) OpenBrackets(ctx context.Context) (stopLoss, takeProfit []models.OrderResult, err error) {
	open, err := b.api.OpenOrders(ctx, b.rules.Symbol)
	if err != nil {
		return nil, nil, asExchangeError("open orders", err)
	}
	for _, o := range open {
		switch o.Type {
		case models.OrderTypeStopLossLimit:
			stopLoss = append(stopLoss, o)
		case models.OrderTypeTakeProfitLimit:
			takeProfit = append(takeProfit, o)
		}
	}
	return stopLoss, takeProfit, nil
}

// asExchangeError оставляет размеченные ошибки как есть, остальное — ExchangeRejected.
func asExchangeError(op string, err error) error {
	var e *models.Error
	if errors.As(err, &e) {
		return err
	}
	return models.NewError(models.KindExchangeRejected, op, err)
}
