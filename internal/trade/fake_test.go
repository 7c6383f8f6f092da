package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
)

// fakeExchange — биржа в памяти: пишет журнал вызовов и отвечает по настройкам.
type fakeExchange struct {
	calls   []string
	created []models.OrderIntent
	nextID  int64

	price        decimal.Decimal
	marketStatus models.OrderStatus
	marketErr    error
	createErr    error

	orders    map[int64]models.OrderResult
	cancelErr map[int64]error
	trades    []models.Trade
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		price:        d("30000"),
		marketStatus: models.OrderStatusFilled,
		orders:       map[int64]models.OrderResult{},
		cancelErr:    map[int64]error{},
	}
}

func (f *fakeExchange) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeExchange) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.price, nil
}

func (f *fakeExchange) MarketOrder(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	f.calls = append(f.calls, fmt.Sprintf("market %s %s", side, qty))
	if f.marketErr != nil {
		return models.OrderResult{}, f.marketErr
	}
	res := models.OrderResult{
		OrderID: f.id(),
		Symbol:  symbol,
		Side:    side,
		Type:    models.OrderTypeMarket,
		Status:  f.marketStatus,
		OrigQty: qty,
	}
	if f.marketStatus == models.OrderStatusFilled {
		res.ExecutedQty = qty
		res.CumulativeQuoteQty = qty.Mul(f.price)
		res.AvgFillPrice = f.price
	}
	f.orders[res.OrderID] = res
	return res, nil
}

func (f *fakeExchange) CreateOrder(ctx context.Context, in models.OrderIntent) (models.OrderResult, error) {
	f.calls = append(f.calls, "create "+string(in.Type))
	if f.createErr != nil {
		return models.OrderResult{}, f.createErr
	}
	f.created = append(f.created, in)
	res := models.OrderResult{
		OrderID:     f.id(),
		Symbol:      in.Symbol,
		Side:        in.Side,
		Type:        in.Type,
		TimeInForce: in.TimeInForce,
		Status:      models.OrderStatusNew,
		OrigQty:     in.Quantity,
	}
	f.orders[res.OrderID] = res
	return res, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("cancel %d", orderID))
	if err := f.cancelErr[orderID]; err != nil {
		return err
	}
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.OrderStatusNew {
		return &models.Error{Kind: models.KindExchangeRejected, Op: "cancel", Code: -2011,
			Msg: "Unknown order sent.", Err: models.ErrOrderNotFound}
	}
	o.Status = models.OrderStatusCanceled
	f.orders[orderID] = o
	return nil
}

func (f *fakeExchange) GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderResult, error) {
	f.calls = append(f.calls, fmt.Sprintf("get %d", orderID))
	o, ok := f.orders[orderID]
	if !ok {
		return models.OrderResult{}, &models.Error{Kind: models.KindExchangeRejected, Code: -2013, Err: models.ErrOrderNotFound}
	}
	return o, nil
}

func (f *fakeExchange) OpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	var out []models.OrderResult
	for id := int64(1); id <= f.nextID; id++ {
		if o, ok := f.orders[id]; ok && o.Status == models.OrderStatusNew {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeExchange) MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	return f.trades, nil
}

// orderCalls — журнал без чтений (get), только то, что меняет состояние на бирже.
func (f *fakeExchange) orderCalls() []string {
	var out []string
	for _, c := range f.calls {
		if len(c) >= 3 && c[:3] == "get" {
			continue
		}
		out = append(out, c)
	}
	return out
}
