package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
	"kline_trader/internal/records"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func btcRules() models.SymbolRules {
	return models.SymbolRules{
		Symbol:              "BTCUSDT",
		BaseAsset:           "BTC",
		QuoteAsset:          "USDT",
		StepSize:            d("0.00001"),
		MinQty:              d("0.00001"),
		MaxQty:              d("9000"),
		MinNotional:         d("5"),
		ApplyMinToMarket:    true,
		TickSize:            d("0.01"),
		MinPrice:            d("0.01"),
		MaxPrice:            d("1000000"),
		QuoteAssetPrecision: 2,
	}
}

type step struct {
	c   models.Candle
	err error
}

// scriptStream отдаёт шаги по порядку, потом ждёт отмены контекста.
type scriptStream struct {
	mu     sync.Mutex
	steps  []step
	cancel context.CancelFunc
	closed bool
}

func (s *scriptStream) ReceiveNext(ctx context.Context) (models.Candle, error) {
	s.mu.Lock()
	if len(s.steps) > 0 {
		st := s.steps[0]
		s.steps = s.steps[1:]
		s.mu.Unlock()
		return st.c, st.err
	}
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	<-ctx.Done()
	return models.Candle{}, ctx.Err()
}

func (s *scriptStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func candle(minute int, closePrice float64, closed bool) models.Candle {
	open := time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC)
	return models.Candle{
		Symbol:    "BTCUSDT",
		Interval:  "1m",
		OpenTime:  open,
		CloseTime: open.Add(time.Minute - time.Millisecond),
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
		IsClosed:  closed,
	}
}

type scriptModel struct {
	signals []models.Signal
	calls   int
}

func (m *scriptModel) Predict(models.Features) (models.Signal, error) {
	m.calls++
	if m.calls > len(m.signals) {
		return models.SignalHold, nil
	}
	return m.signals[m.calls-1], nil
}

func (m *scriptModel) Name() string    { return "script" }
func (m *scriptModel) Version() string { return "test" }

type fakeSink struct {
	mu   sync.Mutex
	rows map[records.Table]int
}

func newFakeSink() *fakeSink { return &fakeSink{rows: map[records.Table]int{}} }

func (s *fakeSink) Append(_ context.Context, table records.Table, rows []records.Row) {
	s.mu.Lock()
	s.rows[table] += len(rows)
	s.mu.Unlock()
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

func (n *fakeNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// fakeExchange — биржа в памяти: рыночные ордера исполняются сразу по price.
type fakeExchange struct {
	mu     sync.Mutex
	calls  []string
	nextID int64
	orders map[int64]models.OrderResult

	price     decimal.Decimal
	marketErr error
	createErr error
	closed    bool
	// exitStatus, если задан, — статус рыночных SELL вместо FILLED
	exitStatus models.OrderStatus
	// onMarket вызывается после исполнения рыночного ордера
	onMarket func()
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{price: d("30000"), orders: map[int64]models.OrderResult{}}
}

func (f *fakeExchange) log(c string) {
	f.calls = append(f.calls, c)
}

func (f *fakeExchange) MarketOrder(_ context.Context, symbol string, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log(fmt.Sprintf("market %s %s", side, qty))
	if f.marketErr != nil {
		return models.OrderResult{}, f.marketErr
	}
	f.nextID++
	res := models.OrderResult{
		OrderID:            f.nextID,
		Symbol:             symbol,
		Side:               side,
		Type:               models.OrderTypeMarket,
		Status:             models.OrderStatusFilled,
		OrigQty:            qty,
		ExecutedQty:        qty,
		CumulativeQuoteQty: qty.Mul(f.price),
		AvgFillPrice:       f.price,
	}
	if side == models.SideSell && f.exitStatus != "" {
		res.Status = f.exitStatus
		res.ExecutedQty = decimal.Zero
		res.CumulativeQuoteQty = decimal.Zero
	}
	f.orders[res.OrderID] = res
	if f.onMarket != nil {
		f.onMarket()
	}
	return res, nil
}

// CreateOrder, как настоящий HTTP-клиент, не уходит на биржу с отменённым контекстом.
func (f *fakeExchange) CreateOrder(ctx context.Context, in models.OrderIntent) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("create " + string(in.Type))
	if err := ctx.Err(); err != nil {
		return models.OrderResult{}, err
	}
	if f.createErr != nil {
		return models.OrderResult{}, f.createErr
	}
	f.nextID++
	res := models.OrderResult{
		OrderID:     f.nextID,
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

func (f *fakeExchange) CancelOrder(_ context.Context, _ string, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log(fmt.Sprintf("cancel %d", orderID))
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.OrderStatusNew {
		return &models.Error{Kind: models.KindExchangeRejected, Op: "cancel", Code: -2011, Err: models.ErrOrderNotFound}
	}
	o.Status = models.OrderStatusCanceled
	f.orders[orderID] = o
	return nil
}

func (f *fakeExchange) GetOrder(_ context.Context, _ string, orderID int64) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return models.OrderResult{}, &models.Error{Kind: models.KindExchangeRejected, Code: -2013, Err: models.ErrOrderNotFound}
	}
	return o, nil
}

func (f *fakeExchange) OpenOrders(context.Context, string) ([]models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderResult
	for id := int64(1); id <= f.nextID; id++ {
		if o, ok := f.orders[id]; ok && o.Status == models.OrderStatusNew {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeExchange) Price(context.Context, string) (decimal.Decimal, error) { return f.price, nil }

func (f *fakeExchange) MyTrades(context.Context, string, int) ([]models.Trade, error) { return nil, nil }

func (f *fakeExchange) Account(context.Context) (models.Account, error) {
	return models.Account{Balances: []models.Balance{
		{Asset: "BTC", Free: d("1")},
		{Asset: "USDT", Free: d("10000")},
		{Asset: "ETH"},
	}}, nil
}

func (f *fakeExchange) SymbolRules(context.Context, string) (models.SymbolRules, error) {
	return btcRules(), nil
}

func (f *fakeExchange) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeExchange) orderCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
