package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kline_trader/internal/models"
	"kline_trader/internal/modules/config"
	strategy "kline_trader/internal/modules/strategy/service"
	"kline_trader/internal/notify"
	"kline_trader/internal/records"
	"kline_trader/internal/trade"
	"kline_trader/pkg/ringbuf"
)

// Exchange — всё, что раннерам нужно от REST-клиента биржи.
type Exchange interface {
	trade.OrderAPI
	trade.PriceAPI
	trade.TradeHistory
	AccountAPI
	SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error)
	Close() error
}

type StreamOpener func(symbol string) Stream

type Warmer interface {
	Warmup(ctx context.Context, symbols []string) (map[string][]models.Candle, error)
}

type ManagerDeps struct {
	Config   *config.Config
	Exchange Exchange
	Open     StreamOpener
	Warmer   Warmer
	Features strategy.FeatureFunc
	Model    strategy.Model
	Sink     records.Sink
	Notifier notify.Notifier
	Observer TickObserver
	Logger   *zap.Logger
}

// Manager держит по раннеру на символ. Раннеры независимы: фатальная ошибка одного
// символа не останавливает остальные.
type Manager struct {
	d      ManagerDeps
	logger *zap.Logger

	mu      sync.RWMutex
	runners map[string]*Runner
	errs    map[string]error

	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

func NewManager(d ManagerDeps) *Manager {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Manager{
		d:       d,
		logger:  d.Logger.Named("manager"),
		runners: make(map[string]*Runner),
		errs:    make(map[string]error),
		done:    make(chan struct{}),
	}
}

func PolicyFor(t config.Trading) (trade.Policy, error) {
	switch t.Policy {
	case config.PolicyLongOnly, "":
		return trade.LongOnly{TakeProfit: t.TakeProfitEnabled}, nil
	case config.PolicyLongShort:
		return trade.LongShort{}, nil
	}
	return nil, fmt.Errorf("unknown trading.policy %q", t.Policy)
}

// Prepare собирает раннеры: правила символа, восстановление позиции, прогрев окна.
func (m *Manager) Prepare(ctx context.Context) error {
	t := m.d.Config.Trading
	policy, err := PolicyFor(t)
	if err != nil {
		return err
	}
	qty, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return fmt.Errorf("trading.quantity %q: %w", t.Quantity, err)
	}
	rates := trade.RatesFromFloats(t.StopLossRate, t.StopLossTriggerRate, t.TakeProfitRate, t.TakeProfitTriggerRate)

	var history map[string][]models.Candle
	if m.d.Warmer != nil {
		history, err = m.d.Warmer.Warmup(ctx, t.Symbols)
		if err != nil {
			// без прогрева модель просто дольше отдаёт HOLD
			m.logger.Warn("warmup failed", zap.Error(err))
		}
	}

	for _, symbol := range t.Symbols {
		rules, err := m.d.Exchange.SymbolRules(ctx, symbol)
		if err != nil {
			return fmt.Errorf("symbol rules %s: %w", symbol, err)
		}

		logger := m.d.Logger.With(zap.String("symbol", symbol))
		bm := trade.NewBracketManager(m.d.Exchange, rules, rates, logger)
		machine := trade.NewMachine(policy, bm, m.d.Exchange, qty, logger)
		if err := machine.Restore(ctx, m.d.Exchange); err != nil {
			return fmt.Errorf("restore %s: %w", symbol, err)
		}

		r := New(Deps{
			Symbol:   symbol,
			Stream:   m.d.Open(symbol),
			Machine:  machine,
			Features: m.d.Features,
			Model:    m.d.Model,
			Window:   ringbuf.New[models.Candle](t.WindowSize),
			Account:  m.d.Exchange,
			Sink:     m.d.Sink,
			Notifier: m.d.Notifier,
			Observer: m.d.Observer,
			Throttle: t.Throttle,
			OnFatal:  func() { _ = m.d.Exchange.Close() },
			Logger:   logger,
		})
		r.Warm(history[symbol])

		m.mu.Lock()
		m.runners[symbol] = r
		m.mu.Unlock()
	}
	return nil
}

// Start запускает раннеры; Done закрывается, когда остановились все.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.mu.RLock()
	for symbol, r := range m.runners {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := r.Run(ctx); err != nil {
				m.mu.Lock()
				m.errs[symbol] = err
				m.mu.Unlock()
			}
		}()
	}
	m.mu.RUnlock()

	go func() {
		m.wg.Wait()
		close(m.done)
	}()
}

func (m *Manager) Done() <-chan struct{} { return m.done }

// Err — первая фатальная ошибка раннеров, по алфавиту символов.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	symbols := make([]string, 0, len(m.errs))
	for s := range m.errs {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	if len(symbols) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", symbols[0], m.errs[symbols[0]])
}

func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status — текст для команды /status.
func (m *Manager) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.runners))
	for s := range m.runners {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString("📊 positions\n")
	for _, s := range symbols {
		pos := m.runners[s].Position()
		state := "running"
		if err, ok := m.errs[s]; ok {
			state = "stopped: " + err.Error()
		}
		fmt.Fprintf(&b, "%s %s", s, pos.Status)
		if !pos.IsEmpty() {
			fmt.Fprintf(&b, " qty=%s avg=%s sl=%d tp=%d",
				pos.Quantity, pos.AverageEntryPrice, pos.StopLossOrderID, pos.TakeProfitOrderID)
		}
		fmt.Fprintf(&b, " (%s)\n", state)
	}
	return strings.TrimRight(b.String(), "\n")
}
