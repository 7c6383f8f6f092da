package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kline_trader/internal/metrics"
	"kline_trader/internal/models"
	strategy "kline_trader/internal/modules/strategy/service"
	"kline_trader/internal/notify"
	"kline_trader/internal/records"
	"kline_trader/internal/trade"
	"kline_trader/pkg/ringbuf"
)

// orderTimeout ограничивает ордерный путь одной свечи, который не прерывается остановкой.
const orderTimeout = time.Minute

// Stream — источник свечей одного символа.
type Stream interface {
	ReceiveNext(ctx context.Context) (models.Candle, error)
	Close() error
}

type AccountAPI interface {
	Account(ctx context.Context) (models.Account, error)
}

type TickObserver interface {
	TouchTick(t time.Time)
}

type Deps struct {
	Symbol   string
	Stream   Stream
	Machine  *trade.Machine
	Features strategy.FeatureFunc
	Model    strategy.Model
	Window   *ringbuf.Ring[models.Candle]
	Account  AccountAPI
	Sink     records.Sink
	Notifier notify.Notifier
	Observer TickObserver
	Throttle time.Duration
	// OnFatal закрывает клиент биржи после фатальной ошибки
	OnFatal func()
	Logger  *zap.Logger
}

// Runner — торговый цикл одного символа: свеча -> признаки -> сигнал -> позиция -> записи.
type Runner struct {
	d      Deps
	logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error

	lastOpen time.Time
	iter     int64

	// снимок позиции для чтения из других горутин (/status)
	posMu sync.RWMutex
	pos   models.Position
}

func New(d Deps) *Runner {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Window == nil {
		d.Window = ringbuf.New[models.Candle](100)
	}
	if d.Sink == nil {
		d.Sink = records.NewLogSink(d.Logger)
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewStdout(d.Logger)
	}
	return &Runner{
		d:      d,
		logger: d.Logger.With(zap.String("symbol", d.Symbol)),
		sleep:  sleepCtx,
		pos:    d.Machine.Position(),
	}
}

func (r *Runner) Symbol() string { return r.d.Symbol }

func (r *Runner) Position() models.Position {
	r.posMu.RLock()
	defer r.posMu.RUnlock()
	return r.pos
}

// Warm заполняет окно историческими закрытыми свечами до старта стрима.
func (r *Runner) Warm(candles []models.Candle) {
	for _, c := range candles {
		if !c.IsClosed || !c.OpenTime.After(r.lastOpen) {
			continue
		}
		r.d.Window.Push(c)
		r.lastOpen = c.OpenTime
	}
}

// Run крутит цикл до отмены контекста (возвращает nil) или до фатальной ошибки.
// Переподключения стрима и сбои записи цикл переживает.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("trading loop started", zap.Int("window", r.d.Window.Len()))
	r.d.Notifier.Sendf("▶️ %s trading loop started, position %s", r.d.Symbol, r.d.Machine.Position().Status)

	for {
		processed, err := r.step(ctx)
		switch {
		case err == nil:
		case processed:
			// ошибка ордерного пути фатальна и во время остановки
			return r.fail(err)
		case ctx.Err() != nil:
			return r.stop()
		case models.KindOf(err).Recoverable():
			r.logger.Warn("iteration skipped", zap.Error(err))
			continue
		default:
			return r.fail(err)
		}
		if !processed {
			continue
		}
		if err := r.sleep(ctx, r.d.Throttle); err != nil {
			return r.stop()
		}
	}
}

func (r *Runner) stop() error {
	_ = r.d.Stream.Close()
	pos := r.d.Machine.Position()
	r.logger.Info("trading loop stopped", zap.Int64("iterations", r.iter))
	r.d.Notifier.Sendf("⏹ %s trading loop stopped after %d candles, position %s", r.d.Symbol, r.iter, pos.Status)
	return nil
}

func (r *Runner) fail(err error) error {
	r.logger.Error("trading loop failed", zap.Error(err), zap.String("kind", models.KindOf(err).String()))

	msg := fmt.Sprintf("⛔ %s trading loop terminated: %v", r.d.Symbol, err)
	if code, text := models.ExchangeCode(err); code != 0 {
		msg = fmt.Sprintf("⛔ %s trading loop terminated: exchange error %d: %s", r.d.Symbol, code, text)
	}
	if pos := r.d.Machine.Position(); !pos.IsEmpty() {
		msg += fmt.Sprintf("\nopen position %s qty=%s, check brackets manually", pos.Status, pos.Quantity)
	}
	r.d.Notifier.Send(msg)

	_ = r.d.Stream.Close()
	if r.d.OnFatal != nil {
		r.d.OnFatal()
	}
	return err
}

// step — одна итерация. processed=false, если свеча не закрыта или уже была.
func (r *Runner) step(ctx context.Context) (processed bool, err error) {
	c, err := r.d.Stream.ReceiveNext(ctx)
	if err != nil {
		return false, err
	}
	if !c.IsClosed {
		return false, nil
	}
	if !r.lastOpen.IsZero() && !c.OpenTime.After(r.lastOpen) {
		r.logger.Debug("duplicate candle", zap.Time("open_time", c.OpenTime))
		return false, nil
	}
	if c.Symbol == "" {
		c.Symbol = r.d.Symbol
	}

	// признаки считаются по окну до добавления новой свечи
	features, err := r.d.Features(r.d.Window, c)
	if err != nil {
		return false, models.NewError(models.KindUnclassified, "features", err)
	}
	r.d.Window.Push(c)
	r.lastOpen = c.OpenTime

	sig, err := r.d.Model.Predict(features)
	if err != nil {
		return false, models.NewError(models.KindUnclassified, "predict", err)
	}
	metrics.ObserveSignal(r.d.Symbol, string(sig))

	// начатую сделку доводим до конца, даже если остановка уже пришла
	orderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orderTimeout)
	defer cancel()

	out, err := r.d.Machine.OnSignal(orderCtx, sig)
	r.posMu.Lock()
	r.pos = r.d.Machine.Position()
	r.posMu.Unlock()

	r.iter++
	metrics.ObserveIteration(r.d.Symbol)
	if r.d.Observer != nil {
		r.d.Observer.TouchTick(c.CloseTime)
	}

	r.logger.Info("candle processed",
		zap.Time("close_time", c.CloseTime),
		zap.Float64("close", c.Close),
		zap.String("signal", string(sig)),
		zap.String("from", string(out.From)),
		zap.String("to", string(out.To)),
		zap.Int("orders", len(out.Orders)),
	)
	if out.Transitioned() {
		r.announce(out)
	}
	for _, a := range out.Alerts {
		r.d.Notifier.Sendf("⚠️ %s %s", r.d.Symbol, a)
	}

	r.record(orderCtx, c, sig, out)
	return true, err
}

func (r *Runner) announce(out trade.Outcome) {
	pos := r.d.Machine.Position()
	switch {
	case pos.IsEmpty():
		r.d.Notifier.Sendf("🔴 %s %s -> %s", r.d.Symbol, out.From, out.To)
	default:
		r.d.Notifier.Sendf("🟢 %s %s -> %s qty=%s avg=%s", r.d.Symbol, out.From, out.To,
			pos.Quantity, pos.AverageEntryPrice)
	}
}

// record пишет ордера, инференс и снимок баланса независимо друг от друга.
func (r *Runner) record(ctx context.Context, c models.Candle, sig models.Signal, out trade.Outcome) {
	if len(out.Orders) > 0 {
		r.d.Sink.Append(ctx, records.TableTransaction, records.TransactionRows(out.Orders))
	}

	r.d.Sink.Append(ctx, records.TableInference,
		[]records.Row{records.InferenceRow(c.CloseTime, r.d.Symbol, sig, r.d.Model.Version())})

	if r.d.Account == nil {
		return
	}
	acc, err := r.d.Account.Account(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.ObserveSinkFailure(string(records.TableAsset))
		r.logger.Warn("account snapshot skipped", zap.Error(err))
		return
	}
	r.d.Sink.Append(ctx, records.TableAsset, records.AssetRows(acc))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
