package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kline_trader/internal/metrics"
	"kline_trader/internal/models"
	"kline_trader/internal/notify"
)

type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateReceiving
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReceiving:
		return "RECEIVING"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Conn — то, что нужно от websocket-соединения.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

// GorillaDialer — DialFunc поверх gorilla/websocket.
func GorillaDialer(d *websocket.Dialer) DialFunc {
	if d == nil {
		d = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return func(ctx context.Context, url string) (Conn, error) {
		conn, resp, err := d.DialContext(ctx, url, http.Header{})
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Observer — health-состояние процесса.
type Observer interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

type Config struct {
	BaseURL       string
	Symbol        string
	Interval      string
	Backoff       time.Duration
	IdleTimeout   time.Duration
	MaxReconnects int
}

func StreamURL(base, symbol, interval string) string {
	return fmt.Sprintf("%s/stream?streams=%s@kline_%s", strings.TrimRight(base, "/"), strings.ToLower(symbol), interval)
}

// Supervisor владеет websocket-сессией одного kline-стрима и прячет переподключения
// за ReceiveNext. Ошибка стрима: закрыть сессию, выждать backoff, переоткрыть,
// сообщить оператору и вернуть StreamTransient.
type Supervisor struct {
	cfg      Config
	url      string
	dial     DialFunc
	notifier notify.Notifier
	observer Observer
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu    sync.Mutex
	conn  Conn
	state atomic.Int32

	failures   int
	lastClosed time.Time
}

func NewSupervisor(cfg Config, dial DialFunc, n notify.Notifier, obs Observer, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dial == nil {
		dial = GorillaDialer(nil)
	}
	s := &Supervisor{
		cfg:      cfg,
		url:      StreamURL(cfg.BaseURL, cfg.Symbol, cfg.Interval),
		dial:     dial,
		notifier: n,
		observer: obs,
		logger:   logger.With(zap.String("symbol", cfg.Symbol), zap.String("interval", cfg.Interval)),
		sleep:    sleepCtx,
		now:      time.Now,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Supervisor) State() State { return State(s.state.Load()) }

func (s *Supervisor) setState(st State) {
	// CLOSED терминальное
	for {
		cur := s.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

func (s *Supervisor) errClosed() error {
	return models.Errorf(models.KindUnclassified, "stream", "%s stream closed", s.cfg.Symbol)
}

// ReceiveNext блокируется до следующего kline-события.
func (s *Supervisor) ReceiveNext(ctx context.Context) (models.Candle, error) {
	for {
		if s.State() == StateClosed {
			return models.Candle{}, s.errClosed()
		}
		if err := ctx.Err(); err != nil {
			return models.Candle{}, err
		}

		conn, err := s.ensureConn(ctx)
		if err != nil {
			return models.Candle{}, s.reconnect(ctx, fmt.Errorf("dial: %w", err))
		}

		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(s.now().Add(s.cfg.IdleTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.State() == StateClosed {
				return models.Candle{}, s.errClosed()
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.Candle{}, ctxErr
			}
			return models.Candle{}, s.reconnect(ctx, fmt.Errorf("read: %w", err))
		}

		fr, err := parseFrame(data)
		if err != nil {
			s.logger.Debug("skip frame", zap.Error(err))
			continue
		}

		switch fr.kind {
		case frameError:
			return models.Candle{}, s.reconnect(ctx, fmt.Errorf("stream error message: %s", fr.msg))
		case frameKline:
			s.setState(StateReceiving)
			if s.observer != nil {
				s.observer.TouchTick(s.now())
			}
			c := fr.candle
			if c.IsClosed {
				// после переподключения биржа может повторить последнюю закрытую свечу
				if !c.OpenTime.After(s.lastClosed) {
					continue
				}
				s.lastClosed = c.OpenTime
			}
			return c, nil
		}
	}
}

func (s *Supervisor) ensureConn(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}
	return s.open(ctx)
}

func (s *Supervisor) open(ctx context.Context) (Conn, error) {
	s.setState(StateConnecting)
	s.logger.Info("ws connect", zap.String("url", s.url))

	conn, err := s.dial(ctx, s.url)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.State() == StateClosed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, s.errClosed()
	}
	s.conn = conn
	s.mu.Unlock()

	s.setState(StateConnected)
	if s.observer != nil {
		s.observer.SetWSConnected(true)
	}
	return conn, nil
}

func (s *Supervisor) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	if s.observer != nil {
		s.observer.SetWSConnected(false)
	}
}

// reconnect: закрыть, выждать, переоткрыть, уведомить. Всегда возвращает ошибку:
// StreamTransient, ошибку контекста, либо фатальную после MaxReconnects неудач подряд.
func (s *Supervisor) reconnect(ctx context.Context, cause error) error {
	if s.State() == StateClosed {
		return s.errClosed()
	}
	s.setState(StateReconnecting)
	metrics.ObserveReconnect(s.cfg.Symbol)
	s.logger.Warn("ws error, reconnecting", zap.Error(cause), zap.Duration("backoff", s.cfg.Backoff))
	s.dropConn()

	if err := s.sleep(ctx, s.cfg.Backoff); err != nil {
		return err
	}

	if _, err := s.open(ctx); err != nil {
		if s.State() == StateClosed {
			return err
		}
		s.failures++
		s.logger.Warn("ws reopen failed", zap.Error(err), zap.Int("failures", s.failures))
		if s.cfg.MaxReconnects > 0 && s.failures >= s.cfg.MaxReconnects {
			return models.NewError(models.KindUnclassified, "stream",
				fmt.Errorf("%s stream unavailable after %d attempts: %w", s.cfg.Symbol, s.failures, err))
		}
		s.setState(StateReconnecting)
		return models.NewError(models.KindStreamTransient, "stream", cause)
	}

	s.failures = 0
	if s.notifier != nil {
		s.notifier.Sendf("🔄 %s %s stream reconnected after: %v", s.cfg.Symbol, s.cfg.Interval, cause)
	}
	return models.NewError(models.KindStreamTransient, "stream", cause)
}

// Close переводит супервизор в CLOSED и рвёт соединение; ReceiveNext после этого
// возвращает ошибку.
func (s *Supervisor) Close() error {
	s.state.Store(int32(StateClosed))
	s.dropConn()
	return nil
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
