package binance_websocket

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"kline_trader/internal/modules/binance_websocket/service"
	"kline_trader/internal/modules/config"
	health "kline_trader/internal/modules/health/service"
	"kline_trader/internal/notify"
)

// Factory открывает по супервизору на символ.
type Factory struct {
	cfg      *config.Config
	dial     service.DialFunc
	notifier notify.Notifier
	observer service.Observer
	logger   *zap.Logger
}

func NewFactory(cfg *config.Config, n notify.Notifier, state *health.State, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		dial:     service.GorillaDialer(nil),
		notifier: n,
		observer: state,
		logger:   logger,
	}
}

func (f *Factory) New(symbol string) *service.Supervisor {
	return service.NewSupervisor(service.Config{
		BaseURL:       f.cfg.Exchange.WSURL,
		Symbol:        symbol,
		Interval:      f.cfg.Trading.Interval,
		Backoff:       f.cfg.Stream.Backoff,
		IdleTimeout:   f.cfg.Stream.IdleTimeout,
		MaxReconnects: f.cfg.Stream.MaxReconnects,
	}, f.dial, f.notifier, f.observer, f.logger)
}

func Module() fx.Option {
	return fx.Module("binance_websocket",
		fx.Provide(NewFactory),
	)
}
