package runner

import (
	"context"
	"sync/atomic"

	"go.uber.org/fx"
	"go.uber.org/zap"

	binance "kline_trader/internal/modules/binance_client/service"
	"kline_trader/internal/modules/binance_websocket"
	bootstrap "kline_trader/internal/modules/bootstrap/service"
	"kline_trader/internal/modules/config"
	health "kline_trader/internal/modules/health/service"
	strategy "kline_trader/internal/modules/strategy/service"
	"kline_trader/internal/notify"
	"kline_trader/internal/records"
)

type Params struct {
	fx.In

	Config   *config.Config
	Client   *binance.Client
	Streams  *binance_websocket.Factory
	Warmer   *bootstrap.Warmuper
	Features strategy.FeatureFunc
	Model    strategy.Model
	Sink     records.Sink
	Notifier notify.Notifier
	State    *health.State
	Logger   *zap.Logger
}

func ProvideManager(p Params) *Manager {
	return NewManager(ManagerDeps{
		Config:   p.Config,
		Exchange: p.Client,
		Open:     func(symbol string) Stream { return p.Streams.New(symbol) },
		Warmer:   p.Warmer,
		Features: p.Features,
		Model:    p.Model,
		Sink:     p.Sink,
		Notifier: p.Notifier,
		Observer: p.State,
		Logger:   p.Logger,
	})
}

// Module запускает торговые циклы и гасит приложение, когда остановились все.
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(ProvideManager),
		fx.Invoke(func(
			lc fx.Lifecycle,
			sh fx.Shutdowner,
			m *Manager,
			n notify.Notifier,
			state *health.State,
			logger *zap.Logger,
		) {
			if t, ok := n.(*notify.Telegram); ok {
				t.SetStatusProvider(m)
			}

			var stopping atomic.Bool
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := m.Prepare(ctx); err != nil {
						return err
					}
					m.Start(context.Background())
					state.SetReady(true)

					go func() {
						<-m.Done()
						state.SetReady(false)
						if stopping.Load() {
							return
						}
						code := 0
						if err := m.Err(); err != nil {
							logger.Error("all trading loops stopped", zap.Error(err))
							code = 1
						}
						_ = sh.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					stopping.Store(true)
					return m.Stop(ctx)
				},
			})
		}),
	)
}
