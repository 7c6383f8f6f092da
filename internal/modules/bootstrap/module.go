package bootstrap

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	binance "kline_trader/internal/modules/binance_client/service"
	bootstrap "kline_trader/internal/modules/bootstrap/service"
	"kline_trader/internal/modules/config"
	"kline_trader/internal/notify"
)

// Module отдаёт прогрев окна свечей; вызывает его runner.Manager до старта стримов.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(cfg *config.Config, c *binance.Client, n notify.Notifier, logger *zap.Logger) *bootstrap.Warmuper {
				return bootstrap.NewWarmuper(c, n, cfg.Trading.Interval, cfg.Trading.WindowSize, logger)
			},
		),
	)
}
