package binance_client

import (
	"context"

	"go.uber.org/fx"

	"kline_trader/internal/modules/binance_client/service"
	"kline_trader/internal/modules/config"
)

func NewClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.Config{
		BaseURL:      cfg.Exchange.RestURL,
		APIKey:       cfg.Exchange.APIKey,
		APISecret:    cfg.Exchange.APISecret,
		RecvWindowMs: cfg.Exchange.RecvWindowMs,
		Timeout:      cfg.Exchange.Timeout,
	})
}

// Module отдаёт один REST-клиент на процесс.
func Module() fx.Option {
	return fx.Module("binance_client",
		fx.Provide(NewClient),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return c.Close()
				},
			})
		}),
	)
}
