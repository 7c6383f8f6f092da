package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"kline_trader/internal/modules/config"
	"kline_trader/internal/notify"
	"kline_trader/internal/records"
	"kline_trader/pkg/db"
)

// NewSink — PgSink поверх пула, если задан db_dsn, иначе записи уходят в лог.
func NewSink(lc fx.Lifecycle, cfg *config.Config, n notify.Notifier, logger *zap.Logger) (records.Sink, error) {
	if cfg.DB == "" {
		logger.Warn("db_dsn is empty, records go to log")
		return records.NewLogSink(logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Exchange.Timeout)
	defer cancel()

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	if err := poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			poolMaster.Close()
			return nil
		},
	})
	return records.NewPgSink(db.NewPgTxManager(poolMaster), n, logger), nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewSink),
	)
}
