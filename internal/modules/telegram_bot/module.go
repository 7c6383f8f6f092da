package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"kline_trader/internal/modules/config"
	"kline_trader/internal/notify"
)

// NewNotifier — Telegram при заданном токене, иначе сообщения идут в лог.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		logger.Warn("telegram is not configured, notifications go to log")
		return notify.NewStdout(logger), nil
	}

	t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return t.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return t.Stop(ctx)
		},
	})
	return t, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(NewNotifier),
	)
}
