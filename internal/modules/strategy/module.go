package strategy

import (
	"go.uber.org/fx"

	"kline_trader/internal/modules/strategy/service"
)

// Module отдаёт feature-функцию и сигнальную модель, общие для всех символов.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewFeatures, // service.FeatureFunc
			service.NewModel,    // service.Model
		),
	)
}
