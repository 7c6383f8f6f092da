package config

import "go.uber.org/fx"

// Module отдаёт уже загруженный конфиг: его читает cmd до старта fx,
// чтобы логгер и трейсер поднимались с настройками из файла.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
