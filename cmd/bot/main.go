package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"kline_trader/internal/modules/binance_client"
	"kline_trader/internal/modules/binance_websocket"
	"kline_trader/internal/modules/bootstrap"
	"kline_trader/internal/modules/config"
	"kline_trader/internal/modules/health"
	"kline_trader/internal/modules/postgres"
	"kline_trader/internal/modules/strategy"
	telegram "kline_trader/internal/modules/telegram_bot"
	"kline_trader/internal/runner"
	"kline_trader/internal/trade"
	"kline_trader/pkg/logger"
	"kline_trader/pkg/tracing"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "kline_trader",
		Short: "Binance spot kline trading bot",
		Long: `kline_trader reads closed candles from the Binance kline stream, turns them
into BUY/SELL/HOLD signals and keeps one position per symbol with stop-loss and
take-profit brackets.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (defaults to $CONFIG_DIR/$CONFIG_FILE, configs/values_local.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.NewConfig()
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start trading loops for all configured symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.SetServiceName(cfg.Service.Name)
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			tracing.SetServiceName(cfg.Service.Name)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Enabled: cfg.Tracing.Enabled,
				Host:    cfg.Tracing.Host,
				Port:    cfg.Tracing.Port,
				Testnet: cfg.Exchange.Testnet,
			})
			if err != nil {
				return err
			}
			defer closeTracer()

			log.Info("starting",
				zap.Bool("testnet", cfg.Exchange.Testnet),
				zap.Strings("symbols", cfg.Trading.Symbols),
				zap.String("interval", cfg.Trading.Interval),
				zap.String("policy", cfg.Trading.Policy),
				zap.String("model", cfg.Strategy.Model),
			)

			app := fx.New(
				fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: l.Named("fx")}
				}),
				fx.Supply(log),
				fx.StartTimeout(2*time.Minute),
				config.Module(cfg),
				telegram.Module(),
				binance_client.Module(),
				strategy.Module(),
				postgres.Module(),
				health.Module(),
				binance_websocket.Module(),
				bootstrap.Module(),
				runner.Module(),
			)

			startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			sig := <-app.Wait()
			log.Info("shutting down", zap.String("signal", fmt.Sprint(sig.Signal)), zap.Int("exit_code", sig.ExitCode))

			stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancelStop()
			if err := app.Stop(stopCtx); err != nil {
				log.Error("stop", zap.Error(err))
			}
			if sig.ExitCode != 0 {
				return fmt.Errorf("trading stopped with exit code %d", sig.ExitCode)
			}
			return nil
		},
	}
}

// rulesCmd печатает фильтры символа и результат нормализации объёма и цены.
func rulesCmd() *cobra.Command {
	var (
		symbol string
		qty    string
		price  string
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show symbol filters and normalize a quantity/price pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := binance_client.NewClient(cfg)
			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Exchange.Timeout)
			defer cancel()

			rules, err := client.SymbolRules(ctx, symbol)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s/%s\n", rules.Symbol, rules.BaseAsset, rules.QuoteAsset)
			fmt.Fprintf(out, "  lot:      step=%s min=%s max=%s\n", rules.StepSize, rules.MinQty, rules.MaxQty)
			fmt.Fprintf(out, "  price:    tick=%s min=%s max=%s\n", rules.TickSize, rules.MinPrice, rules.MaxPrice)
			fmt.Fprintf(out, "  notional: min=%s market=%t\n", rules.MinNotional, rules.ApplyMinToMarket)

			p := decimal.Zero
			if price != "" {
				if p, err = decimal.NewFromString(price); err != nil {
					return fmt.Errorf("price: %w", err)
				}
			} else if p, err = client.Price(ctx, symbol); err != nil {
				return err
			}
			q, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("qty: %w", err)
			}

			nq, err := trade.NormalizeQuantity(rules, q, p)
			if err != nil {
				return err
			}
			np, err := trade.NormalizePrice(rules, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  qty %s @ %s -> %s @ %s\n", q, p, nq, np)
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "BTCUSDT", "symbol")
	cmd.Flags().StringVarP(&qty, "qty", "q", "0.00001", "desired quantity in base asset")
	cmd.Flags().StringVarP(&price, "price", "p", "", "price (defaults to the last ticker price)")
	return cmd
}
