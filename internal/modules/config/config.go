package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"kline_trader/internal/helper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	apiKeyENV         = "BINANCE_API_KEY"
	apiSecretENV      = "BINANCE_API_SECRET"
	testnetENV        = "BINANCE_TESTNET"
)

const (
	PolicyLongOnly  = "long_only"
	PolicyLongShort = "long_short"
)

type Exchange struct {
	// Testnet — только булево значение, никаких выражений из окружения
	Testnet      bool          `yaml:"testnet"`
	APIKey       string        `yaml:"api_key"`
	APISecret    string        `yaml:"api_secret"`
	RestURL      string        `yaml:"rest_url"`
	WSURL        string        `yaml:"ws_url"`
	RecvWindowMs int64         `yaml:"recv_window_ms"`
	Timeout      time.Duration `yaml:"timeout"`
}

type Trading struct {
	Symbols  []string `yaml:"symbols"`
	Interval string   `yaml:"interval"`
	// Quantity — желаемый объём входа в базовом активе, до нормализации
	Quantity string `yaml:"quantity"`
	Policy   string `yaml:"policy"`

	StopLossRate          float64 `yaml:"stop_loss_rate"`
	StopLossTriggerRate   float64 `yaml:"stop_loss_trigger_rate"`
	TakeProfitRate        float64 `yaml:"take_profit_rate"`
	TakeProfitTriggerRate float64 `yaml:"take_profit_trigger_rate"`
	TakeProfitEnabled     bool    `yaml:"take_profit_enabled"`

	WindowSize int           `yaml:"window_size"`
	Throttle   time.Duration `yaml:"throttle"`
}

type Stream struct {
	Backoff       time.Duration `yaml:"backoff"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	MaxReconnects int           `yaml:"max_reconnects"`
}

type Strategy struct {
	Model         string  `yaml:"model"`
	ModelVersion  string  `yaml:"model_version"`
	EMAShort      int     `yaml:"ema_short"`
	EMALong       int     `yaml:"ema_long"`
	RSIPeriod     int     `yaml:"rsi_period"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIOversold   float64 `yaml:"rsi_oversold"`
	Seed          int64   `yaml:"seed"`
}

// Config ...
type Config struct {
	Exchange Exchange `yaml:"exchange"`
	Trading  Trading  `yaml:"trading"`
	Stream   Stream   `yaml:"stream"`
	Strategy Strategy `yaml:"strategy"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Name      string `yaml:"name"`
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`
	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	var c Config
	c.Exchange = Exchange{
		Testnet:      true,
		RecvWindowMs: 5000,
		Timeout:      10 * time.Second,
	}
	c.Trading = Trading{
		Symbols:               []string{"BTCUSDT"},
		Interval:              "1m",
		Quantity:              "0.00001",
		Policy:                PolicyLongOnly,
		StopLossRate:          0.1,
		StopLossTriggerRate:   0.08,
		TakeProfitRate:        0.2,
		TakeProfitTriggerRate: 0.18,
		TakeProfitEnabled:     true,
		WindowSize:            100,
		Throttle:              10 * time.Second,
	}
	c.Stream = Stream{
		Backoff:     5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	c.Strategy = Strategy{
		Model:         "emarsi",
		ModelVersion:  "0.0",
		EMAShort:      9,
		EMALong:       21,
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
	}
	c.Service.Name = "kline_trader"
	c.Service.AdminPort = 8080
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.Log.Level = "info"
	return c
}

// NewConfig читает configs/$CONFIG_FILE (по умолчанию values_local.yaml) поверх дефолтов
// и применяет переопределения из окружения.
func NewConfig() (*Config, error) {
	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	dir := getenvDefault(configDirENV, "configs")
	return Load(filepath.Join(dir, configFileName))
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	if chat := os.Getenv(chatTelegramENV); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", chatTelegramENV, err)
		}
		c.Telegram.ChatID = id
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	c.Exchange.APIKey = getenvDefault(apiKeyENV, c.Exchange.APIKey)
	c.Exchange.APISecret = getenvDefault(apiSecretENV, c.Exchange.APISecret)

	if v := os.Getenv(testnetENV); v != "" {
		testnet, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", testnetENV, v)
		}
		c.Exchange.Testnet = testnet
	}
	return nil
}

func (c *Config) normalize() {
	for i, s := range c.Trading.Symbols {
		c.Trading.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	c.Trading.Policy = strings.ToLower(strings.TrimSpace(c.Trading.Policy))
	c.Trading.Interval = helper.NormInterval(c.Trading.Interval)
	if c.Exchange.RestURL == "" {
		c.Exchange.RestURL = RestURL(c.Exchange.Testnet)
	}
	if c.Exchange.WSURL == "" {
		c.Exchange.WSURL = WSURL(c.Exchange.Testnet)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, errors.New("trading.symbols is empty"))
	}
	if c.Trading.Interval == "" {
		errs = append(errs, errors.New("trading.interval is empty"))
	} else if _, ok := helper.IntervalDuration(c.Trading.Interval); !ok {
		errs = append(errs, fmt.Errorf("trading.interval %q is not a Binance kline interval", c.Trading.Interval))
	}
	if c.Trading.Quantity == "" {
		errs = append(errs, errors.New("trading.quantity is empty"))
	} else if q, err := strconv.ParseFloat(c.Trading.Quantity, 64); err != nil || q <= 0 {
		errs = append(errs, fmt.Errorf("trading.quantity %q is not a positive number", c.Trading.Quantity))
	}
	switch c.Trading.Policy {
	case PolicyLongOnly, PolicyLongShort:
	default:
		errs = append(errs, fmt.Errorf("trading.policy %q: want %s or %s", c.Trading.Policy, PolicyLongOnly, PolicyLongShort))
	}
	for name, rate := range map[string]float64{
		"stop_loss_rate":           c.Trading.StopLossRate,
		"stop_loss_trigger_rate":   c.Trading.StopLossTriggerRate,
		"take_profit_rate":         c.Trading.TakeProfitRate,
		"take_profit_trigger_rate": c.Trading.TakeProfitTriggerRate,
	} {
		if rate < 0 || rate >= 1 {
			errs = append(errs, fmt.Errorf("trading.%s %v out of [0,1)", name, rate))
		}
	}
	if c.Trading.WindowSize < 1 {
		errs = append(errs, errors.New("trading.window_size must be positive"))
	}
	if c.Stream.Backoff < 0 || c.Stream.IdleTimeout < 0 || c.Trading.Throttle < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	return errors.Join(errs...)
}

func RestURL(testnet bool) string {
	if testnet {
		return "https://testnet.binance.vision"
	}
	return "https://api.binance.com"
}

func WSURL(testnet bool) string {
	if testnet {
		return "wss://stream.testnet.binance.vision"
	}
	return "wss://stream.binance.com:9443"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
