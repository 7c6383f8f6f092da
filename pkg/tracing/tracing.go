package tracing

import (
	"context"
	"fmt"
	"kline_trader/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	jCfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

// Теги спанов торгового контура.
const (
	TagSymbol       = "trade.symbol"
	TagSide         = "trade.side"
	TagOrderType    = "trade.order_type"
	TagExchangeCode = "exchange.code"
	TagTestnet      = "exchange.testnet"

	component = "binance"
)

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

type Config struct {
	Enabled bool
	Host    string
	Port    int
	// Testnet попадает в теги трейсера, чтобы спаны testnet и боевой биржи не смешивались
	Testnet bool
}

// InitTracer поднимает jaeger-трейсер и делает его глобальным.
// Выключенный трейсинг оставляет NoopTracer.
func InitTracer(conf Config) (opentracing.Tracer, func(), error) {
	if !conf.Enabled {
		tracer := opentracing.NoopTracer{}
		opentracing.SetGlobalTracer(tracer)
		return tracer, func() {}, nil
	}

	cfg := &jCfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jCfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jCfg.ReporterConfig{
			LogSpans:           false,
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
		Tags: []opentracing.Tag{{Key: TagTestnet, Value: conf.Testnet}},
	}

	tracer, closer, err := cfg.NewTracer(
		jCfg.Metrics(metrics.NullFactory),
	)
	if err != nil {
		return nil, nil, err
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, func() {
		if err := closer.Close(); err != nil {
			logger.Error("Error closing Jaeger tracer: %v", err)
		}
	}, nil
}

// StartExchangeSpan открывает клиентский спан запроса к бирже. Пустые symbol и side
// не пишутся: у exchangeInfo и account их нет.
func StartExchangeSpan(ctx context.Context, op, symbol, side string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, component+" "+op)
	ext.SpanKindRPCClient.Set(span)
	ext.Component.Set(span, component)
	if symbol != "" {
		span.SetTag(TagSymbol, symbol)
	}
	if side != "" {
		span.SetTag(TagSide, side)
	}
	return span, ctx
}

// MarkError помечает спан ошибкой; code — код биржи, 0 если его нет.
func MarkError(span opentracing.Span, err error, code int) {
	ext.Error.Set(span, true)
	if code != 0 {
		span.SetTag(TagExchangeCode, code)
	}
	if err != nil {
		span.LogKV("event", "error", "message", err.Error())
	}
}
