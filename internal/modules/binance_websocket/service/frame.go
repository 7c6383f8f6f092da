package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"kline_trader/internal/models"
)

type frameKind int

const (
	frameOther frameKind = iota
	frameKline
	frameError
)

type frame struct {
	kind   frameKind
	candle models.Candle
	msg    string
}

// parseFrame разбирает кадр combined-стрима {"stream":..., "data":{...}}
// и одиночного стрима без обёртки.
func parseFrame(data []byte) (frame, error) {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}

	payload := raw
	if inner, ok := raw["data"].(map[string]any); ok {
		payload = inner
	}

	switch str(payload, "e") {
	case "error":
		return frame{kind: frameError, msg: str(payload, "m")}, nil
	case "kline":
	default:
		return frame{kind: frameOther}, nil
	}

	k, ok := payload["k"].(map[string]any)
	if !ok {
		return frame{}, fmt.Errorf("kline frame without k")
	}

	c := models.Candle{
		Symbol:    str(payload, "s"),
		Interval:  str(k, "i"),
		EventTime: time.UnixMilli(num(payload, "E")),
		OpenTime:  time.UnixMilli(num(k, "t")),
		CloseTime: time.UnixMilli(num(k, "T")),
		Open:      flt(k, "o"),
		High:      flt(k, "h"),
		Low:       flt(k, "l"),
		Close:     flt(k, "c"),
		Volume:    flt(k, "v"),
	}
	c.IsClosed, _ = k["x"].(bool)
	if c.Close <= 0 {
		return frame{}, fmt.Errorf("kline with non-positive close")
	}
	return frame{kind: frameKline, candle: c}, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func flt(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	}
	return 0
}
