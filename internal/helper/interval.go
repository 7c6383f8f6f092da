package helper

import (
	"strings"
	"time"
)

// NormInterval приводит таймфрейм к виду Binance: "60m" -> "1h", "kline_1m" -> "1m".
// Месячный "1M" остаётся в верхнем регистре.
func NormInterval(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "kline_")
	if s == "1M" {
		return s
	}
	s = strings.ToLower(s)
	switch s {
	case "60m":
		return "1h"
	case "120m":
		return "2h"
	case "240m":
		return "4h"
	case "24h":
		return "1d"
	default:
		return s
	}
}

var intervals = map[string]time.Duration{
	"1s":  time.Second,
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

// IntervalDuration — длительность свечи; ok=false для неизвестного интервала.
// Для "1M" приблизительно 30 дней.
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervals[interval]
	return d, ok
}
