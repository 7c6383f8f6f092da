package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kline_trader/internal/models"
)

// Klines — исторические свечи, от старых к новым. Последняя может быть ещё открыта.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows [][]any
	if err := c.do(ctx, http.MethodGet, "/api/v3/klines", q, false, &rows); err != nil {
		return nil, err
	}

	now := c.now()
	out := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		// [openTime, o, h, l, c, v, closeTime, ...]
		if len(row) < 7 {
			return nil, fmt.Errorf("Klines: row %d too short", i)
		}
		candle := models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(asInt64(row[0])),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
			CloseTime: time.UnixMilli(asInt64(row[6])),
		}
		candle.EventTime = candle.CloseTime
		candle.IsClosed = !candle.CloseTime.After(now)
		out = append(out, candle)
	}
	return out, nil
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int64:
		return x
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}
