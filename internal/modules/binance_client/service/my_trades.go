package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kline_trader/internal/models"
)

// MyTrades — последние сделки аккаунта по символу, от старых к новым.
func (c *Client) MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows []tradeResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/myTrades", q, true, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Trade, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Trade{
			ID:       r.ID,
			OrderID:  r.OrderID,
			Symbol:   r.Symbol,
			Price:    r.Price,
			Qty:      r.Qty,
			QuoteQty: r.QuoteQty,
			IsBuyer:  r.IsBuyer,
			Time:     time.UnixMilli(r.Time),
		})
	}
	return out, nil
}
