package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"kline_trader/internal/models"
)

func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("orderId", strconv.FormatInt(orderID, 10))

	var r orderResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/order", q, true, &r); err != nil {
		return models.OrderResult{}, err
	}
	return r.toResult(), nil
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var rows []orderResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/openOrders", q, true, &rows); err != nil {
		return nil, err
	}
	out := make([]models.OrderResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toResult())
	}
	return out, nil
}
