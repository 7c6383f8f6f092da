package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CancelOrder отменяет ордер по id. Неизвестный ордер возвращается как ошибка,
// проверять через IsNotFound.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("orderId", strconv.FormatInt(orderID, 10))
	return c.do(ctx, http.MethodDelete, "/api/v3/order", q, true, nil)
}
