package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
)

// MarketOrder — рыночный ордер с полным ответом (FULL), чтобы сразу получить fills.
func (c *Client) MarketOrder(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (models.OrderResult, error) {
	return c.CreateOrder(ctx, models.OrderIntent{
		Symbol:   symbol,
		Side:     side,
		Type:     models.OrderTypeMarket,
		Quantity: qty,
	})
}

func (c *Client) CreateOrder(ctx context.Context, in models.OrderIntent) (models.OrderResult, error) {
	if in.Symbol == "" || in.Side == "" || in.Type == "" {
		return models.OrderResult{}, fmt.Errorf("CreateOrder: incomplete intent %+v", in)
	}
	if !in.Quantity.IsPositive() {
		return models.OrderResult{}, fmt.Errorf("CreateOrder: quantity <= 0")
	}

	clientID := in.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	q := url.Values{}
	q.Set("symbol", in.Symbol)
	q.Set("side", string(in.Side))
	q.Set("type", string(in.Type))
	q.Set("quantity", in.Quantity.String())
	q.Set("newClientOrderId", clientID)
	q.Set("newOrderRespType", "FULL")
	if in.Price != "" {
		q.Set("price", in.Price)
	}
	if in.StopPrice != "" {
		q.Set("stopPrice", in.StopPrice)
	}
	if in.TimeInForce != "" {
		q.Set("timeInForce", string(in.TimeInForce))
	}

	var r orderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v3/order", q, true, &r); err != nil {
		return models.OrderResult{}, err
	}
	return r.toResult(), nil
}
