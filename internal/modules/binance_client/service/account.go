package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
)

func (c *Client) Account(ctx context.Context) (models.Account, error) {
	var r accountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/account", nil, true, &r); err != nil {
		return models.Account{}, err
	}

	acc := models.Account{UpdateTime: time.UnixMilli(r.UpdateTime)}
	if r.UpdateTime == 0 {
		acc.UpdateTime = c.now()
	}
	for _, b := range r.Balances {
		acc.Balances = append(acc.Balances, models.Balance{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
	}
	return acc, nil
}

func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var r tickerPriceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/ticker/price", q, false, &r); err != nil {
		return decimal.Zero, err
	}
	return r.Price, nil
}
