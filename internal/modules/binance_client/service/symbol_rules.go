package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"kline_trader/internal/models"
)

func (c *Client) SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var r exchangeInfoResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/exchangeInfo", q, false, &r); err != nil {
		return models.SymbolRules{}, err
	}

	for _, s := range r.Symbols {
		if s.Symbol != symbol {
			continue
		}
		rules := models.SymbolRules{
			Symbol:              s.Symbol,
			BaseAsset:           s.BaseAsset,
			QuoteAsset:          s.QuoteAsset,
			QuoteAssetPrecision: s.QuoteAssetPrecision,
		}
		if rules.QuoteAssetPrecision == 0 {
			rules.QuoteAssetPrecision = s.QuotePrecision
		}

		var haveNotional bool
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				rules.TickSize, rules.MinPrice, rules.MaxPrice = f.TickSize, f.MinPrice, f.MaxPrice
			case "LOT_SIZE":
				rules.StepSize, rules.MinQty, rules.MaxQty = f.StepSize, f.MinQty, f.MaxQty
			case "NOTIONAL":
				haveNotional = true
				rules.MinNotional = f.MinNotional
				rules.ApplyMinToMarket = f.ApplyMinToMarket == nil || *f.ApplyMinToMarket
			case "MIN_NOTIONAL":
				// старый фильтр, если NOTIONAL нет
				if !haveNotional {
					rules.MinNotional = f.MinNotional
					rules.ApplyMinToMarket = f.ApplyToMarket == nil || *f.ApplyToMarket
				}
			}
		}
		return rules, nil
	}
	return models.SymbolRules{}, fmt.Errorf("SymbolRules: symbol %s not found", symbol)
}
