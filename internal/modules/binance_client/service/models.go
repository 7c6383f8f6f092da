package service

import (
	"time"

	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
)

type orderResponse struct {
	Symbol              string          `json:"symbol"`
	OrderID             int64           `json:"orderId"`
	ClientOrderID       string          `json:"clientOrderId"`
	TransactTime        int64           `json:"transactTime"`
	Time                int64           `json:"time"`
	UpdateTime          int64           `json:"updateTime"`
	Price               decimal.Decimal `json:"price"`
	StopPrice           decimal.Decimal `json:"stopPrice"`
	OrigQty             decimal.Decimal `json:"origQty"`
	ExecutedQty         decimal.Decimal `json:"executedQty"`
	CummulativeQuoteQty decimal.Decimal `json:"cummulativeQuoteQty"`
	Status              string          `json:"status"`
	TimeInForce         string          `json:"timeInForce"`
	Type                string          `json:"type"`
	Side                string          `json:"side"`
	Fills               []struct {
		Price           decimal.Decimal `json:"price"`
		Qty             decimal.Decimal `json:"qty"`
		Commission      decimal.Decimal `json:"commission"`
		CommissionAsset string          `json:"commissionAsset"`
	} `json:"fills"`
}

func (r orderResponse) toResult() models.OrderResult {
	ts := r.TransactTime
	if ts == 0 {
		ts = r.UpdateTime
	}
	if ts == 0 {
		ts = r.Time
	}

	res := models.OrderResult{
		OrderID:            r.OrderID,
		ClientOrderID:      r.ClientOrderID,
		Symbol:             r.Symbol,
		Side:               models.Side(r.Side),
		Type:               models.OrderType(r.Type),
		TimeInForce:        models.TimeInForce(r.TimeInForce),
		Status:             models.OrderStatus(r.Status),
		Price:              r.Price,
		StopPrice:          r.StopPrice,
		OrigQty:            r.OrigQty,
		ExecutedQty:        r.ExecutedQty,
		CumulativeQuoteQty: r.CummulativeQuoteQty,
	}
	if ts > 0 {
		res.Time = time.UnixMilli(ts)
	}
	for _, f := range r.Fills {
		if f.CommissionAsset == "" || f.Commission.IsZero() {
			continue
		}
		if res.Commissions == nil {
			res.Commissions = map[string]decimal.Decimal{}
		}
		res.Commissions[f.CommissionAsset] = res.Commissions[f.CommissionAsset].Add(f.Commission)
	}

	// средняя цена исполнения: quote/qty, иначе по fills
	switch {
	case r.ExecutedQty.IsPositive() && r.CummulativeQuoteQty.IsPositive():
		res.AvgFillPrice = r.CummulativeQuoteQty.DivRound(r.ExecutedQty, 16)
	case len(r.Fills) > 0:
		var qty, quote decimal.Decimal
		for _, f := range r.Fills {
			qty = qty.Add(f.Qty)
			quote = quote.Add(f.Qty.Mul(f.Price))
		}
		if qty.IsPositive() {
			res.AvgFillPrice = quote.DivRound(qty, 16)
		}
	}
	return res
}

type tradeResponse struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"`
	QuoteQty decimal.Decimal `json:"quoteQty"`
	Time     int64           `json:"time"`
	IsBuyer  bool            `json:"isBuyer"`
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol              string `json:"symbol"`
		Status              string `json:"status"`
		BaseAsset           string `json:"baseAsset"`
		QuoteAsset          string `json:"quoteAsset"`
		QuoteAssetPrecision int32  `json:"quoteAssetPrecision"`
		QuotePrecision      int32  `json:"quotePrecision"`
		Filters             []struct {
			FilterType       string          `json:"filterType"`
			MinPrice         decimal.Decimal `json:"minPrice"`
			MaxPrice         decimal.Decimal `json:"maxPrice"`
			TickSize         decimal.Decimal `json:"tickSize"`
			MinQty           decimal.Decimal `json:"minQty"`
			MaxQty           decimal.Decimal `json:"maxQty"`
			StepSize         decimal.Decimal `json:"stepSize"`
			MinNotional      decimal.Decimal `json:"minNotional"`
			ApplyToMarket    *bool           `json:"applyToMarket"`
			ApplyMinToMarket *bool           `json:"applyMinToMarket"`
		} `json:"filters"`
	} `json:"symbols"`
}

type accountResponse struct {
	UpdateTime int64 `json:"updateTime"`
	Balances   []struct {
		Asset  string          `json:"asset"`
		Free   decimal.Decimal `json:"free"`
		Locked decimal.Decimal `json:"locked"`
	} `json:"balances"`
}

type tickerPriceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}
