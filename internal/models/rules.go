package models

import "github.com/shopspring/decimal"

// SymbolRules — фильтры торговой пары (LOT_SIZE, NOTIONAL, PRICE_FILTER).
// Загружаются один раз на запуск и дальше только читаются.
type SymbolRules struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string

	StepSize decimal.Decimal
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal

	MinNotional      decimal.Decimal
	ApplyMinToMarket bool

	TickSize decimal.Decimal
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal

	QuoteAssetPrecision int32
}
