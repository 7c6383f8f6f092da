package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusExpiredInMatch  OrderStatus = "EXPIRED_IN_MATCH"
)

// Failed — биржа приняла запрос, но ордер мёртв.
func (s OrderStatus) Failed() bool {
	switch s {
	case OrderStatusRejected, OrderStatusExpired, OrderStatusExpiredInMatch, OrderStatusCanceled:
		return true
	}
	return false
}

// OrderIntent — то, что уходит на биржу. Price/StopPrice уже нормализованы
// под tickSize и точность котируемого актива.
type OrderIntent struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         string
	StopPrice     string
	TimeInForce   TimeInForce
	ClientOrderID string
}

// OrderResult — ответ биржи по ордеру.
type OrderResult struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	Status        OrderStatus

	Price              decimal.Decimal
	StopPrice          decimal.Decimal
	OrigQty            decimal.Decimal
	ExecutedQty        decimal.Decimal
	CumulativeQuoteQty decimal.Decimal
	AvgFillPrice       decimal.Decimal
	// комиссии по fills, по активу
	Commissions map[string]decimal.Decimal

	Time time.Time
}

func (o OrderResult) Filled() bool { return o.Status == OrderStatusFilled }

// NetQty — исполненный объём за вычетом комиссии, удержанной в том же активе.
func (o OrderResult) NetQty(asset string) decimal.Decimal {
	return o.ExecutedQty.Sub(o.Commissions[asset])
}

// Trade — одна сделка из истории аккаунта.
type Trade struct {
	ID       int64
	OrderID  int64
	Symbol   string
	Price    decimal.Decimal
	Qty      decimal.Decimal
	QuoteQty decimal.Decimal
	IsBuyer  bool
	Time     time.Time
}
