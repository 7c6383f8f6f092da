package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PositionStatus string

const (
	StatusEmpty PositionStatus = "EMPTY"
	StatusLong  PositionStatus = "LONG"
	StatusShort PositionStatus = "SHORT"
)

// Position — текущая позиция по одному символу.
// Пустая позиция: Status == StatusEmpty и нулевые количества.
type Position struct {
	Symbol            string
	Status            PositionStatus
	AverageEntryPrice decimal.Decimal
	Quantity          decimal.Decimal

	// 0 — ноги нет
	StopLossOrderID   int64
	TakeProfitOrderID int64

	UpdatedAt time.Time
}

func EmptyPosition(symbol string) Position {
	return Position{Symbol: symbol, Status: StatusEmpty}
}

func (p Position) IsEmpty() bool { return p.Status == StatusEmpty || p.Status == "" }

// BracketIDs возвращает id живых защитных ордеров.
func (p Position) BracketIDs() []int64 {
	ids := make([]int64, 0, 2)
	if p.StopLossOrderID != 0 {
		ids = append(ids, p.StopLossOrderID)
	}
	if p.TakeProfitOrderID != 0 {
		ids = append(ids, p.TakeProfitOrderID)
	}
	return ids
}

// EntrySide — сторона входа для статуса позиции.
func (s PositionStatus) EntrySide() Side {
	if s == StatusShort {
		return SideSell
	}
	return SideBuy
}
