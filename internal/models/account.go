package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

type Account struct {
	UpdateTime time.Time
	Balances   []Balance
}

// NonZero — балансы, по которым есть что показать.
func (a Account) NonZero() []Balance {
	out := make([]Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		if b.Free.IsZero() && b.Locked.IsZero() {
			continue
		}
		out = append(out, b)
	}
	return out
}
