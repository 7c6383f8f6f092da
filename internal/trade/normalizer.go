package trade

import (
	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
)

const opNormalize = "normalize"

// NormalizeQuantity подгоняет желаемое количество под фильтры пары:
// поднимает до minNotional (если фильтр действует на маркет), округляет вниз до stepSize
// и проверяет границы [minQty, maxQty].
func NormalizeQuantity(rules models.SymbolRules, desired, price decimal.Decimal) (decimal.Decimal, error) {
	qty := FloorToStep(desired, rules.StepSize)

	if rules.ApplyMinToMarket && rules.MinNotional.IsPositive() {
		if !price.IsPositive() {
			return decimal.Zero, models.Errorf(models.KindFilterViolation, opNormalize,
				"%s: price %s must be positive for notional check", rules.Symbol, price)
		}
		if qty.Mul(price).LessThan(rules.MinNotional) {
			// +1 шаг, чтобы после округления вниз notional не просел под минимум
			qty = FloorToStep(rules.MinNotional.DivRound(price, 16).Add(rules.StepSize), rules.StepSize)
			if qty.Mul(price).LessThan(rules.MinNotional) {
				qty = qty.Add(rules.StepSize)
			}
		}
	}

	return NormalizeLot(rules, qty)
}

// NormalizeLot — только LOT_SIZE: округление вниз до шага и проверка границ.
func NormalizeLot(rules models.SymbolRules, qty decimal.Decimal) (decimal.Decimal, error) {
	qty = FloorToStep(qty, rules.StepSize)

	if qty.LessThan(rules.MinQty) || !qty.IsPositive() {
		return decimal.Zero, models.Errorf(models.KindFilterViolation, opNormalize,
			"%s: quantity %s below minQty %s", rules.Symbol, qty, rules.MinQty)
	}
	if rules.MaxQty.IsPositive() && qty.GreaterThan(rules.MaxQty) {
		return decimal.Zero, models.Errorf(models.KindFilterViolation, opNormalize,
			"%s: quantity %s above maxQty %s", rules.Symbol, qty, rules.MaxQty)
	}
	return qty, nil
}

// NormalizePrice округляет цену до ближайшего tickSize и форматирует её
// с точностью котируемого актива. Биржа сравнивает строку, а не число.
func NormalizePrice(rules models.SymbolRules, price decimal.Decimal) (string, error) {
	p := price
	if rules.TickSize.IsPositive() {
		p = price.Div(rules.TickSize).Round(0).Mul(rules.TickSize)
	}

	if rules.MinPrice.IsPositive() && p.LessThan(rules.MinPrice) {
		return "", models.Errorf(models.KindFilterViolation, opNormalize,
			"%s: price %s below minPrice %s", rules.Symbol, p, rules.MinPrice)
	}
	if rules.MaxPrice.IsPositive() && p.GreaterThan(rules.MaxPrice) {
		return "", models.Errorf(models.KindFilterViolation, opNormalize,
			"%s: price %s above maxPrice %s", rules.Symbol, p, rules.MaxPrice)
	}

	return p.StringFixed(rules.QuoteAssetPrecision), nil
}

func FloorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() || !v.IsPositive() {
		return v
	}
	return v.Sub(v.Mod(step))
}
