package records

import (
	"time"

	"kline_trader/internal/models"
)

func TransactionRows(orders []models.OrderResult) []Row {
	rows := make([]Row, 0, len(orders))
	for _, o := range orders {
		price := o.Price
		// у маркета price = 0, пишем фактическую среднюю цену
		if price.IsZero() {
			price = o.AvgFillPrice
		}
		ts := o.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		rows = append(rows, Row{
			"transact_time":        ts.UTC(),
			"symbol":               o.Symbol,
			"order_id":             o.OrderID,
			"price":                price.String(),
			"orig_qty":             o.OrigQty.String(),
			"executed_qty":         o.ExecutedQty.String(),
			"cumulative_quote_qty": o.CumulativeQuoteQty.String(),
			"status":               string(o.Status),
			"time_in_force":        string(o.TimeInForce),
			"type":                 string(o.Type),
			"side":                 string(o.Side),
		})
	}
	return rows
}

func InferenceRow(at time.Time, symbol string, sig models.Signal, modelVersion string) Row {
	return Row{
		"infer_time":    at.UTC(),
		"symbol":        symbol,
		"prediction":    string(sig),
		"model_version": modelVersion,
	}
}

// AssetRows — снимок свободных балансов; нулевые пропускаются.
func AssetRows(acc models.Account) []Row {
	ts := acc.UpdateTime
	if ts.IsZero() {
		ts = time.Now()
	}
	var rows []Row
	for _, b := range acc.NonZero() {
		rows = append(rows, Row{
			"update_time": ts.UTC(),
			"symbol":      b.Asset,
			"amount":      b.Free.String(),
		})
	}
	return rows
}
