package records

// Table — таблица, в которую пишет цикл.
type Table string

const (
	TableTransaction Table = "transaction_record"
	TableInference   Table = "inference"
	TableAsset       Table = "asset"
)

// Columns — порядок колонок в INSERT. Ключи строк вне этого списка игнорируются.
func (t Table) Columns() []string {
	switch t {
	case TableTransaction:
		return []string{
			"transact_time", "symbol", "order_id", "price", "orig_qty", "executed_qty",
			"cumulative_quote_qty", "status", "time_in_force", "type", "side",
		}
	case TableInference:
		return []string{"infer_time", "symbol", "prediction", "model_version"}
	case TableAsset:
		return []string{"update_time", "symbol", "amount"}
	}
	return nil
}

// Row — одна запись: колонка -> значение.
type Row map[string]any
