package records

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"kline_trader/internal/models"
	"kline_trader/pkg/db"
)

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	execs   []execCall
	execErr error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: append([]any(nil), args...)})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

type fakeTxManager struct {
	tx       *fakeTx
	beginErr error
}

func (m *fakeTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx db.Transaction) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx, m.tx)
}

type fakeNotifier struct{ msgs []string }

func (n *fakeNotifier) Send(msg string)                  { n.msgs = append(n.msgs, msg) }
func (n *fakeNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

func TestPgSinkInsertsInColumnOrder(t *testing.T) {
	tx := &fakeTx{}
	n := &fakeNotifier{}
	s := NewPgSink(&fakeTxManager{tx: tx}, n, nil)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Append(context.Background(), TableInference, []Row{InferenceRow(at, "BTCUSDT", models.SignalBuy, "0.1")})

	if len(tx.execs) != 1 {
		t.Fatalf("execs=%d", len(tx.execs))
	}
	want := "INSERT INTO inference (infer_time, symbol, prediction, model_version) VALUES ($1, $2, $3, $4)"
	if tx.execs[0].sql != want {
		t.Fatalf("sql %q", tx.execs[0].sql)
	}
	args := tx.execs[0].args
	if args[0] != at || args[1] != "BTCUSDT" || args[2] != "BUY" || args[3] != "0.1" {
		t.Fatalf("args %v", args)
	}
	if len(n.msgs) != 0 {
		t.Fatalf("unexpected notifications %v", n.msgs)
	}
}

func TestPgSinkFailureNotifiesAndDrops(t *testing.T) {
	n := &fakeNotifier{}
	s := NewPgSink(&fakeTxManager{beginErr: errors.New("connection refused")}, n, nil)

	s.Append(context.Background(), TableAsset, []Row{{"update_time": time.Now(), "symbol": "BTC", "amount": "1"}})

	if len(n.msgs) != 1 {
		t.Fatalf("notifications %v", n.msgs)
	}
}

func TestTransactionRowsUseFillPriceForMarket(t *testing.T) {
	rows := TransactionRows([]models.OrderResult{{
		OrderID:      1,
		Symbol:       "BTCUSDT",
		Side:         models.SideBuy,
		Type:         models.OrderTypeMarket,
		Status:       models.OrderStatusFilled,
		AvgFillPrice: decimal.NewFromInt(30000),
		ExecutedQty:  decimal.RequireFromString("0.001"),
	}})
	if len(rows) != 1 || rows[0]["price"] != "30000" || rows[0]["executed_qty"] != "0.001" {
		t.Fatalf("rows %v", rows)
	}
}

func TestAssetRowsSkipEmptyBalances(t *testing.T) {
	rows := AssetRows(models.Account{Balances: []models.Balance{
		{Asset: "BTC", Free: decimal.RequireFromString("0.5")},
		{Asset: "ETH"},
		{Asset: "USDT", Free: decimal.NewFromInt(100), Locked: decimal.NewFromInt(5)},
	}})
	if len(rows) != 2 || rows[0]["symbol"] != "BTC" || rows[1]["amount"] != "100" {
		t.Fatalf("rows %v", rows)
	}
}
