package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kline_trader/internal/models"
)

type fakeKlines struct {
	bySymbol map[string][]models.Candle
	err      error
}

func (f *fakeKlines) Klines(_ context.Context, symbol, _ string, limit int) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySymbol[symbol], nil
}

func series(n int, lastOpen bool) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{OpenTime: time.Unix(int64(i*60), 0), Close: float64(100 + i), IsClosed: true}
	}
	if lastOpen {
		out[n-1].IsClosed = false
	}
	return out
}

func TestWarmup_KeepsClosedTail(t *testing.T) {
	api := &fakeKlines{bySymbol: map[string][]models.Candle{"BTCUSDT": series(6, true)}}
	w := NewWarmuper(api, nil, "1m", 3, nil)

	got, err := w.Warmup(context.Background(), []string{"BTCUSDT"})
	if err != nil {
		t.Fatal(err)
	}
	c := got["BTCUSDT"]
	if len(c) != 3 {
		t.Fatalf("len = %d, want 3", len(c))
	}
	if c[0].Close != 102 || c[2].Close != 104 {
		t.Fatalf("unexpected tail %v %v", c[0].Close, c[2].Close)
	}
}

func TestWarmup_Error(t *testing.T) {
	w := NewWarmuper(&fakeKlines{err: errors.New("boom")}, nil, "1m", 3, nil)
	if _, err := w.Warmup(context.Background(), []string{"BTCUSDT"}); err == nil {
		t.Fatal("expected error")
	}
}
