package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kline_trader/internal/models"
	"kline_trader/internal/notify"
)

type KlineAPI interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// Warmuper тянет последние закрытые свечи по REST, чтобы окно признаков
// было заполнено до первой свечи из стрима.
type Warmuper struct {
	api      KlineAPI
	n        notify.Notifier
	interval string
	size     int
	logger   *zap.Logger

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(api KlineAPI, n notify.Notifier, interval string, size int, logger *zap.Logger) *Warmuper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmuper{
		api:      api,
		n:        n,
		interval: interval,
		size:     size,
		logger:   logger.Named("warmup"),
		sem:      make(chan struct{}, 4),
	}
}

// Warmup возвращает до size закрытых свечей на символ, от старых к новым.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string) (map[string][]models.Candle, error) {
	out := make(map[string][]models.Candle, len(symbols))
	if len(symbols) == 0 || w.size <= 0 {
		return out, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			// +1: последняя свеча обычно ещё не закрыта
			candles, err := w.api.Klines(ctx, sym, w.interval, w.size+1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup %s: %w", sym, err)
				}
				return
			}
			out[sym] = closedTail(candles, w.size)
		}()
	}
	wg.Wait()

	if firstErr != nil {
		if w.n != nil {
			w.n.Send("⚠️ REST warmup finished with error: " + firstErr.Error())
		}
		return out, firstErr
	}

	for sym, c := range out {
		w.logger.Info("window warmed", zap.String("symbol", sym), zap.Int("candles", len(c)))
	}
	return out, nil
}

func closedTail(candles []models.Candle, size int) []models.Candle {
	closed := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if c.IsClosed {
			closed = append(closed, c)
		}
	}
	if len(closed) > size {
		closed = closed[len(closed)-size:]
	}
	return closed
}
