package service

import (
	"math/rand"
	"sync"

	"kline_trader/internal/models"
)

// Random — случайный BUY/SELL/HOLD. Для прогонов на testnet.
type Random struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	version string
}

func NewRandom(seed int64, version string) *Random {
	return &Random{rnd: rand.New(rand.NewSource(seed)), version: version}
}

func (r *Random) Name() string    { return "random" }
func (r *Random) Version() string { return r.version }

func (r *Random) Predict(models.Features) (models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.rnd.Intn(3) {
	case 0:
		return models.SignalBuy, nil
	case 1:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
