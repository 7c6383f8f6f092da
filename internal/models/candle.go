package models

import "time"

// Candle — свеча из kline-стрима. В цикл попадают только закрытые (IsClosed).
type Candle struct {
	Symbol    string
	Interval  string
	EventTime time.Time
	OpenTime  time.Time
	CloseTime time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	IsClosed bool
}
