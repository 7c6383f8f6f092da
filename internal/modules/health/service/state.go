package service

import (
	"sync/atomic"
	"time"
)

// State — состояние процесса для /readyz и /healthz. Пишут раннеры и супервизоры стримов.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected atomic.Bool
	lastTickMs  atomic.Int64
	ticks       atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// TouchTick — пришла свеча; время не откатывается назад.
func (s *State) TouchTick(t time.Time) {
	s.ticks.Add(1)
	ms := t.UnixMilli()
	for {
		cur := s.lastTickMs.Load()
		if ms <= cur || s.lastTickMs.CompareAndSwap(cur, ms) {
			return
		}
	}
}

func (s *State) LastTick() time.Time {
	ms := s.lastTickMs.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *State) Ticks() int64 { return s.ticks.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
