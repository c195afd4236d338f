// Package progress drives a percentage display while an extraction is in
// flight. The signal is a fixed-interval approximation, not real upload or
// server-side progress: it climbs from 0 toward 90 and only reaches 100 when
// the real result arrives.
package progress

import (
	"sync"
	"time"
)

const (
	defaultInterval = 200 * time.Millisecond
	defaultStep     = 10
	defaultCeiling  = 90
	complete        = 100
)

// Simulator emits a monotonically increasing percentage on a fixed interval,
// clamped at the ceiling until Finish is called.
type Simulator struct {
	interval time.Duration
	step     int
	ceiling  int
	onUpdate func(int)

	mu      sync.Mutex
	pct     int
	ticker  *time.Ticker
	done    chan struct{}
	settled bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval overrides the tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStep overrides the per-tick increment.
func WithStep(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.step = n
		}
	}
}

// New builds a simulator. onUpdate is invoked with each new percentage while
// the simulator's lock is held; it must not call back into the simulator. It
// may be nil.
func New(onUpdate func(int), opts ...Option) *Simulator {
	s := &Simulator{
		interval: defaultInterval,
		step:     defaultStep,
		ceiling:  defaultCeiling,
		onUpdate: onUpdate,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins ticking from zero. Calling Start on a running or settled
// simulator is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	if s.ticker != nil || s.settled {
		s.mu.Unlock()
		return
	}
	s.pct = 0
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	ticker, done := s.ticker, s.done
	s.emit(0)
	s.mu.Unlock()

	go s.run(ticker, done)
}

func (s *Simulator) run(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.settled {
				s.mu.Unlock()
				return
			}
			if s.pct < s.ceiling {
				s.pct += s.step
				if s.pct > s.ceiling {
					s.pct = s.ceiling
				}
				s.emit(s.pct)
			}
			s.mu.Unlock()
		}
	}
}

// Finish settles the simulator: the ticker is stopped either way, and on
// success the percentage jumps to 100. On failure the display is abandoned
// where it stands, never forced to 100. Idempotent.
func (s *Simulator) Finish(success bool) {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.stopLocked()
	if success {
		s.pct = complete
		s.emit(complete)
	}
	s.mu.Unlock()
}

// Stop tears the ticker down without emitting anything further. Used on
// unmount-style cleanup paths. Idempotent.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = true
	s.stopLocked()
}

func (s *Simulator) stopLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// Percent reports the last emitted percentage.
func (s *Simulator) Percent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pct
}

func (s *Simulator) emit(pct int) {
	if s.onUpdate != nil {
		s.onUpdate(pct)
	}
}
