package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// TimeoutScheduler fires one timeout check per request at its expiry. Fired checks run on a bounded
// worker pool so a burst of expiries cannot spawn unbounded database work.
type TimeoutScheduler struct {
	mu      sync.Mutex
	timers  map[int64]armedTimer
	seq     uint64
	handler func(requestID int64)
	pool    *ants.PoolWithFunc
	stopped bool
	now     func() time.Time
	log     *zap.Logger
}

type armedTimer struct {
	timer *time.Timer
	seq   uint64
}

var _ Scheduler = (*TimeoutScheduler)(nil)

// NewTimeoutScheduler creates a scheduler whose checks run on a pool of the given size.
func NewTimeoutScheduler(workers int, log *zap.Logger) (*TimeoutScheduler, error) {
	s := &TimeoutScheduler{
		timers: make(map[int64]armedTimer),
		now:    time.Now,
		log:    log.Named("timeout_scheduler"),
	}

	pool, err := ants.NewPoolWithFunc(workers, func(i interface{}) {
		requestID, ok := i.(int64)
		if !ok {
			s.log.Error("invalid timeout task", zap.Any("data", i))
			return
		}
		s.run(requestID)
	},
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(err interface{}) {
			s.log.Error("panic recovered in timeout check", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create timeout pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Bind sets the function invoked when a request's timeout fires.
func (s *TimeoutScheduler) Bind(handler func(requestID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Schedule arms the check for requestID at the given instant, replacing any earlier timer.
func (s *TimeoutScheduler) Schedule(requestID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if armed, ok := s.timers[requestID]; ok {
		armed.timer.Stop()
	}

	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.seq++
	seq := s.seq
	s.timers[requestID] = armedTimer{
		timer: time.AfterFunc(delay, func() { s.fire(requestID, seq) }),
		seq:   seq,
	}
}

// Cancel drops a pending check. Checks are no-ops on non-pending requests, so a missed cancel is harmless.
func (s *TimeoutScheduler) Cancel(requestID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if armed, ok := s.timers[requestID]; ok {
		armed.timer.Stop()
		delete(s.timers, requestID)
	}
}

// Pending reports the number of armed timers.
func (s *TimeoutScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms all timers and releases the pool.
func (s *TimeoutScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.pool.Release()
}

// fire runs only if the timer is still the one armed for requestID; a canceled or replaced timer whose
// Stop raced with expiry is dropped here.
func (s *TimeoutScheduler) fire(requestID int64, seq uint64) {
	s.mu.Lock()
	armed, ok := s.timers[requestID]
	if s.stopped || !ok || armed.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, requestID)
	s.mu.Unlock()

	if err := s.pool.Invoke(requestID); err != nil {
		s.log.Warn("failed to submit timeout check", zap.Int64("request_id", requestID), zap.Error(err))
	}
}

func (s *TimeoutScheduler) run(requestID int64) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		s.log.Warn("timeout fired without handler", zap.Int64("request_id", requestID))
		return
	}
	handler(requestID)
}
