package delivery

import (
	"context"
	"sync"
	"time"
)

// Scheduler schedules a delivery task to run after a delay.
type Scheduler interface {
	Schedule(ctx context.Context, task Task, delay time.Duration) error
}

// DeliverFunc executes a scheduled task.
type DeliverFunc func(ctx context.Context, task Task)

// TimerScheduler runs retries on in-process timers. Pending retries are lost
// on restart; production deployments use AsynqScheduler instead.
type TimerScheduler struct {
	mu      sync.Mutex
	deliver DeliverFunc
	timers  map[*time.Timer]struct{}
	stopped bool
}

// NewTimerScheduler creates an unbound timer scheduler. Bind must be called
// before any task fires.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[*time.Timer]struct{})}
}

// Bind sets the function invoked when a timer fires. Split from construction
// because the engine and its scheduler reference each other.
func (s *TimerScheduler) Bind(fn DeliverFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliver = fn
}

// Schedule arms a timer for the task.
func (s *TimerScheduler) Schedule(_ context.Context, task Task, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		fn := s.deliver
		stopped := s.stopped
		delete(s.timers, timer)
		s.mu.Unlock()

		if stopped || fn == nil {
			return
		}
		fn(context.Background(), task)
	})
	s.timers[timer] = struct{}{}
	return nil
}

// Stop cancels all pending timers. Scheduled tasks that have not fired are
// discarded.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
