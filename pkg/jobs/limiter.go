package jobs

import (
	"sync"
	"time"
)

// TriggerLimiter allows one on-demand trigger per job kind per interval.
// Scheduled runs do not pass through it.
type TriggerLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

// NewTriggerLimiter creates a limiter. A non-positive interval means 30s.
func NewTriggerLimiter(interval time.Duration) *TriggerLimiter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TriggerLimiter{
		last:     make(map[string]time.Time),
		interval: interval,
	}
}

// Allow reports whether kind may be triggered now. When it may not, it
// returns how long until the next allowed attempt.
func (l *TriggerLimiter) Allow(kind string) (bool, time.Duration) {
	return l.allowAt(kind, time.Now())
}

func (l *TriggerLimiter) allowAt(kind string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[kind]
	if ok {
		if next := last.Add(l.interval); now.Before(next) {
			return false, next.Sub(now)
		}
	}
	l.last[kind] = now
	return true, 0
}
