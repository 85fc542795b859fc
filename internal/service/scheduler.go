package service

import "time"

// CancelFunc cancels a scheduled callback. Safe to call more than once;
// reports whether the callback was still pending.
type CancelFunc func() bool

// Scheduler arms one-shot timers. An explicit capability instead of raw
// time.AfterFunc so refresh scheduling can be driven by a simulated
// clock in tests.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// Compile-time check to ensure implementation satisfies the interface.
var _ Scheduler = (*TimerScheduler)(nil)

// TimerScheduler is the production Scheduler backed by the runtime timer.
type TimerScheduler struct{}

// NewTimerScheduler creates the wall-clock scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule arms a one-shot timer for fn after d.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
