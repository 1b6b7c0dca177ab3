package statuspoll

import (
	"context"
	"time"
)

// StartScheduler begins recurring sweeps: every interval, stale servers
// are selected and polled via [Service.PollAllDue]. An immediate sweep
// runs before the first tick so cold-start data is not stale for a full
// interval.
//
// An interval of zero or less falls back to the freshness window, which
// keeps the sweep cadence aligned with snapshot staleness.
//
// Starting an already running scheduler is a no-op with a warning, not
// a second timer. Sweeps run against context.Background(): stopping the
// scheduler prevents future ticks but never cancels in-flight polls.
func (s *Service) StartScheduler(interval time.Duration) {
	if interval <= 0 {
		interval = s.freshnessWindow
	}

	s.schedMu.Lock()
	if s.schedRunning {
		s.schedMu.Unlock()
		s.logger.Warn("scheduler already running, ignoring start")
		return
	}
	s.schedRunning = true
	done := make(chan struct{})
	s.schedDone = done
	s.schedWG.Add(1)
	s.schedMu.Unlock()

	s.logger.Info("scheduler started", "interval", interval.String())
	go s.runScheduler(interval, done)
}

// StopScheduler cancels the recurring sweeps and waits for the
// scheduler goroutine to exit. After it returns no further sweeps will
// start; a sweep already in flight runs to completion first.
//
// Stopping a scheduler that is not running is a safe no-op. The
// scheduler can be started again afterwards.
func (s *Service) StopScheduler() {
	s.schedMu.Lock()
	if !s.schedRunning {
		s.schedMu.Unlock()
		return
	}
	s.schedRunning = false
	close(s.schedDone)
	s.schedMu.Unlock()

	s.schedWG.Wait()
	s.logger.Info("scheduler stopped")
}

// SchedulerRunning reports whether the recurring sweep loop is active.
func (s *Service) SchedulerRunning() bool {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	return s.schedRunning
}

func (s *Service) runScheduler(interval time.Duration, done <-chan struct{}) {
	defer s.schedWG.Done()

	s.sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// done takes priority over a tick that raced with stop
			select {
			case <-done:
				return
			default:
			}
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	if _, err := s.PollAllDue(context.Background()); err != nil {
		s.logger.Error("sweep failed", "error", err.Error())
	}
}
