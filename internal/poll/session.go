package poll

import (
	"log"
	"time"

	"github.com/librescoot/als-service/internal/timer"
)

// DefaultDuration is how long a poll request keeps the sensor on
const DefaultDuration = 5 * time.Second

// Session is a restartable countdown that keeps the sensor powered
// independently of the display. Each request restarts the countdown;
// expiry or cancel ends the session.
type Session struct {
	logger    *log.Logger
	scheduler timer.Scheduler
	duration  time.Duration
	onChange  func(active bool)

	active bool
	token  timer.Token
}

// NewSession creates an inactive session. onChange is called whenever the
// session becomes active or inactive.
func NewSession(logger *log.Logger, scheduler timer.Scheduler, duration time.Duration, onChange func(bool)) *Session {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Session{
		logger:    logger,
		scheduler: scheduler,
		duration:  duration,
		onChange:  onChange,
	}
}

// Active reports whether a poll is in progress
func (s *Session) Active() bool {
	return s.active
}

// Duration returns the countdown length
func (s *Session) Duration() time.Duration {
	return s.duration
}

// Request starts a poll or extends the running one
func (s *Session) Request() {
	if s.token != 0 {
		s.scheduler.Cancel(s.token)
	}
	s.token = s.scheduler.Schedule(s.duration, s.expire)

	if s.active {
		s.logger.Printf("ALS poll extended for %v", s.duration)
		return
	}
	s.logger.Printf("ALS poll started for %v", s.duration)
	s.set(true)
}

// Cancel ends a running poll
func (s *Session) Cancel() {
	if s.token != 0 {
		s.scheduler.Cancel(s.token)
		s.token = 0
	}
	if !s.active {
		return
	}
	s.logger.Printf("ALS poll cancelled")
	s.set(false)
}

func (s *Session) expire() {
	s.token = 0
	if !s.active {
		return
	}
	s.logger.Printf("ALS poll finished")
	s.set(false)
}

func (s *Session) set(active bool) {
	s.active = active
	if s.onChange != nil {
		s.onChange(active)
	}
}
