package sampler

import (
	"log"
	"time"

	"github.com/librescoot/als-service/internal/filter"
	"github.com/librescoot/als-service/internal/timer"
)

// Sample time limits and default
const (
	MinSampleTime     = 50 * time.Millisecond
	MaxSampleTime     = 1000 * time.Millisecond
	DefaultSampleTime = 125 * time.Millisecond
)

// State of the sampling controller
type State int

const (
	StateIdle State = iota
	StateSampling
)

// String returns the string representation of the sampling state
func (s State) String() string {
	switch s {
	case StateSampling:
		return "sampling"
	default:
		return "idle"
	}
}

// ClampSampleTime limits a sample time to the supported range
func ClampSampleTime(d time.Duration) time.Duration {
	if d < MinSampleTime {
		return MinSampleTime
	}
	if d > MaxSampleTime {
		return MaxSampleTime
	}
	return d
}

// Controller polls the input filter backend with the latest raw sample until
// the output converges, emitting every change of the filtered value.
type Controller struct {
	logger    *log.Logger
	scheduler timer.Scheduler
	backend   filter.Backend
	period    time.Duration
	onOutput  func(lux int)

	input  int
	output int
	token  timer.Token
	flush  bool
}

// NewController creates an idle controller. onOutput receives every change
// of the filtered lux value.
func NewController(logger *log.Logger, scheduler timer.Scheduler, backend filter.Backend, onOutput func(int)) *Controller {
	if backend == nil {
		backend = filter.Disabled{}
	}
	return &Controller{
		logger:    logger,
		scheduler: scheduler,
		backend:   backend,
		period:    DefaultSampleTime,
		onOutput:  onOutput,
		input:     filter.NoData,
		output:    filter.NoData,
		flush:     true,
	}
}

// State returns whether the sampling timer is running
func (c *Controller) State() State {
	if c.token != 0 {
		return StateSampling
	}
	return StateIdle
}

// Input returns the latest raw sample
func (c *Controller) Input() int {
	return c.input
}

// Output returns the last emitted filtered value
func (c *Controller) Output() int {
	return c.output
}

// Backend returns the active filter backend
func (c *Controller) Backend() filter.Backend {
	return c.backend
}

// Period returns the tick period
func (c *Controller) Period() time.Duration {
	return c.period
}

// SetPeriod changes the tick period, clamped to the supported range.
// A running timer picks it up at the next tick.
func (c *Controller) SetPeriod(d time.Duration) {
	c.period = ClampSampleTime(d)
}

// SetBackend swaps the filter backend. Sampling restarts if there is a
// valid sample so the new backend gets to converge.
func (c *Controller) SetBackend(backend filter.Backend) {
	if backend == nil {
		backend = filter.Disabled{}
	}
	c.logger.Printf("ALS input filter: %s", backend.Kind())
	c.backend = backend

	if c.input >= 0 {
		c.start()
	}
}

// Flush makes the next sampling start drop the backend history
func (c *Controller) Flush() {
	c.flush = true
}

// Feed hands a raw sensor sample to the controller
func (c *Controller) Feed(sample int) {
	if sample < 0 {
		sample = filter.NoData
	}
	if sample == c.input {
		return
	}
	c.input = sample

	if sample < 0 {
		c.stop()
		c.emit(c.backend.Filter(filter.NoData))
		return
	}

	c.start()
}

func (c *Controller) start() {
	if c.token != 0 {
		return
	}

	if c.flush {
		c.flush = false
		c.backend.Reset()
	}

	c.logger.Printf("ALS sampling started (period %v)", c.period)
	c.token = c.scheduler.Schedule(c.period, c.tick)
}

func (c *Controller) stop() {
	if c.token == 0 {
		return
	}
	c.scheduler.Cancel(c.token)
	c.token = 0
	c.logger.Printf("ALS sampling stopped")
}

func (c *Controller) tick() {
	c.token = 0

	lux := c.backend.Filter(c.input)
	if lux != c.output {
		c.emit(lux)
	}

	if c.backend.Stable() {
		c.logger.Printf("ALS input stable at %d lux", c.output)
		return
	}

	c.token = c.scheduler.Schedule(c.period, c.tick)
}

func (c *Controller) emit(lux int) {
	c.output = lux
	if c.onOutput != nil {
		c.onOutput(lux)
	}
}
