package als

import (
	"log"
	"time"

	"github.com/librescoot/als-service/internal/consumer"
	"github.com/librescoot/als-service/internal/curve"
	"github.com/librescoot/als-service/internal/datapipe"
	"github.com/librescoot/als-service/internal/filter"
	"github.com/librescoot/als-service/internal/poll"
	"github.com/librescoot/als-service/internal/sampler"
	"github.com/librescoot/als-service/internal/sensor"
	"github.com/librescoot/als-service/internal/timer"
)

// Default brightness channel inputs
const (
	DefaultDisplaySetting = 60
	DefaultLEDBase        = 100
	DefaultKeypadBase     = 100
	DefaultLPMInput       = 20
)

// Publisher receives the engine outputs
type Publisher interface {
	PublishLux(lux int)
	PublishBrightness(c curve.Consumer, value int)
}

// Options configures a new Engine
type Options struct {
	Logger    *log.Logger
	Scheduler timer.Scheduler
	Hardware  sensor.Hardware
	WakeLock  sensor.WakeLock
	Publisher Publisher
	// Curves holds one table per consumer; nil entries are empty tables
	Curves       [curve.NumConsumers]*curve.Profile
	Filter       string
	PollDuration time.Duration
}

// Engine owns the complete ALS state: filter, sampling, curves, sensor
// lifecycle and poll session. It is not safe for concurrent use; every
// method must be called from the owner's event loop.
type Engine struct {
	logger    *log.Logger
	publisher Publisher

	adapter   *consumer.Adapter
	sampler   *sampler.Controller
	lifecycle *sensor.Manager
	poll      *poll.Session

	lux     *datapipe.Pipe[int]
	display *datapipe.Pipe[sensor.Display]
	outputs [curve.NumConsumers]*datapipe.Pipe[int]

	masterEnabled  bool
	autoBrightness bool

	published    [curve.NumConsumers]int
	hasPublished [curve.NumConsumers]bool
}

// New wires an engine. The sensor stays off until settings enable it.
func New(opts Options) *Engine {
	e := &Engine{
		logger:    opts.Logger,
		publisher: opts.Publisher,
		adapter:   consumer.NewAdapter(opts.Curves),
		lux:       datapipe.New("als-lux", filter.NoData),
		display:   datapipe.New("display-state", sensor.Display{Current: sensor.DisplayUndef, Next: sensor.DisplayUndef}),
	}

	backend := filter.Select(opts.Filter, opts.Logger)
	e.sampler = sampler.NewController(opts.Logger, opts.Scheduler, backend, func(lux int) {
		e.lux.Execute(lux)
	})

	e.lifecycle = sensor.NewManager(opts.Logger, opts.Hardware, opts.WakeLock, e.sampler, sensor.Hooks{
		ClearHysteresis: e.clearHysteresis,
		Recompute:       e.Refresh,
	})

	e.poll = poll.NewSession(opts.Logger, opts.Scheduler, opts.PollDuration, e.lifecycle.SetPollRequest)

	e.lux.AddTrigger(func(lux int) {
		e.adapter.SetLux(lux)
		if e.publisher != nil {
			e.publisher.PublishLux(lux)
		}
		e.Refresh()
	})

	e.display.AddTrigger(func(d sensor.Display) {
		e.lifecycle.SetDisplay(d)
		e.Refresh()
	})

	defaults := [curve.NumConsumers]int{
		curve.Display: DefaultDisplaySetting,
		curve.LED:     DefaultLEDBase,
		curve.Keypad:  DefaultKeypadBase,
		curve.LPM:     DefaultLPMInput,
	}
	for _, c := range curve.Consumers {
		pipe := datapipe.New(c.Key()+"-brightness", defaults[c])
		pipe.AddFilter(func(v int) int {
			return e.adapter.Filter(c, v)
		})
		pipe.AddTrigger(func(v int) {
			e.publishBrightness(c, v)
		})
		e.outputs[c] = pipe
	}

	return e
}

// Refresh re-runs every brightness channel with its cached input
func (e *Engine) Refresh() {
	for _, pipe := range e.outputs {
		pipe.Rerun()
	}
}

func (e *Engine) publishBrightness(c curve.Consumer, value int) {
	if e.hasPublished[c] && e.published[c] == value {
		return
	}
	e.published[c] = value
	e.hasPublished[c] = true

	if e.publisher != nil {
		e.publisher.PublishBrightness(c, value)
	}
}

func (e *Engine) clearHysteresis() {
	for _, c := range curve.Consumers {
		e.adapter.Curve(c).ClearHysteresis()
	}
}

// SetMasterEnabled switches the whole ALS subsystem
func (e *Engine) SetMasterEnabled(enabled bool) {
	e.masterEnabled = enabled
	e.adapter.SetEnabled(e.masterEnabled, e.autoBrightness)
	e.lifecycle.SetMasterEnabled(enabled)
	e.Refresh()
}

// SetAutoBrightness switches ALS driven brightness adjustment
func (e *Engine) SetAutoBrightness(enabled bool) {
	e.autoBrightness = enabled
	e.adapter.SetEnabled(e.masterEnabled, e.autoBrightness)
	e.lifecycle.SetAutoBrightness(enabled)
}

// SetLidFilter switches whether the lid sensor relies on the ALS
func (e *Engine) SetLidFilter(enabled bool) {
	e.lifecycle.SetLidFilter(enabled)
}

// SetInputFilter selects the input filter backend by name. Unknown names
// select the pass-through backend.
func (e *Engine) SetInputFilter(name string) {
	backend := filter.Select(name, e.logger)
	if backend.Kind() == e.sampler.Backend().Kind() {
		return
	}
	e.sampler.SetBackend(backend)
}

// SetSampleTime sets the sampling period in milliseconds
func (e *Engine) SetSampleTime(ms int) {
	e.sampler.SetPeriod(time.Duration(ms) * time.Millisecond)
}

// SetDisplayState publishes a new display situation
func (e *Engine) SetDisplayState(d sensor.Display) {
	e.display.Execute(d)
}

// RequestPoll keeps the sensor on for the poll duration, restarting a
// running poll
func (e *Engine) RequestPoll() {
	e.poll.Request()
}

// CancelPoll ends a running poll
func (e *Engine) CancelPoll() {
	e.poll.Cancel()
}

// SetInput executes consumer c's channel with a new raw input
func (e *Engine) SetInput(c curve.Consumer, value int) {
	e.outputs[c].Execute(value)
}

// SetDisplaySetting sets the 1-100 display brightness setting
func (e *Engine) SetDisplaySetting(setting int) {
	e.SetInput(curve.Display, setting)
}

// SetLEDBase sets the 0-100 LED base brightness
func (e *Engine) SetLEDBase(base int) {
	e.SetInput(curve.LED, base)
}

// SetKeypadBase sets the 0-100 keypad base brightness
func (e *Engine) SetKeypadBase(base int) {
	e.SetInput(curve.Keypad, base)
}

// SetLPMInput sets the fallback LPM brightness
func (e *Engine) SetLPMInput(value int) {
	e.SetInput(curve.LPM, value)
}

// Brightness returns the current output of consumer c
func (e *Engine) Brightness(c curve.Consumer) int {
	return e.outputs[c].Output()
}

// Input returns the current raw input of consumer c
func (e *Engine) Input(c curve.Consumer) int {
	return e.outputs[c].Input()
}

// Lux returns the latest filtered lux value, -1 without data
func (e *Engine) Lux() int {
	return e.lux.Output()
}

// Curve returns the curve table of consumer c
func (e *Engine) Curve(c curve.Consumer) *curve.Profile {
	return e.adapter.Curve(c)
}

// Feed hands a raw sensor sample to the sampling stage. The hardware
// notify callback registered by the lifecycle manager does the same.
func (e *Engine) Feed(lux int) {
	e.sampler.Feed(lux)
}

// SensorEnabled reports whether the sensor is powered
func (e *Engine) SensorEnabled() bool {
	return e.lifecycle.Enabled()
}

// PollActive reports whether a poll session is running
func (e *Engine) PollActive() bool {
	return e.poll.Active()
}

// WakeLockHeld reports whether the poll wake lock is held
func (e *Engine) WakeLockHeld() bool {
	return e.lifecycle.WakeLockHeld()
}

// Sampling reports the sampling controller state
func (e *Engine) Sampling() sampler.State {
	return e.sampler.State()
}

// Shutdown powers the sensor down for good and releases the wake lock
func (e *Engine) Shutdown() {
	e.poll.Cancel()
	e.lifecycle.Shutdown()
}
