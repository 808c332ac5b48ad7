package sensor

import (
	"log"
	"time"

	"github.com/librescoot/als-service/internal/filter"
)

// WakeLockName is the wake lock held while a poll request keeps the sensor on
const WakeLockName = "als_poll"

// Hardware is the light sensor device
type Hardware interface {
	Enable() error
	Disable() error
	// SetNotify registers the sample callback, replacing any previous one.
	// nil unregisters.
	SetNotify(fn func(lux int))
}

// WakeLock keeps the system from suspending while held
type WakeLock interface {
	// Obtain takes the named lock; timeout 0 holds it until released
	Obtain(name string, timeout time.Duration) error
	Release(name string) error
}

// Pipeline is the sampling stage fed by the sensor
type Pipeline interface {
	Feed(lux int)
	Flush()
}

// Hooks are invoked by the manager on lifecycle events
type Hooks struct {
	// ClearHysteresis invalidates every curve band after the sensor went off
	ClearHysteresis func()
	// Recompute re-runs every brightness output
	Recompute func()
}

// Manager decides when the sensor is powered. The decision is recomputed
// from scratch whenever one of its inputs changes.
type Manager struct {
	logger   *log.Logger
	hardware Hardware
	wakeLock WakeLock
	pipeline Pipeline
	hooks    Hooks

	masterEnabled  bool
	autoBrightness bool
	lidFilter      bool
	display        Display
	pollRequested  bool
	shuttingDown   bool

	enabled          bool
	wakeLockHeld     bool
	appliedAutoLevel bool
}

// NewManager creates a manager with the sensor off and every input false
func NewManager(logger *log.Logger, hardware Hardware, wakeLock WakeLock, pipeline Pipeline, hooks Hooks) *Manager {
	return &Manager{
		logger:   logger,
		hardware: hardware,
		wakeLock: wakeLock,
		pipeline: pipeline,
		hooks:    hooks,
		display:  Display{Current: DisplayUndef, Next: DisplayUndef},
	}
}

// Enabled reports whether the sensor is powered
func (m *Manager) Enabled() bool {
	return m.enabled
}

// WakeLockHeld reports whether the poll wake lock is held
func (m *Manager) WakeLockHeld() bool {
	return m.wakeLockHeld
}

// Display returns the display situation last reported
func (m *Manager) Display() Display {
	return m.display
}

func (m *Manager) SetMasterEnabled(enabled bool) {
	m.masterEnabled = enabled
	m.rethink()
}

func (m *Manager) SetAutoBrightness(enabled bool) {
	m.autoBrightness = enabled
	m.rethink()
}

func (m *Manager) SetLidFilter(enabled bool) {
	m.lidFilter = enabled
	m.rethink()
}

func (m *Manager) SetDisplay(display Display) {
	m.display = display
	m.rethink()
}

func (m *Manager) SetPollRequest(active bool) {
	m.pollRequested = active
	m.rethink()
}

// Shutdown forces the sensor off for good
func (m *Manager) Shutdown() {
	m.shuttingDown = true
	m.rethink()
}

// Wanted reports whether the inputs currently call for a powered sensor
func (m *Manager) Wanted() bool {
	if m.shuttingDown || !m.masterEnabled {
		return false
	}
	if m.pollRequested {
		return true
	}
	return (m.autoBrightness || m.lidFilter) && m.display.WantsALS()
}

func (m *Manager) rethink() {
	if want := m.Wanted(); want != m.enabled {
		if want {
			m.enable()
		} else {
			m.disable()
		}
	}

	if m.autoBrightness != m.appliedAutoLevel {
		m.appliedAutoLevel = m.autoBrightness
		if m.hooks.Recompute != nil {
			m.hooks.Recompute()
		}
	}

	m.updateWakeLock()
}

func (m *Manager) enable() {
	if err := m.hardware.Enable(); err != nil {
		m.logger.Printf("Failed to enable light sensor: %v", err)
		return
	}
	m.hardware.SetNotify(m.pipeline.Feed)
	m.pipeline.Flush()
	m.enabled = true

	m.logger.Printf("Light sensor enabled")
}

func (m *Manager) disable() {
	// No samples may arrive once teardown has started
	m.hardware.SetNotify(nil)
	m.pipeline.Feed(filter.NoData)

	if err := m.hardware.Disable(); err != nil {
		m.logger.Printf("Failed to disable light sensor: %v", err)
	}
	m.enabled = false

	if m.hooks.ClearHysteresis != nil {
		m.hooks.ClearHysteresis()
	}

	m.logger.Printf("Light sensor disabled")
}

func (m *Manager) updateWakeLock() {
	want := m.enabled && m.pollRequested
	if want == m.wakeLockHeld || m.wakeLock == nil {
		return
	}

	if want {
		if err := m.wakeLock.Obtain(WakeLockName, 0); err != nil {
			m.logger.Printf("Failed to obtain wake lock %s: %v", WakeLockName, err)
			return
		}
	} else {
		if err := m.wakeLock.Release(WakeLockName); err != nil {
			m.logger.Printf("Failed to release wake lock %s: %v", WakeLockName, err)
			return
		}
	}
	m.wakeLockHeld = want
}
