package consumer

import (
	"github.com/librescoot/als-service/internal/curve"
)

// DefaultLEDScale is the LED scale used until a lux reading has been seen
const DefaultLEDScale = 40

// Adapter turns raw brightness requests into ALS adjusted values using the
// current filtered lux and each consumer's curve table.
type Adapter struct {
	curves [curve.NumConsumers]*curve.Profile

	lux            int
	alsEnabled     bool
	autoBrightness bool

	ledScale int
}

// NewAdapter creates adapters over the given curve tables. Missing tables
// are replaced with empty ones.
func NewAdapter(curves [curve.NumConsumers]*curve.Profile) *Adapter {
	a := &Adapter{
		curves:   curves,
		lux:      -1,
		ledScale: DefaultLEDScale,
	}
	for _, c := range curve.Consumers {
		if a.curves[c] == nil {
			a.curves[c] = curve.New(c)
		}
	}
	return a
}

// SetLux records the latest filtered lux value, negative for no data
func (a *Adapter) SetLux(lux int) {
	if lux < 0 {
		lux = -1
	}
	a.lux = lux
}

// Lux returns the lux value the adapters work with
func (a *Adapter) Lux() int {
	return a.lux
}

// SetEnabled updates the master ALS and autobrightness switches
func (a *Adapter) SetEnabled(als, autoBrightness bool) {
	a.alsEnabled = als
	a.autoBrightness = autoBrightness
	if !a.active() {
		a.ledScale = DefaultLEDScale
	}
}

// Curve returns the curve table of consumer c
func (a *Adapter) Curve(c curve.Consumer) *curve.Profile {
	return a.curves[c]
}

func (a *Adapter) active() bool {
	return a.alsEnabled && a.autoBrightness
}

// Filter dispatches to the adapter for consumer c
func (a *Adapter) Filter(c curve.Consumer, value int) int {
	switch c {
	case curve.Display:
		return a.Display(value)
	case curve.LED:
		return a.LED(value)
	case curve.Keypad:
		return a.Keypad(value)
	case curve.LPM:
		return a.LPM(value)
	default:
		return value
	}
}

// Display maps a 1-100 brightness setting to a brightness percentage. The
// setting selects the curve profile; with autobrightness off or no lux the
// setting passes through.
func (a *Adapter) Display(setting int) int {
	setting = clamp(setting, 1, 100)

	if !a.active() || a.lux < 0 {
		return setting
	}

	table := a.curves[curve.Display]
	return table.Run(ProfileForSetting(setting, table.Count()), a.lux)
}

// LED scales a 0-100 base brightness by the profile 0 curve. The last scale
// survives periods without lux data.
func (a *Adapter) LED(base int) int {
	base = clamp(base, 0, 100)

	if a.active() && a.lux >= 0 {
		a.ledScale = a.curves[curve.LED].Run(0, a.lux)
	}

	return base * a.ledScale / 100
}

// Keypad scales a 0-100 base brightness by the profile 0 curve, at full
// scale whenever there is no lux data.
func (a *Adapter) Keypad(base int) int {
	base = clamp(base, 0, 100)

	scale := 100
	if a.active() && a.lux >= 0 {
		scale = a.curves[curve.Keypad].Run(0, a.lux)
	}

	return base * scale / 100
}

// LPM reports the profile 0 curve value for the current lux. The input is
// only used while no curve or no lux is available.
func (a *Adapter) LPM(value int) int {
	table := a.curves[curve.LPM]
	if table.Count() == 0 || a.lux < 0 {
		return value
	}
	return table.Run(0, a.lux)
}

// ProfileForSetting maps a 1-100 setting linearly onto profile indices
// 0..count-1
func ProfileForSetting(setting, count int) int {
	if count <= 1 {
		return 0
	}
	setting = clamp(setting, 1, 100)
	return ((setting-1)*(count-1) + 99/2) / 99
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
