package consumer

import (
	"testing"

	"github.com/librescoot/als-service/internal/curve"
)

func steps(t *testing.T, limits, levels []int) []curve.Step {
	t.Helper()
	s, err := curve.NewSteps(limits, levels)
	if err != nil {
		t.Fatalf("NewSteps: %v", err)
	}
	return s
}

func newTestAdapter(t *testing.T) *Adapter {
	var tables [curve.NumConsumers]*curve.Profile

	tables[curve.Display] = curve.New(curve.Display)
	tables[curve.Display].SetProfiles([][]curve.Step{
		steps(t, []int{10, 100}, []int{10, 50}),
		steps(t, []int{10, 100}, []int{30, 70}),
		steps(t, []int{10, 100}, []int{60, 90}),
	})

	tables[curve.LED] = curve.New(curve.LED)
	tables[curve.LED].SetProfiles([][]curve.Step{
		steps(t, []int{10, 100}, []int{20, 60}),
	})

	tables[curve.Keypad] = curve.New(curve.Keypad)
	tables[curve.Keypad].SetProfiles([][]curve.Step{
		steps(t, []int{10, 100}, []int{80, 0}),
	})

	tables[curve.LPM] = curve.New(curve.LPM)
	tables[curve.LPM].SetProfiles([][]curve.Step{
		steps(t, []int{10, 100}, []int{5, 15}),
	})

	a := NewAdapter(tables)
	a.SetEnabled(true, true)
	return a
}

func TestProfileForSetting(t *testing.T) {
	tests := []struct {
		setting, count, want int
	}{
		{1, 0, 0},
		{50, 1, 0},
		{1, 3, 0},
		{50, 3, 1},
		{100, 3, 2},
		{0, 3, 0},
		{250, 3, 2},
		{100, 21, 20},
		{51, 21, 10},
	}
	for _, tt := range tests {
		if got := ProfileForSetting(tt.setting, tt.count); got != tt.want {
			t.Errorf("ProfileForSetting(%d, %d) = %d, want %d", tt.setting, tt.count, got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	a := newTestAdapter(t)

	// No lux yet: the setting passes through
	if got := a.Display(42); got != 42 {
		t.Errorf("Display without lux = %d, want 42", got)
	}

	a.SetLux(50)
	if got := a.Display(1); got != 50 {
		t.Errorf("Display(1) = %d, want 50", got)
	}
	if got := a.Display(100); got != 90 {
		t.Errorf("Display(100) = %d, want 90", got)
	}

	a.SetEnabled(true, false)
	if got := a.Display(100); got != 100 {
		t.Errorf("Display with autobrightness off = %d, want 100", got)
	}
}

func TestDisplayWithoutCurvesFailsOpen(t *testing.T) {
	a := NewAdapter([curve.NumConsumers]*curve.Profile{})
	a.SetEnabled(true, true)
	a.SetLux(50)

	if got := a.Display(30); got != curve.DefaultLevel {
		t.Errorf("Display with empty curves = %d, want %d", got, curve.DefaultLevel)
	}
}

func TestLEDCachesScale(t *testing.T) {
	a := newTestAdapter(t)

	if got := a.LED(100); got != DefaultLEDScale {
		t.Errorf("LED before any lux = %d, want %d", got, DefaultLEDScale)
	}

	a.SetLux(50)
	if got := a.LED(50); got != 30 {
		t.Errorf("LED(50) at 50 lux = %d, want 30", got)
	}

	// Sensor goes away, scale stays
	a.SetLux(-1)
	if got := a.LED(100); got != 60 {
		t.Errorf("LED(100) without lux = %d, want cached 60", got)
	}

	// Disabling autobrightness drops the cache
	a.SetEnabled(true, false)
	a.SetEnabled(true, true)
	if got := a.LED(100); got != DefaultLEDScale {
		t.Errorf("LED(100) after disable = %d, want %d", got, DefaultLEDScale)
	}
}

func TestKeypadDoesNotCache(t *testing.T) {
	a := newTestAdapter(t)

	a.SetLux(5)
	if got := a.Keypad(50); got != 40 {
		t.Errorf("Keypad(50) at 5 lux = %d, want 40", got)
	}

	a.SetLux(-1)
	if got := a.Keypad(50); got != 50 {
		t.Errorf("Keypad(50) without lux = %d, want 50", got)
	}
}

func TestLPMIgnoresInput(t *testing.T) {
	a := newTestAdapter(t)

	if got := a.LPM(33); got != 33 {
		t.Errorf("LPM without lux = %d, want raw 33", got)
	}

	a.SetLux(50)
	for _, in := range []int{0, 33, 100} {
		if got := a.LPM(in); got != 15 {
			t.Errorf("LPM(%d) = %d, want curve value 15", in, got)
		}
	}

	empty := NewAdapter([curve.NumConsumers]*curve.Profile{})
	empty.SetLux(50)
	if got := empty.LPM(33); got != 33 {
		t.Errorf("LPM with no curve = %d, want raw 33", got)
	}
}

func TestFilterDispatch(t *testing.T) {
	a := newTestAdapter(t)
	a.SetLux(50)

	for _, c := range curve.Consumers {
		var want int
		switch c {
		case curve.Display:
			want = a.Display(100)
		case curve.LED:
			want = a.LED(100)
		case curve.Keypad:
			want = a.Keypad(100)
		case curve.LPM:
			want = a.LPM(100)
		}
		if got := a.Filter(c, 100); got != want {
			t.Errorf("Filter(%v) = %d, want %d", c, got, want)
		}
	}
}
