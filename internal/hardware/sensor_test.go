package hardware

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

// scriptedReader returns queued values, repeating the last one
type scriptedReader struct {
	mutex  sync.Mutex
	values []int
	errs   []error
}

func (r *scriptedReader) Read() (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	value, err := r.values[0], r.errs[0]
	if len(r.values) > 1 {
		r.values = r.values[1:]
		r.errs = r.errs[1:]
	}
	return value, err
}

type recordingSwitch struct {
	states []bool
}

func (s *recordingSwitch) SetPower(enabled bool) error {
	s.states = append(s.states, enabled)
	return nil
}

func newTestSensor(t *testing.T, reader Reader) (*Sensor, *recordingSwitch, chan func()) {
	t.Helper()
	posted := make(chan func(), 16)
	power := &recordingSwitch{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := NewSensor(ctx, log.New(io.Discard, "", 0), reader, power, nil, time.Millisecond, func(fn func()) {
		posted <- fn
	})
	return s, power, posted
}

func next(t *testing.T, posted chan func()) func() {
	t.Helper()
	select {
	case fn := <-posted:
		return fn
	case <-time.After(2 * time.Second):
		t.Fatalf("no sample posted")
		return nil
	}
}

func TestSensorDeliversChanges(t *testing.T) {
	reader := &scriptedReader{
		values: []int{10, 10, 20, 0},
		errs:   []error{nil, nil, nil, errors.New("i/o error")},
	}
	s, power, posted := newTestSensor(t, reader)

	var got []int
	s.SetNotify(func(lux int) { got = append(got, lux) })

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !s.Enabled() {
		t.Fatalf("sensor not enabled")
	}

	for i := 0; i < 3; i++ {
		next(t, posted)()
	}

	want := []int{10, 20, -1}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivered %v, want %v", got, want)
			break
		}
	}

	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if len(power.states) != 2 || !power.states[0] || power.states[1] {
		t.Errorf("power switched %v, want [true false]", power.states)
	}
}

func TestSensorDropsStaleSamples(t *testing.T) {
	reader := &scriptedReader{values: []int{42}, errs: []error{nil}}
	s, _, posted := newTestSensor(t, reader)

	var got []int
	s.SetNotify(func(lux int) { got = append(got, lux) })

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	stale := next(t, posted)

	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	stale()
	if len(got) != 0 {
		t.Errorf("sample from a disabled sensor delivered: %v", got)
	}

	// Re-enabling starts a new generation; the old sample stays dropped
	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	stale()
	next(t, posted)()
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("delivered %v, want [42]", got)
	}
	s.Close()
}

func TestSensorWithoutNotify(t *testing.T) {
	reader := &scriptedReader{values: []int{7}, errs: []error{nil}}
	s, _, posted := newTestSensor(t, reader)

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	// Delivery without a callback is a no-op
	next(t, posted)()

	if err := s.Enable(); err != nil {
		t.Errorf("second Enable: %v", err)
	}
	s.Disable()
	if err := s.Disable(); err != nil {
		t.Errorf("second Disable: %v", err)
	}
}
