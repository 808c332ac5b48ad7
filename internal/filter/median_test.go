package filter

import (
	"bytes"
	"log"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func referenceMedian(samples []int) int {
	window := append([]int(nil), samples[len(samples)-WindowSize:]...)
	sort.Ints(window)
	return window[WindowSize/2]
}

func TestMedianMatchesSlidingWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := NewMedian()

	var history []int
	for i := 0; i < 500; i++ {
		sample := rng.Intn(200)
		if i%17 == 0 {
			// Encourage duplicates, they are the tricky path
			sample = 100
		}
		history = append(history, sample)

		got := m.Filter(sample)

		if len(history) < WindowSize {
			continue
		}
		if want := referenceMedian(history); got != want {
			t.Fatalf("sample %d: median = %d, want %d (window %v)", i, got, want, history[len(history)-WindowSize:])
		}
	}
}

func TestMedianSortedIsPermutationOfWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewMedian()

	for i := 0; i < 200; i++ {
		m.Filter(rng.Intn(10))

		raw := m.Window()
		sort.Ints(raw)
		if diff := cmp.Diff(raw, m.Sorted()); diff != "" {
			t.Fatalf("sorted window diverged after %d samples (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestMedianFirstSampleSeedsWindow(t *testing.T) {
	m := NewMedian()

	if got := m.Filter(250); got != 250 {
		t.Errorf("first sample: got %d, want 250", got)
	}
	want := []int{250, 250, 250, 250, 250, 250, 250, 250, 250}
	if diff := cmp.Diff(want, m.Window()); diff != "" {
		t.Errorf("window not seeded (-want +got):\n%s", diff)
	}
	if !m.Stable() {
		t.Errorf("seeded window should be stable")
	}
}

func TestMedianNoDataResets(t *testing.T) {
	m := NewMedian()
	for _, s := range []int{10, 20, 30, 40} {
		m.Filter(s)
	}

	if got := m.Filter(NoData); got != NoData {
		t.Errorf("no data: got %d, want %d", got, NoData)
	}
	for i, v := range m.Window() {
		if v != NoData {
			t.Fatalf("window[%d] = %d after reset, want %d", i, v, NoData)
		}
	}

	// First post-reset sample is echoed immediately
	if got := m.Filter(500); got != 500 {
		t.Errorf("first sample after reset: got %d, want 500", got)
	}
}

func TestMedianStability(t *testing.T) {
	t.Run("identical samples converge", func(t *testing.T) {
		m := NewMedian()
		m.Filter(5)
		m.Filter(90)
		if m.Stable() {
			t.Fatalf("mixed window reported stable")
		}
		for i := 0; i < WindowSize; i++ {
			m.Filter(42)
		}
		if !m.Stable() {
			t.Errorf("window of identical samples not stable: %v", m.Sorted())
		}
		if got := m.Filter(42); got != 42 {
			t.Errorf("converged median = %d, want 42", got)
		}
	})

	t.Run("alternating samples never converge", func(t *testing.T) {
		m := NewMedian()
		m.Filter(10)
		for i := 0; i < 100; i++ {
			v := 10
			if i%2 == 0 {
				v = 20
			}
			m.Filter(v)
			if m.Stable() {
				t.Fatalf("alternating sequence stabilized after %d samples", i+1)
			}
		}
	})
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		want    Kind
		warning bool
	}{
		{"median", KindMedian, false},
		{"disabled", KindDisabled, false},
		{"kalman", KindDisabled, true},
		{"", KindDisabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.New(&buf, "", 0)

			backend := Select(tt.name, logger)
			if backend.Kind() != tt.want {
				t.Errorf("Select(%q) = %v, want %v", tt.name, backend.Kind(), tt.want)
			}
			if logged := strings.Contains(buf.String(), "Unknown ALS input filter"); logged != tt.warning {
				t.Errorf("Select(%q) logged warning = %v, want %v", tt.name, logged, tt.warning)
			}
		})
	}
}

func TestDisabledPassesThrough(t *testing.T) {
	var d Disabled
	for _, v := range []int{0, 17, NoData, 100000} {
		if got := d.Filter(v); got != v {
			t.Errorf("Filter(%d) = %d", v, got)
		}
	}
	if !d.Stable() {
		t.Errorf("disabled backend must always be stable")
	}
}
