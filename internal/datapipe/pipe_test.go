package datapipe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExecuteRunsFiltersThenTriggers(t *testing.T) {
	p := New("brightness", 0)

	var events []string
	p.AddFilter(func(v int) int {
		events = append(events, "double")
		return v * 2
	})
	p.AddFilter(func(v int) int {
		events = append(events, "plus-one")
		return v + 1
	})
	var seen []int
	p.AddTrigger(func(v int) {
		events = append(events, "trigger")
		seen = append(seen, v)
	})

	if got := p.Execute(10); got != 21 {
		t.Errorf("Execute(10) = %d, want 21", got)
	}
	if p.Input() != 10 || p.Output() != 21 {
		t.Errorf("cached input/output = %d/%d, want 10/21", p.Input(), p.Output())
	}

	want := []string{"double", "plus-one", "trigger"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{21}, seen); diff != "" {
		t.Errorf("trigger values (-want +got):\n%s", diff)
	}
}

func TestRerunUsesCachedInput(t *testing.T) {
	p := New("display", 40)

	scale := 1
	p.AddFilter(func(v int) int { return v * scale })

	p.Execute(40)
	scale = 2
	if got := p.Rerun(); got != 80 {
		t.Errorf("Rerun() = %d, want 80", got)
	}
	if p.Input() != 40 {
		t.Errorf("Rerun changed cached input to %d", p.Input())
	}
}

func TestInitialValue(t *testing.T) {
	p := New("state", "undef")
	if p.Input() != "undef" || p.Output() != "undef" {
		t.Errorf("initial value not cached: %q/%q", p.Input(), p.Output())
	}
	if p.Name() != "state" {
		t.Errorf("Name() = %q", p.Name())
	}
}
