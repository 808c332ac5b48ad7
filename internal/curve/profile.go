package curve

import (
	"fmt"
	"log"
	"math"
)

// Table size limits
const (
	MaxProfiles = 21
	MaxSteps    = 21
)

// DefaultLevel is reported while no curve applies. Backlight fails open.
const DefaultLevel = 100

// Unbounded marks the open upper end of the hysteresis band
const Unbounded = math.MaxInt

// Step maps lux values below Limit to Level percent
type Step struct {
	Limit int
	Level int
}

// Store is the static configuration lookup used to load curves
type Store interface {
	HasGroup(group string) bool
	GetIntList(group, key string) ([]int, bool)
}

// Profile holds every curve of one consumer plus the lookup state:
// the profile evaluated last, the hysteresis band around the lux value
// that produced the current level, and the level itself.
type Profile struct {
	consumer Consumer
	steps    [][]Step

	active    int
	bandValid bool
	lo, hi    int
	last      int
}

// New creates an empty profile table for consumer
func New(consumer Consumer) *Profile {
	return &Profile{
		consumer: consumer,
		active:   -1,
		last:     DefaultLevel,
	}
}

// Load reads the consumer's curves from store. Loading stops at the first
// missing or malformed profile; without a valid profile 0 the table stays
// empty and Run always reports DefaultLevel.
func Load(store Store, consumer Consumer, logger *log.Logger) *Profile {
	p := New(consumer)

	group := consumer.Group()
	if store == nil || !store.HasGroup(group) {
		logger.Printf("No %s brightness curves configured", consumer)
		return p
	}

	for i := 0; i < MaxProfiles; i++ {
		steps, err := loadSteps(store, group, i)
		if err != nil {
			if i == 0 {
				logger.Printf("Warning: %s brightness curves unusable: %v", consumer, err)
			}
			break
		}
		p.steps = append(p.steps, steps)
	}

	if len(p.steps) > 0 {
		logger.Printf("Loaded %d %s brightness profile(s)", len(p.steps), consumer)
	}
	return p
}

func loadSteps(store Store, group string, index int) ([]Step, error) {
	limitsKey := fmt.Sprintf("LimitsProfile%d", index)
	levelsKey := fmt.Sprintf("LevelsProfile%d", index)

	limits, ok := store.GetIntList(group, limitsKey)
	if !ok {
		return nil, fmt.Errorf("%s/%s missing", group, limitsKey)
	}
	levels, ok := store.GetIntList(group, levelsKey)
	if !ok {
		return nil, fmt.Errorf("%s/%s missing", group, levelsKey)
	}

	return NewSteps(limits, levels)
}

// NewSteps validates a limits/levels list pair and builds a step table
func NewSteps(limits, levels []int) ([]Step, error) {
	if len(limits) != len(levels) {
		return nil, fmt.Errorf("%d limits but %d levels", len(limits), len(levels))
	}
	if len(limits) == 0 {
		return nil, fmt.Errorf("empty profile")
	}
	if len(limits) > MaxSteps {
		return nil, fmt.Errorf("%d steps, at most %d supported", len(limits), MaxSteps)
	}

	steps := make([]Step, len(limits))
	for i := range limits {
		if limits[i] < 0 {
			return nil, fmt.Errorf("negative lux limit %d", limits[i])
		}
		if i > 0 && limits[i] < limits[i-1] {
			return nil, fmt.Errorf("lux limits not ascending at step %d", i)
		}
		if levels[i] < 0 || levels[i] > 100 {
			return nil, fmt.Errorf("level %d out of range at step %d", levels[i], i)
		}
		steps[i] = Step{Limit: limits[i], Level: levels[i]}
	}
	return steps, nil
}

// SetProfiles replaces the curve table. Used by tests and by callers that
// build curves without a configuration store.
func (p *Profile) SetProfiles(profiles [][]Step) {
	if len(profiles) > MaxProfiles {
		profiles = profiles[:MaxProfiles]
	}
	p.steps = profiles
	p.active = -1
	p.ClearHysteresis()
}

// Consumer returns the consumer the table belongs to
func (p *Profile) Consumer() Consumer {
	return p.consumer
}

// Count returns the number of loaded profiles
func (p *Profile) Count() int {
	return len(p.steps)
}

// Steps returns the step table of one profile
func (p *Profile) Steps(profile int) []Step {
	if profile < 0 || profile >= len(p.steps) {
		return nil
	}
	return p.steps[profile]
}

// Active returns the profile evaluated last, or -1
func (p *Profile) Active() int {
	return p.active
}

// Band returns the current hysteresis band. ok is false while cleared.
func (p *Profile) Band() (lo, hi int, ok bool) {
	return p.lo, p.hi, p.bandValid
}

// Last returns the most recently produced level
func (p *Profile) Last() int {
	return p.last
}

// ClearHysteresis invalidates the band so the next Run recomputes
func (p *Profile) ClearHysteresis() {
	p.bandValid = false
	p.lo = 0
	p.hi = Unbounded
}

// Run returns the brightness percentage for lux on the given profile.
//
// Negative lux leaves the previous level in place. Lux inside the current
// band on the same profile is a no-op; anything else looks up the step
// whose limit is the first one above lux and recomputes the band around it.
func (p *Profile) Run(profile, lux int) int {
	if lux < 0 || len(p.steps) == 0 {
		return p.last
	}

	if profile < 0 {
		profile = 0
	} else if profile >= len(p.steps) {
		profile = len(p.steps) - 1
	}

	if profile == p.active && p.bandValid && p.lo <= lux && lux <= p.hi {
		return p.last
	}

	steps := p.steps[profile]

	slot := len(steps)
	for i, step := range steps {
		if step.Limit > lux {
			slot = i
			break
		}
	}

	level := DefaultLevel
	hi := Unbounded
	if slot < len(steps) {
		level = steps[slot].Level
		hi = steps[slot].Limit
	}

	p.active = profile
	p.last = level
	p.lo = lowerThreshold(steps, slot, hi)
	p.hi = hi
	p.bandValid = true

	return level
}

// lowerThreshold puts the lower band edge slightly below the limit of the
// previous step so small drops do not step the level back down right away.
// The offset is a tenth of the smaller neighbouring gap.
func lowerThreshold(steps []Step, slot, hi int) int {
	if slot == 0 {
		return 0
	}

	prev := steps[slot-1].Limit
	below := 0
	if slot > 1 {
		below = steps[slot-2].Limit
	}

	gap := prev - below
	if hi != Unbounded && hi-prev < gap {
		gap = hi - prev
	}

	lo := prev - gap/10
	if lo < 0 {
		lo = 0
	}
	return lo
}
