package filter

import (
	"log"
)

// NoData is the sample value reported while the sensor has nothing to offer.
// Any negative sample is treated the same way.
const NoData = -1

// Kind identifies one of the available input filter backends
type Kind int

const (
	KindDisabled Kind = iota
	KindMedian
)

// Backend names as used by the als:input-filter setting
const (
	NameDisabled = "disabled"
	NameMedian   = "median"
)

// String returns the setting name of the backend kind
func (k Kind) String() string {
	switch k {
	case KindMedian:
		return NameMedian
	default:
		return NameDisabled
	}
}

// Backend smooths raw lux samples before they reach the brightness curves.
type Backend interface {
	// Kind reports which backend this is
	Kind() Kind
	// Reset drops all sample history
	Reset()
	// Filter feeds one sample and returns the filtered value
	Filter(sample int) int
	// Stable reports whether further sampling of the same input would
	// change the output
	Stable() bool
}

// ParseKind maps a setting value to a backend kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case NameDisabled:
		return KindDisabled, true
	case NameMedian:
		return KindMedian, true
	default:
		return KindDisabled, false
	}
}

// New creates a fresh backend of the given kind
func New(kind Kind) Backend {
	switch kind {
	case KindMedian:
		return NewMedian()
	default:
		return Disabled{}
	}
}

// Select creates the backend named by a setting value. Unknown names
// fall back to the pass-through backend.
func Select(name string, logger *log.Logger) Backend {
	kind, ok := ParseKind(name)
	if !ok {
		logger.Printf("Unknown ALS input filter %q, using %s", name, NameDisabled)
	}
	return New(kind)
}

// Disabled passes samples through unchanged
type Disabled struct{}

func (Disabled) Kind() Kind            { return KindDisabled }
func (Disabled) Reset()                {}
func (Disabled) Filter(sample int) int { return sample }
func (Disabled) Stable() bool          { return true }
