package curve

// Consumer identifies a brightness output with its own curve table
type Consumer int

const (
	Display Consumer = iota
	LED
	Keypad
	LPM
)

// NumConsumers is the number of brightness consumers
const NumConsumers = 4

// Consumers lists every consumer in a stable order
var Consumers = [NumConsumers]Consumer{Display, LED, Keypad, LPM}

// String returns the consumer name as used in configuration group names
func (c Consumer) String() string {
	switch c {
	case Display:
		return "Display"
	case LED:
		return "Led"
	case Keypad:
		return "Keypad"
	case LPM:
		return "Lpm"
	default:
		return "Unknown"
	}
}

// Key returns the lower case name used for Redis fields and commands
func (c Consumer) Key() string {
	switch c {
	case Display:
		return "display"
	case LED:
		return "led"
	case Keypad:
		return "keypad"
	case LPM:
		return "lpm"
	default:
		return "unknown"
	}
}

// Group returns the static configuration group holding the consumer's curves
func (c Consumer) Group() string {
	return "Brightness" + c.String()
}

// ParseConsumer maps a Redis key back to a consumer
func ParseConsumer(key string) (Consumer, bool) {
	for _, c := range Consumers {
		if c.Key() == key {
			return c, true
		}
	}
	return Display, false
}
