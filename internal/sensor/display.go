package sensor

// DisplayState is the display power state as published by the display service
type DisplayState string

const (
	DisplayUndef     DisplayState = "undef"
	DisplayOff       DisplayState = "off"
	DisplayLPMOff    DisplayState = "lpm-off"
	DisplayLPMOn     DisplayState = "lpm-on"
	DisplayDim       DisplayState = "dim"
	DisplayOn        DisplayState = "on"
	DisplayPowerUp   DisplayState = "power-up"
	DisplayPowerDown DisplayState = "power-down"
)

// ParseDisplayState maps a published value to a display state. Unknown
// values map to DisplayUndef.
func ParseDisplayState(s string) DisplayState {
	switch state := DisplayState(s); state {
	case DisplayOff, DisplayLPMOff, DisplayLPMOn, DisplayDim, DisplayOn, DisplayPowerUp, DisplayPowerDown:
		return state
	default:
		return DisplayUndef
	}
}

// Lit reports whether the display shows something in this state
func (s DisplayState) Lit() bool {
	switch s {
	case DisplayOn, DisplayDim, DisplayLPMOn, DisplayPowerUp:
		return true
	default:
		return false
	}
}

// Display pairs the current display state with the one being moved to
type Display struct {
	Current DisplayState
	Next    DisplayState
}

// WantsALS reports whether brightness tracking is useful in this display
// situation: the display is lit now or is about to be.
func (d Display) WantsALS() bool {
	return d.Current.Lit() || d.Next.Lit()
}
