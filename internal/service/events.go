package service

import (
	"github.com/librescoot/als-service/internal/command"
	"github.com/librescoot/als-service/internal/sensor"
)

// EventType represents the type of event in the system
type EventType int

const (
	EventDisplayState EventType = iota
	EventALSCommand
	EventBrightnessCommand
	// EventCall runs a posted callback: timers, sensor samples and
	// settings changes
	EventCall
)

// Event represents an event in the system
type Event struct {
	Type EventType
	Data interface{}
}

// DisplayStateData contains data for display state events
type DisplayStateData struct {
	Display sensor.Display
}

// ALSCommandData contains data for poll command events
type ALSCommandData struct {
	Command string
}

// BrightnessCommandData contains data for brightness command events
type BrightnessCommandData struct {
	Command command.Command
}
