package hardware

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// PowerLine drives the optional GPIO output that powers the light sensor
type PowerLine struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	offset int
	logger *log.Logger
	dryRun bool
}

// NewPowerLine requests offset on chipName as an output, initially low.
// A negative offset means the sensor has no switchable supply and every
// call is a no-op.
func NewPowerLine(logger *log.Logger, chipName string, offset int, dryRun bool) (*PowerLine, error) {
	pl := &PowerLine{
		offset: offset,
		logger: logger,
		dryRun: dryRun,
	}

	if offset < 0 || dryRun {
		return pl, nil
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request sensor power GPIO %d: %w", offset, err)
	}

	pl.chip = chip
	pl.line = line
	logger.Printf("Initialized sensor power GPIO line %s:%d", chipName, offset)

	return pl, nil
}

// SetPower switches the sensor supply
func (pl *PowerLine) SetPower(enabled bool) error {
	if pl.offset < 0 {
		return nil
	}

	if pl.dryRun {
		pl.logger.Printf("DRY RUN: Would set sensor power to %v", enabled)
		return nil
	}

	value := 0
	if enabled {
		value = 1
	}

	if err := pl.line.SetValue(value); err != nil {
		return fmt.Errorf("failed to set sensor power GPIO: %w", err)
	}
	return nil
}

// Close releases the GPIO line and chip
func (pl *PowerLine) Close() error {
	if pl.line == nil {
		return nil
	}

	var lastErr error
	if err := pl.line.Close(); err != nil {
		pl.logger.Printf("Failed to close GPIO line %d: %v", pl.offset, err)
		lastErr = err
	}
	if err := pl.chip.Close(); err != nil {
		pl.logger.Printf("Failed to close GPIO chip: %v", err)
		lastErr = err
	}
	return lastErr
}
