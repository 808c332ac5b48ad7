package hardware

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultDevicePath is the IIO device of the light sensor
const DefaultDevicePath = "/sys/bus/iio/devices/iio:device0"

const (
	illuminanceInput  = "in_illuminance_input"
	illuminanceRaw    = "in_illuminance_raw"
	illuminanceScale  = "in_illuminance_scale"
	illuminanceOffset = "in_illuminance_offset"
)

// IIOReader reads lux from an industrial I/O light sensor in sysfs
type IIOReader struct {
	path string
}

// NewIIOReader creates a reader for the IIO device directory path
func NewIIOReader(path string) *IIOReader {
	return &IIOReader{path: path}
}

// Path returns the device directory
func (r *IIOReader) Path() string {
	return r.path
}

// Read returns the current illuminance in lux. Drivers exporting a
// processed value are read directly; otherwise the raw reading is converted
// with the optional offset and scale attributes.
func (r *IIOReader) Read() (int, error) {
	if value, err := r.readFloat(illuminanceInput); err == nil {
		return toLux(value), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	raw, err := r.readFloat(illuminanceRaw)
	if err != nil {
		return 0, err
	}

	offset, err := r.readOptional(illuminanceOffset, 0)
	if err != nil {
		return 0, err
	}
	scale, err := r.readOptional(illuminanceScale, 1)
	if err != nil {
		return 0, err
	}

	return toLux((raw + offset) * scale), nil
}

func (r *IIOReader) readOptional(name string, def float64) (float64, error) {
	value, err := r.readFloat(name)
	if errors.Is(err, os.ErrNotExist) {
		return def, nil
	}
	return value, err
}

func (r *IIOReader) readFloat(name string) (float64, error) {
	path := filepath.Join(r.path, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return value, nil
}

func toLux(value float64) int {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	if value >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(value))
}
