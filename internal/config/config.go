package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/librescoot/als-service/internal/hardware"
	"github.com/librescoot/als-service/internal/poll"
	"github.com/librescoot/als-service/internal/wakelock"
)

type Config struct {
	RedisHost string
	RedisPort int

	CurvesPath string

	SensorPath      string
	SensorInterval  time.Duration
	GPIOChip        string
	SensorPowerLine int

	PollDuration time.Duration

	WakeLock   string
	SocketPath string

	DryRun      bool
	ShowVersion bool
}

func New() *Config {
	return &Config{
		RedisHost:       "localhost",
		RedisPort:       6379,
		CurvesPath:      "/etc/librescoot/brightness.yaml",
		SensorPath:      hardware.DefaultDevicePath,
		SensorInterval:  hardware.DefaultInterval,
		GPIOChip:        "gpiochip0",
		SensorPowerLine: -1,
		PollDuration:    poll.DefaultDuration,
		WakeLock:        wakelock.KindSocket,
		SocketPath:      wakelock.DefaultSocketPath,
		DryRun:          false,
	}
}

// Register adds the flags to fs
func (c *Config) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis host")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")

	fs.StringVar(&c.CurvesPath, "curves", c.CurvesPath,
		"Path of the YAML brightness curve configuration")

	fs.StringVar(&c.SensorPath, "sensor-path", c.SensorPath,
		"IIO device directory of the ambient light sensor")
	fs.DurationVar(&c.SensorInterval, "sensor-interval", c.SensorInterval,
		"Interval between light sensor reads")
	fs.StringVar(&c.GPIOChip, "gpio-chip", c.GPIOChip,
		"GPIO chip of the sensor power line")
	fs.IntVar(&c.SensorPowerLine, "sensor-power-line", c.SensorPowerLine,
		"GPIO offset powering the light sensor (-1 for none)")

	fs.DurationVar(&c.PollDuration, "poll-duration", c.PollDuration,
		"Duration a poll request keeps the light sensor on")

	fs.StringVar(&c.WakeLock, "wakelock", c.WakeLock,
		"Wake lock backend (logind, socket, kernel, none)")
	fs.StringVar(&c.SocketPath, "socket-path", c.SocketPath,
		"Path of the pm-service suspend inhibitor socket")

	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun,
		"Dry run (don't touch GPIO lines)")
	fs.BoolVar(&c.ShowVersion, "version", c.ShowVersion, "Print version and exit")
}

// Validate checks flag combinations
func (c *Config) Validate() error {
	switch c.WakeLock {
	case wakelock.KindLogind, wakelock.KindSocket, wakelock.KindKernel, wakelock.KindNone:
	default:
		return fmt.Errorf("invalid wake lock backend: %s", c.WakeLock)
	}

	if c.SensorInterval <= 0 {
		return fmt.Errorf("sensor interval must be positive: %v", c.SensorInterval)
	}
	if c.PollDuration <= 0 {
		return fmt.Errorf("poll duration must be positive: %v", c.PollDuration)
	}
	return nil
}

// Parse registers the flags on the default flag set and parses the command
// line
func (c *Config) Parse() error {
	c.Register(flag.CommandLine)
	flag.Parse()
	return c.Validate()
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
