package hardware

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultInterval is the sensor read interval
const DefaultInterval = 250 * time.Millisecond

// Reader reads one lux value from the device
type Reader interface {
	Read() (int, error)
}

// PowerSwitch powers the device
type PowerSwitch interface {
	SetPower(enabled bool) error
}

// Sensor is the light sensor device. While enabled a reader goroutine
// samples the device and posts every changed value to the owner's event
// loop, where it is handed to the notify callback. Enable, Disable and
// SetNotify must be called from that loop.
type Sensor struct {
	logger   *log.Logger
	reader   Reader
	power    PowerSwitch
	redis    *redis.Client
	ctx      context.Context
	interval time.Duration
	post     func(func())

	notify     func(int)
	generation uint64
	cancel     context.CancelFunc
}

// NewSensor creates a disabled sensor. power and redisClient may be nil.
func NewSensor(ctx context.Context, logger *log.Logger, reader Reader, power PowerSwitch, redisClient *redis.Client, interval time.Duration, post func(func())) *Sensor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sensor{
		logger:   logger,
		reader:   reader,
		power:    power,
		redis:    redisClient,
		ctx:      ctx,
		interval: interval,
		post:     post,
	}
}

// Enable powers the device and starts sampling
func (s *Sensor) Enable() error {
	if s.cancel != nil {
		return nil
	}

	if s.power != nil {
		if err := s.power.SetPower(true); err != nil {
			return err
		}
	}

	s.generation++
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	go s.sample(ctx, s.generation)

	s.publishState("on")
	return nil
}

// Disable stops sampling and powers the device down. Samples posted
// before this call are dropped on delivery.
func (s *Sensor) Disable() error {
	if s.cancel == nil {
		return nil
	}

	s.generation++
	s.cancel()
	s.cancel = nil

	var err error
	if s.power != nil {
		err = s.power.SetPower(false)
	}

	s.publishState("off")
	return err
}

// SetNotify registers the sample callback; nil unregisters
func (s *Sensor) SetNotify(fn func(lux int)) {
	s.notify = fn
}

// Enabled reports whether the device is sampling
func (s *Sensor) Enabled() bool {
	return s.cancel != nil
}

func (s *Sensor) sample(ctx context.Context, generation uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := -2
	failed := false
	for {
		lux, err := s.reader.Read()
		if err != nil {
			if !failed {
				s.logger.Printf("Warning: light sensor read failed: %v", err)
			}
			failed = true
			lux = -1
		} else {
			failed = false
		}

		if lux != last {
			last = lux
			value := lux
			s.post(func() {
				s.deliver(generation, value)
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sensor) deliver(generation uint64, lux int) {
	if generation != s.generation || s.notify == nil {
		return
	}
	s.notify(lux)
}

func (s *Sensor) publishState(state string) {
	s.logger.Printf("Light sensor power %s", state)

	if s.redis == nil {
		return
	}

	pipe := s.redis.Pipeline()
	pipe.HSet(s.ctx, "als", "sensor", state)
	pipe.Publish(s.ctx, "als", "sensor")
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Printf("Warning: Failed to update light sensor state in Redis: %v", err)
	}
}

// Close stops sampling and releases the power line
func (s *Sensor) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if closer, ok := s.power.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
