package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	redis_ipc "github.com/rescoot/redis-ipc"

	"github.com/librescoot/als-service/internal/als"
	"github.com/librescoot/als-service/internal/command"
	"github.com/librescoot/als-service/internal/conf"
	"github.com/librescoot/als-service/internal/config"
	"github.com/librescoot/als-service/internal/curve"
	"github.com/librescoot/als-service/internal/filter"
	"github.com/librescoot/als-service/internal/hardware"
	"github.com/librescoot/als-service/internal/sampler"
	"github.com/librescoot/als-service/internal/sensor"
	"github.com/librescoot/als-service/internal/settings"
	"github.com/librescoot/als-service/internal/timer"
	"github.com/librescoot/als-service/internal/wakelock"
)

// Redis keys served by the service
const (
	ALSHash        = "als"
	BrightnessHash = "brightness"
	DisplayHash    = "display"
	RequestList    = "scooter:als"
)

type Service struct {
	config        *config.Config
	logger        *log.Logger
	redis         *redis_ipc.Client
	standardRedis *redis.Client

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	done   chan struct{}

	// Wake lock changes are coalesced outside events: the registry reports
	// them from inside loop callbacks.
	wakeLockMutex   sync.Mutex
	wakeLockNames   []string
	wakeLockChanged chan struct{}

	scheduler *timer.Loop
	wakeLocks *wakelock.Registry
	power     *hardware.PowerLine
	sensor    *hardware.Sensor
	settings  *settings.Store
	commands  *command.Listener
	engine    *als.Engine
}

func New(cfg *config.Config, logger *log.Logger) (*Service, error) {
	redisConfig := redis_ipc.Config{
		Address:       cfg.RedisHost,
		Port:          cfg.RedisPort,
		RetryInterval: 5 * time.Second,
		MaxRetries:    3,
	}

	redisClient, err := redis_ipc.New(redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	// Standard Redis client for settings, sensor state and brightness commands
	standardRedisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
		DB:   0,
	})

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		config:          cfg,
		logger:          logger,
		redis:           redisClient,
		standardRedis:   standardRedisClient,
		ctx:             ctx,
		cancel:          cancel,
		events:          make(chan Event, 100),
		done:            make(chan struct{}),
		wakeLockChanged: make(chan struct{}, 1),
	}

	service.scheduler = timer.NewLoop(service.post)

	backend, err := wakelock.NewBackend(cfg.WakeLock, cfg.SocketPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create wake lock backend: %w", err)
	}
	service.wakeLocks = wakelock.NewRegistry(logger, backend, service.onWakeLocksChanged)

	power, err := hardware.NewPowerLine(logger, cfg.GPIOChip, cfg.SensorPowerLine, cfg.DryRun)
	if err != nil {
		cancel()
		backend.Close()
		return nil, fmt.Errorf("failed to create sensor power line: %w", err)
	}
	service.power = power

	service.sensor = hardware.NewSensor(
		ctx,
		logger,
		hardware.NewIIOReader(cfg.SensorPath),
		power,
		standardRedisClient,
		cfg.SensorInterval,
		service.post,
	)

	service.engine = als.New(als.Options{
		Logger:       logger,
		Scheduler:    service.scheduler,
		Hardware:     service.sensor,
		WakeLock:     service.wakeLocks,
		Publisher:    service,
		Curves:       loadCurves(cfg.CurvesPath, logger),
		Filter:       filter.NameMedian,
		PollDuration: cfg.PollDuration,
	})

	service.settings = settings.NewStore(logger, standardRedisClient, service.post)
	service.commands = command.NewListener(ctx, standardRedisClient, service.onBrightnessCommand, logger)

	return service, nil
}

// loadCurves reads every consumer's curve table. A missing or broken file
// leaves all tables empty so brightness fails open.
func loadCurves(path string, logger *log.Logger) [curve.NumConsumers]*curve.Profile {
	store, err := conf.Load(path)
	if err != nil {
		logger.Printf("Warning: %v, running without brightness curves", err)
		store = conf.NewStore()
	}

	var curves [curve.NumConsumers]*curve.Profile
	for _, c := range curve.Consumers {
		curves[c] = curve.Load(store, c, logger)
	}
	return curves
}

func (s *Service) Run(ctx context.Context) error {
	displaySubscriber := s.redis.Subscribe(DisplayHash)
	if err := displaySubscriber.Handle("state", s.onDisplayState); err != nil {
		return fmt.Errorf("failed to subscribe to display state: %w", err)
	}
	if err := displaySubscriber.Handle("next-state", s.onDisplayState); err != nil {
		return fmt.Errorf("failed to subscribe to display next state: %w", err)
	}

	s.redis.HandleRequests(RequestList, s.onALSCommand)

	s.PublishLux(filter.NoData)
	s.onWakeLocksChanged(nil)

	s.trackSettings()
	go s.settings.Run(s.ctx)
	s.commands.Start()

	s.readInitialDisplayState()

	// Run event loop
	s.eventLoop(ctx)
	close(s.done)

	s.engine.Shutdown()

	// Stop listeners
	s.commands.Stop()
	s.cancel()
	s.scheduler.Close()

	if err := s.wakeLocks.Close(); err != nil {
		s.logger.Printf("Failed to close wake locks: %v", err)
	}

	if err := s.sensor.Close(); err != nil {
		s.logger.Printf("Failed to close light sensor: %v", err)
	}

	if err := s.standardRedis.Close(); err != nil {
		s.logger.Printf("Failed to close Redis client: %v", err)
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Printf("Failed to close Redis client: %v", err)
	}

	return nil
}

func (s *Service) trackSettings() {
	s.settings.TrackBool(settings.KeyALSEnabled, true, s.engine.SetMasterEnabled)
	s.settings.TrackBool(settings.KeyAutoBrightness, true, s.engine.SetAutoBrightness)
	s.settings.TrackBool(settings.KeyLidFilter, false, s.engine.SetLidFilter)
	s.settings.TrackString(settings.KeyInputFilter, filter.NameMedian, s.engine.SetInputFilter)
	s.settings.TrackInt(settings.KeySampleTime, int(sampler.DefaultSampleTime/time.Millisecond), s.engine.SetSampleTime)
	s.settings.TrackInt(settings.KeyDisplayBrightness, als.DefaultDisplaySetting, s.engine.SetDisplaySetting)
}

func (s *Service) readInitialDisplayState() {
	const maxRetries = 5
	const retryDelay = 500 * time.Millisecond

	for i := range maxRetries {
		display, err := s.readDisplayState()
		if err == nil {
			s.logger.Printf("Initial display state: %s (next: %s)", display.Current, display.Next)
			s.engine.SetDisplayState(display)
			return
		}

		if i < maxRetries-1 {
			s.logger.Printf("Failed to read display state (attempt %d/%d): %v. Retrying in %v...",
				i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}

	s.logger.Printf("Warning: Failed to read initial display state, waiting for updates")
}

func (s *Service) readDisplayState() (sensor.Display, error) {
	current, err := s.redis.HGet(DisplayHash, "state")
	if err != nil {
		return sensor.Display{}, fmt.Errorf("failed to get display state: %w", err)
	}

	// Not every display service publishes the next state
	next, err := s.redis.HGet(DisplayHash, "next-state")
	if err != nil || next == "" {
		next = current
	}

	return sensor.Display{
		Current: sensor.ParseDisplayState(current),
		Next:    sensor.ParseDisplayState(next),
	}, nil
}

func (s *Service) onDisplayState(data []byte) error {
	display, err := s.readDisplayState()
	if err != nil {
		return err
	}

	s.send(Event{
		Type: EventDisplayState,
		Data: DisplayStateData{Display: display},
	})

	return nil
}

func (s *Service) onALSCommand(data []byte) error {
	s.send(Event{
		Type: EventALSCommand,
		Data: ALSCommandData{Command: string(data)},
	})

	return nil
}

func (s *Service) onBrightnessCommand(cmd command.Command) {
	s.send(Event{
		Type: EventBrightnessCommand,
		Data: BrightnessCommandData{Command: cmd},
	})
}

// onWakeLocksChanged records the held wake locks for the loop to publish.
// It never blocks, so it is safe to call from the loop itself.
func (s *Service) onWakeLocksChanged(names []string) {
	s.wakeLockMutex.Lock()
	s.wakeLockNames = names
	s.wakeLockMutex.Unlock()

	select {
	case s.wakeLockChanged <- struct{}{}:
	default:
	}
}

func (s *Service) pendingWakeLocks() []string {
	s.wakeLockMutex.Lock()
	defer s.wakeLockMutex.Unlock()
	return s.wakeLockNames
}

// post queues fn onto the event loop. Posts after shutdown are dropped.
func (s *Service) post(fn func()) {
	s.send(Event{
		Type: EventCall,
		Data: fn,
	})
}

func (s *Service) send(evt Event) {
	select {
	case s.events <- evt:
	case <-s.done:
	}
}

// eventLoop processes all events sequentially, owning the engine
func (s *Service) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.events:
			s.handleEvent(evt)
		case <-s.wakeLockChanged:
			s.publishWakeLocks(s.pendingWakeLocks())
		}
	}
}

// handleEvent dispatches events to appropriate handlers
func (s *Service) handleEvent(evt Event) {
	switch evt.Type {
	case EventDisplayState:
		data := evt.Data.(DisplayStateData)
		s.handleDisplayState(data.Display)
	case EventALSCommand:
		data := evt.Data.(ALSCommandData)
		s.handleALSCommand(data.Command)
	case EventBrightnessCommand:
		data := evt.Data.(BrightnessCommandData)
		s.engine.SetInput(data.Command.Consumer, data.Command.Value)
	case EventCall:
		evt.Data.(func())()
	}
}

func (s *Service) handleDisplayState(display sensor.Display) {
	s.logger.Printf("Display state: %s (next: %s)", display.Current, display.Next)
	s.engine.SetDisplayState(display)
}

// handleALSCommand processes poll requests
func (s *Service) handleALSCommand(cmd string) {
	s.logger.Printf("Received ALS command: %s", cmd)

	switch cmd {
	case "poll":
		s.engine.RequestPoll()
	case "poll-cancel":
		s.engine.CancelPoll()
	default:
		s.logger.Printf("Unknown ALS command: %s", cmd)
	}
}

// PublishLux mirrors the filtered lux value
func (s *Service) PublishLux(lux int) {
	tx := s.redis.NewTxGroup("als-lux")

	tx.Add("HSET", ALSHash, "lux", strconv.Itoa(lux))
	tx.Add("PUBLISH", ALSHash, "lux")

	if _, err := tx.Exec(); err != nil {
		s.logger.Printf("Failed to publish lux: %v", err)
	}
}

// PublishBrightness publishes the brightness of one consumer
func (s *Service) PublishBrightness(c curve.Consumer, value int) {
	s.logger.Printf("Publishing %s brightness: %d", c.Key(), value)

	tx := s.redis.NewTxGroup("brightness")

	tx.Add("HSET", BrightnessHash, c.Key(), strconv.Itoa(value))
	tx.Add("PUBLISH", BrightnessHash, c.Key())

	if _, err := tx.Exec(); err != nil {
		s.logger.Printf("Failed to publish %s brightness: %v", c.Key(), err)
	}
}

func (s *Service) publishWakeLocks(names []string) {
	value := "none"
	if len(names) > 0 {
		value = strings.Join(names, " ")
	}

	tx := s.redis.NewTxGroup("als-wakelock")

	tx.Add("HSET", ALSHash, "wakelock", value)
	tx.Add("PUBLISH", ALSHash, "wakelock")

	if _, err := tx.Exec(); err != nil {
		s.logger.Printf("Failed to publish wake locks: %v", err)
	}
}
