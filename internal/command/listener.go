package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librescoot/als-service/internal/curve"
)

// List is the Redis list carrying brightness commands
const List = "scooter:brightness"

// Command sets the raw input of one brightness channel
type Command struct {
	Consumer curve.Consumer
	Value    int
}

func (c Command) String() string {
	return fmt.Sprintf("%s:%d", c.Consumer.Key(), c.Value)
}

// Parse decodes a "<channel>:<0-100>" command. The display channel is fed
// by the brightness setting and is not accepted here.
func Parse(command string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(command), ":")
	if len(parts) != 2 {
		return Command{}, fmt.Errorf("invalid brightness command format: %s", command)
	}

	component, action := parts[0], parts[1]

	consumer, ok := curve.ParseConsumer(component)
	if !ok || consumer == curve.Display {
		return Command{}, fmt.Errorf("unknown brightness component: %s", component)
	}

	value, err := strconv.Atoi(action)
	if err != nil || value < 0 || value > 100 {
		return Command{}, fmt.Errorf("invalid %s brightness: %s", component, action)
	}

	return Command{Consumer: consumer, Value: value}, nil
}

// Listener pops brightness commands off the command list
type Listener struct {
	redis   *redis.Client
	handler func(Command)
	logger  *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewListener creates a listener delivering valid commands to handler
func NewListener(ctx context.Context, redisClient *redis.Client, handler func(Command), logger *log.Logger) *Listener {
	listenerCtx, cancel := context.WithCancel(ctx)
	return &Listener{
		redis:   redisClient,
		handler: handler,
		logger:  logger,
		ctx:     listenerCtx,
		cancel:  cancel,
	}
}

// Start begins listening for commands
func (l *Listener) Start() {
	go l.listen()
}

// Stop stops the listener
func (l *Listener) Stop() {
	l.cancel()
}

func (l *Listener) listen() {
	for {
		select {
		case <-l.ctx.Done():
			return
		default:
			// Block for up to 1 second waiting for commands
			result, err := l.redis.BRPop(l.ctx, time.Second, List).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if l.ctx.Err() != nil {
					return
				}
				l.logger.Printf("Error reading from %s: %v", List, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) != 2 {
				continue
			}

			l.handle(result[1])
		}
	}
}

func (l *Listener) handle(raw string) {
	l.logger.Printf("Received brightness command: %s", raw)

	cmd, err := Parse(raw)
	if err != nil {
		l.logger.Printf("Ignoring brightness command: %v", err)
		return
	}

	l.handler(cmd)
}
