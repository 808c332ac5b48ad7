package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	// Hash holds the current setting values
	Hash = "settings"
	// Channel carries the name of every changed field
	Channel = "settings"
)

// Setting keys used by the ALS service
const (
	KeyALSEnabled        = "als:enabled"
	KeyAutoBrightness    = "als:auto-brightness"
	KeyLidFilter         = "als:lid-filter"
	KeyInputFilter       = "als:input-filter"
	KeySampleTime        = "als:sample-time"
	KeyDisplayBrightness = "display:brightness"
)

// Handle identifies a tracked key
type Handle uint64

type tracker struct {
	handle Handle
	apply  func(raw string, set bool)
}

// Store mirrors typed values of the Redis settings hash. Change callbacks
// run on the owner's event loop through post.
type Store struct {
	logger *log.Logger
	client *redis.Client
	post   func(func())

	mutex    sync.Mutex
	next     Handle
	trackers map[string][]tracker
}

// NewStore creates a settings store. client may be nil, in which case only
// defaults and Apply are available.
func NewStore(logger *log.Logger, client *redis.Client, post func(func())) *Store {
	return &Store{
		logger:   logger,
		client:   client,
		post:     post,
		trackers: make(map[string][]tracker),
	}
}

// TrackBool follows a boolean key. onChange is called with def right away
// and again with every change; unset or unparseable values revert to def.
func (s *Store) TrackBool(key string, def bool, onChange func(bool)) Handle {
	return s.track(key, func(raw string, set bool) {
		value := def
		if set {
			parsed, err := ParseBool(raw)
			if err != nil {
				s.logger.Printf("Warning: invalid value %q for setting %s, using default %v", raw, key, def)
			} else {
				value = parsed
			}
		}
		onChange(value)
	})
}

// TrackInt follows an integer key
func (s *Store) TrackInt(key string, def int, onChange func(int)) Handle {
	return s.track(key, func(raw string, set bool) {
		value := def
		if set {
			parsed, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				s.logger.Printf("Warning: invalid value %q for setting %s, using default %d", raw, key, def)
			} else {
				value = parsed
			}
		}
		onChange(value)
	})
}

// TrackString follows a string key. An empty value counts as unset.
func (s *Store) TrackString(key string, def string, onChange func(string)) Handle {
	return s.track(key, func(raw string, set bool) {
		value := def
		if set && strings.TrimSpace(raw) != "" {
			value = strings.TrimSpace(raw)
		}
		onChange(value)
	})
}

func (s *Store) track(key string, apply func(raw string, set bool)) Handle {
	s.mutex.Lock()
	s.next++
	handle := s.next
	s.trackers[key] = append(s.trackers[key], tracker{handle: handle, apply: apply})
	s.mutex.Unlock()

	apply("", false)
	return handle
}

// Untrack stops notifications for handle
func (s *Store) Untrack(handle Handle) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, list := range s.trackers {
		for i, t := range list {
			if t.handle != handle {
				continue
			}
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(s.trackers, key)
			} else {
				s.trackers[key] = list
			}
			return
		}
	}
}

// Keys returns the tracked keys in sorted order
func (s *Store) Keys() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keys := make([]string, 0, len(s.trackers))
	for key := range s.trackers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Apply delivers a raw value to every tracker of key. set is false when the
// field is absent from the hash.
func (s *Store) Apply(key, raw string, set bool) {
	s.mutex.Lock()
	list := append([]tracker(nil), s.trackers[key]...)
	s.mutex.Unlock()

	for _, t := range list {
		t.apply(raw, set)
	}
}

// Run loads every tracked key and then follows the settings channel until
// ctx is cancelled
func (s *Store) Run(ctx context.Context) {
	pubsub := s.client.Subscribe(ctx, Channel)
	defer pubsub.Close()

	for _, key := range s.Keys() {
		s.load(ctx, key)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				s.logger.Printf("Settings channel closed")
				return
			}
			if s.isTracked(msg.Payload) {
				s.load(ctx, msg.Payload)
			}
		}
	}
}

func (s *Store) isTracked(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.trackers[key]
	return ok
}

func (s *Store) load(ctx context.Context, key string) {
	raw, set, err := s.fetch(ctx, key)
	if err != nil {
		s.logger.Printf("Failed to read setting %s: %v", key, err)
		return
	}

	s.post(func() {
		s.Apply(key, raw, set)
	})
}

func (s *Store) fetch(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.client.HGet(ctx, Hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from %s: %w", key, Hash, err)
	}
	return raw, true, nil
}

// ParseBool accepts the usual boolean spellings plus on/off, yes/no and
// enabled/disabled
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "enabled", "enable":
		return true, nil
	case "off", "no", "disabled", "disable":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}
