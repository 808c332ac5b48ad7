package wakelock

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Backend takes and drops system wake locks
type Backend interface {
	// Acquire takes the named lock. timeout is 0 for an indefinite lock.
	Acquire(name string, timeout time.Duration) error
	Release(name string) error
	Close() error
}

type lock struct {
	timeout time.Duration
	timer   *time.Timer
	// armed identifies the current timer so a superseded one cannot expire
	// the lock
	armed uint64
}

// Registry tracks named wake locks. Obtaining a held lock only refreshes its
// timeout and releasing an unknown lock is a no-op, so the backend sees one
// call per actual state change.
type Registry struct {
	logger  *log.Logger
	backend Backend

	// ops serializes state changes including their backend calls. mutex
	// guards locks only, so queries never wait for the backend.
	ops   sync.Mutex
	mutex sync.Mutex
	locks map[string]*lock

	onChange func(names []string)
}

// NewRegistry creates a registry over backend. onChange, if set, receives
// the sorted names of held locks after every change.
func NewRegistry(logger *log.Logger, backend Backend, onChange func([]string)) *Registry {
	return &Registry{
		logger:   logger,
		backend:  backend,
		locks:    make(map[string]*lock),
		onChange: onChange,
	}
}

// Obtain takes the named lock. A positive timeout releases it automatically.
func (r *Registry) Obtain(name string, timeout time.Duration) error {
	if name == "" {
		return fmt.Errorf("wake lock name cannot be empty")
	}

	r.ops.Lock()
	defer r.ops.Unlock()

	r.mutex.Lock()
	if existing, held := r.locks[name]; held {
		existing.timeout = timeout
		r.arm(name, existing)
		r.mutex.Unlock()
		return nil
	}
	r.mutex.Unlock()

	if err := r.backend.Acquire(name, timeout); err != nil {
		return fmt.Errorf("failed to acquire wake lock %s: %w", name, err)
	}

	r.mutex.Lock()
	l := &lock{timeout: timeout}
	r.locks[name] = l
	r.arm(name, l)
	names := r.namesLocked()
	r.mutex.Unlock()

	r.logger.Printf("Obtained wake lock: name=%s, timeout=%v", name, timeout)
	r.notify(names)
	return nil
}

// Release drops the named lock
func (r *Registry) Release(name string) error {
	r.ops.Lock()
	defer r.ops.Unlock()

	r.mutex.Lock()
	l, held := r.locks[name]
	if !held {
		r.mutex.Unlock()
		return nil
	}
	r.dropLocked(name, l)
	names := r.namesLocked()
	r.mutex.Unlock()

	err := r.release(name)
	r.notify(names)
	return err
}

// Held reports whether the named lock is held
func (r *Registry) Held(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, held := r.locks[name]
	return held
}

// Names returns the held locks in sorted order
func (r *Registry) Names() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.namesLocked()
}

// Close releases every lock and closes the backend
func (r *Registry) Close() error {
	r.ops.Lock()
	defer r.ops.Unlock()

	r.mutex.Lock()
	names := r.namesLocked()
	for _, name := range names {
		r.dropLocked(name, r.locks[name])
	}
	r.mutex.Unlock()

	for _, name := range names {
		if err := r.release(name); err != nil {
			r.logger.Printf("Failed to release wake lock %s: %v", name, err)
		}
	}

	return r.backend.Close()
}

// arm replaces the lock's timer. Called with mutex held.
func (r *Registry) arm(name string, l *lock) {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.armed++
	if l.timeout <= 0 {
		return
	}

	armed := l.armed
	l.timer = time.AfterFunc(l.timeout, func() {
		r.expire(name, l, armed)
	})
}

func (r *Registry) expire(name string, l *lock, armed uint64) {
	r.ops.Lock()
	defer r.ops.Unlock()

	r.mutex.Lock()
	// The lock may have been released or re-obtained meanwhile
	if r.locks[name] != l || l.armed != armed {
		r.mutex.Unlock()
		return
	}
	r.dropLocked(name, l)
	names := r.namesLocked()
	r.mutex.Unlock()

	r.logger.Printf("Wake lock %s timed out", name)
	if err := r.release(name); err != nil {
		r.logger.Printf("Failed to release wake lock %s: %v", name, err)
	}
	r.notify(names)
}

func (r *Registry) dropLocked(name string, l *lock) {
	if l.timer != nil {
		l.timer.Stop()
	}
	delete(r.locks, name)
}

func (r *Registry) release(name string) error {
	r.logger.Printf("Released wake lock: name=%s", name)
	if err := r.backend.Release(name); err != nil {
		return fmt.Errorf("failed to release wake lock %s: %w", name, err)
	}
	return nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.locks))
	for name := range r.locks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) notify(names []string) {
	if r.onChange != nil {
		r.onChange(names)
	}
}
