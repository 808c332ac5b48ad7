package timer

import (
	"sync"
	"time"
)

// Token identifies a scheduled callback. The zero Token is never issued.
type Token uint64

// Scheduler arms one-shot callbacks. Callbacks always run on the owner's
// event loop, never concurrently with other owner code.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Token
	// Cancel disarms a callback. Cancelling an unknown, fired or zero
	// token is a no-op.
	Cancel(token Token)
}

// Loop is a Scheduler backed by time.AfterFunc. Expired timers hand their
// callback to post, which must queue it onto the owner's event loop.
type Loop struct {
	mutex  sync.Mutex
	post   func(func())
	next   Token
	timers map[Token]*time.Timer
}

// NewLoop creates a scheduler delivering callbacks through post
func NewLoop(post func(func())) *Loop {
	return &Loop{
		post:   post,
		timers: make(map[Token]*time.Timer),
	}
}

func (l *Loop) Schedule(delay time.Duration, fn func()) Token {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.next++
	token := l.next

	l.timers[token] = time.AfterFunc(delay, func() {
		l.post(func() {
			// A cancel may have raced with the expiry; only run if
			// the token is still armed once we are on the loop
			if l.disarm(token) {
				fn()
			}
		})
	})

	return token
}

func (l *Loop) Cancel(token Token) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if timer, exists := l.timers[token]; exists {
		timer.Stop()
		delete(l.timers, token)
	}
}

// Pending returns the number of armed callbacks
func (l *Loop) Pending() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.timers)
}

// Close cancels every armed callback
func (l *Loop) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for token, timer := range l.timers {
		timer.Stop()
		delete(l.timers, token)
	}
}

func (l *Loop) disarm(token Token) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, exists := l.timers[token]; !exists {
		return false
	}
	delete(l.timers, token)
	return true
}
