package listeners

import (
	"sync"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/hardware"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/pubnubapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/korovkin/limiter"
)

// Session is the part of a live session the listeners attach to
type Session interface {
	AddListener(h pubnubapi.ActivityHandler) pubnubapi.ListenerID
	RemoveListener(id pubnubapi.ListenerID)
}

// Set reacts to activity pushed by the server.  Listeners only ever enqueue
// commands or switch the LED; publishing is left to the worker.
type Set struct {
	queue      *command.Queue
	led        hardware.LED
	policy     func() statemachine.Policy
	onActivity func(snooapi.ActivityState)

	mu       sync.Mutex
	session  Session
	ordering statemachine.Ordering
	ids      []pubnubapi.ListenerID
}

// New returns a listener set feeding queue and led.  policy is consulted for
// every snapshot so configuration changes apply straight away.
func New(queue *command.Queue, led hardware.LED, policy func() statemachine.Policy) *Set {
	return &Set{
		queue:  queue,
		led:    led,
		policy: policy,
	}
}

// WithActivityHook registers a function called with every snapshot received
func (ls *Set) WithActivityHook(f func(snooapi.ActivityState)) *Set {
	ls.onActivity = f
	return ls
}

// Register attaches the listeners to a session
func (ls *Set) Register(s Session, ordering statemachine.Ordering) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.session = s
	ls.ordering = ordering

	handlers := []pubnubapi.ActivityHandler{
		ls.mirrorLockToLed,
		ls.enforceMaxLevel,
		ls.enforceLockIfUnlocked,
	}
	if ls.onActivity != nil {
		handlers = append(handlers, ls.onActivity)
	}

	for _, h := range handlers {
		ls.ids = append(ls.ids, s.AddListener(newestOnly(h)))
	}

	logging.Logger(nil).Debugf("registered %d activity listeners", len(ls.ids))
}

// Unregister detaches every listener from the session.  Listeners are
// removed concurrently.
func (ls *Set) Unregister() {
	ls.mu.Lock()
	s, ids := ls.session, ls.ids
	ls.session, ls.ids = nil, nil
	ls.mu.Unlock()

	if s == nil || len(ids) == 0 {
		return
	}

	limit := limiter.NewConcurrencyLimiter(len(ids))
	for _, id := range ids {
		id := id
		limit.ExecuteWithTicket(func(ticket int) {
			s.RemoveListener(id)
		})
	}
	limit.Wait()

	logging.Logger(nil).Debugf("unregistered %d activity listeners", len(ids))
}

// newestOnly drops snapshots older than one already handled.  Each handler
// runs on its own goroutine so the filter needs no locking.
func newestOnly(h pubnubapi.ActivityHandler) pubnubapi.ActivityHandler {
	var newest time.Time

	return func(state snooapi.ActivityState) {
		if !state.EventTime.IsZero() {
			if state.EventTime.Before(newest) {
				logging.Logger(nil).Debugf("ignoring stale %s event from %s", state.Event, state.EventTime)
				return
			}
			newest = state.EventTime
		}

		h(state)
	}
}

func (ls *Set) mirrorLockToLed(state snooapi.ActivityState) {
	hardware.SetLED(ls.led, state.StateMachine.Hold)
}

func (ls *Set) enforceMaxLevel(state snooapi.ActivityState) {
	ls.mu.Lock()
	ordering := ls.ordering
	ls.mu.Unlock()

	policy := ls.policy()
	if !statemachine.ExceedsMax(state.StateMachine.State, ordering, policy) {
		return
	}

	logging.Logger(nil).Infof("level %s is above the maximum of %d", state.StateMachine.State, *policy.MaxLevel)
	ls.queue.Enqueue(command.SetToMax{})
}

func (ls *Set) enforceLockIfUnlocked(state snooapi.ActivityState) {
	if !statemachine.NeedsLock(state.StateMachine, ls.policy()) {
		return
	}

	logging.Logger(nil).Infof("level %s is not held, locking", state.StateMachine.State)
	ls.queue.Enqueue(command.SetLock{})
}
