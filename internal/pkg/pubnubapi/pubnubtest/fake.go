// Package pubnubtest provides an in-memory realtime channel for tests
package pubnubtest

import (
	"context"
	"sync"

	"github.com/jake-scott/snoo-buttons/internal/pkg/pubnubapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
)

// Fake is a PubSub whose history and publish results are set by the test.
// Pushed snapshots are delivered synchronously.
type Fake struct {
	mu          sync.Mutex
	history     []snooapi.ActivityState
	historyErr  error
	publishErrs []error
	published   []snooapi.Command
	listeners   map[pubnubapi.ListenerID]pubnubapi.ActivityHandler
	nextID      pubnubapi.ListenerID
	subscribed  bool
	stops       int
}

var _ pubnubapi.PubSub = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		listeners: make(map[pubnubapi.ListenerID]pubnubapi.ActivityHandler),
	}
}

// SetHistory sets the snapshots returned by History, newest first
func (f *Fake) SetHistory(states ...snooapi.ActivityState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.history = states
}

func (f *Fake) SetHistoryError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.historyErr = err
}

// FailPublish queues results for the next publishes; nil means success
func (f *Fake) FailPublish(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.publishErrs = append(f.publishErrs, errs...)
}

func (f *Fake) Subscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribed = true
	return nil
}

func (f *Fake) Publish(ctx context.Context, cmd snooapi.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		if err != nil {
			return err
		}
	}

	f.published = append(f.published, cmd)
	return nil
}

func (f *Fake) History(ctx context.Context, count int) ([]snooapi.ActivityState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.historyErr != nil {
		return nil, f.historyErr
	}

	n := len(f.history)
	if count < n {
		n = count
	}

	out := make([]snooapi.ActivityState, n)
	copy(out, f.history)
	return out, nil
}

func (f *Fake) AddListener(h pubnubapi.ActivityHandler) pubnubapi.ListenerID {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.listeners[f.nextID] = h
	return f.nextID
}

func (f *Fake) RemoveListener(id pubnubapi.ListenerID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.listeners, id)
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	f.listeners = make(map[pubnubapi.ListenerID]pubnubapi.ActivityHandler)
	return nil
}

// Push delivers a snapshot to every listener
func (f *Fake) Push(state snooapi.ActivityState) {
	f.mu.Lock()
	handlers := make([]pubnubapi.ActivityHandler, 0, len(f.listeners))
	for _, h := range f.listeners {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

func (f *Fake) Published() []snooapi.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]snooapi.Command, len(f.published))
	copy(out, f.published)
	return out
}

func (f *Fake) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.listeners)
}

func (f *Fake) Subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.subscribed
}

func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stops
}
