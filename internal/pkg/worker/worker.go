package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/hardware"
	"github.com/jake-scott/snoo-buttons/internal/pkg/listeners"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/session"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooauth"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/pkg/errors"
)

const (
	DefaultSessionTTL     = 20 * time.Minute
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultReconnectDelay = 5 * time.Second
)

type State int

const (
	Connecting State = iota
	Active
	Draining
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Disconnected:
		return "disconnected"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// SessionProvider opens a session for the duration of fn
type SessionProvider interface {
	WithSession(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error
}

// Status is a point in time view of the worker
type Status struct {
	State        State
	SessionStart time.Time
	Serial       string
	LastActivity *snooapi.ActivityState
	LastError    string
	Applied      int
	Failed       int
}

type Options struct {
	SessionTTL     time.Duration
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

// Worker applies queued commands to the device, one at a time, over a
// session that is recycled every SessionTTL or after any failure
type Worker struct {
	wctx      *Context
	provider  SessionProvider
	listeners *listeners.Set
	opts      Options
	now       func() time.Time

	mu     sync.RWMutex
	status Status
}

func New(wctx *Context, provider SessionProvider, opts Options) *Worker {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}

	w := &Worker{
		wctx:     wctx,
		provider: provider,
		opts:     opts,
		now:      time.Now,
		status:   Status{State: Disconnected},
	}

	w.listeners = listeners.New(wctx.Queue, wctx.LED, wctx.Policy).WithActivityHook(w.recordActivity)
	return w
}

func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Status returns a copy of the current status
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.status
	if s.LastActivity != nil {
		a := *s.LastActivity
		s.LastActivity = &a
	}
	return s
}

// Run cycles sessions until ctx is cancelled.  Rejected credentials are
// fatal and returned; every other failure is logged and retried.
func (w *Worker) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		w.setState(Connecting)
		err := w.provider.WithSession(ctx, w.runSession)
		w.setState(Disconnected)

		if err == nil {
			continue
		}

		var authErr *snooauth.AuthError
		if errors.As(err, &authErr) {
			logging.Logger(ctx).WithError(err).Error("worker: credentials rejected")
			return err
		}

		if ctx.Err() != nil {
			break
		}

		if errors.Is(err, session.ErrNoDevices) {
			logging.Logger(ctx).Error("worker: no devices paired with the account")
		} else {
			logging.Logger(ctx).WithError(err).Errorf("worker: opening session, retrying in %s", w.opts.ReconnectDelay)
		}
		w.recordError(err)

		if !sleep(ctx, w.opts.ReconnectDelay) {
			break
		}
	}

	logging.Logger(nil).Info("worker: shutting down")
	return nil
}

func (w *Worker) runSession(ctx context.Context, s *session.Session) error {
	ctx = logging.WithSerial(ctx, s.Serial())

	w.listeners.Register(s, s.Ordering)
	defer func() {
		w.setState(Draining)
		w.listeners.Unregister()
	}()

	start := w.now()
	w.sessionStarted(s, start)

	if s.Initial != nil {
		hardware.SetLED(w.wctx.LED, s.Initial.StateMachine.Hold)
		w.recordActivity(*s.Initial)
	}

	w.setState(Active)
	for w.now().Sub(start) < w.opts.SessionTTL {
		if e, ok := w.wctx.Queue.TryDequeue(); ok {
			if err := w.apply(ctx, s, e); err != nil {
				logging.Logger(ctx).WithError(err).Errorf("worker: applying %s failed, recycling session", e.Command.Name())
				w.recordError(err)
				w.wctx.Queue.Requeue(e)
				return nil
			}
		}

		if !sleep(ctx, w.opts.PollInterval) {
			return nil
		}
	}

	logging.Logger(ctx).Infof("worker: session for %s reached its %s lifetime", s.Serial(), w.opts.SessionTTL)
	return nil
}

// apply runs one command against a freshly fetched snapshot
func (w *Worker) apply(ctx context.Context, s *session.Session, e command.Entry) error {
	ctx = logging.WithTxnID(ctx, uuid.New().String())
	logging.Logger(ctx).Infof("worker: applying %s (retry %d)", e.Command.Name(), e.Retries)

	snapshot, err := s.LatestActivity(ctx)
	if err != nil {
		return &TransientFetchError{Err: err}
	}
	if snapshot == nil {
		return &TransientFetchError{Err: ErrEmptyHistory}
	}

	plan := statemachine.Next(*snapshot, e.Command, s.Ordering, w.wctx.Policy())
	if plan.NoOp() {
		logging.Logger(ctx).Warnf("worker: ignoring %s: %s", e.Command.Name(), plan.Reason)
	}

	for _, msg := range plan.Publishes {
		logging.Logger(ctx).Debugf("worker: publishing %s", describe(msg))
		if err := s.Publish(ctx, msg); err != nil {
			return &PublishError{Message: describe(msg), Err: err}
		}
	}

	if plan.LED != nil {
		hardware.SetLED(w.wctx.LED, *plan.LED)
	}

	w.mu.Lock()
	w.status.Applied++
	w.mu.Unlock()

	return nil
}

func describe(msg snooapi.Command) string {
	if s, ok := msg.(fmt.Stringer); ok {
		return s.String()
	}
	return msg.Name()
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.State = s
}

func (w *Worker) sessionStarted(s *session.Session, start time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.SessionStart = start
	w.status.Serial = s.Serial()
}

func (w *Worker) recordActivity(state snooapi.ActivityState) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.LastActivity = &state
}

func (w *Worker) recordError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.LastError = err.Error()
	w.status.Failed++
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
