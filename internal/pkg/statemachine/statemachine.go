package statemachine

import (
	"fmt"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
)

// Policy holds the user settings that shape transitions
type Policy struct {
	// HoldOnStart locks the baseline level when the device is started
	HoldOnStart bool

	// MaxLevel caps the soothing level when set
	MaxLevel *int

	// ForceLock keeps the current level held
	ForceLock bool
}

// Plan is the outcome of applying a command to a snapshot: the messages to
// publish, in order, and the LED state to show once they are published.
// A plan with a Reason is a no-op.
type Plan struct {
	Publishes []snooapi.Command
	LED       *bool
	Reason    string
}

// NoOp reports whether the plan publishes nothing
func (p Plan) NoOp() bool {
	return len(p.Publishes) == 0
}

func led(on bool) *bool {
	return &on
}

func publish(led *bool, cmds ...snooapi.Command) Plan {
	return Plan{Publishes: cmds, LED: led}
}

func noOp(led *bool, format string, args ...interface{}) Plan {
	return Plan{LED: led, Reason: fmt.Sprintf(format, args...)}
}

// Next computes the plan for applying cmd to the given activity snapshot
func Next(snapshot snooapi.ActivityState, cmd command.Command, ordering Ordering, policy Policy) Plan {
	sm := snapshot.StateMachine

	switch cmd.(type) {
	case command.Toggle:
		if sm.State == snooapi.LevelOnline {
			if policy.HoldOnStart {
				return publish(led(true),
					snooapi.NewStartCommand(),
					snooapi.NewGoToStateHoldCommand(ordering.Baseline(), true))
			}
			return publish(led(false), snooapi.NewStartCommand())
		}
		return publish(led(false), snooapi.NewGoToStateCommand(snooapi.LevelOnline))

	case command.UpLevel:
		if sm.UpTransition.IsActive() {
			return publish(led(sm.Hold), snooapi.NewGoToStateCommand(sm.UpTransition))
		}
		return noOp(led(sm.Hold), "no valid up-transition from %s", sm.State)

	case command.DownLevel:
		if sm.DownTransition.IsActive() {
			return publish(led(sm.Hold), snooapi.NewGoToStateCommand(sm.DownTransition))
		}
		return noOp(led(sm.Hold), "no valid down-transition from %s", sm.State)

	case command.Lock:
		if sm.State.IsActive() {
			return publish(led(!sm.Hold), snooapi.NewGoToStateHoldCommand(sm.State, !sm.Hold))
		}
		return noOp(nil, "cannot toggle hold when not running (%s)", sm.State)

	case command.SetToMax:
		if policy.MaxLevel == nil {
			return noOp(nil, "no maximum level configured")
		}
		level, err := ordering.LevelForInt(*policy.MaxLevel)
		if err != nil {
			return noOp(nil, "%s", err)
		}
		return publish(nil, snooapi.NewGoToStateHoldCommand(level, policy.ForceLock))

	case command.SetLock:
		return publish(nil, snooapi.NewGoToStateHoldCommand(sm.State, true))
	}

	return noOp(nil, "unsupported command %T", cmd)
}

// ExceedsMax reports whether an active level is above the configured cap
func ExceedsMax(level snooapi.Level, ordering Ordering, policy Policy) bool {
	if policy.MaxLevel == nil || !level.IsActive() {
		return false
	}

	rank, ok := ordering.Rank(level)
	return ok && rank > *policy.MaxLevel
}

// NeedsLock reports whether forced locking applies to the snapshot
func NeedsLock(sm snooapi.StateMachine, policy Policy) bool {
	return policy.ForceLock && sm.State.IsActive() && !sm.Hold
}
