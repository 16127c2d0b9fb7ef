package listeners

import (
	"testing"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/hardware"
	"github.com/jake-scott/snoo-buttons/internal/pkg/pubnubapi/pubnubtest"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func activity(state snooapi.Level, hold bool, at time.Time) snooapi.ActivityState {
	return snooapi.ActivityState{
		StateMachine: snooapi.StateMachine{State: state, Hold: hold},
		EventTime:    at,
	}
}

func drain(q *command.Queue) []command.Command {
	var out []command.Command
	for {
		e, ok := q.TryDequeue()
		if !ok {
			return out
		}
		out = append(out, e.Command)
	}
}

func newSet(policy statemachine.Policy) (*Set, *command.Queue, *hardware.MemoryLED, *pubnubtest.Fake) {
	queue := command.NewQueue(command.DefaultQueueSize)
	led := &hardware.MemoryLED{}
	fake := pubnubtest.NewFake()

	ls := New(queue, led, func() statemachine.Policy { return policy })
	ls.Register(fake, statemachine.NewOrdering(false))

	return ls, queue, led, fake
}

func TestMirrorLockToLed(t *testing.T) {
	_, queue, led, fake := newSet(statemachine.Policy{})
	now := time.Now()

	fake.Push(activity(snooapi.LevelOne, true, now))
	require.True(t, led.IsOn())

	fake.Push(activity(snooapi.LevelOne, false, now.Add(time.Second)))
	require.False(t, led.IsOn())

	require.Empty(t, drain(queue))
}

func TestEnforceMaxLevel(t *testing.T) {
	_, queue, _, fake := newSet(statemachine.Policy{MaxLevel: intPtr(2)})
	now := time.Now()

	fake.Push(activity(snooapi.LevelTwo, false, now))
	require.Empty(t, drain(queue))

	fake.Push(activity(snooapi.LevelThree, false, now.Add(time.Second)))
	require.Equal(t, []command.Command{command.SetToMax{}}, drain(queue))

	fake.Push(activity(snooapi.LevelOnline, false, now.Add(2*time.Second)))
	require.Empty(t, drain(queue))
}

func TestEnforceLockIfUnlocked(t *testing.T) {
	_, queue, _, fake := newSet(statemachine.Policy{ForceLock: true})
	now := time.Now()

	fake.Push(activity(snooapi.LevelOne, true, now))
	require.Empty(t, drain(queue))

	fake.Push(activity(snooapi.LevelOne, false, now.Add(time.Second)))
	require.Equal(t, []command.Command{command.SetLock{}}, drain(queue))

	fake.Push(activity(snooapi.LevelOnline, false, now.Add(2*time.Second)))
	require.Empty(t, drain(queue))
}

func TestNoPolicyNoCommands(t *testing.T) {
	_, queue, _, fake := newSet(statemachine.Policy{})

	fake.Push(activity(snooapi.LevelFour, false, time.Now()))
	require.Empty(t, drain(queue))
}

func TestStaleSnapshotsIgnored(t *testing.T) {
	_, queue, led, fake := newSet(statemachine.Policy{ForceLock: true})
	now := time.Now()

	fake.Push(activity(snooapi.LevelOne, true, now))
	require.True(t, led.IsOn())

	fake.Push(activity(snooapi.LevelOne, false, now.Add(-time.Second)))
	require.True(t, led.IsOn())
	require.Empty(t, drain(queue))
}

func TestActivityHook(t *testing.T) {
	queue := command.NewQueue(command.DefaultQueueSize)
	fake := pubnubtest.NewFake()

	var seen []snooapi.Level
	ls := New(queue, &hardware.MemoryLED{}, func() statemachine.Policy { return statemachine.Policy{} }).
		WithActivityHook(func(a snooapi.ActivityState) {
			seen = append(seen, a.StateMachine.State)
		})
	ls.Register(fake, statemachine.NewOrdering(false))

	fake.Push(activity(snooapi.LevelBaseline, false, time.Time{}))
	require.Equal(t, []snooapi.Level{snooapi.LevelBaseline}, seen)
}

func TestUnregister(t *testing.T) {
	ls, _, led, fake := newSet(statemachine.Policy{})
	require.Equal(t, 3, fake.Listeners())

	ls.Unregister()
	require.Equal(t, 0, fake.Listeners())

	fake.Push(activity(snooapi.LevelOne, true, time.Now()))
	require.False(t, led.IsOn())

	// a second call is harmless
	ls.Unregister()
}
