package statemachine

import (
	"encoding/json"
	"testing"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/stretchr/testify/require"
)

func snapshot(state snooapi.Level, hold bool, up, down snooapi.Level) snooapi.ActivityState {
	return snooapi.ActivityState{
		StateMachine: snooapi.StateMachine{
			State:          state,
			Hold:           hold,
			UpTransition:   up,
			DownTransition: down,
		},
	}
}

func wire(t *testing.T, c snooapi.Command) map[string]interface{} {
	t.Helper()

	data, err := snooapi.Marshal(c)
	require.NoError(t, err)

	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func intPtr(i int) *int {
	return &i
}

var activeLevels = []snooapi.Level{
	snooapi.LevelBaseline,
	snooapi.LevelWeaningBaseline,
	snooapi.LevelOne,
	snooapi.LevelTwo,
	snooapi.LevelThree,
	snooapi.LevelFour,
}

func TestNext_ToggleFromOnline(t *testing.T) {
	s := snapshot(snooapi.LevelOnline, false, snooapi.LevelNone, snooapi.LevelNone)

	plan := Next(s, command.Toggle{}, NewOrdering(false), Policy{})
	require.Len(t, plan.Publishes, 1)
	require.Equal(t, map[string]interface{}{"command": "start_snoo"}, wire(t, plan.Publishes[0]))
	require.NotNil(t, plan.LED)
	require.False(t, *plan.LED)
}

func TestNext_ToggleFromOnlineHoldOnStart(t *testing.T) {
	s := snapshot(snooapi.LevelOnline, false, snooapi.LevelNone, snooapi.LevelNone)

	for _, weaning := range []bool{false, true} {
		ordering := NewOrdering(weaning)
		plan := Next(s, command.Toggle{}, ordering, Policy{HoldOnStart: true})

		require.Len(t, plan.Publishes, 2)
		require.Equal(t, "start_snoo", wire(t, plan.Publishes[0])["command"])
		require.Equal(t, map[string]interface{}{
			"command": "go_to_state",
			"state":   string(ordering.Baseline()),
			"hold":    "on",
		}, wire(t, plan.Publishes[1]))
		require.True(t, *plan.LED)
	}
}

func TestNext_ToggleStops(t *testing.T) {
	for _, level := range append(activeLevels, snooapi.LevelNone) {
		s := snapshot(level, true, snooapi.LevelNone, snooapi.LevelNone)

		plan := Next(s, command.Toggle{}, NewOrdering(false), Policy{HoldOnStart: true})
		require.Len(t, plan.Publishes, 1, level)
		require.Equal(t, map[string]interface{}{
			"command": "go_to_state",
			"state":   "ONLINE",
		}, wire(t, plan.Publishes[0]))
		require.False(t, *plan.LED)
	}
}

func TestNext_UpLevelFromBaseline(t *testing.T) {
	s := snapshot(snooapi.LevelBaseline, false, snooapi.LevelOne, snooapi.LevelNone)

	plan := Next(s, command.UpLevel{}, NewOrdering(false), Policy{})
	require.Len(t, plan.Publishes, 1)
	require.Equal(t, map[string]interface{}{
		"command": "go_to_state",
		"state":   "LEVEL1",
	}, wire(t, plan.Publishes[0]))
	require.False(t, *plan.LED)
}

func TestNext_UpLevelMirrorsHold(t *testing.T) {
	s := snapshot(snooapi.LevelTwo, true, snooapi.LevelThree, snooapi.LevelOne)

	plan := Next(s, command.UpLevel{}, NewOrdering(false), Policy{})
	require.Equal(t, "LEVEL3", wire(t, plan.Publishes[0])["state"])
	require.True(t, *plan.LED)
}

func TestNext_UpLevelNoTransition(t *testing.T) {
	for _, up := range []snooapi.Level{snooapi.LevelNone, snooapi.LevelOnline, ""} {
		s := snapshot(snooapi.LevelFour, true, up, snooapi.LevelThree)

		plan := Next(s, command.UpLevel{}, NewOrdering(false), Policy{})
		require.True(t, plan.NoOp())
		require.NotEmpty(t, plan.Reason)
		require.True(t, *plan.LED)
	}
}

func TestNext_DownLevel(t *testing.T) {
	s := snapshot(snooapi.LevelTwo, false, snooapi.LevelThree, snooapi.LevelOne)

	plan := Next(s, command.DownLevel{}, NewOrdering(false), Policy{})
	require.Equal(t, map[string]interface{}{
		"command": "go_to_state",
		"state":   "LEVEL1",
	}, wire(t, plan.Publishes[0]))
	require.False(t, *plan.LED)
}

func TestNext_DownLevelNoTransitionIsGuarded(t *testing.T) {
	s := snapshot(snooapi.LevelBaseline, true, snooapi.LevelOne, snooapi.LevelNone)

	plan := Next(s, command.DownLevel{}, NewOrdering(false), Policy{})
	require.True(t, plan.NoOp())
	require.Empty(t, plan.Publishes)
	require.True(t, *plan.LED)
}

func TestNext_LockFlipsHold(t *testing.T) {
	s := snapshot(snooapi.LevelOne, true, snooapi.LevelTwo, snooapi.LevelBaseline)

	plan := Next(s, command.Lock{}, NewOrdering(false), Policy{})
	require.Equal(t, map[string]interface{}{
		"command": "go_to_state",
		"state":   "LEVEL1",
		"hold":    "off",
	}, wire(t, plan.Publishes[0]))
	require.False(t, *plan.LED)
}

func TestNext_LockTwiceRestores(t *testing.T) {
	for _, level := range activeLevels {
		for _, hold := range []bool{false, true} {
			s := snapshot(level, hold, snooapi.LevelNone, snooapi.LevelNone)

			first := Next(s, command.Lock{}, NewOrdering(false), Policy{})
			require.Equal(t, onOff(!hold), wire(t, first.Publishes[0])["hold"])
			require.Equal(t, string(level), wire(t, first.Publishes[0])["state"])

			s.StateMachine.Hold = *first.LED
			second := Next(s, command.Lock{}, NewOrdering(false), Policy{})
			require.Equal(t, onOff(hold), wire(t, second.Publishes[0])["hold"])
			require.Equal(t, hold, *second.LED)
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func TestNext_LockWhenNotRunning(t *testing.T) {
	for _, level := range []snooapi.Level{snooapi.LevelOnline, snooapi.LevelNone} {
		s := snapshot(level, false, snooapi.LevelNone, snooapi.LevelNone)

		plan := Next(s, command.Lock{}, NewOrdering(false), Policy{})
		require.True(t, plan.NoOp())
		require.Nil(t, plan.LED)
	}
}

func TestNext_SetToMaxIgnoresSnapshot(t *testing.T) {
	policy := Policy{MaxLevel: intPtr(2), ForceLock: true}

	for _, level := range append(activeLevels, snooapi.LevelOnline) {
		s := snapshot(level, false, snooapi.LevelNone, snooapi.LevelNone)

		plan := Next(s, command.SetToMax{}, NewOrdering(false), policy)
		require.Len(t, plan.Publishes, 1)
		require.Equal(t, map[string]interface{}{
			"command": "go_to_state",
			"state":   "LEVEL2",
			"hold":    "on",
		}, wire(t, plan.Publishes[0]))
		require.Nil(t, plan.LED)
	}
}

func TestNext_SetToMaxBaselineWeaning(t *testing.T) {
	s := snapshot(snooapi.LevelTwo, false, snooapi.LevelThree, snooapi.LevelOne)

	plan := Next(s, command.SetToMax{}, NewOrdering(true), Policy{MaxLevel: intPtr(0)})
	require.Equal(t, map[string]interface{}{
		"command": "go_to_state",
		"state":   "WEANING_BASELINE",
		"hold":    "off",
	}, wire(t, plan.Publishes[0]))
}

func TestNext_SetToMaxUnset(t *testing.T) {
	s := snapshot(snooapi.LevelTwo, false, snooapi.LevelThree, snooapi.LevelOne)

	plan := Next(s, command.SetToMax{}, NewOrdering(false), Policy{})
	require.True(t, plan.NoOp())
}

func TestNext_SetLock(t *testing.T) {
	s := snapshot(snooapi.LevelThree, false, snooapi.LevelFour, snooapi.LevelTwo)

	plan := Next(s, command.SetLock{}, NewOrdering(false), Policy{})
	require.Equal(t, map[string]interface{}{
		"command": "go_to_state",
		"state":   "LEVEL3",
		"hold":    "on",
	}, wire(t, plan.Publishes[0]))
	require.Nil(t, plan.LED)
}

func TestExceedsMax(t *testing.T) {
	ordering := NewOrdering(false)
	policy := Policy{MaxLevel: intPtr(1)}

	require.False(t, ExceedsMax(snooapi.LevelBaseline, ordering, policy))
	require.False(t, ExceedsMax(snooapi.LevelOne, ordering, policy))
	require.True(t, ExceedsMax(snooapi.LevelTwo, ordering, policy))
	require.True(t, ExceedsMax(snooapi.LevelFour, ordering, policy))
	require.False(t, ExceedsMax(snooapi.LevelOnline, ordering, policy))
	require.False(t, ExceedsMax(snooapi.LevelFour, ordering, Policy{}))
}

func TestNeedsLock(t *testing.T) {
	policy := Policy{ForceLock: true}

	require.True(t, NeedsLock(snapshot(snooapi.LevelOne, false, "", "").StateMachine, policy))
	require.False(t, NeedsLock(snapshot(snooapi.LevelOne, true, "", "").StateMachine, policy))
	require.False(t, NeedsLock(snapshot(snooapi.LevelOnline, false, "", "").StateMachine, policy))
	require.False(t, NeedsLock(snapshot(snooapi.LevelOne, false, "", "").StateMachine, Policy{}))
}
