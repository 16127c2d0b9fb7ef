package snooapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		cmd      Command
		name     string
		expected string
	}{
		{NewStartCommand(), "start_snoo", `{"command":"start_snoo"}`},
		{NewGoToStateCommand(LevelOnline), "go_to_state", `{"command":"go_to_state","state":"ONLINE"}`},
		{NewGoToStateHoldCommand(LevelOne, false), "go_to_state", `{"command":"go_to_state","state":"LEVEL1","hold":"off"}`},
		{NewGoToStateHoldCommand(LevelWeaningBaseline, true), "go_to_state", `{"command":"go_to_state","state":"WEANING_BASELINE","hold":"on"}`},
	}

	for _, tc := range tests {
		data, err := Marshal(tc.cmd)
		require.NoError(t, err)
		require.JSONEq(t, tc.expected, string(data))
		require.Equal(t, tc.name, tc.cmd.Name())
	}
}
