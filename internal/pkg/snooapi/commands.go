package snooapi

import (
	"encoding/json"
	"fmt"
)

// Command is a control message published on the ControlCommand.<serial>
// channel
type Command interface {
	Name() string
}

type command struct {
	Command string `json:"command"`
}

func newCommand(name string) command {
	return command{
		Command: name,
	}
}

func (c command) Name() string {
	return c.Command
}

type startCommandParams struct {
	command
}

// NewStartCommand starts a soothing session from ONLINE
func NewStartCommand() Command {
	return startCommandParams{
		command: newCommand("start_snoo"),
	}
}

type goToStateCommandParams struct {
	command
	State Level  `json:"state"`
	Hold  string `json:"hold,omitempty"`
}

func (c goToStateCommandParams) String() string {
	if c.Hold == "" {
		return fmt.Sprintf("%s(%s)", c.Command, c.State)
	}
	return fmt.Sprintf("%s(%s, hold=%s)", c.Command, c.State, c.Hold)
}

// NewGoToStateCommand moves the device to the given level, leaving the hold
// flag as it is
func NewGoToStateCommand(level Level) Command {
	return goToStateCommandParams{
		command: newCommand("go_to_state"),
		State:   level,
	}
}

// NewGoToStateHoldCommand moves the device to the given level and sets the
// hold flag
func NewGoToStateHoldCommand(level Level, hold bool) Command {
	holdStr := "off"
	if hold {
		holdStr = "on"
	}

	return goToStateCommandParams{
		command: newCommand("go_to_state"),
		State:   level,
		Hold:    holdStr,
	}
}

// Marshal returns the JSON wire form of a command
func Marshal(c Command) ([]byte, error) {
	return json.Marshal(c)
}
