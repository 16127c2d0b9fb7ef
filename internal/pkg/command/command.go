package command

import (
	"fmt"
	"strings"

	"github.com/go-openapi/swag"
)

// Command is a request to change the device state, produced by a button,
// a listener or the HTTP API.  The set of implementations is closed; the
// worker dispatches on the concrete type.
type Command interface {
	// Name returns the canonical dash-separated command name
	Name() string
	command()
}

// Lock toggles the "hold current level" flag
type Lock struct{}

// UpLevel moves to the level above the current one
type UpLevel struct{}

// DownLevel moves to the level below the current one
type DownLevel struct{}

// Toggle starts the device when it is online and idle, stops it otherwise
type Toggle struct{}

// SetToMax moves to the configured maximum level
type SetToMax struct{}

// SetLock holds the current level
type SetLock struct{}

func (Lock) Name() string      { return "lock" }
func (UpLevel) Name() string   { return "up-level" }
func (DownLevel) Name() string { return "down-level" }
func (Toggle) Name() string    { return "toggle" }
func (SetToMax) Name() string  { return "set-to-max" }
func (SetLock) Name() string   { return "set-lock" }

func (Lock) command()      {}
func (UpLevel) command()   {}
func (DownLevel) command() {}
func (Toggle) command()    {}
func (SetToMax) command()  {}
func (SetLock) command()   {}

// All lists one value of every command variant
func All() []Command {
	return []Command{Lock{}, UpLevel{}, DownLevel{}, Toggle{}, SetToMax{}, SetLock{}}
}

// Names returns the canonical names of every command variant
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name())
	}

	return names
}

// Parse converts a command name in any common casing (UpLevel, up_level,
// UP_LEVEL, up-level) to a Command
func Parse(name string) (Command, error) {
	canonical := Canonical(name)
	for _, c := range All() {
		if c.Name() == canonical {
			return c, nil
		}
	}

	return nil, fmt.Errorf("unknown command [%s]", name)
}

// Canonical converts a command name to its dash-separated lower case form.
// All-caps names are lowered first, otherwise every letter reads as a word.
func Canonical(name string) string {
	if strings.ToLower(name) != name && strings.ToUpper(name) == name {
		name = strings.ToLower(name)
	}
	return swag.ToCommandName(name)
}
