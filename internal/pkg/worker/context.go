package worker

import (
	"sync"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/hardware"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
)

// Context is the state shared between the worker, the listeners and the
// command sources for the life of the process
type Context struct {
	Queue *command.Queue
	LED   hardware.LED

	// TokenMu serialises token refresh and persistence
	TokenMu sync.Mutex

	mu     sync.RWMutex
	policy statemachine.Policy
}

func NewContext(queue *command.Queue, led hardware.LED, policy statemachine.Policy) *Context {
	return &Context{
		Queue:  queue,
		LED:    led,
		policy: policy,
	}
}

func (c *Context) Policy() statemachine.Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.policy
}

// SetPolicy replaces the policy, eg. after the config file changes
func (c *Context) SetPolicy(p statemachine.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.policy = p
}
