package command

import (
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
)

const (
	// DefaultQueueSize is the number of pending commands held before new
	// ones are dropped
	DefaultQueueSize = 10

	// MaxRetries is the number of times a failed command is re-queued
	MaxRetries = 1
)

// Entry is a queued command with its retry count
type Entry struct {
	Command Command
	Retries int
}

// Queue is a bounded FIFO of pending commands.  Any number of goroutines may
// enqueue; a single consumer dequeues.  Neither side ever blocks, so it is
// safe to enqueue from hardware edge callbacks and pub/sub listeners.
type Queue struct {
	entries chan Entry
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &Queue{
		entries: make(chan Entry, size),
	}
}

// Enqueue adds a command if there is room.  A full queue drops the command
// and returns false.
func (q *Queue) Enqueue(cmd Command) bool {
	return q.put(Entry{Command: cmd})
}

// Requeue puts back a command whose application failed.  Returns false when
// the command has used up its retries or the queue is full.
func (q *Queue) Requeue(e Entry) bool {
	if e.Retries >= MaxRetries {
		logging.Logger(nil).Warnf("command-queue: dropping %s after %d retries", e.Command.Name(), e.Retries)
		return false
	}

	e.Retries++
	return q.put(e)
}

func (q *Queue) put(e Entry) bool {
	select {
	case q.entries <- e:
		return true
	default:
		logging.Logger(nil).Warnf("command-queue: full, dropping %s", e.Command.Name())
		return false
	}
}

// TryDequeue returns the oldest pending entry, or false if there is none
func (q *Queue) TryDequeue() (Entry, bool) {
	select {
	case e := <-q.entries:
		return e, true
	default:
		return Entry{}, false
	}
}

// Len returns the number of pending commands
func (q *Queue) Len() int {
	return len(q.entries)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.entries)
}
