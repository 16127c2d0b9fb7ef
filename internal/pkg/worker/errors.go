package worker

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyHistory means the device returned no activity snapshot
var ErrEmptyHistory = errors.New("no activity history")

// TransientFetchError is a failure to read the current device activity
type TransientFetchError struct {
	Err error
}

func (e *TransientFetchError) Error() string {
	return "fetching activity: " + e.Err.Error()
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// PublishError is a failure to send a control message
type PublishError struct {
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %s", e.Message, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
