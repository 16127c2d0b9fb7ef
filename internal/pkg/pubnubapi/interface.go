package pubnubapi

import (
	"context"

	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
)

type ListenerID int

// ActivityHandler receives activity snapshots pushed by the server.  It runs
// on a goroutine owned by the channel and must not block.
type ActivityHandler func(state snooapi.ActivityState)

// PubSub is the realtime channel pair for one device: activity snapshots are
// received on one channel, control commands published on the other
type PubSub interface {
	Subscribe() error
	Publish(ctx context.Context, cmd snooapi.Command) error
	// History returns up to count recent snapshots, newest first
	History(ctx context.Context, count int) ([]snooapi.ActivityState, error)
	AddListener(h ActivityHandler) ListenerID
	RemoveListener(id ListenerID)
	// Stop releases the subscription and any server side resources.  It
	// is safe to call more than once.
	Stop() error
}
