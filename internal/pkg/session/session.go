package session

import (
	"context"

	"github.com/jake-scott/snoo-buttons/internal/pkg/pubnubapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/pkg/errors"
)

// Session is a live connection to one device.  It is only valid inside the
// callback passed to Provider.WithSession.
type Session struct {
	Device   snooapi.Device
	Ordering statemachine.Ordering

	// Initial is the most recent snapshot at the time the session was
	// opened, or nil if the device has no history
	Initial *snooapi.ActivityState

	pubsub pubnubapi.PubSub
}

func New(device snooapi.Device, ordering statemachine.Ordering, pubsub pubnubapi.PubSub) *Session {
	return &Session{
		Device:   device,
		Ordering: ordering,
		pubsub:   pubsub,
	}
}

func (s *Session) Serial() string {
	return s.Device.SerialNumber
}

// Publish sends one control message to the device
func (s *Session) Publish(ctx context.Context, cmd snooapi.Command) error {
	return s.pubsub.Publish(ctx, cmd)
}

// LatestActivity fetches the most recent activity snapshot.  It returns nil
// and no error when the device has no history.
func (s *Session) LatestActivity(ctx context.Context) (*snooapi.ActivityState, error) {
	states, err := s.pubsub.History(ctx, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching activity of %s", s.Serial())
	}

	if len(states) == 0 {
		return nil, nil
	}

	return &states[0], nil
}

func (s *Session) AddListener(h pubnubapi.ActivityHandler) pubnubapi.ListenerID {
	return s.pubsub.AddListener(h)
}

func (s *Session) RemoveListener(id pubnubapi.ListenerID) {
	s.pubsub.RemoveListener(id)
}
