package pubnubapi

import (
	"context"
	"sync"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/pkg/errors"
	pubnub "github.com/pubnub/go/v7"
)

const (
	DefaultSubscribeKey = "sub-c-97bade2a-483d-11e6-8b3b-02ee2ddab7fe"
	DefaultPublishKey   = "pub-c-699074b0-7664-4be2-abf8-dcbb9b6cd2bf"

	userIDPrefix = "pn-pysnoo-"
)

func ActivityChannel(serial string) string {
	return "ActivityState." + serial
}

func CommandChannel(serial string) string {
	return "ControlCommand." + serial
}

// UserID is the client identity used on the channels for a device
func UserID(serial string) string {
	return userIDPrefix + serial
}

type liveListener struct {
	listener *pubnub.Listener
	done     chan struct{}
	finished chan struct{}
}

type Live struct {
	serial          string
	activityChannel string
	commandChannel  string
	timeout         time.Duration
	logMessages     bool
	pn              *pubnub.PubNub

	mu        sync.Mutex
	listeners map[ListenerID]*liveListener
	nextID    ListenerID
	stopOnce  sync.Once
}

// NewLiveClient opens a PubNub client for the device with the given serial,
// authorised by the vendor access token
func NewLiveClient(accessToken string, serial string) *Live {
	config := pubnub.NewConfigWithUserId(pubnub.UserId(UserID(serial)))
	config.SubscribeKey = DefaultSubscribeKey
	config.PublishKey = DefaultPublishKey
	config.AuthKey = accessToken

	pn := pubnub.NewPubNub(config)

	// Destroy closes the HTTP client, which is otherwise only created by the
	// first publish or history call
	pn.GetClient()

	return &Live{
		serial:          serial,
		activityChannel: ActivityChannel(serial),
		commandChannel:  CommandChannel(serial),
		pn:              pn,
		listeners:       make(map[ListenerID]*liveListener),
	}
}

func (c *Live) WithTimeout(d time.Duration) *Live {
	c.timeout = d
	if d > 0 {
		c.pn.Config.NonSubscribeRequestTimeout = int(d.Seconds())
	}
	return c
}

func (c *Live) WithLogMessages() *Live {
	c.logMessages = true
	return c
}

func (c *Live) MakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc = func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	return ctx, cancel
}

func (c *Live) Subscribe() error {
	c.pn.Subscribe().
		Channels([]string{c.activityChannel}).
		Execute()

	logging.Logger(nil).Debugf("subscribed to %s", c.activityChannel)
	return nil
}

func (c *Live) Publish(ctx context.Context, cmd snooapi.Command) error {
	ctx, cancel := c.MakeContext(ctx)
	defer cancel()

	if c.logMessages {
		if data, err := snooapi.Marshal(cmd); err == nil {
			logging.Logger(ctx).Debugf("publishing to %s: %s", c.commandChannel, data)
		}
	}

	_, status, err := c.pn.PublishWithContext(ctx).
		Channel(c.commandChannel).
		Message(cmd).
		Execute()
	if err != nil {
		return errors.Wrapf(err, "publishing %s (status %d)", cmd.Name(), status.StatusCode)
	}

	return nil
}

func (c *Live) History(ctx context.Context, count int) ([]snooapi.ActivityState, error) {
	ctx, cancel := c.MakeContext(ctx)
	defer cancel()

	res, status, err := c.pn.HistoryWithContext(ctx).
		Channel(c.activityChannel).
		Count(count).
		Execute()
	if err != nil {
		return nil, errors.Wrapf(err, "fetching history of %s (status %d)", c.activityChannel, status.StatusCode)
	}
	if res == nil {
		return nil, nil
	}

	// history is returned oldest first
	states := make([]snooapi.ActivityState, 0, len(res.Messages))
	for i := len(res.Messages) - 1; i >= 0; i-- {
		state, err := snooapi.ActivityStateFromMessage(res.Messages[i].Message)
		if err != nil {
			logging.Logger(ctx).WithError(err).Warnf("ignoring history item with timetoken %d", res.Messages[i].Timetoken)
			continue
		}
		states = append(states, *state)
	}

	return states, nil
}

func (c *Live) AddListener(h ActivityHandler) ListenerID {
	ll := &liveListener{
		listener: pubnub.NewListener(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = ll
	c.mu.Unlock()

	go c.listen(id, ll, h)
	c.pn.AddListener(ll.listener)

	return id
}

func (c *Live) listen(id ListenerID, ll *liveListener, h ActivityHandler) {
	defer close(ll.finished)

	for {
		select {
		case <-ll.done:
			return

		case status := <-ll.listener.Status:
			if status != nil {
				logging.Logger(nil).Debugf("listener %d: channel status %v (error: %v)", id, status.Category, status.Error)
			}

		case <-ll.listener.Presence:

		case msg := <-ll.listener.Message:
			if msg == nil || msg.Channel != c.activityChannel {
				continue
			}

			state, err := snooapi.ActivityStateFromMessage(msg.Message)
			if err != nil {
				logging.Logger(nil).WithError(err).Warnf("listener %d: ignoring message with timetoken %d", id, msg.Timetoken)
				continue
			}

			if c.logMessages {
				logging.Logger(nil).Debugf("listener %d: got %+v", id, *state)
			}

			h(*state)
		}
	}
}

func (c *Live) RemoveListener(id ListenerID) {
	c.mu.Lock()
	ll, ok := c.listeners[id]
	delete(c.listeners, id)
	c.mu.Unlock()

	if !ok {
		return
	}

	c.pn.RemoveListener(ll.listener)
	close(ll.done)
	<-ll.finished
}

func (c *Live) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		ids := make([]ListenerID, 0, len(c.listeners))
		for id := range c.listeners {
			ids = append(ids, id)
		}
		c.mu.Unlock()

		for _, id := range ids {
			c.RemoveListener(id)
		}

		c.pn.UnsubscribeAll()
		c.pn.Destroy()
		logging.Logger(nil).Debugf("realtime session for %s stopped", c.serial)
	})

	return nil
}
