package session

import (
	"context"
	"sync"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/pubnubapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooauth"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNoDevices is returned when the account has no paired device
var ErrNoDevices = errors.New("no Snoo devices paired with the account")

const deviceListAttempts = 3

// APIFactory builds a cloud API client authenticated by ts
type APIFactory func(ts oauth2.TokenSource) snooapi.Snoo

// PubSubFactory opens the realtime channel for a device
type PubSubFactory func(accessToken string, serial string) pubnubapi.PubSub

// Provider opens sessions: it takes care of the stored token, logging in,
// device discovery and the realtime channel
type Provider struct {
	store     snooauth.TokenStore
	creds     snooauth.CredentialsFunc
	auth      snooauth.Authenticator
	tokenMu   *sync.Mutex
	newAPI    APIFactory
	newPubSub PubSubFactory
	timeout   time.Duration
	now       func() time.Time
}

// NewProvider returns a provider talking to the vendor cloud.  tokenMu
// guards token refresh and persistence and should be shared by everything
// that opens sessions.
func NewProvider(store snooauth.TokenStore, creds snooauth.CredentialsFunc, auth snooauth.Authenticator, tokenMu *sync.Mutex) *Provider {
	p := &Provider{
		store:   store,
		creds:   creds,
		auth:    auth,
		tokenMu: tokenMu,
		now:     time.Now,
		newAPI: func(ts oauth2.TokenSource) snooapi.Snoo {
			return snooapi.NewLiveClient(ts)
		},
	}

	p.newPubSub = func(accessToken string, serial string) pubnubapi.PubSub {
		live := pubnubapi.NewLiveClient(accessToken, serial).WithTimeout(p.timeout)
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			live = live.WithLogMessages()
		}
		return live
	}

	return p
}

func (p *Provider) WithTimeout(d time.Duration) *Provider {
	p.timeout = d
	return p
}

func (p *Provider) WithAPI(f APIFactory) *Provider {
	p.newAPI = f
	return p
}

func (p *Provider) WithPubSub(f PubSubFactory) *Provider {
	p.newPubSub = f
	return p
}

func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// WithSession opens a session, runs fn with it and closes it again.  The
// realtime channel is stopped on every return path once it has been opened.
func (p *Provider) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	t, err := p.token(ctx)
	if err != nil {
		return err
	}

	ts := snooauth.NewNotifyingTokenSource(p.tokenMu, p.auth.TokenSource(ctx, t), t, p.store.Save)
	api := p.newAPI(ts).WithTimeout(p.timeout)

	devices, err := p.devices(ctx, api)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return ErrNoDevices
	}

	device := devices[0]
	if len(devices) > 1 {
		logging.Logger(ctx).Warnf("%d devices found, using %s", len(devices), device.SerialNumber)
	}

	current, err := ts.Token()
	if err != nil {
		return err
	}

	pubsub := p.newPubSub(current.AccessToken, device.SerialNumber)
	defer func() {
		if err := pubsub.Stop(); err != nil {
			logging.Logger(ctx).WithError(err).Warn("stopping realtime session")
		}
	}()

	if err := pubsub.Subscribe(); err != nil {
		return errors.Wrapf(err, "subscribing to %s", device.SerialNumber)
	}

	s := New(device, statemachine.NewOrdering(p.weaning(ctx, api, device)), pubsub)

	s.Initial, err = s.LatestActivity(ctx)
	if err != nil {
		return err
	}

	logging.Logger(ctx).Infof("session open for device %s (firmware %s, weaning %t)",
		device.SerialNumber, device.FirmwareVersion, s.Ordering.Weaning())

	return fn(ctx, s)
}

// token returns a usable token, from the store if possible and otherwise by
// logging in with the account credentials
func (p *Provider) token(ctx context.Context) (*snooauth.Token, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	t, err := p.store.Load()
	switch {
	case err != nil:
		logging.Logger(ctx).WithError(err).Warn("discarding unreadable token")
		t = nil
	case t != nil && !t.Usable(p.now()):
		logging.Logger(ctx).Infof("discarding expired token (expired %s)", t.Expiry())
		t = nil
	}

	if t != nil {
		logging.Logger(ctx).Debugf("using stored token: %s", t)
		return t, nil
	}

	if err := p.store.Delete(); err != nil {
		return nil, err
	}

	creds, err := p.creds()
	if err != nil {
		return nil, errors.Wrap(err, "loading credentials")
	}

	logging.Logger(ctx).Infof("logging in as %s", creds.Username)
	t, err = p.auth.PasswordToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := p.store.Save(t); err != nil {
		logging.Logger(ctx).WithError(err).Warn("persisting new token")
	}

	return t, nil
}

func (p *Provider) devices(ctx context.Context, api snooapi.Snoo) ([]snooapi.Device, error) {
	var err error
	for attempt := 1; attempt <= deviceListAttempts; attempt++ {
		var devices []snooapi.Device
		devices, err = api.Devices(ctx)
		if err == nil {
			return devices, nil
		}

		logging.Logger(ctx).WithError(err).Warnf("device list attempt %d/%d failed", attempt, deviceListAttempts)
	}

	return nil, errors.Wrapf(err, "listing devices after %d attempts", deviceListAttempts)
}

func (p *Provider) weaning(ctx context.Context, api snooapi.Snoo, device snooapi.Device) bool {
	settings, err := api.BabySettings(ctx, device.Baby)
	if err != nil {
		logging.Logger(ctx).WithError(err).Warn("reading baby settings, assuming not weaning")
		return false
	}

	return settings.Weaning
}
