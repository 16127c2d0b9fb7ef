package snooauth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultClientID = "snoo_ios"
	DefaultLoginURL = "https://snoo-api.happiestbaby.com/us/login"
	// DefaultRefreshURL is the token endpoint used for refresh grants
	DefaultRefreshURL = "https://snoo-api.happiestbaby.com/us/v2/refresh/"
)

// AuthError is returned when the account credentials are rejected
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "authenticating: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticator obtains and refreshes vendor tokens
type Authenticator interface {
	// PasswordToken logs in with the account credentials
	PasswordToken(ctx context.Context, creds Credentials) (*Token, error)

	// TokenSource returns a source that refreshes t when it expires
	TokenSource(ctx context.Context, t *Token) oauth2.TokenSource
}

type Live struct {
	login   oauth2.Config
	refresh oauth2.Config
	timeout time.Duration
}

func NewLiveAuthenticator() *Live {
	return &Live{
		login: oauth2.Config{
			ClientID: DefaultClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  DefaultLoginURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refresh: oauth2.Config{
			ClientID: DefaultClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  DefaultRefreshURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

func (a *Live) WithTimeout(d time.Duration) *Live {
	na := *a
	na.timeout = d
	return &na
}

func (a *Live) WithEndpoints(loginURL, refreshURL string) *Live {
	na := *a
	na.login.Endpoint.TokenURL = loginURL
	na.refresh.Endpoint.TokenURL = refreshURL
	return &na
}

func (a *Live) httpContext(ctx context.Context) context.Context {
	if a.timeout > 0 {
		return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: a.timeout})
	}
	return ctx
}

func (a *Live) PasswordToken(ctx context.Context, creds Credentials) (*Token, error) {
	logging.Logger(ctx).Debugf("Sending password grant to Snoo URL [%s] for %s", a.login.Endpoint.TokenURL, creds.Username)

	o, err := a.login.PasswordCredentialsToken(a.httpContext(ctx), creds.Username, creds.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return nil, &AuthError{Err: err}
		}
		return nil, errors.Wrap(err, "executing password grant")
	}

	return FromOAuth2(o, nil), nil
}

func (a *Live) TokenSource(ctx context.Context, t *Token) oauth2.TokenSource {
	return a.refresh.TokenSource(a.httpContext(ctx), t.OAuth2())
}

// NotifyingTokenSource wraps a refreshing token source and calls onRefresh
// with every new token it hands out, including refreshes that happen
// transparently inside an oauth2 transport.  The refresh and the callback
// run under mu.
type NotifyingTokenSource struct {
	mu        *sync.Mutex
	base      oauth2.TokenSource
	current   *Token
	onRefresh func(*Token) error
}

func NewNotifyingTokenSource(mu *sync.Mutex, base oauth2.TokenSource, current *Token, onRefresh func(*Token) error) *NotifyingTokenSource {
	return &NotifyingTokenSource{
		mu:        mu,
		base:      oauth2.ReuseTokenSource(current.OAuth2(), base),
		current:   current,
		onRefresh: onRefresh,
	}
}

func (s *NotifyingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.base.Token()
	if err != nil {
		return nil, errors.Wrap(err, "refreshing access token")
	}

	if o.AccessToken != s.current.AccessToken {
		t := FromOAuth2(o, s.current)
		s.current = t

		logging.Logger(nil).Info("access token refreshed")
		if err := s.onRefresh(t); err != nil {
			logging.Logger(nil).WithError(err).Warn("persisting refreshed token")
		}
	}

	return o, nil
}

// Current returns the most recent token
func (s *NotifyingTokenSource) Current() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}
