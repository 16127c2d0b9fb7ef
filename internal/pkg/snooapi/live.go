package snooapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://snoo-api.happiestbaby.com"

	devicesEndpoint = "/me/devices"
	babyEndpoint    = "/us/v3/babies/"
)

type Live struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewLiveClient returns a Snoo cloud API client that authenticates every
// request with tokens from ts
func NewLiveClient(ts oauth2.TokenSource) *Live {
	return &Live{
		baseURL: DefaultBaseURL,
		client:  oauth2.NewClient(context.Background(), ts),
	}
}

func (c *Live) WithTimeout(d time.Duration) Snoo {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) WithBaseURL(u string) *Live {
	nc := *c
	nc.baseURL = strings.TrimRight(u, "/")
	return &nc
}

func (c *Live) MakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc = func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	return ctx, cancel
}

func (c *Live) get(ctx context.Context, endpoint string, dst interface{}) error {
	ctx, cancel := c.MakeContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")

	logging.Logger(ctx).Debugf("Sending request to Snoo URL [%s]", req.URL)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "executing GET %s", endpoint)
	}
	defer resp.Body.Close()

	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("non-200 code from Snoo URL %s: %d (%s): %s", endpoint, resp.StatusCode, resp.Status, bodyBytes)
	}

	logging.Logger(ctx).Debugf("Snoo response: %s", bodyBytes)

	if err := json.Unmarshal(bodyBytes, dst); err != nil {
		return errors.Wrapf(err, "decoding response from %s", endpoint)
	}

	return nil
}

func (c *Live) Devices(ctx context.Context) ([]Device, error) {
	resp := struct {
		Snoo []Device `json:"snoo"`
	}{}

	if err := c.get(ctx, devicesEndpoint, &resp); err != nil {
		return nil, errors.Wrap(err, "listing devices")
	}

	return resp.Snoo, nil
}

func (c *Live) BabySettings(ctx context.Context, babyID string) (*BabySettings, error) {
	if babyID == "" {
		return nil, errors.New("device has no baby profile")
	}

	resp := struct {
		Settings BabySettings `json:"settings"`
	}{}

	if err := c.get(ctx, babyEndpoint+babyID, &resp); err != nil {
		return nil, errors.Wrap(err, "fetching baby settings")
	}

	return &resp.Settings, nil
}
