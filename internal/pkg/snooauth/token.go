package snooauth

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const defaultMinAccessTokenValidity = time.Second * 60

// Token is the vendor auth token as persisted in the token file.  Fields we
// don't interpret are kept and written back untouched.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    float64

	extra map[string]json.RawMessage
}

var knownTokenFields = []string{"access_token", "refresh_token", "token_type", "expires_in", "expires_at"}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// obfuscate tokens when stringified
//
func (t Token) String() string {
	return fmt.Sprintf("accessToken [%s]  refreshToken [%s]  tokenType [%s]  expiresAt [%s]",
		hashOf(t.AccessToken), hashOf(t.RefreshToken), t.TokenType, t.Expiry())
}

// Expiry returns expires_at as a time
func (t Token) Expiry() time.Time {
	if t.ExpiresAt <= 0 || math.IsNaN(t.ExpiresAt) || math.IsInf(t.ExpiresAt, 0) {
		return time.Time{}
	}

	sec, frac := math.Modf(t.ExpiresAt)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Valid reports whether the access token can still be used at `now`, with
// at least minValidity to spare.  A token without an expiry is never valid.
func (t Token) Valid(now time.Time, minValidity time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}

	expiry := t.Expiry()
	if expiry.IsZero() {
		return false
	}

	return expiry.After(now.Add(minValidity))
}

func (t Token) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(t.extra)+len(knownTokenFields))
	for k, v := range t.extra {
		m[k] = v
	}

	m["access_token"] = t.AccessToken
	m["expires_at"] = t.ExpiresAt
	if t.RefreshToken != "" {
		m["refresh_token"] = t.RefreshToken
	}
	if t.TokenType != "" {
		m["token_type"] = t.TokenType
	}
	if t.ExpiresIn != 0 {
		m["expires_in"] = t.ExpiresIn
	}

	return json.Marshal(m)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := []struct {
		name string
		dst  interface{}
	}{
		{"access_token", &t.AccessToken},
		{"refresh_token", &t.RefreshToken},
		{"token_type", &t.TokenType},
		{"expires_in", &t.ExpiresIn},
		{"expires_at", &t.ExpiresAt},
	}

	for _, f := range fields {
		v, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return errors.Wrapf(err, "parsing token field %s", f.name)
		}
		delete(raw, f.name)
	}

	t.extra = raw
	return nil
}

// OAuth2 converts the token for use with an oauth2 transport
func (t Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry(),
	}
}

// FromOAuth2 builds a Token from an oauth2 token.  Uninterpreted fields are
// carried over from prev, if given.
func FromOAuth2(o *oauth2.Token, prev *Token) *Token {
	t := &Token{
		AccessToken:  o.AccessToken,
		RefreshToken: o.RefreshToken,
		TokenType:    o.TokenType,
	}

	if !o.Expiry.IsZero() {
		t.ExpiresAt = float64(o.Expiry.UnixNano()) / 1e9
	}

	switch v := o.Extra("expires_in").(type) {
	case float64:
		t.ExpiresIn = int64(v)
	case int64:
		t.ExpiresIn = v
	}

	if prev != nil {
		t.extra = prev.extra
		if t.RefreshToken == "" {
			t.RefreshToken = prev.RefreshToken
		}
	}

	return t
}

// TokenStore persists the token between runs
type TokenStore interface {
	Load() (*Token, error)
	Save(t *Token) error
	Delete() error
}

// FileStore keeps the token as JSON in a file
type FileStore struct {
	fileName string
}

func NewFileStore(fileName string) FileStore {
	return FileStore{fileName: fileName}
}

func (s FileStore) FileName() string {
	return s.fileName
}

// Load reads the token file.  A missing file returns a nil token and no
// error.
func (s FileStore) Load() (*Token, error) {
	file, err := os.OpenFile(s.fileName, os.O_RDONLY, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening token file %s for read", s.fileName)
	}
	defer file.Close()

	t := Token{}
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&t); err != nil {
		return nil, errors.Wrapf(err, "loading token from %s", s.fileName)
	}

	return &t, nil
}

// Save overwrites the token file
func (s FileStore) Save(t *Token) error {
	file, err := os.OpenFile(s.fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "opening token file %s for write", s.fileName)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return errors.Wrapf(err, "saving token to %s", s.fileName)
	}

	logging.Logger(nil).Debugf("saved token to %s: %s", s.fileName, t)
	return nil
}

// Delete removes the token file, if it exists
func (s FileStore) Delete() error {
	if err := os.Remove(s.fileName); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing token file %s", s.fileName)
	}

	return nil
}

// Usable reports whether the token can be reused rather than replaced by a
// fresh login
func (t Token) Usable(now time.Time) bool {
	return t.Valid(now, defaultMinAccessTokenValidity)
}
