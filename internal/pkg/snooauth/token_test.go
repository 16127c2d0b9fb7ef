package snooauth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const tokenJSON = `{
  "access_token": "access-1",
  "refresh_token": "refresh-1",
  "token_type": "Bearer",
  "expires_in": 10800,
  "expires_at": 1625177232.5,
  "scope": ["offline_access"],
  "userId": "u-123"
}`

func TestToken_UnmarshalKeepsExtras(t *testing.T) {
	tok := Token{}
	require.NoError(t, json.Unmarshal([]byte(tokenJSON), &tok))

	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
	require.Equal(t, int64(10800), tok.ExpiresIn)
	require.Equal(t, time.Unix(1625177232, 500000000), tok.Expiry())

	data, err := json.Marshal(tok)
	require.NoError(t, err)
	require.JSONEq(t, tokenJSON, string(data))
}

func TestToken_UnmarshalBadExpiry(t *testing.T) {
	tok := Token{}
	require.Error(t, json.Unmarshal([]byte(`{"access_token": "a", "expires_at": "tomorrow"}`), &tok))
}

func TestToken_Valid(t *testing.T) {
	now := time.Unix(1000, 0)

	require.True(t, Token{AccessToken: "a", ExpiresAt: 2000}.Valid(now, time.Minute))
	require.False(t, Token{AccessToken: "a", ExpiresAt: 1030}.Valid(now, time.Minute))
	require.False(t, Token{AccessToken: "a", ExpiresAt: 500}.Valid(now, 0))
	require.False(t, Token{AccessToken: "a"}.Valid(now, 0))
	require.False(t, Token{ExpiresAt: 2000}.Valid(now, 0))

	require.True(t, Token{AccessToken: "a", ExpiresAt: 2000}.Usable(now))
	require.False(t, Token{AccessToken: "a", ExpiresAt: 1010}.Usable(now))
}

func TestToken_StringHidesSecrets(t *testing.T) {
	s := Token{AccessToken: "secret-access", RefreshToken: "secret-refresh"}.String()
	require.NotContains(t, s, "secret-access")
	require.NotContains(t, s, "secret-refresh")
}

func TestFromOAuth2(t *testing.T) {
	prev := &Token{RefreshToken: "refresh-0"}
	require.NoError(t, json.Unmarshal([]byte(tokenJSON), prev))

	expiry := time.Unix(5000, 0)
	o := (&oauth2.Token{AccessToken: "access-2", Expiry: expiry}).WithExtra(map[string]interface{}{"expires_in": float64(60)})

	tok := FromOAuth2(o, prev)
	require.Equal(t, "access-2", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
	require.Equal(t, int64(60), tok.ExpiresIn)
	require.Equal(t, expiry, tok.Expiry())

	data, err := json.Marshal(tok)
	require.NoError(t, err)
	require.Contains(t, string(data), `"userId":"u-123"`)
}

func TestFileStore(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	tok, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, tok)

	require.NoError(t, store.Save(&Token{AccessToken: "a", ExpiresAt: 1234}))

	info, err := os.Stat(store.FileName())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "a", tok.AccessToken)
	require.Equal(t, float64(1234), tok.ExpiresAt)

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete())

	_, err = os.Stat(store.FileName())
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_Corrupt(t *testing.T) {
	name := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(name, []byte("{"), 0600))

	_, err := NewFileStore(name).Load()
	require.Error(t, err)
}
