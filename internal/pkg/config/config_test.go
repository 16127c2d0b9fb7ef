package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const pins = `
UP_BUTTON_GPIO_PIN=17
DOWN_BUTTON_GPIO_PIN=27
LOCK_BUTTON_GPIO_PIN=22
TOGGLE_BUTTON_GPIO_PIN=23
LOCK_LED_GPIO_PIN=24
`

func newViper(t *testing.T, env string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("env")
	require.NoError(t, v.ReadConfig(strings.NewReader(env)))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	v := newViper(t, pins)

	s, err := Load(v)
	require.NoError(t, err)

	require.True(t, s.GPIOEnabled)
	require.Equal(t, 17, s.UpPin)
	require.Equal(t, 27, s.DownPin)
	require.Equal(t, 22, s.LockPin)
	require.Equal(t, 23, s.TogglePin)
	require.Equal(t, 24, s.LEDPin)

	require.Equal(t, "credentials.json", s.CredentialFile)
	require.Equal(t, "token.json", s.TokenFile)
	require.Equal(t, 20*time.Minute, s.SessionTTL)
	require.Equal(t, 250*time.Millisecond, s.PollInterval)
	require.Equal(t, 5*time.Second, s.ReconnectDelay)
	require.Equal(t, 200*time.Millisecond, s.ButtonDebounce)
	require.Empty(t, s.HTTPListen)
	require.Empty(t, s.CORSOrigins)

	require.Equal(t, statemachine.Policy{}, s.Policy)
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper(t, pins+`
HOLD_ON_START=true
FORCE_LOCK=1
MAX_SESSION_LEVEL=2
SESSION_TTL=5m
HTTP_LISTEN=:8080
HTTP_CORS_ORIGINS=http://a.example, http://b.example
`)

	s, err := Load(v)
	require.NoError(t, err)

	require.True(t, s.Policy.HoldOnStart)
	require.True(t, s.Policy.ForceLock)
	require.NotNil(t, s.Policy.MaxLevel)
	require.Equal(t, 2, *s.Policy.MaxLevel)
	require.Equal(t, 5*time.Minute, s.SessionTTL)
	require.Equal(t, ":8080", s.HTTPListen)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, s.CORSOrigins)
}

func TestLoad_MissingPin(t *testing.T) {
	v := newViper(t, "UP_BUTTON_GPIO_PIN=17\n")

	_, err := Load(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DOWN_BUTTON_GPIO_PIN")
}

func TestLoad_BadPin(t *testing.T) {
	v := newViper(t, strings.Replace(pins, "=17", "=seventeen", 1))

	_, err := Load(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "UP_BUTTON_GPIO_PIN")
}

func TestLoad_NoPinsWithoutGPIO(t *testing.T) {
	v := newViper(t, "GPIO_ENABLED=false\n")

	s, err := Load(v)
	require.NoError(t, err)
	require.False(t, s.GPIOEnabled)
}

func TestLoad_BadDuration(t *testing.T) {
	v := newViper(t, pins+"POLL_INTERVAL=often\n")

	_, err := Load(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_DurationNeedsUnit(t *testing.T) {
	for _, value := range []string{"1200", "0.5", " 30 "} {
		t.Run(value, func(t *testing.T) {
			v := newViper(t, pins+"SESSION_TTL="+value+"\n")

			_, err := Load(v)
			require.Error(t, err)
			require.Contains(t, err.Error(), "SESSION_TTL")
			require.Contains(t, err.Error(), "no unit")
		})
	}

	v := newViper(t, pins+"SESSION_TTL=1200s\n")
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 20*time.Minute, s.SessionTTL)

	// values set in code keep their type
	v.Set(KeySessionTTL, 90*time.Second)
	s, err = Load(v)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, s.SessionTTL)
}

func TestLoadPolicy_EmptyValuesUseDefaults(t *testing.T) {
	v := newViper(t, "HOLD_ON_START=\nFORCE_LOCK=\nMAX_SESSION_LEVEL=\n")

	p, err := LoadPolicy(v)
	require.NoError(t, err)
	require.Equal(t, statemachine.Policy{}, p)
}

func TestLoadPolicy_MaxLevelRange(t *testing.T) {
	for _, tc := range []struct {
		value string
		ok    bool
	}{
		{"0", true},
		{"4", true},
		{"5", false},
		{"-1", false},
		{"high", false},
	} {
		t.Run(tc.value, func(t *testing.T) {
			v := newViper(t, "MAX_SESSION_LEVEL="+tc.value+"\n")

			p, err := LoadPolicy(v)
			if !tc.ok {
				require.Error(t, err)
				require.Contains(t, err.Error(), "MAX_SESSION_LEVEL")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, p.MaxLevel)
		})
	}
}

func TestLoadPolicy_BadBool(t *testing.T) {
	v := newViper(t, "FORCE_LOCK=maybe\n")

	_, err := LoadPolicy(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "FORCE_LOCK")
}

func TestResolvePath(t *testing.T) {
	dir, err := ioutil.TempDir("", "snoo-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfgFile := filepath.Join(dir, "snoo.env")
	require.NoError(t, ioutil.WriteFile(cfgFile, []byte(pins), 0600))

	v := viper.New()
	v.SetConfigFile(cfgFile)
	require.NoError(t, v.ReadInConfig())

	require.Equal(t, filepath.Join(dir, "token.json"), ResolvePath(v, "token.json"))
	require.Equal(t, "/var/lib/snoo/token.json", ResolvePath(v, "/var/lib/snoo/token.json"))
	require.Equal(t, "", ResolvePath(v, ""))

	// without a config file relative paths are left alone
	require.Equal(t, "token.json", ResolvePath(viper.New(), "token.json"))
}

func TestWatch(t *testing.T) {
	dir, err := ioutil.TempDir("", "snoo-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfgFile := filepath.Join(dir, "snoo.env")
	require.NoError(t, ioutil.WriteFile(cfgFile, []byte("FORCE_LOCK=false\n"), 0600))

	v := viper.New()
	v.SetConfigFile(cfgFile)
	require.NoError(t, v.ReadInConfig())

	changes := make(chan statemachine.Policy, 10)
	Watch(v, func(p statemachine.Policy) { changes <- p })

	// watching starts asynchronously
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, ioutil.WriteFile(cfgFile, []byte("FORCE_LOCK=true\n"), 0600))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-changes:
			if p.ForceLock {
				return
			}
		case <-timeout:
			t.Fatal("no policy change seen")
		}
	}
}
