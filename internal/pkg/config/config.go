package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration keys.  Viper matches them case insensitively against the
// config file and the upper case environment variables.
const (
	KeyCredentialFile  = "credential_filename"
	KeyTokenFile       = "token_filename"
	KeyUpPin           = "up_button_gpio_pin"
	KeyDownPin         = "down_button_gpio_pin"
	KeyLockPin         = "lock_button_gpio_pin"
	KeyTogglePin       = "toggle_button_gpio_pin"
	KeyLEDPin          = "lock_led_gpio_pin"
	KeyHoldOnStart     = "hold_on_start"
	KeyMaxSessionLevel = "max_session_level"
	KeyForceLock       = "force_lock"
	KeyGPIOEnabled     = "gpio_enabled"
	KeySessionTTL      = "session_ttl"
	KeyPollInterval    = "poll_interval"
	KeyReconnectDelay  = "reconnect_delay"
	KeyAPITimeout      = "api_timeout"
	KeyButtonDebounce  = "button_debounce"
	KeyHTTPListen      = "http_listen"
	KeyCORSOrigins     = "http_cors_origins"
)

// Settings is the validated daemon configuration
type Settings struct {
	CredentialFile string
	TokenFile      string

	GPIOEnabled    bool
	UpPin          int
	DownPin        int
	LockPin        int
	TogglePin      int
	LEDPin         int
	ButtonDebounce time.Duration

	Policy statemachine.Policy

	SessionTTL     time.Duration
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	APITimeout     time.Duration

	HTTPListen  string
	CORSOrigins []string
}

// SetDefaults registers the default value of every optional key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCredentialFile, "credentials.json")
	v.SetDefault(KeyTokenFile, "token.json")
	v.SetDefault(KeyHoldOnStart, false)
	v.SetDefault(KeyForceLock, false)
	v.SetDefault(KeyGPIOEnabled, true)
	v.SetDefault(KeySessionTTL, 20*time.Minute)
	v.SetDefault(KeyPollInterval, 250*time.Millisecond)
	v.SetDefault(KeyReconnectDelay, 5*time.Second)
	v.SetDefault(KeyAPITimeout, 15*time.Second)
	v.SetDefault(KeyButtonDebounce, 200*time.Millisecond)
	v.SetDefault(KeyHTTPListen, "")
	v.SetDefault(KeyCORSOrigins, "")
}

// Load reads and validates the settings
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		CredentialFile: ResolvePath(v, v.GetString(KeyCredentialFile)),
		TokenFile:      ResolvePath(v, v.GetString(KeyTokenFile)),
		HTTPListen:     v.GetString(KeyHTTPListen),
		CORSOrigins:    splitList(v.GetString(KeyCORSOrigins)),
	}

	var err error
	if s.GPIOEnabled, err = getBool(v, KeyGPIOEnabled, true); err != nil {
		return nil, badValue(KeyGPIOEnabled, err)
	}

	if s.GPIOEnabled {
		pins := []struct {
			key string
			dst *int
		}{
			{KeyUpPin, &s.UpPin},
			{KeyDownPin, &s.DownPin},
			{KeyLockPin, &s.LockPin},
			{KeyTogglePin, &s.TogglePin},
			{KeyLEDPin, &s.LEDPin},
		}

		for _, p := range pins {
			if !v.IsSet(p.key) {
				return nil, fmt.Errorf("required config item `%s` not set", strings.ToUpper(p.key))
			}
			if *p.dst, err = cast.ToIntE(v.Get(p.key)); err != nil || *p.dst < 0 {
				return nil, badValue(p.key, err)
			}
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{KeySessionTTL, &s.SessionTTL},
		{KeyPollInterval, &s.PollInterval},
		{KeyReconnectDelay, &s.ReconnectDelay},
		{KeyAPITimeout, &s.APITimeout},
		{KeyButtonDebounce, &s.ButtonDebounce},
	}

	for _, d := range durations {
		if *d.dst, err = getDuration(v, d.key); err != nil || *d.dst < 0 {
			return nil, badValue(d.key, err)
		}
	}

	if s.Policy, err = LoadPolicy(v); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadPolicy reads the keys that shape state transitions
func LoadPolicy(v *viper.Viper) (statemachine.Policy, error) {
	p := statemachine.Policy{}

	var err error
	if p.HoldOnStart, err = getBool(v, KeyHoldOnStart, false); err != nil {
		return p, badValue(KeyHoldOnStart, err)
	}
	if p.ForceLock, err = getBool(v, KeyForceLock, false); err != nil {
		return p, badValue(KeyForceLock, err)
	}

	raw := v.Get(KeyMaxSessionLevel)
	if raw == nil || cast.ToString(raw) == "" {
		return p, nil
	}

	level, err := cast.ToIntE(raw)
	if err != nil {
		return p, badValue(KeyMaxSessionLevel, err)
	}
	if level < 0 || level > statemachine.MaxRank {
		return p, badValue(KeyMaxSessionLevel, fmt.Errorf("%d is not between 0 and %d", level, statemachine.MaxRank))
	}
	p.MaxLevel = &level

	return p, nil
}

// Watch calls onChange with the new policy whenever the config file changes.
// Other settings need a restart.
func Watch(v *viper.Viper, onChange func(statemachine.Policy)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		p, err := LoadPolicy(v)
		if err != nil {
			logging.Logger(nil).WithError(err).Warnf("ignoring changes to %s", e.Name)
			return
		}

		logging.Logger(nil).Infof("reloaded policy from %s", e.Name)
		onChange(p)
	})

	v.WatchConfig()
}

// ResolvePath expands ~ and makes relative paths relative to the directory
// holding the config file
func ResolvePath(v *viper.Viper, name string) string {
	if name == "" {
		return name
	}

	if expanded, err := homedir.Expand(name); err == nil {
		name = expanded
	}

	if filepath.IsAbs(name) {
		return name
	}

	if used := v.ConfigFileUsed(); used != "" {
		return filepath.Join(filepath.Dir(used), name)
	}

	return name
}

// getBool treats an empty value as unset
func getBool(v *viper.Viper, key string, def bool) (bool, error) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return def, nil
	}

	return cast.ToBoolE(raw)
}

// getDuration rejects bare numbers, which cast would read as nanoseconds
func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.Get(key)
	if _, ok := raw.(time.Duration); !ok {
		s := strings.TrimSpace(cast.ToString(raw))
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return 0, fmt.Errorf("%s has no unit, eg. %ss or %sm", s, s, s)
		}
	}

	return cast.ToDurationE(raw)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func badValue(key string, err error) error {
	if err == nil {
		err = errors.New("must not be negative")
	}
	return errors.Wrapf(err, "bad value for `%s`", strings.ToUpper(key))
}
