package hardware

import (
	"sync"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
)

// SetLED switches led on or off, logging any failure
func SetLED(led LED, on bool) {
	var err error
	if on {
		err = led.On()
	} else {
		err = led.Off()
	}

	if err != nil {
		logging.Logger(nil).WithError(err).Warnf("setting LED to %t", on)
	}
}

// MemoryLED stands in for the lock LED when GPIO is disabled
type MemoryLED struct {
	mu      sync.Mutex
	on      bool
	changes int
}

func (l *MemoryLED) On() error {
	l.set(true)
	return nil
}

func (l *MemoryLED) Off() error {
	l.set(false)
	return nil
}

func (l *MemoryLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.on = on
	l.changes++
}

func (l *MemoryLED) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.on
}

// Changes returns the number of times the LED has been set
func (l *MemoryLED) Changes() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.changes
}
