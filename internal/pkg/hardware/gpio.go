package hardware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// how often a waiting button checks for cancellation
const edgePollInterval = 500 * time.Millisecond

// Button is a momentary push button
type Button interface {
	Name() string
	// Run calls onPress for every press until ctx is cancelled.  onPress
	// runs on the button's goroutine and must not block.
	Run(ctx context.Context, onPress func()) error
}

// LED is a single on/off indicator
type LED interface {
	On() error
	Off() error
}

var initOnce sync.Once
var initErr error

// InitHost loads the host GPIO drivers.  It is safe to call more than once.
func InitHost() error {
	initOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			initErr = errors.Wrap(err, "initialising GPIO drivers")
			return
		}

		for _, f := range state.Failed {
			logging.Logger(nil).Debugf("GPIO driver %s failed: %s", f.D, f.Err)
		}
	})

	return initErr
}

func pinByNumber(number int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(strconv.Itoa(number))
	if pin == nil {
		return nil, fmt.Errorf("no such GPIO pin %d", number)
	}

	return pin, nil
}

// GPIOButton is a button wired between a GPIO pin and ground, read with the
// internal pull up so a press pulls the pin low
type GPIOButton struct {
	name     string
	pin      gpio.PinIn
	debounce time.Duration
}

// OpenButton configures the GPIO pin with the given BCM number as a button
func OpenButton(name string, number int, debounce time.Duration) (*GPIOButton, error) {
	pin, err := pinByNumber(number)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s button", name)
	}

	return NewGPIOButton(name, pin, debounce)
}

func NewGPIOButton(name string, pin gpio.PinIn, debounce time.Duration) (*GPIOButton, error) {
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "configuring %s button on %s", name, pin)
	}

	return &GPIOButton{
		name:     name,
		pin:      pin,
		debounce: debounce,
	}, nil
}

func (b *GPIOButton) Name() string {
	return b.name
}

func (b *GPIOButton) Run(ctx context.Context, onPress func()) error {
	var lastPress time.Time
	logging.Logger(ctx).Debugf("watching %s button on %s", b.name, b.pin)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !b.pin.WaitForEdge(edgePollInterval) {
			continue
		}

		if b.pin.Read() != gpio.Low {
			continue
		}

		now := time.Now()
		if !lastPress.IsZero() && now.Sub(lastPress) < b.debounce {
			continue
		}
		lastPress = now

		logging.Logger(ctx).Debugf("%s button pressed", b.name)
		onPress()
	}
}

// GPIOLED is an LED driven high by a GPIO pin
type GPIOLED struct {
	pin gpio.PinOut
}

// OpenLED configures the GPIO pin with the given BCM number as an LED,
// initially off
func OpenLED(number int) (*GPIOLED, error) {
	pin, err := pinByNumber(number)
	if err != nil {
		return nil, errors.Wrap(err, "opening LED")
	}

	return NewGPIOLED(pin)
}

func NewGPIOLED(pin gpio.PinOut) (*GPIOLED, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "configuring LED on %s", pin)
	}

	return &GPIOLED{pin: pin}, nil
}

func (l *GPIOLED) On() error {
	return l.pin.Out(gpio.High)
}

func (l *GPIOLED) Off() error {
	return l.pin.Out(gpio.Low)
}
