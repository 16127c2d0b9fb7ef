package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/config"
	"github.com/jake-scott/snoo-buttons/internal/pkg/hardware"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/session"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooauth"
	"github.com/jake-scott/snoo-buttons/internal/pkg/statemachine"
	"github.com/jake-scott/snoo-buttons/internal/pkg/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the button daemon (the default)",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRun(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newProvider(settings *config.Settings, tokenMu *sync.Mutex) *session.Provider {
	auth := snooauth.NewLiveAuthenticator().WithTimeout(settings.APITimeout)

	return session.NewProvider(
		snooauth.NewFileStore(settings.TokenFile),
		snooauth.CredentialsFromFile(settings.CredentialFile),
		auth,
		tokenMu,
	).WithTimeout(settings.APITimeout)
}

type buttonBinding struct {
	name string
	pin  int
	cmd  command.Command
}

// boundButton is a button and the command a press sends
type boundButton struct {
	button hardware.Button
	cmd    command.Command
}

// openHardware returns the lock LED and the buttons.  Without GPIO the LED
// is simulated and there are no buttons.
func openHardware(settings *config.Settings) (hardware.LED, []boundButton, error) {
	if !settings.GPIOEnabled {
		logging.Logger(nil).Warn("GPIO disabled, commands can only be sent over HTTP")
		return &hardware.MemoryLED{}, nil, nil
	}

	if err := hardware.InitHost(); err != nil {
		return nil, nil, err
	}

	led, err := hardware.OpenLED(settings.LEDPin)
	if err != nil {
		return nil, nil, err
	}

	bindings := []buttonBinding{
		{"up", settings.UpPin, command.UpLevel{}},
		{"down", settings.DownPin, command.DownLevel{}},
		{"lock", settings.LockPin, command.Lock{}},
		{"toggle", settings.TogglePin, command.Toggle{}},
	}

	buttons := make([]boundButton, 0, len(bindings))
	for _, b := range bindings {
		button, err := hardware.OpenButton(b.name, b.pin, settings.ButtonDebounce)
		if err != nil {
			return nil, nil, err
		}
		buttons = append(buttons, boundButton{button: button, cmd: b.cmd})
	}

	return led, buttons, nil
}

func doRun() error {
	v := viper.GetViper()

	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	led, buttons, err := openHardware(settings)
	if err != nil {
		return err
	}

	queue := command.NewQueue(command.DefaultQueueSize)
	wctx := worker.NewContext(queue, led, settings.Policy)
	if v.ConfigFileUsed() != "" {
		config.Watch(v, wctx.SetPolicy)
	}

	w := worker.New(wctx, newProvider(settings, &wctx.TokenMu), worker.Options{
		SessionTTL:     settings.SessionTTL,
		PollInterval:   settings.PollInterval,
		ReconnectDelay: settings.ReconnectDelay,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		logging.Logger(nil).Infof("caught %s, shutting down", sig)
		cancel()
	}()

	var wg sync.WaitGroup
	for _, b := range buttons {
		b := b

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.button.Run(ctx, func() { queue.Enqueue(b.cmd) }); err != nil {
				logging.Logger(nil).WithError(err).Errorf("%s button stopped", b.button.Name())
			}
		}()
	}

	if settings.HTTPListen != "" {
		srv := startServer(settings, queue, w.Status)
		defer stopServer(srv)
	}

	logging.Logger(nil).Infof("snoo-buttons started (policy: hold on start %t, force lock %t, max level %s)",
		settings.Policy.HoldOnStart, settings.Policy.ForceLock, maxLevelString(settings))

	err = w.Run(ctx)

	cancel()
	wg.Wait()
	hardware.SetLED(led, false)

	logging.Logger(nil).Info("exiting")
	return err
}

func maxLevelString(settings *config.Settings) string {
	if settings.Policy.MaxLevel == nil {
		return "unset"
	}

	level, err := statemachine.NewOrdering(false).LevelForInt(*settings.Policy.MaxLevel)
	if err != nil {
		return err.Error()
	}
	return level.String()
}
