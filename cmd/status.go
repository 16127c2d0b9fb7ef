package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/snoo-buttons/internal/pkg/config"
	"github.com/jake-scott/snoo-buttons/internal/pkg/session"
	"github.com/jake-scott/snoo-buttons/internal/pkg/snooapi"
)

var _statusTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the Snoo",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doStatus(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().DurationVar(&_statusTimeout, "timeout", time.Second*30, "give up after this long, eg. 1m or 10s")

	rootCmd.AddCommand(statusCmd)
}

func doStatus() error {
	v := viper.GetViper()

	// no buttons needed to look
	v.Set(config.KeyGPIOEnabled, false)

	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), _statusTimeout)
	defer cancel()

	var tokenMu sync.Mutex
	return newProvider(settings, &tokenMu).WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		printStatus(s)
		return nil
	})
}

func printStatus(s *session.Session) {
	label := color.New(color.Bold).SprintFunc()
	value := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("%s %s (firmware %s)\n", label("Device:"), value(s.Serial()), s.Device.FirmwareVersion)
	fmt.Printf("%s %t\n", label("Weaning:"), s.Ordering.Weaning())

	a := s.Initial
	if a == nil {
		color.Yellow("No activity history")
		return
	}

	sm := a.StateMachine
	level := value(sm.State)
	if sm.State.IsActive() {
		level = color.GreenString("%s", sm.State)
	}

	hold := color.New(color.FgYellow).Sprint("unlocked")
	if sm.Hold {
		hold = color.New(color.FgGreen).Sprint("locked")
	}

	fmt.Printf("%s %s (%s)\n", label("Level:"), level, hold)
	fmt.Printf("%s up %s, down %s\n", label("Transitions:"), transition(sm.UpTransition), transition(sm.DownTransition))
	if sm.IsActiveSession {
		fmt.Printf("%s %s into the session\n", label("Session:"), sm.SinceSessionStart.Round(time.Second))
	}
	if !a.EventTime.IsZero() {
		fmt.Printf("%s %s at %s\n", label("Last event:"), a.Event, a.EventTime.Local().Format(time.RFC1123))
	}
}

func transition(l snooapi.Level) string {
	if !l.IsActive() {
		return color.New(color.Faint).Sprint(l)
	}
	return l.String()
}
