package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/config"
	"github.com/jake-scott/snoo-buttons/internal/pkg/handlers"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/jake-scott/snoo-buttons/internal/pkg/worker"
)

var _serverCmdOpts struct {
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	logRequests     bool
}

func init() {
	runCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for the HTTP server to finish, eg. 1m or 10s")
	runCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	runCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*15, "duration to wait for response write, eg. 1m or 10s")
	runCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log request headers (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("http_graceful_timeout", runCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("http_read_timeout", runCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("http_write_timeout", runCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("http_log_requests", runCmd.Flags().Lookup("log-requests")))
}

func startServer(settings *config.Settings, queue *command.Queue, status func() worker.Status) *http.Server {
	var logRequests bool
	if viper.GetBool("http_log_requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	s := &http.Server{
		Addr:         settings.HTTPListen,
		ReadTimeout:  viper.GetDuration("http_read_timeout"),
		WriteTimeout: viper.GetDuration("http_write_timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      handlers.NewRouter(queue, status, logRequests, settings.CORSOrigins),
	}

	logging.Logger(nil).Infof("Serving HTTP API on %s", settings.HTTPListen)
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger(nil).WithError(err).Error("running server")
		}
	}()

	return s
}

func stopServer(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("http_graceful_timeout"))
	defer cancel()

	logging.Logger(nil).Info("shutting down HTTP server")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
}
