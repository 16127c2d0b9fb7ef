package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	stdlog "log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

/*
 *  Provides daemon and per-command diagnostics logging facilities
 */

// DefaultLocation is the daemon log file, relative to the working directory
const DefaultLocation = "logs/snoo-buttons.log"

type ctxID int

const (
	txnIDKey ctxID = iota
	serialKey
)

// WithTxnID returns a context which knows its transaction ID.  Each applied
// command and each HTTP request gets its own.
func WithTxnID(ctx context.Context, txnID string) context.Context {
	return context.WithValue(ctx, txnIDKey, txnID)
}

// TxnID returns the transaction ID stored in the context, if any
func TxnID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	txnID, ok := ctx.Value(txnIDKey).(string)
	return txnID, ok
}

// WithSerial returns a context which knows the serial number of the device
// its session talks to
func WithSerial(ctx context.Context, serial string) context.Context {
	return context.WithValue(ctx, serialKey, serial)
}

type logger struct {
	logger *logrus.Entry
	output io.Closer
}

// The one singleton logger
var gLogger logger
var gInstanceID string

// Logger returns the global logger, tagged with the transaction ID and
// device serial held by ctx
func Logger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return gLogger.logger
	}

	fields := logrus.Fields{}
	if txnID, ok := TxnID(ctx); ok {
		fields["txnid"] = txnID
	}
	if serial, ok := ctx.Value(serialKey).(string); ok {
		fields["serial"] = serial
	}

	if len(fields) == 0 {
		return gLogger.logger
	}
	return gLogger.logger.WithFields(fields)
}

func init() {
	// Viper defaults
	viper.SetDefault("log_location", DefaultLocation)
	viper.SetDefault("log_format", "semicolon")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_max_bytes", defaultMaxBytes)
	viper.SetDefault("log_backups", 1)

	// The app instantiation ID
	gInstanceID = uuid.New().String()

	gLogger.logger = logrus.WithFields(logrus.Fields{
		"pid":      os.Getpid(),
		"exe":      path.Base(os.Args[0]),
		"instance": gInstanceID,
	})
}

// Configure sets the log level and output location/format
func Configure(cfg *viper.Viper) error {
	// Configure system log location
	switch loc := cfg.GetString("log_location"); loc {
	case "stdout":
		logrus.SetOutput(os.Stdout)
		gLogger.logger = logrus.WithFields(logrus.Fields{})
	case "stderr":
		logrus.SetOutput(os.Stderr)
		gLogger.logger = logrus.WithFields(logrus.Fields{})
	default:
		file, err := NewRotatingFile(loc, cfg.GetInt64("log_max_bytes"), cfg.GetInt("log_backups"))
		if err != nil {
			return err
		}

		gLogger.logger.Debugf("Switching system log to %s", loc)
		logrus.SetOutput(file)

		if gLogger.output != nil {
			gLogger.output.Close()
		}

		gLogger.output = file

		gLogger.logger = logrus.WithFields(logrus.Fields{
			"pid":      os.Getpid(),
			"instance": gInstanceID,
		})
	}

	// Obey the level setting in the config if not already in debug mode
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		level := cfg.GetString("log_level")
		val, err := logrus.ParseLevel(level)
		if err == nil {
			logrus.SetLevel(val)
		} else {
			return fmt.Errorf("bad log level: [%s]", level)
		}
	}

	switch format := cfg.GetString("log_format"); format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{})
	case "semicolon", "":
		logrus.SetFormatter(&SemicolonFormatter{})
	default:
		return fmt.Errorf("bad log format: [%s]", format)
	}

	// Override the standard system logger
	stdlog.SetOutput(Logger(nil).WriterLevel(logrus.DebugLevel))

	return nil
}

// Close releases the log file, if one is open
func Close() error {
	if gLogger.output == nil {
		return nil
	}

	err := gLogger.output.Close()
	gLogger.output = nil
	logrus.SetOutput(os.Stderr)
	return err
}
