package cmd

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/snoo-buttons/internal/pkg/config"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
)

var (
	_cfgFile string
	_debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "snoo-buttons",
	Short:        "Control a Snoo bassinet with physical buttons",
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		return doRun()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&_cfgFile, "config", "", "config file (default ./.env, then ~/.snoo-buttons.env)")
	rootCmd.PersistentFlags().BoolVar(&_debug, "debug", false, "enable debug logging")

	errPanic(viper.GetViper().BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))

	config.SetDefaults(viper.GetViper())
}

// Execute runs the command named on the command line, the daemon by default
func Execute() {
	err := rootCmd.Execute()
	logging.Close()

	if err != nil {
		os.Exit(1)
	}
}

func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func defaultConfigFiles() []string {
	files := []string{".env"}
	if home, err := homedir.Dir(); err == nil {
		files = append(files, filepath.Join(home, ".snoo-buttons.env"))
	}

	return files
}

func initConfig() error {
	v := viper.GetViper()
	v.SetConfigType("env")
	v.AutomaticEnv()

	if _cfgFile != "" {
		v.SetConfigFile(_cfgFile)
	} else {
		for _, f := range defaultConfigFiles() {
			if _, err := os.Stat(f); err == nil {
				v.SetConfigFile(f)
				break
			}
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config file %s", v.ConfigFileUsed())
		}
	}

	if v.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := logging.Configure(v); err != nil {
		return err
	}

	if v.ConfigFileUsed() != "" {
		logging.Logger(nil).Debugf("using config file %s", v.ConfigFileUsed())
	} else {
		logging.Logger(nil).Debug("no config file, using the environment")
	}

	return nil
}
