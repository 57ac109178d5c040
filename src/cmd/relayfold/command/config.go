package command

import (
	"github.com/mosaicnetworks/relayfold/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Relayfold config.Config `mapstructure:",squash"`
}

// NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Relayfold: *config.NewDefaultConfig(),
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	_config.Relayfold.Logger().WithFields(logrus.Fields{
		"DataDir":      _config.Relayfold.DataDir,
		"LogLevel":     _config.Relayfold.LogLevel,
		"LogFile":      _config.Relayfold.LogFile,
		"Relays":       _config.Relayfold.Relays,
		"LoadRelays":   _config.Relayfold.LoadRelays,
		"Channels":     _config.Relayfold.Channels,
		"Timeout":      _config.Relayfold.Timeout,
		"DialTimeout":  _config.Relayfold.DialTimeout,
		"PingInterval": _config.Relayfold.PingInterval,
		"ServiceAddr":  _config.Relayfold.ServiceAddr,
		"NoService":    _config.Relayfold.NoService,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/relayfold.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName)
	viper.AddConfigPath(_config.Relayfold.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Relayfold.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Relayfold.Logger().Debugf("No config file found in: %s", _config.Relayfold.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
