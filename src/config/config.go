package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the session
	// user's private key.
	DefaultKeyfile = "priv_key"

	// DefaultConfigName is the name, without extension, of the optional
	// configuration file in the data directory.
	DefaultConfigName = "relayfold"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultServiceAddr  = "127.0.0.1:8000"
	DefaultTimeout      = 10 * time.Second
	DefaultDialTimeout  = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultNoService    = false
	DefaultLoadRelays   = true
)

// Config contains all the configuration properties of a relayfold process.
type Config struct {
	// DataDir is the top-level directory containing the key, the relay list
	// and the optional configuration file.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// Relays are read from, in addition to those in relays.json.
	Relays []string `mapstructure:"relay"`

	// LoadRelays controls whether [datadir]/relays.json is read.
	LoadRelays bool `mapstructure:"load-relays"`

	// Channels are the ids of the channels to follow.
	Channels []string `mapstructure:"channel"`

	// Timeout bounds every epoch of the channel feeds.
	Timeout time.Duration `mapstructure:"timeout"`

	// DialTimeout bounds websocket handshakes with relays.
	DialTimeout time.Duration `mapstructure:"dial-timeout"`

	// PingInterval is the period of websocket keepalive pings.
	PingInterval time.Duration `mapstructure:"ping-interval"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:      DefaultDataDir(),
		LogLevel:     DefaultLogLevel,
		ServiceAddr:  DefaultServiceAddr,
		Timeout:      DefaultTimeout,
		DialTimeout:  DefaultDialTimeout,
		PingInterval: DefaultPingInterval,
		NoService:    DefaultNoService,
		LoadRelays:   DefaultLoadRelays,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Logger returns a formatted logrus Entry, with prefix set to "relayfold".
// When LogFile is set, entries of every level are also written there.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&prefixed.TextFormatter{DisableColors: true, FullTimestamp: true},
			))
		}
	}
	return c.logger.WithField("prefix", "relayfold")
}

// DefaultDataDir return the default directory name for top-level relayfold
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Relayfold")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Relayfold")
		} else {
			return filepath.Join(home, ".relayfold")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
