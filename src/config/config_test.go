package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()

	if c.Timeout != DefaultTimeout || c.ServiceAddr != DefaultServiceAddr {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if !c.LoadRelays {
		t.Fatalf("relays.json should be loaded by default")
	}
	if c.Keyfile() != filepath.Join(c.DataDir, DefaultKeyfile) {
		t.Fatalf("unexpected keyfile %s", c.Keyfile())
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"unknown": logrus.DebugLevel,
	}
	for in, expected := range cases {
		if l := LogLevel(in); l != expected {
			t.Fatalf("LogLevel(%s) should be %v, not %v", in, expected, l)
		}
	}
}

func TestLogFile(t *testing.T) {
	c := NewDefaultConfig()
	c.LogLevel = "info"
	c.LogFile = filepath.Join(t.TempDir(), "relayfold.log")

	logger := c.Logger()
	logger.Logger.Out = new(strings.Builder)
	logger.WithField("channel", "x").Info("hello")

	data, err := os.ReadFile(c.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file should hold the entry, got %q", data)
	}
}
