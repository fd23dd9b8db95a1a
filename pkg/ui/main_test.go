package ui

import (
	"errors"
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	// Keep session and log files out of the real state directory.
	dir, err := os.MkdirTemp("", "cw-ui-test-*")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_STATE_HOME", dir)
	os.Setenv("XDG_CONFIG_HOME", dir)
	os.Unsetenv("CW_PLAYER")

	// Never launch a real player or touch the system clipboard.
	startProcess = func(string, ...string) error { return errors.New("process launch disabled in tests") }
	writeClipboard = func(string) error { return errors.New("clipboard disabled in tests") }

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}
