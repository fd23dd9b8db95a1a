package ui

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/logger"
)

// Seams for tests.
var (
	startProcess   = func(name string, args ...string) error { return startDetached(name, args...) }
	writeClipboard = clipboard.WriteAll
	lookPath       = exec.LookPath
)

// playerLaunchedMsg reports the outcome of handing a video to the player.
type playerLaunchedMsg struct {
	Player string
	Err    error
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child once the player exits.
	go func() { _ = cmd.Wait() }()
	return nil
}

// playerCommand resolves the argv used to open url. A configured player is
// split like a shell would; otherwise the platform opener is used.
func playerCommand(configured, url string) ([]string, error) {
	if strings.TrimSpace(configured) != "" {
		args, err := parseCommandLine(configured)
		if err != nil {
			return nil, fmt.Errorf("invalid player command: %w", err)
		}
		if len(args) == 0 {
			return nil, errors.New("invalid player command: empty")
		}
		return append(args, url), nil
	}

	switch runtime.GOOS {
	case "darwin":
		return []string{"open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	default:
		for _, opener := range []string{"xdg-open", "mpv", "vlc"} {
			if _, err := lookPath(opener); err == nil {
				return []string{opener, url}, nil
			}
		}
		return nil, errors.New("no player found; set CW_PLAYER or player in config")
	}
}

// OpenInPlayerCmd launches the external player without blocking the UI.
func OpenInPlayerCmd(configured, url string) tea.Cmd {
	return func() tea.Msg {
		argv, err := playerCommand(configured, url)
		if err != nil {
			return playerLaunchedMsg{Err: err}
		}
		logger.Logger.Info("opening video", zap.Strings("argv", argv))
		if err := startProcess(argv[0], argv[1:]...); err != nil {
			return playerLaunchedMsg{Player: argv[0], Err: err}
		}
		return playerLaunchedMsg{Player: argv[0]}
	}
}

// parseCommandLine splits a command string into arguments, honouring single
// quotes, double quotes and backslash escapes.
func parseCommandLine(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var (
		args    []string
		current strings.Builder
		quote   rune // 0, '\'' or '"'
		escaped bool
		started bool
	)
	for _, r := range input {
		switch {
		case escaped:
			if quote == '"' && r != '"' && r != '\\' {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			started = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	switch {
	case escaped:
		return nil, errors.New("unterminated escape")
	case quote == '\'':
		return nil, errors.New("unterminated single quote")
	case quote == '"':
		return nil, errors.New("unterminated double quote")
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}
