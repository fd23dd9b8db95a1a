package debug

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vanderheijden86/coursework/pkg/logger"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prevLogger, prevEnabled := logger.Logger, enabled
	logger.Logger = zap.New(core)
	t.Cleanup(func() {
		logger.Logger = prevLogger
		enabled = prevEnabled
	})
	return logs
}

func TestDisabledIsSilent(t *testing.T) {
	logs := observe(t)
	SetEnabled(false)

	Log("nothing %d", 1)
	LogIf(true, "nothing")
	LogTiming("op", time.Millisecond)
	LogEnterExit("fn")()
	Dump("v", 1)

	if logs.Len() != 0 {
		t.Fatalf("expected no entries, got %d", logs.Len())
	}
}

func TestEnabledRoutesToZap(t *testing.T) {
	logs := observe(t)
	SetEnabled(true)

	Log("advance from %d/%d", 0, 1)
	LogIf(false, "skipped")
	LogEnterExit("load")()
	LogTiming("view", 2*time.Millisecond)
	Dump("pos", struct{ M, V int }{1, 2})

	entries := logs.All()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].Message != "advance from 0/1" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
	if entries[1].Message != "-> load" {
		t.Errorf("unexpected enter message %q", entries[1].Message)
	}
	timing := entries[3].ContextMap()
	if entries[3].Message != "timing" || timing["name"] != "view" || timing["duration"] != 2*time.Millisecond {
		t.Errorf("unexpected timing entry %q %v", entries[3].Message, timing)
	}
	if entries[4].Message != "pos: struct { M int; V int } = {M:1 V:2}" {
		t.Errorf("unexpected dump %q", entries[4].Message)
	}
	for _, e := range entries {
		if e.Level != zapcore.DebugLevel {
			t.Errorf("expected debug level, got %v", e.Level)
		}
	}
}
