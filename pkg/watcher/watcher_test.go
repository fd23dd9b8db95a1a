package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32

	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func waitKind(t *testing.T, w *Watcher, want Kind) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-w.Events():
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithDebounceDuration(30 * time.Millisecond)}, opts...)
	w, err := NewWatcher(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DetectsRewriteAndRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"token":"a"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	var seen atomic.Int32
	w := startWatcher(t, path, WithOnEvent(func(Kind) { seen.Add(1) }))

	if err := os.WriteFile(path, []byte(`{"token":"bb"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	waitKind(t, w, Changed)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitKind(t, w, Removed)

	if seen.Load() < 2 {
		t.Errorf("expected callbacks for both events, got %d", seen.Load())
	}
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	path := filepath.Join(dir, "session.json")

	w := startWatcher(t, path)
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	waitKind(t, w, Changed)
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("one"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, path, WithForcePoll(true), WithPollInterval(20*time.Millisecond))
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	if err := os.WriteFile(path, []byte("three"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitKind(t, w, Changed)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitKind(t, w, Removed)
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv("CW_FORCE_POLL", "yes")
	w := startWatcher(t, filepath.Join(t.TempDir(), "session.json"))
	if !w.IsPolling() {
		t.Error("expected CW_FORCE_POLL to select polling")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("expected stopped")
	}
	w.Stop()
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv("CW_TEST_BOOL", v)
		if !envBool("CW_TEST_BOOL") {
			t.Errorf("expected %q to be true", v)
		}
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		t.Setenv("CW_TEST_BOOL", v)
		if envBool("CW_TEST_BOOL") {
			t.Errorf("expected %q to be false", v)
		}
	}
}

func TestKindString(t *testing.T) {
	if Changed.String() != "changed" || Removed.String() != "removed" {
		t.Error("unexpected kind names")
	}
}
