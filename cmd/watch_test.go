package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"watch", "--detach", "--addr", "127.0.0.1:9000", "--detach=true"})
	want := []string{"watch", "--addr", "127.0.0.1:9000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterDetachArg = %v, want %v", got, want)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack-watch.pid")
	if err := writePID(path, 4242); err != nil {
		t.Fatal(err)
	}
	pid, err := readPID(path)
	if err != nil {
		t.Fatal(err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}

	if err := os.WriteFile(path, []byte("nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Error("expected error for malformed pid file")
	}
}

func TestEnsureWatchNotRunningClearsStalePID(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "fintrack-watch.pid")

	if err := ensureWatchNotRunning(pidFile); err != nil {
		t.Fatalf("missing pid file should be fine: %v", err)
	}

	// Our own pid is alive, so the guard must refuse.
	if err := writePID(pidFile, os.Getpid()); err != nil {
		t.Fatal(err)
	}
	if err := ensureWatchNotRunning(pidFile); err == nil {
		t.Fatal("expected error while the recorded process is alive")
	}
}

func TestRuntimeStateRoundTrip(t *testing.T) {
	path := statePathFor(filepath.Join(t.TempDir(), "w.pid"))
	in := watchRuntimeState{
		PID:       7,
		Addr:      "127.0.0.1:8797",
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UserID:    "u1",
		BaseURL:   "http://localhost:5000",
	}
	if err := writeState(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := readState(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("state = %+v, want %+v", out, in)
	}
}

func TestStatePathUsesStateDirFlag(t *testing.T) {
	old := flagStateDir
	t.Cleanup(func() { flagStateDir = old })

	flagStateDir = "/tmp/fintrack-test"
	if got := statePath(); got != "/tmp/fintrack-test/state.db" {
		t.Errorf("statePath = %q", got)
	}
	if got := watchPIDFile(); got != "/tmp/fintrack-test/fintrack-watch.pid" {
		t.Errorf("watchPIDFile = %q", got)
	}
}
