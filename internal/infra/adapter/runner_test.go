package adapter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeShellEntry(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script adapter fixture requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "lifecycle.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunnerStartParsesSuccessOutput(t *testing.T) {
	entry := writeShellEntry(t, `echo '{"success": true, "pid": 4242, "message": "started"}'`)
	r := New("/bin/sh", entry)

	res, err := r.Start(context.Background(), map[string]any{"port": 25565})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !res.Success || res.PID != 4242 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRunnerNonzeroExitBecomesAdapterError(t *testing.T) {
	entry := writeShellEntry(t, `echo "boom" 1>&2; exit 1`)
	r := New("/bin/sh", entry)

	_, err := r.Stop(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error for nonzero exit")
	}
}

func TestRunnerMalformedOutputBecomesAdapterError(t *testing.T) {
	entry := writeShellEntry(t, `echo 'not json'`)
	r := New("/bin/sh", entry)

	_, err := r.Status(context.Background(), nil)
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRunnerRespectsTimeout(t *testing.T) {
	entry := writeShellEntry(t, `sleep 5; echo '{"success": true}'`)
	r := New("/bin/sh", entry)
	r.Timeout = 50 * time.Millisecond

	_, err := r.Command(context.Background(), nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
