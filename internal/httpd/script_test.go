package httpd

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func shellRunner(t *testing.T, timeout time.Duration) (*ProcessRunner, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh as the interpreter")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	return NewProcessRunner(dir, sh, timeout), dir
}

func TestProcessRunnerCapturesStdout(t *testing.T) {
	r, dir := shellRunner(t, 0)
	script := filepath.Join(dir, "echo.sh")
	mustWrite(t, script, `printf 'got:%s|cwd:%s' "$1" "$(basename "$PWD")"`)

	out, code, err := r.Run(context.Background(), script, "name=joey&x=1")
	if err != nil || code != 0 {
		t.Fatalf("run: code=%d err=%v", code, err)
	}
	if want := "got:name=joey&x=1|cwd:" + filepath.Base(dir); string(out) != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestProcessRunnerNonZeroExitKeepsOutput(t *testing.T) {
	r, dir := shellRunner(t, 0)
	script := filepath.Join(dir, "fail.sh")
	mustWrite(t, script, "printf partial; echo oops >&2; exit 3")

	out, code, err := r.Run(context.Background(), script, "")
	if err != nil {
		t.Fatalf("non-zero exit is not a launch failure: %v", err)
	}
	if code != 3 || string(out) != "partial" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestProcessRunnerTimeout(t *testing.T) {
	r, dir := shellRunner(t, 50*time.Millisecond)
	script := filepath.Join(dir, "slow.sh")
	mustWrite(t, script, "sleep 5")

	start := time.Now()
	_, _, err := r.Run(context.Background(), script, "")
	if KindOf(err) != KindOperational {
		t.Fatalf("expected operational error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestProcessRunnerMissingInterpreter(t *testing.T) {
	r := NewProcessRunner(t.TempDir(), filepath.Join(t.TempDir(), "no-such-php"), 0)
	if _, _, err := r.Run(context.Background(), "x.php", ""); KindOf(err) != KindOperational {
		t.Fatalf("expected operational error, got %v", err)
	}
}

func TestNewProcessRunnerDefaults(t *testing.T) {
	r := NewProcessRunner("/srv/root", "", 0)
	want := "php"
	if runtime.GOOS == "windows" {
		want = filepath.Join("/srv/root", "phpWin", "php.exe")
	}
	if r.Interpreter != want || r.Dir != "/srv/root" {
		t.Fatalf("got %+v", r)
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 4}
	n, _ := b.Write([]byte("abcdef"))
	if n != 6 || b.String() != "abcd" {
		t.Fatalf("n=%d buf=%q", n, b.String())
	}
}
