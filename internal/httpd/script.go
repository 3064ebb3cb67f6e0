package httpd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
)

// ScriptRunner executes a server-side script with the request body as its
// single argument and returns everything the script wrote to stdout.
type ScriptRunner interface {
	Run(ctx context.Context, script, arg string) (output []byte, exitCode int, err error)
}

// ProcessRunner runs scripts through an external interpreter.
type ProcessRunner struct {
	Interpreter string
	Dir         string
	Timeout     time.Duration

	// stderrLimit caps how much diagnostic output is kept per run.
	stderrLimit int
}

// NewProcessRunner picks the interpreter: the configured one if set, the
// bundled phpWin\php.exe below root on Windows, otherwise php from PATH.
// Scripts run with root as working directory.
func NewProcessRunner(root, interpreter string, timeout time.Duration) *ProcessRunner {
	if interpreter == "" {
		if runtime.GOOS == "windows" {
			interpreter = filepath.Join(root, "phpWin", "php.exe")
		} else {
			interpreter = "php"
		}
	}
	return &ProcessRunner{
		Interpreter: interpreter,
		Dir:         root,
		Timeout:     timeout,
		stderrLimit: 4 << 10,
	}
}

// Run starts "<interpreter> <script> <arg>" and waits for it. A non-zero exit
// status is reported through exitCode with a nil error; err is set only when
// the process could not be started or was killed by ctx.
func (p *ProcessRunner) Run(ctx context.Context, script, arg string) ([]byte, int, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Interpreter, script, arg)
	cmd.Dir = p.Dir
	// children of the interpreter may keep stdout open after it is killed
	cmd.WaitDelay = time.Second
	var stdout bytes.Buffer
	stderr := &limitedBuffer{limit: p.stderrLimit}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), 0, nil
	}
	if ctx.Err() != nil {
		return nil, -1, NewError(KindOperational, "run script", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logging.Warn(ctx, "script exited with non-zero status",
			zap.String("script", script),
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("stderr", stderr.String()))
		return stdout.Bytes(), exitErr.ExitCode(), nil
	}
	return nil, -1, NewError(KindOperational, "run script", err)
}

// limitedBuffer keeps the first limit bytes and discards the rest.
type limitedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}
