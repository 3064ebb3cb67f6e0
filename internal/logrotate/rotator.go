// Package logrotate keeps the text log destinations short by emptying a file
// once its line count passes a threshold.
package logrotate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
)

// DefaultThreshold is the line count a file may hold before it is emptied.
const DefaultThreshold = 200

// Observer is notified after a file has been truncated.
type Observer func(path string, lines int)

// Rotator checks a fixed set of files.
type Rotator struct {
	paths     []string
	threshold int
	observer  Observer
}

// New builds a Rotator over paths. threshold <= 0 selects DefaultThreshold.
func New(threshold int, paths ...string) *Rotator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Rotator{paths: append([]string(nil), paths...), threshold: threshold}
}

// OnRotate registers fn to run after each truncation.
func (r *Rotator) OnRotate(fn Observer) {
	r.observer = fn
}

// Threshold reports the configured line limit.
func (r *Rotator) Threshold() int {
	return r.threshold
}

// RotateAll checks every configured file. Failures are logged, never returned.
func (r *Rotator) RotateAll(ctx context.Context) {
	for _, p := range r.paths {
		r.Rotate(ctx, p)
	}
}

// Rotate empties path if it holds more than the threshold number of lines.
// A missing file is not an error. Other failures are logged and swallowed.
func (r *Rotator) Rotate(ctx context.Context, path string) {
	lines, truncated, err := r.check(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logging.Debug(ctx, "log destination not created yet", zap.String("path", path))
	case err != nil:
		logging.Warn(ctx, "log rotation failed", zap.String("path", path), zap.Error(err))
	case truncated:
		logging.Info(ctx, "log destination truncated",
			zap.String("path", path), zap.Int("lines", lines), zap.Int("threshold", r.threshold))
		if r.observer != nil {
			r.observer(path, lines)
		}
	}
}

func (r *Rotator) check(path string) (int, bool, error) {
	lines, err := countLines(path)
	if err != nil {
		return 0, false, err
	}
	if lines <= r.threshold {
		return lines, false, nil
	}
	if err := os.Truncate(path, 0); err != nil {
		return lines, false, fmt.Errorf("truncate %s: %w", path, err)
	}
	return lines, true, nil
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 32*1024)
	lines := 0
	partial := false
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			if chunk[len(chunk)-1] == '\n' {
				lines++
				partial = false
			} else {
				partial = true
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if partial {
		lines++
	}
	return lines, nil
}
