package logrotate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grand-thief-cash/humble/internal/components/logging"
	"github.com/grand-thief-cash/humble/internal/consts"
)

// The live destination writer must keep writing from the start of the file
// after the rotator has emptied it underneath.
func TestRotateLiveDestinationRestartsAtZero(t *testing.T) {
	dir := t.TempDir()
	comp, err := logging.NewFactory().Create(&logging.LoggingConfig{
		Enabled:      true,
		Level:        "info",
		Output:       "stderr",
		Destinations: &logging.DestinationsConfig{Dir: dir},
	})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("start logger: %v", err)
	}
	defer comp.Stop(ctx)

	path := filepath.Join(dir, "interaction.txt")
	for i := 0; i < 250; i++ {
		logging.Destination(consts.LOG_INTERACTION).Info(ctx, "User Interaction")
	}
	before := size(t, path)

	r := New(0, path)
	var truncated bool
	r.OnRotate(func(string, int) { truncated = true })
	r.Rotate(ctx, path)
	if !truncated || size(t, path) != 0 {
		t.Fatalf("destination not emptied (truncated=%v size=%d)", truncated, size(t, path))
	}

	logging.Destination(consts.LOG_INTERACTION).Info(ctx, "User Interaction")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if int64(len(data)) >= before {
		t.Fatalf("file grew back to %d bytes (was %d before truncation)", len(data), before)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		t.Fatalf("destination contains NUL padding: %q", data)
	}
	if n := strings.Count(string(data), "\n"); n != 1 || !strings.Contains(string(data), "User Interaction") {
		t.Fatalf("want exactly one entry, got %q", data)
	}

	// and the count keeps working for the next cycle
	for i := 0; i < 200; i++ {
		logging.Destination(consts.LOG_INTERACTION).Info(ctx, "User Interaction")
	}
	r.Rotate(ctx, path)
	if size(t, path) != 0 {
		t.Fatalf("second cycle not emptied: %d bytes", size(t, path))
	}
}
