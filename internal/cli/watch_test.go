package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RerunsOnWrite(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "counter.yaml", passingScenario)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Keep writing until the watcher, which starts asynchronously, sees one.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(passingScenario), 0644); err != nil {
			return false
		}
		select {
		case <-changed:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := Watch(context.Background(), "/nonexistent/scenario.yaml", logger, func() {})
	require.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	buf := &bytes.Buffer{}
	runOnce(context.Background(), writeScenario(t, dir, "counter.yaml", passingScenario), buf, logger)
	assert.Contains(t, buf.String(), "✓ counter")

	buf.Reset()
	bad := writeScenario(t, dir, "bad.yaml", "name: bad\n")
	runOnce(context.Background(), bad, buf, logger)
	assert.Contains(t, buf.String(), "✗ "+bad)
}
