package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(ctx context.Context, t *testing.T, a *App) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.services.Scheduler.Buffer.Flushes() > 0
	}, time.Second, 5*time.Millisecond, "strip never flushed")
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestApp_RunUntilCancelled(t *testing.T) {
	a, err := New(testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite")), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := runApp(ctx, t, a)

	cancel()
	assert.NoError(t, waitRun(t, done))
}

func TestApp_FatalErrorStopsRun(t *testing.T) {
	a, err := New(testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite")), "")
	require.NoError(t, err)

	done := runApp(context.Background(), t, a)

	boom := errors.New("pattern capability not implemented")
	a.reportFatal(boom)
	a.reportFatal(errors.New("second"))
	assert.ErrorIs(t, waitRun(t, done), boom)
}
