package watch

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
	"github.com/sidkik/deltasync/pkg/fswatch"
	"github.com/sidkik/deltasync/pkg/sync"
)

func TestRunSyncsOnChanges(t *testing.T) {
	events := make(chan struct{})
	watch = func(context.Context, string, fswatch.Filter) (<-chan struct{}, error) {
		return events, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{})
	runOnce = func(afero.Fs, *logrus.Logger, config.SyncOptions) (sync.Metrics, error) {
		runs <- struct{}{}
		return sync.Metrics{}, nil
	}

	done := make(chan error)
	go func() {
		done <- run(ctx, config.SyncOptions{Source: "src"}, time.Hour)
	}()

	// The first sync happens immediately.
	<-runs

	events <- struct{}{}
	<-runs

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch didn't stop after being cancelled")
	}
}

func TestRunPollsOnInterval(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	clock = fakeClock
	defer func() { clock = clockwork.NewRealClock() }()

	watch = func(context.Context, string, fswatch.Filter) (<-chan struct{}, error) {
		return nil, errors.New("too many open files")
	}

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{})
	runOnce = func(afero.Fs, *logrus.Logger, config.SyncOptions) (sync.Metrics, error) {
		runs <- struct{}{}
		return sync.Metrics{}, nil
	}

	done := make(chan error)
	go func() {
		done <- run(ctx, config.SyncOptions{Source: "src"}, time.Minute)
	}()

	<-runs
	fakeClock.BlockUntil(1)
	fakeClock.Advance(time.Minute)
	<-runs

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch didn't stop after being cancelled")
	}
}

func TestRunValidationError(t *testing.T) {
	watch = func(context.Context, string, fswatch.Filter) (<-chan struct{}, error) {
		return make(chan struct{}), nil
	}
	runOnce = func(afero.Fs, *logrus.Logger, config.SyncOptions) (sync.Metrics, error) {
		return sync.Metrics{}, errors.ValidationError{Message: "No hash file specified."}
	}

	err := run(context.Background(), config.SyncOptions{Source: "src"}, time.Hour)
	assert.EqualError(t, err, "No hash file specified.")
}

func TestRunMissingSource(t *testing.T) {
	watch = func(context.Context, string, fswatch.Filter) (<-chan struct{}, error) {
		return nil, errors.WithContext(errors.FileNotFound{Path: "src"}, "get paths")
	}

	err := run(context.Background(), config.SyncOptions{Source: "src"}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"src" doesn't exist.`)
}

func TestOutputFilter(t *testing.T) {
	filter := outputFilter(config.SyncOptions{
		Source:      "src",
		Destination: "src/out",
		DeltaFile:   "src/hashes",
		AuditLog:    "audit.log",
	})

	assert.True(t, filter("src/out/a.txt"))
	assert.True(t, filter("src/hashes"))
	assert.True(t, filter("./audit.log"))
	assert.False(t, filter("src/a.txt"))
	assert.False(t, filter("src/outer.txt"))
}
