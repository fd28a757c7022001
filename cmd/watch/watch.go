package watch

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/deltasync/cmd/util"
	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
	"github.com/sidkik/deltasync/pkg/fswatch"
	"github.com/sidkik/deltasync/pkg/sync"
)

// defaultPollInterval is how often the source tree is synced even if no
// changes were noticed.
const defaultPollInterval = 15 * time.Second

// Mocked out for unit testing.
var (
	fs      = afero.NewOsFs()
	clock   = clockwork.NewRealClock()
	watch   = fswatch.Watch
	runOnce = sync.RunOnce
)

// New creates a new `watch` command.
func New() *cobra.Command {
	var flags util.SyncFlags
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync whenever the source tree changes",
		Long: "Sync once, and then sync again whenever a file below the source " +
			"tree changes. Runs until interrupted.",
		Run: func(cmd *cobra.Command, _ []string) {
			opts, err := flags.Options(cmd)
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "load options"))
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := run(ctx, opts, interval); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	util.AddSyncFlags(cmd, &flags)
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval,
		"How often to sync when no changes are noticed.")
	return cmd
}

func run(ctx context.Context, opts config.SyncOptions, interval time.Duration) error {
	fileWatcher, err := watch(ctx, opts.Source, outputFilter(opts))
	if err != nil {
		rootCause := errors.RootCause(err)
		if dneErr, ok := rootCause.(errors.FileNotFound); ok {
			return errors.NewFriendlyError(
				"Failed to watch files for syncing.\n"+
					"%q doesn't exist.", dneErr.Path)
		} else if strings.Contains(rootCause.Error(), "too many open files") {
			log.Warnf("Too many files to automatically watch for changes. "+
				"Polling for changes every %s instead.", interval)

			// Disable the file watcher channel.
			fileWatcher = nil
		} else {
			return errors.WithContext(err, "watch files")
		}
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := runOnce(fs, log.StandardLogger(), opts); err != nil {
			var valErr errors.ValidationError
			if errors.As(err, &valErr) {
				return err
			}
			log.WithError(err).Error("Sync failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-fileWatcher:
			if !ok {
				fileWatcher = nil
			}
		case <-ticker.Chan():
		}
	}
}

// outputFilter selects the files written by a sync, so that a run doesn't
// trigger the next one.
func outputFilter(opts config.SyncOptions) fswatch.Filter {
	outputs := []string{opts.DeltaFile, opts.DeleteReport, opts.AuditLog}
	return func(path string) bool {
		if opts.Destination != "" && catalog.Within(opts.Destination, path) {
			return true
		}

		path = catalog.Normalize(path)
		for _, output := range outputs {
			if output != "" && output == path {
				return true
			}
		}
		return false
	}
}
