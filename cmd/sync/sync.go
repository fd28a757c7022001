package sync

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/deltasync/cmd/util"
	"github.com/sidkik/deltasync/pkg/errors"
	"github.com/sidkik/deltasync/pkg/sync"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// New creates a new `sync` command.
func New() *cobra.Command {
	var flags util.SyncFlags
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the files that changed since the last sync",
		Long: "Detect the files that changed in the source tree and copy them, " +
			"along with the rest of their bundle, into the destination tree.\n" +
			"Deleted files are written to the delete report rather than removed.",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := run(cmd, &flags); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	util.AddSyncFlags(cmd, &flags)
	return cmd
}

func run(cmd *cobra.Command, flags *util.SyncFlags) error {
	opts, err := flags.Options(cmd)
	if err != nil {
		return errors.WithContext(err, "load options")
	}

	if _, err := sync.RunOnce(fs, log.StandardLogger(), opts); err != nil {
		return errors.WithContext(err, "sync")
	}
	return nil
}
