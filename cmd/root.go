package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/deltasync/cmd/gitdiff"
	syncCmd "github.com/sidkik/deltasync/cmd/sync"
	"github.com/sidkik/deltasync/cmd/util"
	"github.com/sidkik/deltasync/cmd/version"
	"github.com/sidkik/deltasync/cmd/watch"
)

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(util.VerboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "deltasync",
		Short:        "Copy the metadata files that changed into a deployable tree",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		gitdiff.New(),
		syncCmd.New(),
		version.New(),
		watch.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
