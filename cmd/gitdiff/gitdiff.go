package gitdiff

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	git "gopkg.in/src-d/go-git.v4"

	"github.com/sidkik/deltasync/cmd/util"
	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/errors"
	"github.com/sidkik/deltasync/pkg/gitdelta"
)

// Mocked out for unit testing.
var (
	fs       = afero.NewOsFs()
	openRepo = gitdelta.Open
	offset   = gitdelta.Offset
)

type options struct {
	repo, from, to, output string
}

// New creates a new `gitdiff` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "gitdiff",
		Short: "Write the files changed between two git revisions",
		Long: "Write the files changed between two git revisions in the format " +
			"read by the external strategy.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.repo, "repo", ".", "The repository to diff.")
	cmd.Flags().StringVar(&opts.from, "from", "", "The revision to compare from.")
	cmd.Flags().StringVar(&opts.to, "to", gitdelta.DefaultTo, "The revision to compare to.")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Where to write the listing.")
	return cmd
}

func run(opts options) error {
	if opts.from == "" {
		return errors.NewFriendlyError("The --from revision is required.")
	}
	if opts.output == "" {
		return errors.NewFriendlyError("The --output path is required.")
	}

	repoPath := catalog.Normalize(opts.repo)
	repo, err := openRepo(repoPath)
	if err != nil {
		return err
	}
	return writeDiff(repo, repoPath, opts)
}

func writeDiff(repo *git.Repository, repoPath string, opts options) error {
	records, err := gitdelta.Changes(repo, opts.from, opts.to)
	if err != nil {
		return errors.WithContext(err, "diff")
	}

	repoOffset, err := offset(repo, repoPath)
	if err != nil {
		return err
	}

	records, err = gitdelta.Prefix(repoPath, repoOffset, records)
	if err != nil {
		return err
	}

	output := catalog.Normalize(opts.output)
	if err := gitdelta.WriteListing(fs, output, records); err != nil {
		return errors.WithContext(err, "write listing")
	}

	log.WithFields(log.Fields{
		"from":    opts.from,
		"to":      opts.to,
		"changes": len(records),
		"output":  output,
	}).Info("Wrote git diff")
	return nil
}
