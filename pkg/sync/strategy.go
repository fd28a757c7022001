package sync

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/delta"
	"github.com/sidkik/deltasync/pkg/errors"
	"github.com/sidkik/deltasync/pkg/gitdelta"
)

// NewSource returns a fresh delta.Source for the given strategy. Sources can
// only be run once, so every run needs its own.
func NewSource(fs afero.Fs, log logrus.FieldLogger, strategy config.Strategy) (delta.Source, error) {
	switch strategy {
	case config.StrategyHash, "":
		return delta.NewHashSource(fs, log), nil
	case config.StrategyExternal:
		return delta.NewExternalSource(fs, log), nil
	case config.StrategyGit:
		return gitdelta.NewSource(fs, log), nil
	}
	return nil, errors.NewFriendlyError("Unknown strategy %q.", strategy)
}

// RunOnce syncs opts with a new source for its strategy.
func RunOnce(fs afero.Fs, log *logrus.Logger, opts config.SyncOptions) (Metrics, error) {
	source, err := NewSource(fs, log, opts.Strategy)
	if err != nil {
		return Metrics{}, err
	}
	return New(fs, log, source).Run(opts)
}
