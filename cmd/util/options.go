package util

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
)

// Mocked out for unit testing.
var parseSyncOptions = config.ParseSyncOptions

// SyncFlags are the command line flags shared by the commands that sync.
// Flags that are set override the option file.
type SyncFlags struct {
	ConfigPath string

	strategy            string
	source              string
	destination         string
	deltaFile           string
	deleteReport        string
	forceFile           string
	ignoreFile          string
	auditLog            string
	dryRun              bool
	console             bool
	fullCopyDirectories []string
	allowDottedBundles  bool
	gitRepo             string
	gitFrom             string
	gitTo               string
}

// AddSyncFlags registers the sync flags on cmd.
func AddSyncFlags(cmd *cobra.Command, f *SyncFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.ConfigPath, "config", "c", "",
		"Path to the option file. Defaults to "+config.DefaultPath+" if it exists.")
	flags.StringVar(&f.strategy, "strategy", "",
		"How changes are detected: hash, external or git.")
	flags.StringVarP(&f.source, "source", "s", "", "The tree to detect changes in.")
	flags.StringVarP(&f.destination, "destination", "d", "", "The tree to copy changes to.")
	flags.StringVar(&f.deltaFile, "delta-file", "",
		"The hash manifest, or the diff listing for the external strategy.")
	flags.StringVar(&f.deleteReport, "delete-report", "", "Where to record deleted files.")
	flags.StringVar(&f.forceFile, "force-file", "", "Paths or globs to copy even if unchanged.")
	flags.StringVar(&f.ignoreFile, "ignore-file", "", "Paths or globs to never copy.")
	flags.StringVar(&f.auditLog, "audit-log", "", "Where to log every decision made.")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Report what would be copied without copying.")
	flags.BoolVar(&f.console, "console", false, "Show every audit log entry on the console.")
	flags.StringSliceVar(&f.fullCopyDirectories, "full-copy", nil,
		"Directory kinds whose bundles are always copied whole, e.g. lwc,aura.")
	flags.BoolVar(&f.allowDottedBundles, "allow-dotted-bundles", false,
		"Allow full-copy bundle directories with a dot in their name.")
	flags.StringVar(&f.gitRepo, "git-repo", "", "The repository for the git strategy.")
	flags.StringVar(&f.gitFrom, "git-from", "", "The revision to compare from.")
	flags.StringVar(&f.gitTo, "git-to", "", "The revision to compare to. Defaults to HEAD.")
}

// Options returns the options from the option file, overridden by the flags
// set on cmd. A missing option file is only an error if it was given
// explicitly.
func (f *SyncFlags) Options(cmd *cobra.Command) (config.SyncOptions, error) {
	path := f.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}

	opts, err := parseSyncOptions(path)
	if err != nil {
		var dneErr errors.FileNotFound
		if f.ConfigPath != "" || !errors.As(err, &dneErr) {
			return config.SyncOptions{}, err
		}
		opts = config.SyncOptions{Version: config.SupportedSyncOptionsVersion}
	}

	flags := cmd.Flags()
	overrides := []struct {
		name  string
		apply func()
	}{
		{"strategy", func() { opts.Strategy = config.Strategy(f.strategy) }},
		{"source", func() { opts.Source = f.source }},
		{"destination", func() { opts.Destination = f.destination }},
		{"delta-file", func() { opts.DeltaFile = f.deltaFile }},
		{"delete-report", func() { opts.DeleteReport = f.deleteReport }},
		{"force-file", func() { opts.ForceFile = f.forceFile }},
		{"ignore-file", func() { opts.IgnoreFile = f.ignoreFile }},
		{"audit-log", func() { opts.AuditLog = f.auditLog }},
		{"dry-run", func() { opts.DryRun = f.dryRun }},
		{"console", func() { opts.Console = f.console }},
		{"full-copy", func() { opts.FullCopyDirectories = f.fullCopyDirectories }},
		{"allow-dotted-bundles", func() { opts.AllowDottedBundles = f.allowDottedBundles }},
		{"git-repo", func() { opts.Git.Repo = f.gitRepo }},
		{"git-from", func() { opts.Git.From = f.gitFrom }},
		{"git-to", func() { opts.Git.To = f.gitTo }},
	}
	for _, override := range overrides {
		if flags.Changed(override.name) {
			override.apply()
		}
	}
	return opts.Normalize()
}
