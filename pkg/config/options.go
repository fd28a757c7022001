package config

import (
	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/errors"
)

// Strategy names the way changed files are detected.
type Strategy string

const (
	// StrategyHash compares content hashes against a persisted manifest.
	StrategyHash Strategy = "hash"

	// StrategyExternal reads a diff listing produced by another tool.
	StrategyExternal Strategy = "external"

	// StrategyGit computes the diff listing from two git revisions.
	StrategyGit Strategy = "git"
)

// DefaultPath is where the option file is looked for when none is given.
const DefaultPath = "deltasync.yaml"

// InitialSyncOptionsVersion is the first version of the option file. Files
// that do not specify a version default to this version.
const InitialSyncOptionsVersion = "v1alpha1"

// SupportedSyncOptionsVersion is the version of the option file understood by
// this binary.
const SupportedSyncOptionsVersion = "v1alpha1"

// GitOptions selects the revisions compared by the git strategy.
type GitOptions struct {
	Repo string `json:"repo,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// SyncOptions configures a single sync run.
type SyncOptions struct {
	Version  string   `json:"version,omitempty"`
	Strategy Strategy `json:"strategy,omitempty"`

	// Source is the tree that changes are detected in. Required.
	Source string `json:"source"`

	// Destination is the tree that changes are copied to. A run without a
	// destination does nothing.
	Destination string `json:"destination,omitempty"`

	// DeltaFile is the hash manifest for the hash strategy, or the diff
	// listing for the external strategy.
	DeltaFile string `json:"deltaFile,omitempty"`

	DeleteReport string `json:"deleteReport,omitempty"`
	ForceFile    string `json:"forceFile,omitempty"`
	IgnoreFile   string `json:"ignoreFile,omitempty"`
	AuditLog     string `json:"auditLog,omitempty"`

	DryRun bool `json:"dryRun,omitempty"`

	// Console mirrors every audit log entry to the console.
	Console bool `json:"console,omitempty"`

	// FullCopyDirectories are the directory names whose components are
	// always copied as a whole, e.g. `lwc` or `aura`.
	FullCopyDirectories []string `json:"fullCopyDirectories,omitempty"`

	// AllowDottedBundles lets a full-copy bundle directory have a dot in its
	// name.
	AllowDottedBundles bool `json:"allowDottedBundles,omitempty"`

	Git GitOptions `json:"git,omitempty"`

	// Only populated and consumed by deltasync. Never set by user.
	path string
}

// GetPath returns the filepath that the options were parsed from. A getter
// method is used rather than making the field public so that it can't get set
// by the yaml Unmarshalling.
func (o SyncOptions) GetPath() string {
	return o.path
}

func (o SyncOptions) getVersion() string {
	return o.Version
}

// ParseSyncOptions parses and normalizes the option file at `path`.
func ParseSyncOptions(path string) (SyncOptions, error) {
	opts := SyncOptions{
		path:    path,
		Version: InitialSyncOptionsVersion,
	}
	if err := parseConfig(path, &opts, SupportedSyncOptionsVersion); err != nil {
		return SyncOptions{}, errors.WithContext(err, "parse")
	}
	return opts.Normalize()
}

// Normalize expands `~` in every path field, converts them to the host
// separator convention, removes duplicate full-copy directory names and
// defaults the strategy.
func (o SyncOptions) Normalize() (SyncOptions, error) {
	if o.Strategy == "" {
		o.Strategy = StrategyHash
	}

	switch o.Strategy {
	case StrategyHash, StrategyExternal, StrategyGit:
	default:
		return SyncOptions{}, errors.NewFriendlyError(
			"Unknown strategy %q. Expected one of %q, %q or %q.",
			o.Strategy, StrategyHash, StrategyExternal, StrategyGit)
	}

	for _, field := range []*string{
		&o.Source, &o.Destination, &o.DeltaFile, &o.DeleteReport,
		&o.ForceFile, &o.IgnoreFile, &o.AuditLog, &o.Git.Repo,
	} {
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return SyncOptions{}, errors.WithContext(err, "expand homedir")
		}
		*field = catalog.Normalize(expanded)
	}

	var names []string
	seen := map[string]struct{}{}
	for _, name := range o.FullCopyDirectories {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	o.FullCopyDirectories = names
	return o, nil
}
