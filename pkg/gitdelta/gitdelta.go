// Package gitdelta produces diff listings from the history of a git
// repository, so that the external strategy can sync exactly the files changed
// between two revisions without shelling out to git.
package gitdelta

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/utils/merkletrie"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/delta"
	"github.com/sidkik/deltasync/pkg/errors"
)

// DefaultTo is the revision compared against when none is given.
const DefaultTo = "HEAD"

// Open opens the repository containing path.
func Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("open repository %q", path))
	}
	return repo, nil
}

// Changes returns the files that changed between the `from` and `to`
// revisions. Paths are relative to the root of the repository and use the
// host separator. Renames are reported as a deletion and an addition.
func Changes(repo *git.Repository, from, to string) ([]delta.ChangeRecord, error) {
	fromTree, err := revisionTree(repo, from)
	if err != nil {
		return nil, err
	}

	toTree, err := revisionTree(repo, to)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return nil, errors.WithContext(err, "diff trees")
	}

	var records []delta.ChangeRecord
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, errors.WithContext(err, "classify change")
		}

		switch action {
		case merkletrie.Insert:
			records = append(records, record(delta.Added, change.To.Name))
		case merkletrie.Delete:
			records = append(records, record(delta.Deleted, change.From.Name))
		case merkletrie.Modify:
			if change.From.Name != change.To.Name {
				records = append(records, record(delta.Deleted, change.From.Name))
				records = append(records, record(delta.Added, change.To.Name))
				continue
			}
			records = append(records, record(delta.Modified, change.To.Name))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, nil
}

func record(kind delta.ChangeKind, name string) delta.ChangeRecord {
	return delta.ChangeRecord{Kind: kind, Path: filepath.FromSlash(name)}
}

func revisionTree(repo *git.Repository, rev string) (*object.Tree, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("resolve revision %q", rev))
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("get commit %s", hash))
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("get tree of %s", hash))
	}
	return tree, nil
}

// Offset returns where path lies within the worktree of repo, relative to the
// worktree root. It is "." when path is the root itself.
func Offset(repo *git.Repository, path string) (string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return "", errors.WithContext(err, "get worktree")
	}

	root, err := filepath.Abs(worktree.Filesystem.Root())
	if err != nil {
		return "", errors.WithContext(err, "resolve worktree root")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WithContext(err, fmt.Sprintf("resolve %q", path))
	}

	offset, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errors.WithContext(err, fmt.Sprintf("find %q in worktree", path))
	}
	return offset, nil
}

// Prefix rewrites paths relative to the repository root so that they are
// reachable through dir. `offset` is where dir lies within the repository, as
// returned by Offset.
func Prefix(dir, offset string, records []delta.ChangeRecord) ([]delta.ChangeRecord, error) {
	prefixed := make([]delta.ChangeRecord, 0, len(records))
	for _, r := range records {
		rel, err := filepath.Rel(offset, r.Path)
		if err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("relative path of %q", r.Path))
		}

		prefixed = append(prefixed, delta.ChangeRecord{
			Kind: r.Kind,
			Path: filepath.Join(dir, rel),
		})
	}
	return prefixed, nil
}

// WriteListing writes records to path in the format read by the external
// strategy.
func WriteListing(fs afero.Fs, path string, records []delta.ChangeRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return errors.WithContext(err, "make parent")
		}
	}

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.WithContext(err, "open")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		fmt.Fprintf(w, "%c\t%s%s", r.Kind, r.Path, delta.LineEnding())
	}
	if err := w.Flush(); err != nil {
		return errors.WithContext(err, "write")
	}
	return f.Close()
}

// Source is the git strategy. It computes the listing from the repository
// when loaded, and then behaves like the external strategy.
type Source struct {
	*delta.ExternalSource

	fs     afero.Fs
	log    logrus.FieldLogger
	loaded bool

	// Mocked out for unit testing.
	open   func(path string) (*git.Repository, error)
	offset func(repo *git.Repository, path string) (string, error)
}

// NewSource returns a git Source. The repository is read from disk, and the
// listing is saved to fs.
func NewSource(fs afero.Fs, log logrus.FieldLogger) *Source {
	return &Source{
		ExternalSource: delta.NewExternalSource(fs, log),
		fs:             fs,
		log:            log,
		open:           Open,
		offset:         Offset,
	}
}

// Name implements delta.Source.
func (s *Source) Name() string {
	return string(config.StrategyGit)
}

// SetLogger implements delta.Source.
func (s *Source) SetLogger(log logrus.FieldLogger) {
	s.log = log
	s.ExternalSource.SetLogger(log)
}

// Validate implements delta.Source.
func (s *Source) Validate(opts config.SyncOptions) error {
	if opts.Git.From == "" {
		return errors.ValidationError{Message: "No git revision to compare from specified."}
	}
	return delta.ValidateSource(opts)
}

// Load implements delta.Source. The repository may be opened from any
// directory inside its worktree. If a delta file is configured, the computed
// listing is also written to it.
func (s *Source) Load(opts config.SyncOptions) error {
	if s.loaded {
		return nil
	}

	repoPath := opts.Git.Repo
	if repoPath == "" {
		repoPath = "."
	}
	to := opts.Git.To
	if to == "" {
		to = DefaultTo
	}

	repo, err := s.open(repoPath)
	if err != nil {
		return err
	}

	records, err := Changes(repo, opts.Git.From, to)
	if err != nil {
		return err
	}

	offset, err := s.offset(repo, repoPath)
	if err != nil {
		return err
	}

	records, err = Prefix(repoPath, offset, records)
	if err != nil {
		return err
	}

	for _, r := range records {
		s.Add(r)
	}
	s.log.WithFields(logrus.Fields{
		"from":    opts.Git.From,
		"to":      to,
		"changes": len(records),
	}).Info("Computed git diff")

	if opts.DeltaFile != "" {
		if err := WriteListing(s.fs, opts.DeltaFile, records); err != nil {
			return errors.WithContext(err, "write diff file")
		}
	}

	s.loaded = true
	return nil
}
