package delta

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
)

// manifestSeparator splits the path from the hash in each manifest line.
const manifestSeparator = "="

// manifestEntry is the persisted state of a single file.
type manifestEntry struct {
	hash string

	// seen is set once the file is found during the current scan. Entries
	// that are still unseen after the scan were deleted.
	seen bool
}

// HashSource detects changes by comparing content hashes against the
// manifest written by the previous run.
type HashSource struct {
	fs      afero.Fs
	catalog catalog.Catalog
	log     logrus.FieldLogger

	path     string
	loaded   bool
	manifest map[string]*manifestEntry
}

// NewHashSource returns a HashSource that reads files from fs.
func NewHashSource(fs afero.Fs, log logrus.FieldLogger) *HashSource {
	return &HashSource{
		fs:       fs,
		catalog:  catalog.New(fs),
		log:      log,
		manifest: map[string]*manifestEntry{},
	}
}

// Name implements Source.
func (s *HashSource) Name() string {
	return string(config.StrategyHash)
}

// SetLogger implements Source.
func (s *HashSource) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// Validate implements Source.
func (s *HashSource) Validate(opts config.SyncOptions) error {
	if opts.DeltaFile == "" {
		return errors.ValidationError{Message: "No hash file specified."}
	}
	return ValidateSource(opts)
}

// Load implements Source. A missing manifest is treated as empty.
func (s *HashSource) Load(opts config.SyncOptions) error {
	if s.loaded {
		return nil
	}

	s.path = opts.DeltaFile

	lines, exists, err := ReadLines(s.fs, s.path)
	if err != nil {
		return errors.WithContext(err, "read hash file")
	}

	for _, line := range lines {
		i := strings.LastIndex(line, manifestSeparator)
		if i <= 0 || i == len(line)-1 {
			s.log.WithFields(logrus.Fields{
				"file": s.path,
				"line": line,
			}).Warn("Skipping invalid hash file entry")
			continue
		}

		path := catalog.Normalize(line[:i])
		s.manifest[path] = &manifestEntry{hash: line[i+1:]}
	}

	if exists && len(s.manifest) == 0 {
		s.log.WithField("file", s.path).Warn("Blank or invalid delta file")
	}

	s.loaded = true
	return nil
}

// Prune implements Pruner.
func (s *HashSource) Prune(path string) bool {
	path = catalog.Normalize(path)
	if _, ok := s.manifest[path]; !ok {
		return false
	}
	delete(s.manifest, path)
	return true
}

// Len returns the number of files tracked by the manifest.
func (s *HashSource) Len() int {
	return len(s.manifest)
}

// Diff implements Source. Every file below root is reported as Added,
// Modified or None, followed by a Deleted record for each manifest entry that
// wasn't found. The manifest file is rewritten afterwards if anything other
// than None was reported.
func (s *HashSource) Diff(root string, fn func(ChangeRecord) error) error {
	root = catalog.Normalize(root)
	for _, entry := range s.manifest {
		entry.seen = false
	}

	changed := false
	err := s.catalog.ListFiles(root, true, func(path string) error {
		if !catalog.Within(root, path) {
			s.log.WithField("path", path).Debug("Skipping file outside of the source root")
			return nil
		}

		hash, err := HashFile(s.fs, path)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("hash %q", path))
		}

		kind := None
		entry, ok := s.manifest[path]
		if !ok {
			kind = Added
			entry = &manifestEntry{}
			s.manifest[path] = entry
		} else if entry.hash != hash {
			kind = Modified
		}

		entry.hash = hash
		entry.seen = true
		if kind != None {
			changed = true
		}
		return fn(ChangeRecord{Kind: kind, Path: path})
	})
	if err != nil {
		return err
	}

	var deleted []string
	for path, entry := range s.manifest {
		if !entry.seen {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)

	for _, path := range deleted {
		delete(s.manifest, path)
		changed = true
		if err := fn(ChangeRecord{Kind: Deleted, Path: path}); err != nil {
			return err
		}
	}

	if !changed {
		return nil
	}

	if err := s.write(); err != nil {
		return errors.WithContext(err, "write hash file")
	}
	s.log.WithFields(logrus.Fields{
		"file":    s.path,
		"entries": len(s.manifest),
	}).Info("Updated hash file")
	return nil
}

// write replaces the manifest file with the in-memory manifest.
func (s *HashSource) write() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove old")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return errors.WithContext(err, "make parent")
		}
	}

	f, err := s.fs.Create(s.path)
	if err != nil {
		return errors.WithContext(err, "create")
	}
	defer f.Close()

	paths := make([]string, 0, len(s.manifest))
	for path := range s.manifest {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	w := bufio.NewWriter(f)
	for _, path := range paths {
		fmt.Fprintf(w, "%s%s%s%s", path, manifestSeparator, s.manifest[path].hash, lineEnding)
	}
	if err := w.Flush(); err != nil {
		return errors.WithContext(err, "write")
	}
	return f.Close()
}

// HashFile returns the hex encoded md5 hash of the file at the given path.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
