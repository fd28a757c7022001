package delta

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
)

// ExternalSource replays a diff listing produced by another tool, such as
// `git diff --name-status`. Each line of the listing is a change token and a
// path separated by a tab. Only the first character of the token is
// significant, so `M` and `M100` are the same. Renames (`R`) and copies (`C`)
// list the old and the new path. A rename is replayed as a deletion of the old
// path and an addition of the new one, and a copy as an addition of the new
// path.
type ExternalSource struct {
	fs      afero.Fs
	catalog catalog.Catalog
	log     logrus.FieldLogger

	loaded bool

	// order holds each path in the order it was first listed. A path that is
	// listed twice keeps its first position and its last kind.
	order []string
	kinds map[string]ChangeKind
}

// NewExternalSource returns an ExternalSource that reads its listing from fs.
func NewExternalSource(fs afero.Fs, log logrus.FieldLogger) *ExternalSource {
	return &ExternalSource{
		fs:      fs,
		catalog: catalog.New(fs),
		log:     log,
		kinds:   map[string]ChangeKind{},
	}
}

// Name implements Source.
func (s *ExternalSource) Name() string {
	return string(config.StrategyExternal)
}

// SetLogger implements Source.
func (s *ExternalSource) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// Validate implements Source. The listing must already exist.
func (s *ExternalSource) Validate(opts config.SyncOptions) error {
	if opts.DeltaFile == "" {
		return errors.ValidationError{Message: "No diff file specified."}
	}

	exists, err := s.catalog.Exists(opts.DeltaFile)
	if err != nil {
		return errors.WithContext(err, "stat diff file")
	}
	if !exists {
		return errors.ValidationError{
			Message: fmt.Sprintf("Diff file %q does not exist.", opts.DeltaFile),
		}
	}
	return ValidateSource(opts)
}

// Load implements Source.
func (s *ExternalSource) Load(opts config.SyncOptions) error {
	if s.loaded {
		return nil
	}

	lines, _, err := ReadLines(s.fs, opts.DeltaFile)
	if err != nil {
		return errors.WithContext(err, "read diff file")
	}

	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if !validEntry(fields) {
			s.log.WithFields(logrus.Fields{
				"file": opts.DeltaFile,
				"line": line,
			}).Warn("Skipping invalid diff file entry")
			continue
		}

		path := fields[len(fields)-1]
		switch fields[0][0] {
		case 'R':
			s.Add(ChangeRecord{Kind: Deleted, Path: fields[1]})
			s.Add(ChangeRecord{Kind: Added, Path: path})
		case 'C':
			s.Add(ChangeRecord{Kind: Added, Path: path})
		default:
			kind, _ := ParseKind(fields[0])
			s.Add(ChangeRecord{Kind: kind, Path: path})
		}
	}

	if len(s.order) == 0 {
		s.log.WithField("file", opts.DeltaFile).Warn("Blank or invalid delta file")
	}

	s.loaded = true
	return nil
}

// validEntry returns whether the fields of a listing line hold a token and a
// path. Renames and copies need both the old and the new path.
func validEntry(fields []string) bool {
	if len(fields) < 2 || fields[0] == "" || fields[len(fields)-1] == "" {
		return false
	}

	switch fields[0][0] {
	case 'R', 'C':
		return len(fields) >= 3 && fields[1] != ""
	}
	return true
}

// Add records a change as if it had been read from the listing.
func (s *ExternalSource) Add(record ChangeRecord) {
	path := catalog.Normalize(record.Path)
	if _, ok := s.kinds[path]; !ok {
		s.order = append(s.order, path)
	}
	s.kinds[path] = record.Kind
}

// Records returns the loaded changes in listing order.
func (s *ExternalSource) Records() []ChangeRecord {
	records := make([]ChangeRecord, 0, len(s.order))
	for _, path := range s.order {
		records = append(records, ChangeRecord{Kind: s.kinds[path], Path: path})
	}
	return records
}

// Diff implements Source. Changes to paths outside of root are skipped. The
// listing itself is never modified.
func (s *ExternalSource) Diff(root string, fn func(ChangeRecord) error) error {
	root = catalog.Normalize(root)
	for _, record := range s.Records() {
		if !catalog.Within(root, record.Path) {
			s.log.WithField("path", record.Path).Debug("Skipping change outside of the source root")
			continue
		}

		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}
