package delta

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
)

// Source detects the files that changed below a source root.
type Source interface {
	// Name identifies the strategy in logs.
	Name() string

	// SetLogger replaces the logger that the source reports its decisions
	// to. The engine sets it to the run's audit log before loading.
	SetLogger(log logrus.FieldLogger)

	// Validate returns an errors.ValidationError if `opts` is missing
	// something the source needs. It has no side effects.
	Validate(opts config.SyncOptions) error

	// Load reads the source's manifest. Calling Load again once it has
	// succeeded is a no-op.
	Load(opts config.SyncOptions) error

	// Diff calls fn with every change below root, in order. Diff may only be
	// called once per Load since sources are allowed to update their
	// manifest as they go. An error returned by fn stops the diff and is
	// returned.
	Diff(root string, fn func(ChangeRecord) error) error
}

// A Pruner can forget files so that the next Diff reports them as new.
type Pruner interface {
	// Prune removes path from the manifest, and returns whether it was
	// present.
	Prune(path string) bool
}

// lineEnding terminates each line written to manifests and reports.
var lineEnding = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// LineEnding returns the platform line terminator used for written files.
func LineEnding() string {
	return lineEnding
}

// ValidateSource checks the options every strategy requires.
func ValidateSource(opts config.SyncOptions) error {
	if opts.Source == "" {
		return errors.ValidationError{Message: "No delta source specified."}
	}
	return nil
}

// ReadLines returns the non-blank lines of the file at path, with
// surrounding whitespace removed. A missing file has no lines and `exists` is
// false.
func ReadLines(fs afero.Fs, path string) (lines []string, exists bool, err error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.WithContext(err, "open")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, true, errors.WithContext(err, "read")
	}
	return lines, true, nil
}
