package sync

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Metrics counts what happened during a run.
type Metrics struct {
	// Copy is the number of files copied, including files pulled in by bundle
	// expansion.
	Copy int

	// Delete is the number of deleted files.
	Delete int

	// None is the number of unchanged files.
	None int

	// Ignore is the number of distinct files skipped because of the ignore
	// file. A file is counted once per run, even if it is reached through
	// several changes or bundles.
	Ignore int
}

// Fields returns the metrics as log fields.
func (m Metrics) Fields() logrus.Fields {
	return logrus.Fields{
		"copied":    m.Copy,
		"deleted":   m.Delete,
		"unchanged": m.None,
		"ignored":   m.Ignore,
	}
}

func (m Metrics) String() string {
	return fmt.Sprintf("Copy: %d, Delete: %d, None: %d, Ignore: %d",
		m.Copy, m.Delete, m.None, m.Ignore)
}
