package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/deltasync/pkg/errors"
)

// Mocked out for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// VerboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const VerboseLogKey = "DELTASYNC_LOG_VERBOSE"

type friendlyError interface {
	FriendlyMessage() string
}

// HandleFatalError handles errors that are severe enough to terminate the
// program. Errors with a friendly message are printed as is, and other
// errors are logged with their full context.
func HandleFatalError(err error) {
	var friendly friendlyError
	if errors.As(err, &friendly) {
		fmt.Fprintln(stderr, friendly.FriendlyMessage())
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs unexpected panics, and exits with a non-zero status. It
// must be deferred directly.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		fmt.Fprintf(stderr, "deltasync crashed unexpectedly. "+
			"Rerun with %s=true for more information.\n", VerboseLogKey)
		exit(1)
	}
}
