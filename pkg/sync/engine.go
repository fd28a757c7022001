package sync

import (
	"fmt"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/audit"
	"github.com/sidkik/deltasync/pkg/bundle"
	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/delta"
	"github.com/sidkik/deltasync/pkg/errors"
)

// Engine mirrors the changes reported by a delta.Source into a destination
// tree. An Engine is not safe for concurrent use, and each Source may only be
// run once.
type Engine struct {
	fs      afero.Fs
	catalog catalog.Catalog
	log     *logrus.Logger
	source  delta.Source

	// Mocked out for unit testing.
	copyFile func(fs afero.Fs, src, dst string) error
}

// New returns an Engine that syncs the changes detected by source. `log` is
// the console logger.
func New(fs afero.Fs, log *logrus.Logger, source delta.Source) *Engine {
	return &Engine{
		fs:       fs,
		catalog:  catalog.New(fs),
		log:      log,
		source:   source,
		copyFile: copyFile,
	}
}

// run holds the state of a single Run.
type run struct {
	*Engine

	opts     config.SyncOptions
	audit    *audit.Log
	resolver *bundle.Resolver
	metrics  Metrics

	// ignored is every existing file selected by the ignore file, and
	// ignorePatterns are the raw lines so that deleted files can be matched
	// too.
	ignored        mapset.Set[string]
	ignorePatterns []string

	// ignoreCounted holds the ignored files that have been counted, so that a
	// file reached through several bundles is counted once.
	ignoreCounted mapset.Set[string]

	// copied holds the files copied so far, since overlapping bundles would
	// otherwise copy the same file twice.
	copied mapset.Set[string]

	deleteReport afero.File
}

// Run syncs the changes below opts.Source into opts.Destination. The returned
// metrics are valid even when an error is returned, and reflect the work done
// before the failure. Run recovers from panics and reports them as errors.
func (e *Engine) Run(opts config.SyncOptions) (metrics Metrics, err error) {
	if err := e.source.Validate(opts); err != nil {
		e.log.WithField("strategy", e.source.Name()).Error(err.Error())
		return Metrics{}, err
	}

	auditLog, err := audit.Open(e.fs, opts.AuditLog, e.log, opts.Console)
	if err != nil {
		e.log.WithError(err).Error("Failed to open audit log")
		return Metrics{}, errors.WithContext(err, "open audit log")
	}
	defer auditLog.Close()
	e.source.SetLogger(auditLog.Tee(e.log, logrus.InfoLevel))

	r := &run{
		Engine:        e,
		opts:          opts,
		audit:         auditLog,
		resolver:      bundle.NewResolver(e.fs, auditLog, opts.FullCopyDirectories, opts.AllowDottedBundles),
		ignored:       mapset.NewThreadUnsafeSet[string](),
		ignoreCounted: mapset.NewThreadUnsafeSet[string](),
		copied:        mapset.NewThreadUnsafeSet[string](),
	}

	if opts.Destination == "" {
		r.report(true, logrus.InfoLevel, logrus.Fields{"source": opts.Source},
			"Nothing to do, no destination specified")
		return Metrics{}, nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}

		if r.deleteReport != nil {
			if closeErr := r.deleteReport.Close(); closeErr != nil && err == nil {
				err = errors.WithContext(closeErr, "close delete report")
			}
		}

		if err != nil {
			r.report(true, logrus.ErrorLevel, logrus.Fields{"error": err.Error()}, "Sync failed")
		}
		r.report(true, logrus.InfoLevel, r.metrics.Fields(), "Sync metrics")
		metrics = r.metrics
	}()

	return Metrics{}, r.execute()
}

func (r *run) execute() error {
	r.report(false, logrus.InfoLevel, logrus.Fields{
		"strategy":    r.source.Name(),
		"source":      r.opts.Source,
		"destination": r.opts.Destination,
		"dryRun":      r.opts.DryRun,
	}, "Starting sync")

	if r.opts.DeleteReport != "" {
		if err := r.fs.Remove(r.opts.DeleteReport); err != nil && !os.IsNotExist(err) {
			return errors.WithContext(err, "remove old delete report")
		}
	}

	if err := r.loadIgnored(); err != nil {
		return errors.WithContext(err, "load ignore file")
	}

	if err := r.source.Load(r.opts); err != nil {
		return errors.WithContext(err, "load delta file")
	}

	if err := r.pruneForced(); err != nil {
		return errors.WithContext(err, "load force file")
	}

	return r.source.Diff(r.opts.Source, r.handle)
}

// readPatterns returns the lines of a pattern file, along with every file the
// lines select.
func (r *run) readPatterns(path string) (patterns, files []string, err error) {
	if path == "" {
		return nil, nil, nil
	}

	patterns, exists, err := delta.ReadLines(r.fs, path)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		r.report(true, logrus.WarnLevel, logrus.Fields{"file": path}, "Pattern file does not exist")
		return nil, nil, nil
	}

	for _, pattern := range patterns {
		matches, err := r.catalog.Files(pattern, true)
		if err != nil {
			return nil, nil, errors.WithContext(err, fmt.Sprintf("expand %q", pattern))
		}
		files = append(files, matches...)
	}
	return patterns, files, nil
}

func (r *run) loadIgnored() error {
	patterns, files, err := r.readPatterns(r.opts.IgnoreFile)
	if err != nil {
		return err
	}

	r.ignorePatterns = patterns
	for _, file := range files {
		r.ignored.Add(file)
	}
	return nil
}

// pruneForced removes the forced files from the manifest so that they are
// reported as added.
func (r *run) pruneForced() error {
	if r.opts.ForceFile == "" {
		return nil
	}

	pruner, ok := r.source.(delta.Pruner)
	if !ok {
		r.report(true, logrus.WarnLevel, logrus.Fields{"strategy": r.source.Name()},
			"The force file is only supported by the hash strategy")
		return nil
	}

	_, files, err := r.readPatterns(r.opts.ForceFile)
	if err != nil {
		return err
	}

	for _, file := range files {
		if pruner.Prune(file) {
			r.report(false, logrus.InfoLevel, logrus.Fields{"path": file}, "Forcing copy")
		}
	}
	return nil
}

func (r *run) isIgnored(path string) bool {
	if r.ignored.Contains(path) {
		return true
	}

	for _, pattern := range r.ignorePatterns {
		if catalog.Match(pattern, path) {
			return true
		}
	}
	return false
}

func (r *run) ignore(path string) {
	if !r.ignoreCounted.Add(path) {
		return
	}
	r.metrics.Ignore++
	r.report(true, logrus.InfoLevel, logrus.Fields{"path": path}, "Ignored")
}

func (r *run) handle(record delta.ChangeRecord) error {
	if r.isIgnored(record.Path) {
		r.ignore(record.Path)
		return nil
	}

	switch record.Kind {
	case delta.Deleted:
		if err := r.recordDeleted(record.Path); err != nil {
			return errors.WithContext(err, "write delete report")
		}
		r.metrics.Delete++
		r.report(true, logrus.InfoLevel, logrus.Fields{"path": record.Path}, "Deleted")
	case delta.Added, delta.Modified:
		r.report(false, logrus.DebugLevel, logrus.Fields{
			"path": record.Path,
			"kind": record.Kind.String(),
		}, "Expanding bundle")
		if err := r.resolver.Expand(record.Path, r.copy); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy bundle of %q", record.Path))
		}
	case delta.None:
		r.metrics.None++
		r.report(false, logrus.InfoLevel, logrus.Fields{"path": record.Path}, "Unchanged")
	default:
		r.report(true, logrus.WarnLevel, logrus.Fields{
			"path": record.Path,
			"kind": record.Kind.String(),
		}, "Skipping change with unknown kind")
	}
	return nil
}

func (r *run) copy(path string) error {
	if r.copied.Contains(path) {
		return nil
	}

	if r.isIgnored(path) {
		r.ignore(path)
		return nil
	}

	if !catalog.Within(r.opts.Source, path) {
		r.report(false, logrus.DebugLevel, logrus.Fields{"path": path},
			"Skipping bundle file outside of the source root")
		return nil
	}

	dst, err := destinationPath(r.opts.Source, r.opts.Destination, path)
	if err != nil {
		return err
	}

	if !r.opts.DryRun {
		if err := r.copyFile(r.fs, path, dst); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %q", path))
		}
	}

	r.copied.Add(path)
	r.metrics.Copy++
	r.report(true, logrus.InfoLevel, logrus.Fields{
		"path":        path,
		"destination": dst,
		"dryRun":      r.opts.DryRun,
	}, "Copied")
	return nil
}

func (r *run) recordDeleted(path string) error {
	if r.opts.DeleteReport == "" {
		return nil
	}

	if r.deleteReport == nil {
		if dir := filepath.Dir(r.opts.DeleteReport); dir != "." {
			if err := r.fs.MkdirAll(dir, 0755); err != nil {
				return errors.WithContext(err, "make parent")
			}
		}

		f, err := r.fs.OpenFile(r.opts.DeleteReport, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.WithContext(err, "open")
		}
		r.deleteReport = f
	}

	_, err := r.deleteReport.WriteString(path + delta.LineEnding())
	return err
}

// report logs to the audit log. If `show` is set, the entry is also logged to
// the console.
func (r *run) report(show bool, level logrus.Level, fields logrus.Fields, msg string) {
	r.audit.WithFields(fields).Log(level, msg)
	if show && !r.audit.Mirrored() {
		r.log.WithFields(fields).Log(level, msg)
	}
}
