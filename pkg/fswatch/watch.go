// Package fswatch notifies deltasync when the source tree changes so that
// watch mode can start a new run.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Filter returns whether changes to path should be ignored.
type Filter func(path string) bool

// Watch watches root and every directory below it. It sends an event on the
// returned channel whenever something below root changes, unless the changed
// path is selected by `skip`. Bursts of changes are combined into a single
// event. Directories created after Watch is called are watched as well.
//
// The watcher is closed when ctx is cancelled.
func Watch(ctx context.Context, root string, skip Filter) (<-chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	go func() {
		for {
			select {
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("File watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		if err := watcher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
	}()

	return combineUpdates(watcher.Events, func(event fsnotify.Event) bool {
		if skip != nil && skip(event.Name) {
			return false
		}

		if event.Op&fsnotify.Create != 0 {
			if isDir, _ := afero.IsDir(fs, event.Name); isDir {
				if err := watcher.Add(event.Name); err != nil {
					log.WithError(err).WithField("path", event.Name).Warn(
						"Failed to watch new directory")
				}
			}
		}
		return true
	}), nil
}

// combineUpdates forwards the events accepted by `accept`, dropping events
// while a previous one is still pending. The returned channel is closed once
// `updates` is closed.
func combineUpdates(updates <-chan fsnotify.Event, accept func(fsnotify.Event) bool) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		defer close(combined)
		for event := range updates {
			if !accept(event) {
				continue
			}

			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns root and the directories below it. fsnotify doesn't
// watch directories recursively, so each directory is watched separately. If
// root is a file, its parent directory is watched as well so that we notice
// if the file is removed and re-added.
func getPathsToWatch(root string) (paths []string, err error) {
	root = catalog.Normalize(root)
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	paths = append(paths, root)
	if !fi.IsDir() {
		return append(paths, filepath.Dir(root)), nil
	}

	err = catalog.New(fs).ListDirectories(root, true, func(dir string) error {
		paths = append(paths, dir)
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "get subdirs")
	}
	return paths, nil
}
