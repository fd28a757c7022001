// Package catalog enumerates the files and directories below a root. It is
// the only place that walks the file system, so every other package gets the
// same treatment of missing roots, glob roots and single-file roots.
package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/errors"
)

// EntryKind selects which kinds of entries a listing yields.
type EntryKind int

const (
	// File selects regular files.
	File EntryKind = 1 << iota
	// Folder selects directories.
	Folder
	// Both selects files and directories.
	Both = File | Folder
)

// Unlimited is the depth that descends the whole tree.
const Unlimited = -1

// WalkFunc is called once for every listed path. Returning an error stops the
// listing and the error is returned to the caller unchanged.
type WalkFunc func(path string) error

// Catalog lists entries from a file system. Listings are never cached, so
// calling a method twice rescans the disk.
type Catalog struct {
	fs afero.Fs
}

// New returns a Catalog backed by fs.
func New(fs afero.Fs) Catalog {
	return Catalog{fs: fs}
}

// Normalize converts path to the host separator convention and cleans it.
// The empty path stays empty.
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(path))
}

// IsGlob returns whether path contains wildcard syntax.
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// ListFiles lists the files below root.
func (c Catalog) ListFiles(root string, recursive bool, fn WalkFunc) error {
	return c.ListEntries(root, File, recursive, Unlimited, fn)
}

// ListDirectories lists the directories below root. Each directory is listed
// once.
func (c Catalog) ListDirectories(root string, recursive bool, fn WalkFunc) error {
	seen := mapset.NewThreadUnsafeSet[string]()
	return c.ListEntries(root, Folder, recursive, Unlimited, func(path string) error {
		if !seen.Add(path) {
			return nil
		}
		return fn(path)
	})
}

// Files collects ListFiles into a slice.
func (c Catalog) Files(root string, recursive bool) ([]string, error) {
	var files []string
	err := c.ListFiles(root, recursive, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}

// ListEntries is the general listing primitive.
//
// A root that doesn't exist lists nothing. A root that is a file lists just
// that file (if kind includes files). A root containing wildcards is expanded
// in one shot rather than walked. Otherwise the directory is walked, listing
// each directory before its contents. `depth` limits how many levels below
// root are visited; a non-recursive listing only visits the first level.
//
// Errors other than a path not existing, such as permission errors, are
// returned.
func (c Catalog) ListEntries(root string, kind EntryKind, recursive bool,
	depth int, fn WalkFunc) error {

	root = Normalize(root)
	if root == "" {
		return nil
	}

	if IsGlob(root) {
		return c.glob(root, kind, fn)
	}

	fi, err := c.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		if kind&File != 0 {
			return fn(root)
		}
		return nil
	}

	if !recursive {
		depth = 1
	}
	return c.walk(root, kind, depth, fn)
}

func (c Catalog) walk(dir string, kind EntryKind, depth int, fn WalkFunc) error {
	if depth == 0 {
		return nil
	}

	children, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		// The directory was removed after we decided to descend into it.
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithContext(err, "read dir")
	}

	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		if !child.IsDir() {
			if kind&File != 0 {
				if err := fn(path); err != nil {
					return err
				}
			}
			continue
		}

		if kind&Folder != 0 {
			if err := fn(path); err != nil {
				return err
			}
		}

		if err := c.walk(path, kind, depth-1, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c Catalog) glob(pattern string, kind EntryKind, fn WalkFunc) error {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))

	fsys := afero.NewIOFS(c.fs)
	if base != "." {
		fsys = afero.NewIOFS(afero.NewBasePathFs(c.fs, filepath.FromSlash(base)))
	}

	matches, err := doublestar.Glob(fsys, rest)
	if err != nil {
		return errors.WithContext(err, "glob")
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, match := range matches {
		path := filepath.Join(filepath.FromSlash(base), filepath.FromSlash(match))
		if !seen.Add(path) {
			continue
		}

		fi, err := c.fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.WithContext(err, "stat")
		}

		if fi.IsDir() && kind&Folder == 0 || !fi.IsDir() && kind&File == 0 {
			continue
		}

		if err := fn(path); err != nil {
			return err
		}
	}
	return nil
}

// Exists returns whether path exists.
func (c Catalog) Exists(path string) (bool, error) {
	return afero.Exists(c.fs, Normalize(path))
}

// Within returns whether path is root or a descendant of root. Both paths
// are compared lexically. The root "." contains every relative path.
func Within(root, path string) bool {
	root, path = Normalize(root), Normalize(path)
	if root == "" || root == "." {
		return !filepath.IsAbs(path) && !escapes(path)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return !escapes(rel)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Match returns whether path is selected by pattern. A glob pattern selects
// the paths it matches, and any other pattern selects itself and everything
// below it. Match doesn't touch the file system, so it also works for paths
// that no longer exist.
func Match(pattern, path string) bool {
	pattern = Normalize(pattern)
	if pattern == "" {
		return false
	}

	if IsGlob(pattern) {
		ok, err := doublestar.PathMatch(pattern, Normalize(path))
		return err == nil && ok
	}
	return Within(pattern, path)
}
