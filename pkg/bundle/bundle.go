// Package bundle resolves the files that have to be copied together with a
// changed file. Salesforce style metadata splits a single component across a
// definition file, a `-meta.xml` descriptor and sometimes a whole directory,
// and a destination that only receives part of a component is unusable.
package bundle

import (
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/errors"
)

// MetaSuffix marks descriptor files.
const MetaSuffix = "-meta.xml"

// BaseName returns the metadata base name of a file: its name without the
// descriptor suffix and without its final extension. Both `Account.object`
// and `Account.object-meta.xml` have the base name `Account`. Dot files are
// their own base name.
func BaseName(name string) string {
	name = strings.TrimSuffix(name, MetaSuffix)
	if base := strings.TrimSuffix(name, filepath.Ext(name)); base != "" {
		return base
	}
	return name
}

// SameStem returns whether the file called name belongs to the component with
// the given base name.
func SameStem(name, base string) bool {
	return name == base || strings.HasPrefix(name, base+".")
}

// FullCopyPath returns the bundle directory that contains path, if path is
// inside one of the full-copy directory kinds. The bundle directory is the
// child of the matching kind directory, e.g. `lwc/myComponent` for
// `lwc/myComponent/myComponent.js`. A descriptor that sits directly in the
// kind directory resolves to the directory named by its base name.
//
// Bundle directories with a dot in their name are rejected unless
// `allowDotted` is set.
func FullCopyPath(path string, names []string, allowDotted bool) (string, bool) {
	if len(names) == 0 {
		return "", false
	}

	kinds := mapset.NewThreadUnsafeSet[string](names...)
	segments := strings.Split(catalog.Normalize(path), string(filepath.Separator))
	for i := 0; i < len(segments)-1; i++ {
		if !kinds.Contains(segments[i]) {
			continue
		}

		bundle := segments[i+1]
		if strings.HasSuffix(bundle, MetaSuffix) {
			bundle = BaseName(bundle)
		}
		if bundle == "" || (!allowDotted && filepath.Ext(bundle) != "") {
			return "", false
		}

		prefix := append(append([]string{}, segments[:i+1]...), bundle)
		return strings.Join(prefix, string(filepath.Separator)), true
	}
	return "", false
}

// Resolver expands changed files into the bundles they belong to.
type Resolver struct {
	fs          afero.Fs
	catalog     catalog.Catalog
	log         logrus.FieldLogger
	fullCopy    []string
	allowDotted bool
}

// NewResolver returns a Resolver for the given full-copy directory kinds.
func NewResolver(fs afero.Fs, log logrus.FieldLogger, fullCopy []string,
	allowDotted bool) *Resolver {
	return &Resolver{
		fs:          fs,
		catalog:     catalog.New(fs),
		log:         log,
		fullCopy:    fullCopy,
		allowDotted: allowDotted,
	}
}

// Expand calls fn once for every file that must be copied because path
// changed. The changed file is included if it still exists. Missing
// directories contribute nothing.
func (r *Resolver) Expand(path string, fn catalog.WalkFunc) error {
	path = catalog.Normalize(path)
	seen := mapset.NewThreadUnsafeSet[string]()
	emit := func(p string) error {
		if !seen.Add(p) {
			return nil
		}
		return fn(p)
	}

	dir, err := r.expandBundle(path, emit)
	if err != nil {
		return err
	}

	// Some kinds keep their descriptor next to the component directory
	// rather than inside it.
	parent := filepath.Dir(dir)
	prefix := filepath.Base(dir) + "."
	return r.catalog.ListFiles(parent, false, func(p string) error {
		name := filepath.Base(p)
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, MetaSuffix) {
			return emit(p)
		}
		return nil
	})
}

// expandBundle emits the files of the bundle containing path, and returns the
// directory that was expanded.
func (r *Resolver) expandBundle(path string, emit catalog.WalkFunc) (string, error) {
	if dir, ok := FullCopyPath(path, r.fullCopy, r.allowDotted); ok {
		isDir, err := afero.IsDir(r.fs, dir)
		if err != nil && !os.IsNotExist(err) {
			return "", errors.WithContext(err, "stat bundle")
		}

		if isDir {
			r.log.WithFields(logrus.Fields{
				"path":   path,
				"bundle": dir,
			}).Debug("Copying full bundle directory")
			return dir, r.catalog.ListFiles(dir, true, emit)
		}
	}

	dir := filepath.Dir(path)
	base := BaseName(filepath.Base(path))
	return dir, r.catalog.ListFiles(dir, false, func(p string) error {
		if SameStem(filepath.Base(p), base) {
			return emit(p)
		}
		return nil
	})
}
