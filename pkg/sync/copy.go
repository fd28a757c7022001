package sync

import (
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/catalog"
	"github.com/sidkik/deltasync/pkg/errors"
)

// destinationPath returns where path is mirrored to below dst. A source that
// is a single file is copied into dst.
func destinationPath(source, dst, path string) (string, error) {
	rel, err := filepath.Rel(catalog.Normalize(source), path)
	if err != nil {
		return "", errors.WithContext(err, "relative path")
	}
	if rel == "." {
		rel = filepath.Base(path)
	}
	return filepath.Join(dst, rel), nil
}

// copyFile copies src to dst, creating any missing parent directories. The
// file mode and modification time are preserved. The contents are staged in a
// temporary file next to dst and renamed into place, so dst is never left
// partially written.
func copyFile(fs afero.Fs, src, dst string) (err error) {
	dstParent := filepath.Dir(dst)
	if err := fs.MkdirAll(dstParent, 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return errors.WithContext(err, "stat")
	}

	tmpFile, err := afero.TempFile(fs, dstParent, "."+filepath.Base(dst)+".tmp")
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		if err != nil {
			fs.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		return errors.WithContext(err, "copy")
	}

	if err := tmpFile.Close(); err != nil {
		return errors.WithContext(err, "close temp file")
	}

	if err := fs.Chmod(tmpPath, fileInfo.Mode()); err != nil {
		return errors.WithContext(err, "set file mode")
	}

	// Change the modification time after the file is closed so that it doesn't
	// get reset by other file operations.
	if err := fs.Chtimes(tmpPath, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}

	if err := fs.Rename(tmpPath, dst); err != nil {
		return errors.WithContext(err, "rename into place")
	}
	return nil
}
