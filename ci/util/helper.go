package util

import (
	"bytes"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	// Binary is the deltasync binary under test.
	Binary string

	// WorkDir is the directory the binary is run from. It's removed once the
	// test completes.
	WorkDir string
}

// NewTestHelper creates a TestHelper with a fresh working directory.
func NewTestHelper(t *testing.T, binary string) *TestHelper {
	dir, err := ioutil.TempDir("", "deltasync-ci")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return &TestHelper{Binary: binary, WorkDir: dir}
}

// Run runs deltasync with the given arguments from the working directory, and
// returns its combined output.
func (helper *TestHelper) Run(args ...string) (string, error) {
	cmd := exec.Command(helper.Binary, args...)
	cmd.Dir = helper.WorkDir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// Git runs git in the working directory.
func (helper *TestHelper) Git(t *testing.T, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = helper.WorkDir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=ci", "GIT_AUTHOR_EMAIL=ci@example.com",
		"GIT_COMMITTER_NAME=ci", "GIT_COMMITTER_EMAIL=ci@example.com")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// WriteFile writes a file relative to the working directory, creating its
// parent directories.
func (helper *TestHelper) WriteFile(t *testing.T, path, contents string) {
	path = filepath.Join(helper.WorkDir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
}

// ReadFile reads a file relative to the working directory.
func (helper *TestHelper) ReadFile(t *testing.T, path string) string {
	contents, err := ioutil.ReadFile(filepath.Join(helper.WorkDir, filepath.FromSlash(path)))
	require.NoError(t, err)
	return string(contents)
}

// Exists returns whether a path relative to the working directory exists.
func (helper *TestHelper) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(helper.WorkDir, filepath.FromSlash(path)))
	return err == nil
}

// Remove removes a file relative to the working directory.
func (helper *TestHelper) Remove(t *testing.T, path string) {
	require.NoError(t, os.Remove(filepath.Join(helper.WorkDir, filepath.FromSlash(path))))
}
