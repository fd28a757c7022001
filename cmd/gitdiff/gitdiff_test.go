package gitdiff

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage/memory"
)

func TestRun(t *testing.T) {
	worktreeFs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), worktreeFs)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(path, contents string) string {
		require.NoError(t, util.WriteFile(worktreeFs, path, []byte(contents), 0644))
		_, err := worktree.Add(path)
		require.NoError(t, err)

		hash, err := worktree.Commit("update "+path, &git.CommitOptions{
			Author: &object.Signature{Name: "Test", When: time.Unix(1569172899, 0)},
		})
		require.NoError(t, err)
		return hash.String()
	}
	first := commit("src/a.cls", "a")
	commit("src/b.cls", "b")

	fs = afero.NewMemMapFs()
	openRepo = func(path string) (*git.Repository, error) {
		assert.Equal(t, "project", path)
		return repo, nil
	}

	offset = func(_ *git.Repository, path string) (string, error) {
		return ".", nil
	}

	err = run(options{repo: "project/", from: first, to: "HEAD", output: "out/diff.txt"})
	require.NoError(t, err)

	contents, err := afero.ReadFile(fs, "out/diff.txt")
	require.NoError(t, err)
	assert.Equal(t, "A\tproject/src/b.cls\n", string(contents))

	// Opened from a subdirectory of the worktree.
	openRepo = func(path string) (*git.Repository, error) {
		assert.Equal(t, "project/src", path)
		return repo, nil
	}
	offset = func(_ *git.Repository, path string) (string, error) {
		return "src", nil
	}

	err = run(options{repo: "project/src", from: first, to: "HEAD", output: "out/diff.txt"})
	require.NoError(t, err)

	contents, err = afero.ReadFile(fs, "out/diff.txt")
	require.NoError(t, err)
	assert.Equal(t, "A\tproject/src/b.cls\n", string(contents))
}

func TestRunMissingFlags(t *testing.T) {
	assert.EqualError(t, run(options{output: "out"}), "The --from revision is required.")
	assert.EqualError(t, run(options{from: "HEAD~1"}), "The --output path is required.")
}
