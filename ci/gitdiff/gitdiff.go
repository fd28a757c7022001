package gitdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/deltasync/ci/util"
)

// Test syncs the changes between two commits with both the gitdiff command
// and the git strategy.
func Test(t *testing.T, helper *util.TestHelper) {
	helper.Git(t, "init", "-q")
	helper.WriteFile(t, "src/classes/Foo.cls", "v1")
	helper.WriteFile(t, "src/classes/Foo.cls-meta.xml", "<ApexClass/>")
	helper.WriteFile(t, "src/classes/Old.cls", "old")
	helper.Git(t, "add", "-A")
	helper.Git(t, "commit", "-q", "-m", "first")
	helper.Git(t, "tag", "first")

	helper.WriteFile(t, "src/classes/Foo.cls", "v2")
	helper.Git(t, "rm", "-q", "src/classes/Old.cls")
	helper.Git(t, "add", "-A")
	helper.Git(t, "commit", "-q", "-m", "second")

	out, err := helper.Run("gitdiff", "--from", "first", "--output", "diff.txt")
	require.NoError(t, err, out)
	assert.Equal(t, "M\tsrc/classes/Foo.cls\nD\tsrc/classes/Old.cls\n",
		helper.ReadFile(t, "diff.txt"))

	out, err = helper.Run("sync", "--strategy", "external", "--source", "src",
		"--destination", "external", "--delta-file", "diff.txt",
		"--delete-report", "deleted.txt")
	require.NoError(t, err, out)
	assert.Equal(t, "v2", helper.ReadFile(t, "external/classes/Foo.cls"))
	assert.Equal(t, "<ApexClass/>", helper.ReadFile(t, "external/classes/Foo.cls-meta.xml"))
	assert.Equal(t, "src/classes/Old.cls\n", helper.ReadFile(t, "deleted.txt"))

	out, err = helper.Run("sync", "--strategy", "git", "--source", "src",
		"--destination", "git", "--git-from", "first")
	require.NoError(t, err, out)
	assert.Equal(t, "v2", helper.ReadFile(t, "git/classes/Foo.cls"))
}
