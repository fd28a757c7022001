package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/deltasync/ci/util"
)

const optionFile = `version: v1alpha1
source: force-app
destination: deploy
deltaFile: .deltasync/hashes
deleteReport: .deltasync/deleted.txt
auditLog: .deltasync/audit.log
ignoreFile: .deltasyncignore
fullCopyDirectories:
- lwc
`

// Test runs the hash strategy twice against a metadata tree.
func Test(t *testing.T, helper *util.TestHelper) {
	helper.WriteFile(t, "deltasync.yaml", optionFile)
	helper.WriteFile(t, ".deltasyncignore", "force-app/**/*.profile-meta.xml\n")
	helper.WriteFile(t, "force-app/classes/Foo.cls", "public class Foo {}")
	helper.WriteFile(t, "force-app/classes/Foo.cls-meta.xml", "<ApexClass/>")
	helper.WriteFile(t, "force-app/classes/Bar.cls", "public class Bar {}")
	helper.WriteFile(t, "force-app/lwc/card/card.js", "export default {}")
	helper.WriteFile(t, "force-app/lwc/card/card.html", "<template></template>")
	helper.WriteFile(t, "force-app/profiles/Admin.profile-meta.xml", "<Profile/>")

	out, err := helper.Run("sync")
	require.NoError(t, err, out)
	assert.Equal(t, "public class Foo {}", helper.ReadFile(t, "deploy/classes/Foo.cls"))
	assert.Equal(t, "<template></template>", helper.ReadFile(t, "deploy/lwc/card/card.html"))
	assert.False(t, helper.Exists("deploy/profiles/Admin.profile-meta.xml"))
	assert.Contains(t, helper.ReadFile(t, ".deltasync/audit.log"), "msg=Copied")
	manifest := helper.ReadFile(t, ".deltasync/hashes")

	// Nothing changed, so nothing is copied and the manifest is untouched.
	out, err = helper.Run("sync", "--destination", "deploy-2")
	require.NoError(t, err, out)
	assert.False(t, helper.Exists("deploy-2"))
	assert.Equal(t, manifest, helper.ReadFile(t, ".deltasync/hashes"))

	// A change to one lwc file copies the whole component, and deletions are
	// reported.
	helper.WriteFile(t, "force-app/lwc/card/card.js", "export default class {}")
	helper.Remove(t, "force-app/classes/Bar.cls")
	out, err = helper.Run("sync", "--destination", "deploy-3")
	require.NoError(t, err, out)
	assert.Equal(t, "export default class {}", helper.ReadFile(t, "deploy-3/lwc/card/card.js"))
	assert.Equal(t, "<template></template>", helper.ReadFile(t, "deploy-3/lwc/card/card.html"))
	assert.False(t, helper.Exists("deploy-3/classes"))
	assert.Equal(t, "force-app/classes/Bar.cls\n", helper.ReadFile(t, ".deltasync/deleted.txt"))
}
