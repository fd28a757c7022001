package bundle

import (
	"path/filepath"
	"sort"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"Account.object":              "Account",
		"Account.object-meta.xml":     "Account",
		"myComponent.js":              "myComponent",
		"myComponent.js-meta.xml":     "myComponent",
		"Foo.resource-meta.xml":       "Foo",
		"Makefile":                    "Makefile",
		".gitignore":                  ".gitignore",
		"Admin.profile-meta.xml.orig": "Admin.profile-meta.xml",
	}

	for name, exp := range tests {
		assert.Equal(t, exp, BaseName(name), name)
	}
}

func TestSameStem(t *testing.T) {
	assert.True(t, SameStem("Account.object-meta.xml", "Account"))
	assert.True(t, SameStem("Account.field-meta.xml", "Account"))
	assert.True(t, SameStem("Makefile", "Makefile"))
	assert.False(t, SameStem("AccountTeam.object-meta.xml", "Account"))
}

func TestFullCopyPath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		names       []string
		allowDotted bool
		exp         string
		expOK       bool
	}{
		{
			name:  "ComponentFile",
			path:  "force-app/main/default/lwc/myComponent/myComponent.js",
			names: []string{"lwc", "aura"},
			exp:   "force-app/main/default/lwc/myComponent",
			expOK: true,
		},
		{
			name:  "NestedComponentFile",
			path:  "force-app/main/default/lwc/myComponent/__tests__/myComponent.test.js",
			names: []string{"lwc"},
			exp:   "force-app/main/default/lwc/myComponent",
			expOK: true,
		},
		{
			name:  "SideCarInKindDirectory",
			path:  "force-app/main/default/staticresources/Logo.resource-meta.xml",
			names: []string{"staticresources"},
			exp:   "force-app/main/default/staticresources/Logo",
			expOK: true,
		},
		{
			name:  "PlainFileInKindDirectory",
			path:  "force-app/main/default/lwc/jsconfig.json",
			names: []string{"lwc"},
		},
		{
			name:  "DottedBundleRejected",
			path:  "force-app/main/default/experiences/site1.site/config.json",
			names: []string{"experiences"},
		},
		{
			name:        "DottedBundleAllowed",
			path:        "force-app/main/default/experiences/site1.site/config.json",
			names:       []string{"experiences"},
			allowDotted: true,
			exp:         "force-app/main/default/experiences/site1.site",
			expOK:       true,
		},
		{
			name:  "NoMatchingKind",
			path:  "force-app/main/default/classes/Foo.cls",
			names: []string{"lwc"},
		},
		{
			name: "NoKinds",
			path: "force-app/main/default/lwc/myComponent/myComponent.js",
		},
		{
			name:  "KindIsFileName",
			path:  "force-app/lwc",
			names: []string{"lwc"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			path, ok := FullCopyPath(filepath.FromSlash(test.path), test.names, test.allowDotted)
			assert.Equal(t, test.expOK, ok)
			assert.Equal(t, filepath.FromSlash(test.exp), path)
		})
	}
}

func expand(t *testing.T, r *Resolver, path string) []string {
	var paths []string
	err := r.Expand(path, func(p string) error {
		paths = append(paths, filepath.ToSlash(p))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func TestResolverExpand(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{
		"src/lwc/myComponent/myComponent.js",
		"src/lwc/myComponent/myComponent.html",
		"src/lwc/myComponent/myComponent.js-meta.xml",
		"src/lwc/myComponent/__tests__/myComponent.test.js",
		"src/lwc/other/other.js",
		"src/objects/Account.object-meta.xml",
		"src/objects/Account.field-meta.xml",
		"src/objects/AccountTeam.object-meta.xml",
		"src/staticresources/Logo.resource-meta.xml",
		"src/staticresources/Logo/logo.png",
		"src/staticresources/Icon.resource",
		"src/staticresources/Icon.resource-meta.xml",
		"src/documents/Shared.documentFolder-meta.xml",
		"src/documents/Shared/report.pdf",
		"src/documents/Shared/report.pdf-meta.xml",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(path), 0644))
	}

	log, _ := logrusTest.NewNullLogger()
	r := NewResolver(fs, log, []string{"lwc", "staticresources"}, false)

	tests := []struct {
		name string
		path string
		exp  []string
	}{
		{
			name: "FullCopyDirectory",
			path: "src/lwc/myComponent/myComponent.js",
			exp: []string{
				"src/lwc/myComponent/__tests__/myComponent.test.js",
				"src/lwc/myComponent/myComponent.html",
				"src/lwc/myComponent/myComponent.js",
				"src/lwc/myComponent/myComponent.js-meta.xml",
			},
		},
		{
			name: "SameStemSiblings",
			path: "src/objects/Account.object-meta.xml",
			exp: []string{
				"src/objects/Account.field-meta.xml",
				"src/objects/Account.object-meta.xml",
			},
		},
		{
			name: "DescriptorBesideBundleDirectory",
			path: "src/staticresources/Logo/logo.png",
			exp: []string{
				"src/staticresources/Logo.resource-meta.xml",
				"src/staticresources/Logo/logo.png",
			},
		},
		{
			name: "SideCarResolvesToBundleDirectory",
			path: "src/staticresources/Logo.resource-meta.xml",
			exp: []string{
				"src/staticresources/Logo.resource-meta.xml",
				"src/staticresources/Logo/logo.png",
			},
		},
		{
			name: "SideCarWithoutBundleDirectory",
			path: "src/staticresources/Icon.resource-meta.xml",
			exp: []string{
				"src/staticresources/Icon.resource",
				"src/staticresources/Icon.resource-meta.xml",
			},
		},
		{
			name: "FolderDescriptorInParent",
			path: "src/documents/Shared/report.pdf",
			exp: []string{
				"src/documents/Shared.documentFolder-meta.xml",
				"src/documents/Shared/report.pdf",
				"src/documents/Shared/report.pdf-meta.xml",
			},
		},
		{
			name: "MissingDirectory",
			path: "src/missing/Foo.cls",
			exp:  nil,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, expand(t, r, filepath.FromSlash(test.path)))
		})
	}
}

func TestResolverExpandOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "src/Shared/Shared.cls", nil, 0644))
	require.NoError(t, afero.WriteFile(fs, "src/Shared.cls-meta.xml", nil, 0644))

	log, _ := logrusTest.NewNullLogger()
	r := NewResolver(fs, log, nil, false)

	var paths []string
	require.NoError(t, r.Expand(filepath.FromSlash("src/Shared/Shared.cls"), func(p string) error {
		paths = append(paths, filepath.ToSlash(p))
		return nil
	}))
	assert.Equal(t, []string{"src/Shared/Shared.cls", "src/Shared.cls-meta.xml"}, paths)
}
