package config

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/deltasync/pkg/errors"
)

func TestParseSyncOptions(t *testing.T) {
	out := "deltasync.yaml"

	tests := []struct {
		name     string
		input    []byte
		expOpts  SyncOptions
		expError error
	}{
		{
			name:  "EmptyVersion",
			input: mustMarshal(SyncOptions{Source: "force-app"}),
			expOpts: SyncOptions{
				Version:  InitialSyncOptionsVersion,
				Strategy: StrategyHash,
				Source:   "force-app",
				path:     out,
			},
		},
		{
			name: "FullOptions",
			input: []byte(`
version: v1alpha1
strategy: external
source: ./force-app/main/
destination: out/deploy/
deltaFile: .deltas/diff.txt
deleteReport: out/deleted.txt
dryRun: true
fullCopyDirectories: [lwc, aura, lwc, ""]
`),
			expOpts: SyncOptions{
				Version:             SupportedSyncOptionsVersion,
				Strategy:            StrategyExternal,
				Source:              filepath.FromSlash("force-app/main"),
				Destination:         filepath.FromSlash("out/deploy"),
				DeltaFile:           filepath.FromSlash(".deltas/diff.txt"),
				DeleteReport:        filepath.FromSlash("out/deleted.txt"),
				DryRun:              true,
				FullCopyDirectories: []string{"lwc", "aura"},
				path:                out,
			},
		},
		{
			name: "IncorrectVersion",
			input: mustMarshal(SyncOptions{
				Version: "incorrect_version",
				Source:  "force-app",
			}),
			expError: errors.WithContext(incompatibleVersionError{
				path:   out,
				exp:    SupportedSyncOptionsVersion,
				actual: "incorrect_version",
			}, "parse"),
		},
		{
			name: "IncorrectVersionAndExtraFields",
			input: []byte(`
version: incorrect_version
extra: fields
`),
			expError: errors.WithContext(incompatibleVersionError{
				path:   out,
				exp:    SupportedSyncOptionsVersion,
				actual: "incorrect_version",
			}, "parse"),
		},
		{
			name:  "UnknownStrategy",
			input: []byte("source: src\nstrategy: svn\n"),
			expError: errors.NewFriendlyError(
				"Unknown strategy %q. Expected one of %q, %q or %q.",
				"svn", StrategyHash, StrategyExternal, StrategyGit),
		},
	}

	fs = afero.NewMemMapFs()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := afero.WriteFile(fs, out, test.input, 0644)
			assert.NoError(t, err)
			opts, err := ParseSyncOptions(out)
			assert.Equal(t, test.expError, err)
			if test.expError == nil {
				assert.Equal(t, test.expOpts, opts)
			}
		})
	}
}

func TestParseSyncOptionsExtraFields(t *testing.T) {
	fs = afero.NewMemMapFs()
	input := fmt.Sprintf("version: %s\nsource: src\nextra: fields", SupportedSyncOptionsVersion)
	require.NoError(t, afero.WriteFile(fs, DefaultPath, []byte(input), 0644))

	_, err := ParseSyncOptions(DefaultPath)
	require.Error(t, err)

	friendly, ok := errors.RootCause(err).(errors.FriendlyError)
	require.True(t, ok)
	assert.Contains(t, friendly.FriendlyMessage(), `unknown field "extra"`)
}

func TestParseSyncOptionsMissingFile(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, err := ParseSyncOptions("missing.yaml")
	assert.Equal(t, errors.FileNotFound{Path: "missing.yaml"}, errors.RootCause(err))
}

func TestNormalizeExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}

	opts, err := SyncOptions{Source: "~/project/src", Git: GitOptions{Repo: "~/project"}}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "project", "src"), opts.Source)
	assert.Equal(t, filepath.Join(home, "project"), opts.Git.Repo)
	assert.Equal(t, StrategyHash, opts.Strategy)
	assert.Empty(t, opts.Destination)
}

func mustMarshal(cfg interface{}) []byte {
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		panic(fmt.Errorf("bad test input, unable to marshal to yaml: %s", err))
	}
	return yamlBytes
}
