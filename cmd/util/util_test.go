package util

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/deltasync/pkg/config"
	"github.com/sidkik/deltasync/pkg/errors"
)

func mockExit(t *testing.T) (*bytes.Buffer, *int) {
	var out bytes.Buffer
	code := -1
	stderr = &out
	exit = func(c int) { code = c }
	return &out, &code
}

func TestHandleFatalError(t *testing.T) {
	out, code := mockExit(t)
	HandleFatalError(errors.WithContext(
		errors.NewFriendlyError("Something went wrong."), "context"))
	assert.Equal(t, "Something went wrong.\n", out.String())
	assert.Equal(t, 1, *code)

	out, code = mockExit(t)
	HandleFatalError(errors.New("unfriendly"))
	assert.Empty(t, out.String())
	assert.Equal(t, 1, *code)
}

func TestHandlePanic(t *testing.T) {
	out, code := mockExit(t)
	func() {
		defer HandlePanic()
		panic("boom")
	}()
	assert.Contains(t, out.String(), VerboseLogKey)
	assert.Equal(t, 1, *code)

	out, code = mockExit(t)
	func() {
		defer HandlePanic()
	}()
	assert.Empty(t, out.String())
	assert.Equal(t, -1, *code)
}

func TestSyncFlagsOptions(t *testing.T) {
	fileOpts := config.SyncOptions{
		Version:     config.SupportedSyncOptionsVersion,
		Strategy:    config.StrategyHash,
		Source:      "src",
		Destination: "dst",
		DeltaFile:   "hashes",
	}

	tests := []struct {
		name      string
		args      []string
		parseErr  error
		expOpts   config.SyncOptions
		expErrMsg string
	}{
		{
			name:    "FileOnly",
			expOpts: fileOpts,
		},
		{
			name: "FlagsOverrideFile",
			args: []string{"--destination", "out", "--dry-run", "--full-copy", "lwc,aura"},
			expOpts: config.SyncOptions{
				Version:             config.SupportedSyncOptionsVersion,
				Strategy:            config.StrategyHash,
				Source:              "src",
				Destination:         "out",
				DeltaFile:           "hashes",
				DryRun:              true,
				FullCopyDirectories: []string{"lwc", "aura"},
			},
		},
		{
			name:     "MissingDefaultFile",
			args:     []string{"--source", "src/", "--strategy", "git", "--git-from", "HEAD~1"},
			parseErr: errors.WithContext(errors.FileNotFound{Path: config.DefaultPath}, "parse"),
			expOpts: config.SyncOptions{
				Version:  config.SupportedSyncOptionsVersion,
				Strategy: config.StrategyGit,
				Source:   "src",
				Git:      config.GitOptions{From: "HEAD~1"},
			},
		},
		{
			name:      "MissingExplicitFile",
			args:      []string{"--config", "missing.yaml"},
			parseErr:  errors.WithContext(errors.FileNotFound{Path: "missing.yaml"}, "parse"),
			expErrMsg: `parse: "missing.yaml" does not exist`,
		},
		{
			name:      "BadStrategy",
			args:      []string{"--strategy", "rsync"},
			expErrMsg: `Unknown strategy "rsync". Expected one of "hash", "external" or "git".`,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			parseSyncOptions = func(string) (config.SyncOptions, error) {
				if test.parseErr != nil {
					return config.SyncOptions{}, test.parseErr
				}
				return fileOpts, nil
			}

			var flags SyncFlags
			cmd := &cobra.Command{Use: "test"}
			AddSyncFlags(cmd, &flags)
			require.NoError(t, cmd.ParseFlags(test.args))

			opts, err := flags.Options(cmd)
			if test.expErrMsg != "" {
				assert.EqualError(t, err, test.expErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expOpts, opts)
		})
	}
}
