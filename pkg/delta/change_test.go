package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		token   string
		expKind ChangeKind
		expOK   bool
	}{
		{"A", Added, true},
		{"M", Modified, true},
		{"T", Modified, true},
		{"D", Deleted, true},
		{"N", None, true},
		{"R100", ChangeKind('R'), false},
		{"", 0, false},
	}

	for _, test := range tests {
		kind, ok := ParseKind(test.token)
		assert.Equal(t, test.expKind, kind, test.token)
		assert.Equal(t, test.expOK, ok, test.token)
	}
}

func TestChangeKindString(t *testing.T) {
	assert.Equal(t, "Added", Added.String())
	assert.Equal(t, "Deleted", Deleted.String())
	assert.Equal(t, `Unknown('R')`, ChangeKind('R').String())
	assert.True(t, None.Valid())
	assert.False(t, ChangeKind('X').Valid())
	assert.Equal(t, "Modified src/a.cls", ChangeRecord{Kind: Modified, Path: "src/a.cls"}.String())
}
