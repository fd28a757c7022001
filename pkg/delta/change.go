package delta

import (
	"fmt"
)

// ChangeKind classifies how a file changed. The value is the single character
// token used by diff listings.
type ChangeKind byte

const (
	// None means the file is unchanged.
	None ChangeKind = 'N'

	// Added means the file is new.
	Added ChangeKind = 'A'

	// Modified means the file's contents changed.
	Modified ChangeKind = 'M'

	// Deleted means the file no longer exists.
	Deleted ChangeKind = 'D'
)

// ParseKind converts a diff listing token into a ChangeKind. Tokens that
// don't correspond to a known kind are preserved so that consumers can report
// them; `ok` is false in that case.
func ParseKind(token string) (kind ChangeKind, ok bool) {
	if token == "" {
		return 0, false
	}

	switch token[0] {
	case 'A':
		return Added, true
	case 'M', 'T':
		return Modified, true
	case 'D':
		return Deleted, true
	case 'N':
		return None, true
	}
	return ChangeKind(token[0]), false
}

// Valid returns whether the kind is one of the four known kinds.
func (kind ChangeKind) Valid() bool {
	switch kind {
	case None, Added, Modified, Deleted:
		return true
	}
	return false
}

func (kind ChangeKind) String() string {
	switch kind {
	case None:
		return "None"
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	}
	return fmt.Sprintf("Unknown(%q)", rune(kind))
}

// ChangeRecord is a single classified change.
type ChangeRecord struct {
	Kind ChangeKind
	Path string
}

func (r ChangeRecord) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Path)
}
