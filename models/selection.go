package models

import "strings"

type selectionKind int

const (
	selectionNone selectionKind = iota
	selectionKnown
	selectionCustom
)

// KeySelection identifies the key a credential should be stored under: either a
// catalog key name chosen from the options list, or a free-form name typed by
// the operator. The two cases are distinct variants so a catalog key name can
// never collide with a reserved "custom" marker.
type KeySelection struct {
	kind selectionKind
	raw  string
}

// KnownKey selects a catalog key name. The name is used verbatim; catalog names
// are validated at load time.
func KnownKey(name string) KeySelection {
	return KeySelection{kind: selectionKnown, raw: name}
}

// CustomKey selects a free-form key name supplied by the operator. The raw
// input is normalized when Canonical is called.
func CustomKey(raw string) KeySelection {
	return KeySelection{kind: selectionCustom, raw: raw}
}

// IsZero reports whether no selection has been made.
func (s KeySelection) IsZero() bool {
	return s.kind == selectionNone
}

// IsCustom reports whether the selection is a free-form name.
func (s KeySelection) IsCustom() bool {
	return s.kind == selectionCustom
}

// Raw returns the input the selection was built from.
func (s KeySelection) Raw() string {
	return s.raw
}

// Canonical returns the canonical key name for the selection. Known selections
// pass through verbatim; custom input is uppercased and stripped of everything
// outside [A-Z0-9_]. The result may be empty for custom input with no valid
// characters, which callers must treat as a validation failure.
func (s KeySelection) Canonical() string {
	switch s.kind {
	case selectionKnown:
		return s.raw
	case selectionCustom:
		return NormalizeKeyName(s.raw)
	default:
		return ""
	}
}

// NormalizeKeyName converts free-form input to canonical key-name form:
// uppercase, with every character outside [A-Z0-9_] removed.
func NormalizeKeyName(raw string) string {
	upper := strings.ToUpper(raw)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
