package annotate

import (
	"fmt"

	"github.com/OpenTraceLab/regbind/pkg/rdl"
)

// NoteKind classifies a per-register diagnostic.
type NoteKind int

const (
	// Annotated: statements were inserted for the register.
	Annotated NoteKind = iota
	// AlreadyAnnotated: every qualifying field was bound by an earlier run.
	AlreadyAnnotated
	// NoFields: the register had no field left to bind.
	NoFields
	// Disqualified: the register name matched a keyword.
	Disqualified
	// External: storage lives outside the model, nothing to bind.
	External
	// MissingFields: the register is absent from the description document.
	MissingFields
	// BlockNotFound: no class or loop matched the register.
	BlockNotFound
	// AmbiguousMatch: candidates were rejected or several loops matched.
	AmbiguousMatch
	// FieldSkipped: a field name matched a keyword.
	FieldSkipped
	// StaleField: a dictionary field does not appear in the class.
	StaleField
	// DuplicateBlock: the block was already annotated earlier in this run.
	DuplicateBlock
)

var noteKindNames = [...]string{
	"annotated", "already-annotated", "no-fields", "disqualified", "external",
	"missing-fields", "block-not-found", "ambiguous", "field-skipped",
	"stale-field", "duplicate-block",
}

func (k NoteKind) String() string {
	if int(k) < len(noteKindNames) {
		return noteKindNames[k]
	}
	return fmt.Sprintf("NoteKind(%d)", int(k))
}

// IsFailure reports whether the note is a recoverable lookup failure.
func (k NoteKind) IsFailure() bool {
	return k == MissingFields || k == BlockNotFound || k == AmbiguousMatch
}

// Note is one diagnostic produced while processing a register.
type Note struct {
	Kind     NoteKind
	Register string
	Category rdl.Category
	Field    string // set for field-level notes
	Block    string // class or array name the note refers to
	Line     int    // line in the verification source, when known
	Message  string
}

func (n Note) String() string {
	subject := n.Register
	if n.Field != "" {
		subject += "." + n.Field
	}
	if n.Line > 0 {
		return fmt.Sprintf("%-17s %s (line %d): %s", n.Kind, subject, n.Line, n.Message)
	}
	return fmt.Sprintf("%-17s %s: %s", n.Kind, subject, n.Message)
}
