package document

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a variable, style or node id does not
// resolve in the document.
var ErrNotFound = errors.New("not found")

// VariableType is the value type a variable carries.
type VariableType string

const (
	VariableColor   VariableType = "COLOR"
	VariableNumber  VariableType = "FLOAT"
	VariableString  VariableType = "STRING"
	VariableBoolean VariableType = "BOOLEAN"
)

// Variable is one design token. Remote variables come from a shared
// library and are addressed across documents by their publish Key; the
// ID is only stable within the document that activated them.
type Variable struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Key          string       `json:"key,omitempty"`
	Type         VariableType `json:"type"`
	CollectionID string       `json:"collectionId,omitempty"`
	Remote       bool         `json:"remote,omitempty"`
	LibraryName  string       `json:"libraryName,omitempty"`
}

// Collection groups variables, locally or in a shared library.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
	Remote      bool   `json:"remote,omitempty"`
}

// Importer activates a remote variable in the document so it can be
// bound. Implementations talk to the team library backend.
type Importer interface {
	ImportVariable(ctx context.Context, v *Variable) (*Variable, error)
}

// VariableRegistry is the document's view of its variables.
//
// ResolveVariable returns ErrNotFound for ids that no longer resolve,
// which is how deleted and deactivated-library variables surface.
// ImportByKey activates a remote variable by publish key and returns
// the document-local variable; repeated imports of the same key return
// the already-activated variable.
type VariableRegistry interface {
	ResolveVariable(id string) (*Variable, error)
	VariableByKey(key string) (*Variable, bool)
	LocalVariables() []*Variable
	Collections() []*Collection
	ImportByKey(ctx context.Context, key string) (*Variable, error)
}

// StyleKind discriminates shared styles.
type StyleKind string

const (
	StylePaint  StyleKind = "PAINT"
	StyleText   StyleKind = "TEXT"
	StyleEffect StyleKind = "EFFECT"
	StyleGrid   StyleKind = "GRID"
)

// Style is a shared style a property can reference instead of a raw
// value.
type Style struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Kind   StyleKind `json:"kind"`
	Remote bool      `json:"remote,omitempty"`
}

// StyleRegistry resolves style references.
type StyleRegistry interface {
	ResolveStyle(id string) (*Style, error)
}
