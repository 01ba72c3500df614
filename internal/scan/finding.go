// Package scan is the lint engine: it walks the document tree, decides
// how each style property is bound, and folds raw or misbound values
// into deterministic groups the panel can act on in bulk.
package scan

import (
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/relink/internal/document"
)

// Category names one finding category a scan can target.
type Category string

const (
	CategoryFill              Category = "fill"
	CategoryStroke            Category = "stroke"
	CategoryTypography        Category = "typography"
	CategoryVerticalGap       Category = "vertical-gap"
	CategoryHorizontalPadding Category = "horizontal-padding"
	CategoryVerticalPadding   Category = "vertical-padding"
	CategoryCornerRadius      Category = "corner-radius"
	CategoryOpacity           Category = "opacity"
	CategoryTeamLibrary       Category = "team-library"
	CategoryLocalLibrary      Category = "local-library"
	CategoryMissingLibrary    Category = "missing-library"
)

// Categories lists every scan category in presentation order.
func Categories() []Category {
	return []Category{
		CategoryFill,
		CategoryStroke,
		CategoryTypography,
		CategoryVerticalGap,
		CategoryHorizontalPadding,
		CategoryVerticalPadding,
		CategoryCornerRadius,
		CategoryOpacity,
		CategoryTeamLibrary,
		CategoryLocalLibrary,
		CategoryMissingLibrary,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Library reports whether the category audits existing variable
// bindings by provenance rather than hunting raw values. Library scans
// are the pausable ones.
func (c Category) Library() bool {
	switch c {
	case CategoryTeamLibrary, CategoryLocalLibrary, CategoryMissingLibrary:
		return true
	}
	return false
}

// BindingState is the classifier's verdict for one property (or one
// paint index) of one node.
type BindingState string

const (
	BindingRaw        BindingState = "RAW"
	BindingStyle      BindingState = "STYLE_BOUND"
	BindingLocal      BindingState = "VARIABLE_BOUND_LOCAL"
	BindingTeamActive BindingState = "VARIABLE_BOUND_TEAM_ACTIVE"
	BindingMissing    BindingState = "VARIABLE_BOUND_MISSING_OR_INACTIVE"
)

// Mixed is reported verbatim when a text property varies across runs.
// It is never coerced to a number.
const Mixed = "MIXED"

// ValueKind tags the value variant a finding carries on the wire.
type ValueKind string

const (
	ValueColor      ValueKind = "color"
	ValueScalar     ValueKind = "scalar"
	ValueTypography ValueKind = "typography"
	ValueVariable   ValueKind = "variable"
)

// Value is the closed set of snapshot shapes a finding can carry. The
// category fixes which variant appears: color categories carry
// ColorValue or VariableRefValue, spacing/radius/opacity carry
// ScalarValue, typography carries TypographyValue, library categories
// carry VariableRefValue.
type Value interface {
	ValueKind() ValueKind
}

// ColorValue is a raw solid-paint color at scan time.
type ColorValue struct {
	Color document.Color `json:"color"`
}

func (ColorValue) ValueKind() ValueKind { return ValueColor }

// ScalarValue is a numeric snapshot with its display rendering, such as
// "45%" for opacity while the fraction stays available for tests.
type ScalarValue struct {
	Value   float64 `json:"value"`
	Display string  `json:"display,omitempty"`
}

func (ScalarValue) ValueKind() ValueKind { return ValueScalar }

// TypographyValue is the full text-style snapshot. Every field is a
// string so that run-mixed properties can carry the MIXED sentinel.
type TypographyValue struct {
	Family           string `json:"family"`
	Weight           string `json:"weight"`
	Size             string `json:"size"`
	LineHeight       string `json:"lineHeight"`
	LetterSpacing    string `json:"letterSpacing"`
	ParagraphSpacing string `json:"paragraphSpacing"`
	Case             string `json:"case"`
	Decoration       string `json:"decoration"`
	Sample           string `json:"sample"`
}

func (TypographyValue) ValueKind() ValueKind { return ValueTypography }

// VariableRefValue identifies the variable behind a bound property.
type VariableRefValue struct {
	VariableID   string `json:"variableId"`
	VariableName string `json:"variableName,omitempty"`
	LibraryName  string `json:"libraryName,omitempty"`
}

func (VariableRefValue) ValueKind() ValueKind { return ValueVariable }

// Finding is one detected value at one property of one node. Findings
// are immutable once emitted and live until the next scan replaces
// them; NodeID is a reference into the host, not a copy.
type Finding struct {
	NodeID   string
	NodeName string
	NodePath []string
	Category Category
	Property string
	Value    Value
	Binding  BindingState
	Visible  bool
}

type findingJSON struct {
	NodeID    string          `json:"nodeId"`
	NodeName  string          `json:"nodeName"`
	NodePath  []string        `json:"nodePath,omitempty"`
	Category  Category        `json:"category"`
	Property  string          `json:"property"`
	ValueKind ValueKind       `json:"valueKind,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Binding   BindingState    `json:"bindingState"`
	Visible   bool            `json:"isVisible"`
}

// MarshalJSON tags the value variant so clients can round-trip findings
// through unbind requests.
func (f Finding) MarshalJSON() ([]byte, error) {
	out := findingJSON{
		NodeID:   f.NodeID,
		NodeName: f.NodeName,
		NodePath: f.NodePath,
		Category: f.Category,
		Property: f.Property,
		Binding:  f.Binding,
		Visible:  f.Visible,
	}
	if f.Value != nil {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		out.ValueKind = f.Value.ValueKind()
		out.Value = raw
	}
	return json.Marshal(out)
}

func (f *Finding) UnmarshalJSON(data []byte) error {
	var in findingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.NodeID = in.NodeID
	f.NodeName = in.NodeName
	f.NodePath = in.NodePath
	f.Category = in.Category
	f.Property = in.Property
	f.Binding = in.Binding
	f.Visible = in.Visible
	f.Value = nil
	if len(in.Value) == 0 {
		return nil
	}
	switch in.ValueKind {
	case ValueColor:
		var v ColorValue
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return err
		}
		f.Value = v
	case ValueScalar:
		var v ScalarValue
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return err
		}
		f.Value = v
	case ValueTypography:
		var v TypographyValue
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return err
		}
		f.Value = v
	case ValueVariable:
		var v VariableRefValue
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return err
		}
		f.Value = v
	default:
		return fmt.Errorf("finding %s: unknown value kind %q", in.NodeID, in.ValueKind)
	}
	return nil
}

// Group is a cluster of findings sharing a derived key. Members keep
// scan order; a group is never empty.
type Group struct {
	Key      string    `json:"key"`
	Findings []Finding `json:"findings"`
}

// Scope selects what a scan covers: the whole page, or an explicit
// list of container node ids.
type Scope struct {
	NodeIDs []string `json:"nodeIds,omitempty"`
}

func (s Scope) WholePage() bool { return len(s.NodeIDs) == 0 }

// Request is one scan order from a client.
type Request struct {
	Category     Category `json:"category"`
	Scope        Scope    `json:"scope"`
	IgnoreHidden bool     `json:"ignoreHiddenLayers"`
}

// Result is the terminal output of one completed scan.
type Result struct {
	Category Category `json:"category"`
	Groups   []Group  `json:"groups"`
	Total    int      `json:"total"`
}
