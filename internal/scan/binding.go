package scan

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
)

// Classifier decides how one property of one node is bound. Variable
// verdicts are memoized for the classifier's lifetime because remote
// classification imports the variable through the library backend, a
// network-equivalent call that is idempotent per id. Each scan builds
// its own classifier; it is not safe for concurrent use.
type Classifier struct {
	vars   document.VariableRegistry
	styles document.StyleRegistry
	memo   map[string]BindingState
	log    hclog.Logger
}

func NewClassifier(vars document.VariableRegistry, styles document.StyleRegistry, log hclog.Logger) *Classifier {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Classifier{
		vars:   vars,
		styles: styles,
		memo:   make(map[string]BindingState),
		log:    log,
	}
}

// ClassifyScalar classifies a non-paint property: style reference
// first, then the binding map, then variable resolution.
func (c *Classifier) ClassifyScalar(ctx context.Context, n document.Node, field document.Field) BindingState {
	if styleRef(n, field) != "" {
		return BindingStyle
	}
	id := n.Bindings().Var(field)
	if id == "" {
		return BindingRaw
	}
	return c.ClassifyVariable(ctx, id)
}

// ClassifyPaint classifies one index of a paint list. The binding array
// may be shorter than the paint array; indexes past its end are RAW
// even when earlier indexes are bound.
func (c *Classifier) ClassifyPaint(ctx context.Context, n document.Node, field document.Field, index int) BindingState {
	if styleRef(n, field) != "" {
		return BindingStyle
	}
	id := n.Bindings().PaintVar(field, index)
	if id == "" {
		return BindingRaw
	}
	return c.ClassifyVariable(ctx, id)
}

// ClassifyVariable resolves a variable id to its provenance: deleted
// ids are MISSING_OR_INACTIVE, local variables LOCAL, and remote ones
// TEAM_ACTIVE exactly when activation by publish key succeeds.
func (c *Classifier) ClassifyVariable(ctx context.Context, id string) BindingState {
	if state, ok := c.memo[id]; ok {
		return state
	}
	state := c.resolve(ctx, id)
	c.memo[id] = state
	return state
}

func (c *Classifier) resolve(ctx context.Context, id string) BindingState {
	v, err := c.vars.ResolveVariable(id)
	if err != nil {
		c.log.Debug("bound variable did not resolve", "id", id, "error", err)
		return BindingMissing
	}
	if !v.Remote {
		return BindingLocal
	}
	if v.Key == "" {
		c.log.Debug("remote variable has no publish key", "id", id)
		return BindingMissing
	}
	if _, err := c.vars.ImportByKey(ctx, v.Key); err != nil {
		c.log.Debug("library activation failed", "id", id, "key", v.Key, "error", err)
		return BindingMissing
	}
	return BindingTeamActive
}

// Describe returns the display reference for a bound variable. Ids that
// no longer resolve keep only the id.
func (c *Classifier) Describe(id string) VariableRefValue {
	ref := VariableRefValue{VariableID: id}
	if v, err := c.vars.ResolveVariable(id); err == nil {
		ref.VariableName = v.Name
		ref.LibraryName = v.LibraryName
	}
	return ref
}

// styleRef returns the style id gating a field's category, or "" when
// the field has no style surface.
func styleRef(n document.Node, field document.Field) string {
	switch field {
	case document.FieldFills:
		if fn, ok := n.(document.FillsNode); ok {
			return fn.FillStyleID()
		}
	case document.FieldStrokes:
		if sn, ok := n.(document.StrokesNode); ok {
			return sn.StrokeStyleID()
		}
	case document.FieldTextStyle, document.FieldFontFamily, document.FieldFontStyle,
		document.FieldFontSize, document.FieldLineHeight, document.FieldLetterSpacing,
		document.FieldParagraphSpacing:
		if tn, ok := n.(document.TextNode); ok {
			return tn.TextStyleID()
		}
	}
	return ""
}
