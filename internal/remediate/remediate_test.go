package remediate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/scan"
)

func newActor(t *testing.T) (*Actor, *document.Memory) {
	t.Helper()
	m := document.NewMemory(nil)
	return NewActor(m, nil, nil), m
}

func boundRect(t *testing.T, m *document.Memory, id string, varID string) *document.Rectangle {
	t.Helper()
	r := document.NewRectangle(id, "Rect "+id)
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(document.Color{R: 0.2, A: 1})}))
	r.Bindings().SetPaint(document.FieldFills, 0, varID)
	m.Attach(nil, r)
	return r
}

func TestUnbindPaintWritesLiteralAndClearsBinding(t *testing.T) {
	a, m := newActor(t)
	r := boundRect(t, m, "1:1", "V:old")

	f := scan.Finding{
		NodeID:   "1:1",
		Category: scan.CategoryFill,
		Property: "fills[0]",
		Value:    scan.ColorValue{Color: document.Color{R: 1, A: 1}},
		Binding:  scan.BindingLocal,
	}
	require.NoError(t, a.Unbind(context.Background(), f))

	paints := r.Fills()
	require.Len(t, paints, 1)
	assert.Equal(t, document.PaintSolid, paints[0].Kind)
	assert.Equal(t, document.Color{R: 1, A: 1}, paints[0].Color)
	assert.Empty(t, r.Bindings().PaintVar(document.FieldFills, 0))
}

func TestUnbindWithoutSnapshotKeepsCurrentPaint(t *testing.T) {
	a, m := newActor(t)
	r := boundRect(t, m, "1:1", "V:team")

	f := scan.Finding{
		NodeID:   "1:1",
		Category: scan.CategoryTeamLibrary,
		Property: "fills[0]",
		Value:    scan.VariableRefValue{VariableID: "V:team"},
		Binding:  scan.BindingTeamActive,
	}
	require.NoError(t, a.Unbind(context.Background(), f))

	paints := r.Fills()
	require.Len(t, paints, 1)
	assert.Equal(t, document.Color{R: 0.2, A: 1}, paints[0].Color, "no snapshot, paint stays as-is")
	assert.Empty(t, r.Bindings().PaintVar(document.FieldFills, 0), "the binding still goes")
}

func TestUnbindScalarProperties(t *testing.T) {
	a, m := newActor(t)

	frame := document.NewFrame("1:1", "Stack")
	frame.SetLayout(document.AutoLayout{Mode: document.LayoutVertical, ItemSpacing: 8})
	frame.Bindings().Set(document.FieldItemSpacing, "V:gap")
	m.Attach(nil, frame)

	require.NoError(t, a.Unbind(context.Background(), scan.Finding{
		NodeID:   "1:1",
		Property: "itemSpacing",
		Value:    scan.ScalarValue{Value: 12},
	}))
	assert.Equal(t, 12.0, frame.Layout().ItemSpacing)
	assert.Empty(t, frame.Bindings().Var(document.FieldItemSpacing))

	dim := document.NewRectangle("1:2", "Dim")
	dim.Bindings().Set(document.FieldOpacity, "V:o")
	m.Attach(nil, dim)

	require.NoError(t, a.Unbind(context.Background(), scan.Finding{
		NodeID:   "1:2",
		Property: "opacity",
		Value:    scan.ScalarValue{Value: 0.45},
	}))
	assert.Equal(t, 0.45, dim.Opacity())
	assert.Empty(t, dim.Bindings().Var(document.FieldOpacity))
}

func TestUnbindLineHeightReconstructsMetric(t *testing.T) {
	a, m := newActor(t)
	txt := document.NewText("1:1", "Body",
		document.Run("hello", document.FontName{Family: "Inter", Style: "Regular"}, 14))
	txt.Bindings().Set(document.FieldLineHeight, "V:lh")
	m.Attach(nil, txt)

	require.NoError(t, a.Unbind(context.Background(), scan.Finding{
		NodeID:   "1:1",
		Property: "lineHeight",
		Value:    scan.ScalarValue{Value: 24},
	}))

	lh, ok := txt.LineHeight()
	require.True(t, ok)
	assert.Equal(t, document.LineMetric{Value: 24, Unit: document.UnitPixels}, lh,
		"bare number becomes a value+unit record")
	assert.Empty(t, txt.Bindings().Var(document.FieldLineHeight))
}

func TestUnbindUnknownPropertySkipsWithoutError(t *testing.T) {
	a, m := newActor(t)
	r := document.NewRectangle("1:1", "R")
	m.Attach(nil, r)

	err := a.Unbind(context.Background(), scan.Finding{
		NodeID:   "1:1",
		Property: "effects",
		Value:    scan.ScalarValue{Value: 4},
	})
	assert.NoError(t, err, "unknown properties are a warning, not a failure")
}

func TestUnbindMissingNode(t *testing.T) {
	a, _ := newActor(t)
	err := a.Unbind(context.Background(), scan.Finding{NodeID: "9:9", Property: "opacity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9:9")
}

func TestUnbindGroupPartialFailure(t *testing.T) {
	a, m := newActor(t)

	findings := make([]scan.Finding, 0, 5)
	for i, id := range []string{"1:1", "1:2", "1:3", "1:4", "1:5"} {
		r := boundRect(t, m, id, "V:x")
		if i == 2 {
			m.Detach(r)
		}
		findings = append(findings, scan.Finding{
			NodeID:   id,
			Category: scan.CategoryFill,
			Property: "fills[0]",
			Value:    scan.ColorValue{Color: document.Color{A: 1}},
		})
	}

	res := a.UnbindGroup(context.Background(), findings)
	assert.Equal(t, 4, res.Successful)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "1:3", "the failure names the deleted node")
}

func TestBindVariable(t *testing.T) {
	a, m := newActor(t)
	m.VariableStore().Add(&document.Variable{ID: "V:red", Name: "color/red", Type: document.VariableColor})
	m.VariableStore().Add(&document.Variable{ID: "V:gap", Name: "space/md", Type: document.VariableNumber})

	r := document.NewRectangle("1:1", "R")
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(document.Color{A: 1})}))
	m.Attach(nil, r)

	require.NoError(t, a.Bind(context.Background(), "1:1", "fills[0]", "V:red"))
	assert.Equal(t, "V:red", r.Bindings().PaintVar(document.FieldFills, 0))

	require.NoError(t, a.Bind(context.Background(), "1:1", "cornerRadius", "V:gap"))
	assert.Equal(t, "V:gap", r.Bindings().Var(document.FieldCornerRadius))
}

func TestBindUnknownTargetFailsBeforeTouchingNode(t *testing.T) {
	a, m := newActor(t)
	r := document.NewRectangle("1:1", "R")
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(document.Color{A: 1})}))
	m.Attach(nil, r)

	err := a.Bind(context.Background(), "1:1", "fills[0]", "V:missing")
	require.ErrorIs(t, err, document.ErrNotFound)
	assert.Empty(t, r.Bindings().PaintVar(document.FieldFills, 0))
}

func TestBindTypeMismatch(t *testing.T) {
	a, m := newActor(t)
	m.VariableStore().Add(&document.Variable{ID: "V:gap", Name: "space/md", Type: document.VariableNumber})

	r := document.NewRectangle("1:1", "R")
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(document.Color{A: 1})}))
	m.Attach(nil, r)

	err := a.Bind(context.Background(), "1:1", "fills[0]", "V:gap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs COLOR")
}

func TestBindPaintNeedsExistingEntry(t *testing.T) {
	a, m := newActor(t)
	m.VariableStore().Add(&document.Variable{ID: "V:red", Name: "color/red", Type: document.VariableColor})
	r := document.NewRectangle("1:1", "R")
	m.Attach(nil, r)

	err := a.Bind(context.Background(), "1:1", "fills[0]", "V:red")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fills entry")
}

func TestBindStyles(t *testing.T) {
	a, m := newActor(t)
	m.StyleStore().Add(&document.Style{ID: "S:brand", Name: "Brand", Kind: document.StylePaint})
	m.StyleStore().Add(&document.Style{ID: "S:body", Name: "Body", Kind: document.StyleText})

	r := document.NewRectangle("1:1", "R")
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(document.Color{A: 1})}))
	txt := document.NewText("1:2", "Label",
		document.Run("hi", document.FontName{Family: "Inter", Style: "Regular"}, 14))
	m.Attach(nil, r, txt)

	require.NoError(t, a.Bind(context.Background(), "1:1", "fills", "S:brand"))
	assert.Equal(t, "S:brand", r.FillStyleID())

	require.NoError(t, a.Bind(context.Background(), "1:2", "textStyleId", "S:body"))
	assert.Equal(t, "S:body", txt.TextStyleID())

	err := a.Bind(context.Background(), "1:1", "fills", "S:body")
	require.Error(t, err, "a text style cannot attach to fills")
}

func TestMalformedProperty(t *testing.T) {
	a, m := newActor(t)
	m.Attach(nil, document.NewRectangle("1:1", "R"))

	for _, property := range []string{"fills[", "fills[x]", "fills[-1]", "opacity[0]"} {
		err := a.Unbind(context.Background(), scan.Finding{NodeID: "1:1", Property: property})
		assert.Error(t, err, "property %q", property)
	}
}
