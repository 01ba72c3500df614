package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		fills   bool
		strokes bool
		opacity bool
		corners bool
		layout  bool
		text    bool
	}{
		{name: "frame", node: NewFrame("1:1", "Frame"), fills: true, strokes: true, opacity: true, corners: true, layout: true},
		{name: "component", node: NewComponent("1:2", "Button"), fills: true, strokes: true, opacity: true, corners: true, layout: true},
		{name: "group", node: NewGroup("1:3", "Group"), opacity: true},
		{name: "section", node: NewSection("1:4", "Section"), fills: true},
		{name: "text", node: NewText("1:5", "Label"), fills: true, strokes: true, opacity: true, text: true},
		{name: "rectangle", node: NewRectangle("1:6", "Rect"), fills: true, strokes: true, opacity: true, corners: true},
		{name: "ellipse", node: NewEllipse("1:7", "Ellipse"), fills: true, strokes: true, opacity: true},
		{name: "page", node: NewPage("0:1", "Page 1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fills := tt.node.(FillsNode)
			_, strokes := tt.node.(StrokesNode)
			_, opacity := tt.node.(OpacityNode)
			_, corners := tt.node.(CornerNode)
			_, layout := tt.node.(AutoLayoutNode)
			_, text := tt.node.(TextNode)
			assert.Equal(t, tt.fills, fills, "fills capability")
			assert.Equal(t, tt.strokes, strokes, "strokes capability")
			assert.Equal(t, tt.opacity, opacity, "opacity capability")
			assert.Equal(t, tt.corners, corners, "corners capability")
			assert.Equal(t, tt.layout, layout, "layout capability")
			assert.Equal(t, tt.text, text, "text capability")
		})
	}
}

func TestFrameSpacingRequiresAutoLayout(t *testing.T) {
	f := NewFrame("1:1", "Plain")
	err := f.SetItemSpacing(8)
	require.ErrorIs(t, err, ErrUnsupported)
	err = f.SetPadding(SideLeft, 16)
	require.ErrorIs(t, err, ErrUnsupported)

	f.SetLayout(AutoLayout{Mode: LayoutVertical})
	require.NoError(t, f.SetItemSpacing(8))
	require.NoError(t, f.SetPadding(SideLeft, 16))
	assert.Equal(t, 8.0, f.Layout().ItemSpacing)
	assert.Equal(t, 16.0, f.Layout().PaddingLeft)
}

func TestSetCornerExplodesUniformRadius(t *testing.T) {
	r := NewRectangle("1:1", "Card")
	require.NoError(t, r.SetCornerRadius(12))
	require.True(t, r.Corners().Uniform)

	require.NoError(t, r.SetCorner(CornerTopLeft, 4))
	c := r.Corners()
	assert.False(t, c.Uniform)
	assert.Equal(t, 4.0, c.Corner(CornerTopLeft))
	assert.Equal(t, 12.0, c.Corner(CornerTopRight))
	assert.Equal(t, 12.0, c.Corner(CornerBottomRight))
	assert.Equal(t, 12.0, c.Corner(CornerBottomLeft))
}

func TestTextUniformAndMixedRuns(t *testing.T) {
	inter := FontName{Family: "Inter", Style: "Regular"}
	uniform := NewText("1:1", "Label",
		Run("Hello ", inter, 16),
		Run("world", inter, 16),
	)
	font, ok := uniform.FontName()
	require.True(t, ok)
	assert.Equal(t, inter, font)
	size, ok := uniform.FontSize()
	require.True(t, ok)
	assert.Equal(t, 16.0, size)
	assert.Equal(t, "Hello world", uniform.Characters())

	mixed := NewText("1:2", "Headline",
		Run("Big ", FontName{Family: "Inter", Style: "Bold"}, 24),
		Run("small", inter, 14),
	)
	_, ok = mixed.FontName()
	assert.False(t, ok)
	_, ok = mixed.FontSize()
	assert.False(t, ok)
	_, ok = mixed.LineHeight()
	assert.True(t, ok, "line height identical across runs")
}

func TestBindingsPaintIndexes(t *testing.T) {
	var b Bindings
	b.SetPaint(FieldFills, 2, "VariableID:7:1")

	assert.Equal(t, "", b.PaintVar(FieldFills, 0))
	assert.Equal(t, "", b.PaintVar(FieldFills, 1))
	assert.Equal(t, "VariableID:7:1", b.PaintVar(FieldFills, 2))
	assert.Equal(t, "", b.PaintVar(FieldFills, 3), "past the bound slice is unbound")
	assert.Equal(t, "", b.PaintVar(FieldStrokes, 2), "strokes tracked separately")

	b.ClearPaint(FieldFills, 2)
	assert.Equal(t, "", b.PaintVar(FieldFills, 2))
}

func TestBindingsScalarFields(t *testing.T) {
	var b Bindings
	assert.Equal(t, "", b.Var(FieldOpacity))

	b.Set(FieldOpacity, "VariableID:3:9")
	b.Set(FieldCornerRadius, "VariableID:3:2")
	assert.Equal(t, "VariableID:3:9", b.Var(FieldOpacity))
	assert.Equal(t, []Field{FieldCornerRadius, FieldOpacity}, b.BoundFields())

	b.Clear(FieldOpacity)
	assert.Equal(t, "", b.Var(FieldOpacity))
	assert.Equal(t, []Field{FieldCornerRadius}, b.BoundFields())
}

func TestColorHexRoundTrip(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{hex: "#FF0000", want: "#FF0000"},
		{hex: "#1a2b3c", want: "#1A2B3C"},
		{hex: "#abc", want: "#AABBCC"},
		{hex: "#11223344", want: "#11223344"},
	}
	for _, tt := range tests {
		c, err := ParseHex(tt.hex)
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", tt.hex, err)
		}
		if got := c.Hex(); got != tt.want {
			t.Errorf("ParseHex(%q).Hex() = %q, want %q", tt.hex, got, tt.want)
		}
	}

	if _, err := ParseHex("not-a-color"); err == nil {
		t.Error("ParseHex accepted garbage")
	}
}

func TestLineMetricString(t *testing.T) {
	tests := []struct {
		metric LineMetric
		want   string
	}{
		{LineMetric{Value: 24, Unit: UnitPixels}, "24px"},
		{LineMetric{Value: 150, Unit: UnitPercent}, "150%"},
		{LineMetric{Value: 1.5, Unit: UnitPixels}, "1.5px"},
		{LineMetric{Unit: UnitAuto}, "AUTO"},
	}
	for _, tt := range tests {
		if got := tt.metric.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.metric, got, tt.want)
		}
	}
}

func TestRectIntersects(t *testing.T) {
	parent := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, parent.Intersects(Rect{X: 50, Y: 50, Width: 100, Height: 100}))
	assert.False(t, parent.Intersects(Rect{X: 200, Y: 0, Width: 50, Height: 50}))
	assert.False(t, parent.Intersects(Rect{X: 100, Y: 0, Width: 50, Height: 50}), "touching edges do not overlap")
	assert.True(t, parent.Contains(Rect{X: 10, Y: 10, Width: 20, Height: 20}))
	assert.False(t, parent.Contains(Rect{X: 90, Y: 90, Width: 20, Height: 20}))
}
