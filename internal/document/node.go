// Package document models the host design document: the scene tree, the
// variable and style registries, and the mutation feed. Everything above
// this package (scanning, remediation, the UI bridge) talks to the host
// exclusively through the interfaces defined here, so the same engine runs
// against the in-memory host used in tests and against a snapshot loaded
// from disk.
package document

// Kind identifies the node type reported by the host.
type Kind string

const (
	KindPage      Kind = "PAGE"
	KindFrame     Kind = "FRAME"
	KindGroup     Kind = "GROUP"
	KindSection   Kind = "SECTION"
	KindComponent Kind = "COMPONENT"
	KindInstance  Kind = "INSTANCE"
	KindText      Kind = "TEXT"
	KindRectangle Kind = "RECTANGLE"
	KindEllipse   Kind = "ELLIPSE"
	KindPolygon   Kind = "POLYGON"
	KindStar      Kind = "STAR"
	KindVector    Kind = "VECTOR"
	KindLine      Kind = "LINE"
)

// Container reports whether nodes of this kind carry children worth
// descending into.
func (k Kind) Container() bool {
	switch k {
	case KindPage, KindFrame, KindGroup, KindSection, KindComponent, KindInstance:
		return true
	}
	return false
}

// Positioning is how a node is placed inside an auto-layout parent.
type Positioning string

const (
	PositionAuto     Positioning = "AUTO"
	PositionAbsolute Positioning = "ABSOLUTE"
)

// BlendMode is the node's compositing mode.
type BlendMode string

const (
	BlendPassThrough BlendMode = "PASS_THROUGH"
	BlendNormal      BlendMode = "NORMAL"
	BlendMultiply    BlendMode = "MULTIPLY"
	BlendScreen      BlendMode = "SCREEN"
	BlendOverlay     BlendMode = "OVERLAY"
)

// Node is the read surface every scene-tree element exposes. Visible and
// Collapsed report the node's own flags only; ancestor state is the
// visibility classifier's concern.
type Node interface {
	ID() string
	Name() string
	Kind() Kind
	Parent() Node
	Children() []Node
	Visible() bool
	Collapsed() bool
	Bounds() Rect
	Positioning() Positioning
	BlendMode() BlendMode
	IsMask() bool
	Bindings() *Bindings
}

// FillsNode is implemented by nodes that carry a fill paint list.
type FillsNode interface {
	Node
	Fills() []Paint
	SetFills(paints []Paint) error
	FillStyleID() string
	SetFillStyleID(id string) error
}

// StrokesNode is implemented by nodes that carry a stroke paint list.
type StrokesNode interface {
	Node
	Strokes() []Paint
	SetStrokes(paints []Paint) error
	StrokeStyleID() string
	SetStrokeStyleID(id string) error
}

// OpacityNode is implemented by nodes with a layer opacity.
type OpacityNode interface {
	Node
	Opacity() float64
	SetOpacity(value float64) error
}

// AutoLayoutNode is implemented by container nodes that may run auto
// layout. Layout().Mode is LayoutNone when auto layout is off; the
// spacing setters fail in that case.
type AutoLayoutNode interface {
	Node
	Layout() AutoLayout
	ClipsContent() bool
	SetItemSpacing(value float64) error
	SetPadding(side Side, value float64) error
}

// CornerNode is implemented by nodes with rounded corners.
type CornerNode interface {
	Node
	Corners() CornerRadii
	SetCornerRadius(value float64) error
	SetCorner(corner Corner, value float64) error
}

// TextNode is implemented by text nodes. The per-property accessors
// return ok=false when the property varies across styled ranges.
type TextNode interface {
	Node
	Characters() string
	TextStyleID() string
	SetTextStyleID(id string) error
	FontName() (FontName, bool)
	FontSize() (float64, bool)
	SetFontSize(size float64) error
	LineHeight() (LineMetric, bool)
	SetLineHeight(m LineMetric)
	LetterSpacing() (LineMetric, bool)
	SetLetterSpacing(m LineMetric)
	ParagraphSpacing() (float64, bool)
	SetParagraphSpacing(v float64)
	TextCase() (TextCase, bool)
	TextDecoration() (TextDecoration, bool)
}
