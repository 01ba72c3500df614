package document

import "fmt"

// ErrUnsupported is returned by property setters the target node cannot
// honor, such as spacing on a container without auto layout.
var ErrUnsupported = fmt.Errorf("unsupported property")

// base carries the state every node kind shares. Concrete node types
// embed it and add capability state on top.
type base struct {
	id          string
	name        string
	kind        Kind
	parent      Node
	children    []Node
	visible     bool
	collapsed   bool
	bounds      Rect
	positioning Positioning
	blend       BlendMode
	mask        bool
	bindings    Bindings
}

func newBase(id, name string, kind Kind) base {
	return base{
		id:          id,
		name:        name,
		kind:        kind,
		visible:     true,
		positioning: PositionAuto,
		blend:       BlendNormal,
	}
}

func (b *base) ID() string               { return b.id }
func (b *base) Name() string             { return b.name }
func (b *base) Kind() Kind               { return b.kind }
func (b *base) Parent() Node             { return b.parent }
func (b *base) Visible() bool            { return b.visible }
func (b *base) Collapsed() bool          { return b.collapsed }
func (b *base) Bounds() Rect             { return b.bounds }
func (b *base) Positioning() Positioning { return b.positioning }
func (b *base) BlendMode() BlendMode     { return b.blend }
func (b *base) IsMask() bool             { return b.mask }
func (b *base) Bindings() *Bindings      { return &b.bindings }

func (b *base) Children() []Node {
	return append([]Node(nil), b.children...)
}

func (b *base) SetName(name string)           { b.name = name }
func (b *base) SetVisible(visible bool)       { b.visible = visible }
func (b *base) SetCollapsed(collapsed bool)   { b.collapsed = collapsed }
func (b *base) SetBounds(r Rect)              { b.bounds = r }
func (b *base) SetPositioning(p Positioning)  { b.positioning = p }
func (b *base) SetBlendMode(mode BlendMode)   { b.blend = mode }
func (b *base) SetMask(mask bool)             { b.mask = mask }

func (b *base) setParent(p Node) { b.parent = p }
func (b *base) addChild(c Node)  { b.children = append(b.children, c) }

func (b *base) removeChild(id string) {
	for i, c := range b.children {
		if c.ID() == id {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

// treeNode is the mutation surface Memory uses to wire trees together.
type treeNode interface {
	Node
	setParent(p Node)
	addChild(c Node)
	removeChild(id string)
}

type opacityProp struct {
	opacity float64
}

func (o *opacityProp) Opacity() float64 { return o.opacity }

func (o *opacityProp) SetOpacity(value float64) error {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	o.opacity = value
	return nil
}

type fillProp struct {
	fills     []Paint
	fillStyle string
}

func (f *fillProp) Fills() []Paint {
	return append([]Paint(nil), f.fills...)
}

func (f *fillProp) SetFills(paints []Paint) error {
	f.fills = append([]Paint(nil), paints...)
	return nil
}

func (f *fillProp) FillStyleID() string { return f.fillStyle }

func (f *fillProp) SetFillStyleID(id string) error {
	f.fillStyle = id
	return nil
}

type strokeProp struct {
	strokes     []Paint
	strokeStyle string
}

func (s *strokeProp) Strokes() []Paint {
	return append([]Paint(nil), s.strokes...)
}

func (s *strokeProp) SetStrokes(paints []Paint) error {
	s.strokes = append([]Paint(nil), paints...)
	return nil
}

func (s *strokeProp) StrokeStyleID() string { return s.strokeStyle }

func (s *strokeProp) SetStrokeStyleID(id string) error {
	s.strokeStyle = id
	return nil
}

type cornerProp struct {
	corners CornerRadii
}

func (c *cornerProp) Corners() CornerRadii { return c.corners }

func (c *cornerProp) SetCornerRadius(value float64) error {
	c.corners = CornerRadii{Uniform: true, All: value}
	return nil
}

func (c *cornerProp) SetCorner(corner Corner, value float64) error {
	if c.corners.Uniform {
		all := c.corners.All
		c.corners = CornerRadii{
			TopLeft:     all,
			TopRight:    all,
			BottomRight: all,
			BottomLeft:  all,
		}
	}
	switch corner {
	case CornerTopLeft:
		c.corners.TopLeft = value
	case CornerTopRight:
		c.corners.TopRight = value
	case CornerBottomRight:
		c.corners.BottomRight = value
	default:
		c.corners.BottomLeft = value
	}
	return nil
}

func (c *cornerProp) SetCorners(r CornerRadii) { c.corners = r }

// Page is the root of one scanned tree.
type Page struct {
	base
}

func NewPage(id, name string) *Page {
	return &Page{base: newBase(id, name, KindPage)}
}

// Frame is a container node. Components and instances share its shape
// and differ only in kind.
type Frame struct {
	base
	opacityProp
	fillProp
	strokeProp
	cornerProp
	layout AutoLayout
	clips  bool
}

func newFrame(id, name string, kind Kind) *Frame {
	return &Frame{
		base:        newBase(id, name, kind),
		opacityProp: opacityProp{opacity: 1},
		layout:      AutoLayout{Mode: LayoutNone},
	}
}

func NewFrame(id, name string) *Frame     { return newFrame(id, name, KindFrame) }
func NewComponent(id, name string) *Frame { return newFrame(id, name, KindComponent) }
func NewInstance(id, name string) *Frame  { return newFrame(id, name, KindInstance) }

func (f *Frame) Layout() AutoLayout     { return f.layout }
func (f *Frame) SetLayout(l AutoLayout) { f.layout = l }
func (f *Frame) ClipsContent() bool     { return f.clips }
func (f *Frame) SetClipsContent(v bool) { f.clips = v }

func (f *Frame) SetItemSpacing(value float64) error {
	if f.layout.Mode == LayoutNone || f.layout.Mode == "" {
		return fmt.Errorf("node %s: item spacing: %w", f.id, ErrUnsupported)
	}
	f.layout.ItemSpacing = value
	return nil
}

func (f *Frame) SetPadding(side Side, value float64) error {
	if f.layout.Mode == LayoutNone || f.layout.Mode == "" {
		return fmt.Errorf("node %s: padding: %w", f.id, ErrUnsupported)
	}
	switch side {
	case SideTop:
		f.layout.PaddingTop = value
	case SideRight:
		f.layout.PaddingRight = value
	case SideBottom:
		f.layout.PaddingBottom = value
	default:
		f.layout.PaddingLeft = value
	}
	return nil
}

// Section is a canvas organizer. It paints a background but has no
// opacity or stroke of its own.
type Section struct {
	base
	fillProp
}

func NewSection(id, name string) *Section {
	return &Section{base: newBase(id, name, KindSection)}
}

// Group wraps children without painting anything itself.
type Group struct {
	base
	opacityProp
}

func NewGroup(id, name string) *Group {
	return &Group{
		base:        newBase(id, name, KindGroup),
		opacityProp: opacityProp{opacity: 1},
	}
}

// TextRun is one styled range of a text node.
type TextRun struct {
	Characters    string         `json:"characters"`
	Font          FontName       `json:"font"`
	Size          float64        `json:"size"`
	LineHeight    LineMetric     `json:"lineHeight"`
	LetterSpacing LineMetric     `json:"letterSpacing"`
	Case          TextCase       `json:"case,omitempty"`
	Decoration    TextDecoration `json:"decoration,omitempty"`
}

// Run builds a text run with inspector defaults for the metrics.
func Run(chars string, font FontName, size float64) TextRun {
	return TextRun{
		Characters:    chars,
		Font:          font,
		Size:          size,
		LineHeight:    LineMetric{Unit: UnitAuto},
		LetterSpacing: LineMetric{Unit: UnitPixels},
		Case:          CaseOriginal,
		Decoration:    DecorationNone,
	}
}

// Text is a text node made of styled runs. The uniform accessors report
// ok=false when the runs disagree on a property.
type Text struct {
	base
	opacityProp
	fillProp
	strokeProp
	textStyle        string
	paragraphSpacing float64
	runs             []TextRun
}

func NewText(id, name string, runs ...TextRun) *Text {
	return &Text{
		base:        newBase(id, name, KindText),
		opacityProp: opacityProp{opacity: 1},
		runs:        runs,
	}
}

func (t *Text) Characters() string {
	var out string
	for _, r := range t.runs {
		out += r.Characters
	}
	return out
}

func (t *Text) Runs() []TextRun {
	return append([]TextRun(nil), t.runs...)
}

func (t *Text) SetRuns(runs ...TextRun) { t.runs = runs }

func (t *Text) TextStyleID() string { return t.textStyle }

func (t *Text) SetTextStyleID(id string) error {
	t.textStyle = id
	return nil
}

func (t *Text) SetParagraphSpacing(v float64) { t.paragraphSpacing = v }

func (t *Text) ParagraphSpacing() (float64, bool) {
	return t.paragraphSpacing, true
}

// SetFontSize writes one size across every run, collapsing a mixed
// value back to uniform.
func (t *Text) SetFontSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("node %s: font size must be positive, got %v", t.id, size)
	}
	for i := range t.runs {
		t.runs[i].Size = size
	}
	return nil
}

func (t *Text) SetLineHeight(m LineMetric) {
	for i := range t.runs {
		t.runs[i].LineHeight = m
	}
}

func (t *Text) SetLetterSpacing(m LineMetric) {
	for i := range t.runs {
		t.runs[i].LetterSpacing = m
	}
}

func (t *Text) FontName() (FontName, bool) {
	if len(t.runs) == 0 {
		return FontName{}, true
	}
	first := t.runs[0].Font
	for _, r := range t.runs[1:] {
		if r.Font != first {
			return FontName{}, false
		}
	}
	return first, true
}

func (t *Text) FontSize() (float64, bool) {
	if len(t.runs) == 0 {
		return 0, true
	}
	first := t.runs[0].Size
	for _, r := range t.runs[1:] {
		if r.Size != first {
			return 0, false
		}
	}
	return first, true
}

func (t *Text) LineHeight() (LineMetric, bool) {
	if len(t.runs) == 0 {
		return LineMetric{Unit: UnitAuto}, true
	}
	first := t.runs[0].LineHeight
	for _, r := range t.runs[1:] {
		if r.LineHeight != first {
			return LineMetric{}, false
		}
	}
	return first, true
}

func (t *Text) LetterSpacing() (LineMetric, bool) {
	if len(t.runs) == 0 {
		return LineMetric{Unit: UnitPixels}, true
	}
	first := t.runs[0].LetterSpacing
	for _, r := range t.runs[1:] {
		if r.LetterSpacing != first {
			return LineMetric{}, false
		}
	}
	return first, true
}

func (t *Text) TextCase() (TextCase, bool) {
	if len(t.runs) == 0 {
		return CaseOriginal, true
	}
	first := t.runs[0].Case
	for _, r := range t.runs[1:] {
		if r.Case != first {
			return "", false
		}
	}
	return first, true
}

func (t *Text) TextDecoration() (TextDecoration, bool) {
	if len(t.runs) == 0 {
		return DecorationNone, true
	}
	first := t.runs[0].Decoration
	for _, r := range t.runs[1:] {
		if r.Decoration != first {
			return "", false
		}
	}
	return first, true
}

// Shape covers the leaf geometry kinds that paint fills and strokes but
// have no corner rounding.
type Shape struct {
	base
	opacityProp
	fillProp
	strokeProp
}

func newShape(id, name string, kind Kind) *Shape {
	return &Shape{
		base:        newBase(id, name, kind),
		opacityProp: opacityProp{opacity: 1},
	}
}

func NewEllipse(id, name string) *Shape { return newShape(id, name, KindEllipse) }
func NewPolygon(id, name string) *Shape { return newShape(id, name, KindPolygon) }
func NewStar(id, name string) *Shape    { return newShape(id, name, KindStar) }
func NewVector(id, name string) *Shape  { return newShape(id, name, KindVector) }
func NewLine(id, name string) *Shape    { return newShape(id, name, KindLine) }

// Rectangle adds corner rounding on top of the basic shape surface.
type Rectangle struct {
	Shape
	cornerProp
}

func NewRectangle(id, name string) *Rectangle {
	return &Rectangle{Shape: *newShape(id, name, KindRectangle)}
}
