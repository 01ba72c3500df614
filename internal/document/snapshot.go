package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Snapshot files carry a serialized document: one page tree plus the
// variable and style registries. They are what relinkd scans when it is
// not embedded in a live editor.

const snapshotSchemaVersion = 1

type snapshotDoc struct {
	SchemaVersion int            `json:"schemaVersion"`
	DocumentID    string         `json:"documentId,omitempty"`
	Name          string         `json:"name,omitempty"`
	Page          *snapshotNode  `json:"page"`
	Collections   []*Collection  `json:"collections,omitempty"`
	Variables     []*Variable    `json:"variables,omitempty"`
	Styles        []*Style       `json:"styles,omitempty"`
}

type snapshotNode struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	Hidden           bool              `json:"hidden,omitempty"`
	Collapsed        bool              `json:"collapsed,omitempty"`
	Opacity          *float64          `json:"opacity,omitempty"`
	BlendMode        string            `json:"blendMode,omitempty"`
	Mask             bool              `json:"mask,omitempty"`
	Positioning      string            `json:"positioning,omitempty"`
	Bounds           *Rect             `json:"bounds,omitempty"`
	Fills            []snapshotPaint   `json:"fills,omitempty"`
	FillStyleID      string            `json:"fillStyleId,omitempty"`
	Strokes          []snapshotPaint   `json:"strokes,omitempty"`
	StrokeStyleID    string            `json:"strokeStyleId,omitempty"`
	TextStyleID      string            `json:"textStyleId,omitempty"`
	ParagraphSpacing float64           `json:"paragraphSpacing,omitempty"`
	Runs             []TextRun         `json:"runs,omitempty"`
	Layout           *AutoLayout       `json:"layout,omitempty"`
	ClipsContent     bool              `json:"clipsContent,omitempty"`
	Corners          *CornerRadii      `json:"corners,omitempty"`
	Bindings         *snapshotBindings `json:"bindings,omitempty"`
	Children         []*snapshotNode   `json:"children,omitempty"`
}

type snapshotPaint struct {
	Kind    string   `json:"kind,omitempty"`
	Color   *Color   `json:"color,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
}

type snapshotBindings struct {
	Props   map[string]string `json:"props,omitempty"`
	Fills   []string          `json:"fills,omitempty"`
	Strokes []string          `json:"strokes,omitempty"`
}

// LoadSnapshot reads a snapshot file into a fresh host.
func LoadSnapshot(path string, log hclog.Logger) (*Memory, error) {
	m := NewMemory(log)
	if err := m.LoadSnapshotFile(path); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadSnapshotFile replaces the host's contents from a snapshot file.
// On any error the host keeps its previous contents.
func (m *Memory) LoadSnapshotFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return m.ReadSnapshot(f)
}

// ReadSnapshot replaces the host's contents from snapshot JSON.
func (m *Memory) ReadSnapshot(r io.Reader) error {
	var doc snapshotDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.SchemaVersion > snapshotSchemaVersion {
		return fmt.Errorf("snapshot schema %d is newer than supported %d", doc.SchemaVersion, snapshotSchemaVersion)
	}
	if doc.Page == nil {
		return fmt.Errorf("snapshot has no page")
	}
	pageNode, err := buildNode(doc.Page)
	if err != nil {
		return err
	}
	page, ok := pageNode.(*Page)
	if !ok {
		return fmt.Errorf("snapshot root must be a PAGE, got %s", doc.Page.Type)
	}

	vars := NewVariableStore(m.log.Named("variables"))
	vars.Add(doc.Variables...)
	vars.AddCollection(doc.Collections...)
	styles := NewStyleStore()
	styles.Add(doc.Styles...)

	vars.SetImporter(m.variables.Importer())

	m.mu.Lock()
	if doc.DocumentID != "" {
		m.docID = doc.DocumentID
	}
	if doc.Name != "" {
		m.docName = doc.Name
	}
	m.variables = vars
	m.styles = styles
	m.setPageLocked(page)
	m.mu.Unlock()
	return nil
}

func buildNode(sn *snapshotNode) (Node, error) {
	kind := Kind(sn.Type)
	var n Node
	switch kind {
	case KindPage:
		n = NewPage(sn.ID, sn.Name)
	case KindFrame, KindComponent, KindInstance:
		n = newFrame(sn.ID, sn.Name, kind)
	case KindGroup:
		n = NewGroup(sn.ID, sn.Name)
	case KindSection:
		n = NewSection(sn.ID, sn.Name)
	case KindText:
		n = NewText(sn.ID, sn.Name, sn.Runs...)
	case KindRectangle:
		n = NewRectangle(sn.ID, sn.Name)
	case KindEllipse, KindPolygon, KindStar, KindVector, KindLine:
		n = newShape(sn.ID, sn.Name, kind)
	default:
		return nil, fmt.Errorf("snapshot node %s: unknown type %q", sn.ID, sn.Type)
	}

	applyBase(n, sn)
	applyCapabilities(n, sn)

	tn := n.(treeNode)
	for _, child := range sn.Children {
		c, err := buildNode(child)
		if err != nil {
			return nil, err
		}
		c.(treeNode).setParent(n)
		tn.addChild(c)
	}
	return n, nil
}

func applyBase(n Node, sn *snapshotNode) {
	b := baseOf(n)
	b.SetVisible(!sn.Hidden)
	b.SetCollapsed(sn.Collapsed)
	if sn.Bounds != nil {
		b.SetBounds(*sn.Bounds)
	}
	if sn.Positioning != "" {
		b.SetPositioning(Positioning(sn.Positioning))
	}
	if sn.BlendMode != "" {
		b.SetBlendMode(BlendMode(sn.BlendMode))
	}
	b.SetMask(sn.Mask)
	if sn.Bindings != nil {
		bind := n.Bindings()
		for field, id := range sn.Bindings.Props {
			bind.Set(Field(field), id)
		}
		bind.Fills = append([]string(nil), sn.Bindings.Fills...)
		bind.Strokes = append([]string(nil), sn.Bindings.Strokes...)
	}
}

func applyCapabilities(n Node, sn *snapshotNode) {
	if sn.Opacity != nil {
		if on, ok := n.(OpacityNode); ok {
			on.SetOpacity(*sn.Opacity)
		}
	}
	if fn, ok := n.(FillsNode); ok {
		if sn.Fills != nil {
			fn.SetFills(decodePaints(sn.Fills))
		}
		if sn.FillStyleID != "" {
			fn.SetFillStyleID(sn.FillStyleID)
		}
	}
	if stn, ok := n.(StrokesNode); ok {
		if sn.Strokes != nil {
			stn.SetStrokes(decodePaints(sn.Strokes))
		}
		if sn.StrokeStyleID != "" {
			stn.SetStrokeStyleID(sn.StrokeStyleID)
		}
	}
	if f, ok := n.(*Frame); ok {
		if sn.Layout != nil {
			f.SetLayout(*sn.Layout)
		}
		f.SetClipsContent(sn.ClipsContent)
	}
	if cn, ok := n.(CornerNode); ok && sn.Corners != nil {
		if setter, ok := cn.(interface{ SetCorners(CornerRadii) }); ok {
			setter.SetCorners(*sn.Corners)
		}
	}
	if t, ok := n.(*Text); ok {
		if sn.TextStyleID != "" {
			t.SetTextStyleID(sn.TextStyleID)
		}
		t.SetParagraphSpacing(sn.ParagraphSpacing)
	}
}

// baseOf digs out the embedded base through the concrete types.
func baseOf(n Node) *base {
	switch v := n.(type) {
	case *Page:
		return &v.base
	case *Frame:
		return &v.base
	case *Group:
		return &v.base
	case *Section:
		return &v.base
	case *Text:
		return &v.base
	case *Shape:
		return &v.base
	case *Rectangle:
		return &v.base
	}
	return nil
}

func decodePaints(in []snapshotPaint) []Paint {
	out := make([]Paint, 0, len(in))
	for _, sp := range in {
		p := Paint{Kind: PaintKind(sp.Kind), Opacity: 1, Visible: true}
		if p.Kind == "" {
			p.Kind = PaintSolid
		}
		if sp.Color != nil {
			p.Color = *sp.Color
		}
		if sp.Opacity != nil {
			p.Opacity = *sp.Opacity
		}
		if sp.Visible != nil {
			p.Visible = *sp.Visible
		}
		out = append(out, p)
	}
	return out
}

// SaveSnapshot writes the host's contents as snapshot JSON.
func (m *Memory) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()
	return m.WriteSnapshot(f)
}

// WriteSnapshot serializes the host's contents.
func (m *Memory) WriteSnapshot(w io.Writer) error {
	m.mu.RLock()
	doc := snapshotDoc{
		SchemaVersion: snapshotSchemaVersion,
		DocumentID:    m.docID,
		Name:          m.docName,
		Page:          encodeNode(m.page),
	}
	vars, styles := m.variables, m.styles
	m.mu.RUnlock()

	doc.Variables = vars.AllVariables()
	doc.Collections = vars.Collections()
	doc.Styles = styles.AllStyles()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func encodeNode(n Node) *snapshotNode {
	sn := &snapshotNode{
		ID:   n.ID(),
		Name: n.Name(),
		Type: string(n.Kind()),
	}
	sn.Hidden = !n.Visible()
	sn.Collapsed = n.Collapsed()
	if b := n.Bounds(); b != (Rect{}) {
		sn.Bounds = &b
	}
	if p := n.Positioning(); p != PositionAuto {
		sn.Positioning = string(p)
	}
	if bm := n.BlendMode(); bm != BlendNormal {
		sn.BlendMode = string(bm)
	}
	sn.Mask = n.IsMask()

	if on, ok := n.(OpacityNode); ok {
		if o := on.Opacity(); o != 1 {
			sn.Opacity = &o
		}
	}
	if fn, ok := n.(FillsNode); ok {
		sn.Fills = encodePaints(fn.Fills())
		sn.FillStyleID = fn.FillStyleID()
	}
	if stn, ok := n.(StrokesNode); ok {
		sn.Strokes = encodePaints(stn.Strokes())
		sn.StrokeStyleID = stn.StrokeStyleID()
	}
	if f, ok := n.(*Frame); ok {
		if l := f.Layout(); l.Mode != LayoutNone && l.Mode != "" {
			sn.Layout = &l
		}
		sn.ClipsContent = f.ClipsContent()
	}
	if cn, ok := n.(CornerNode); ok {
		if c := cn.Corners(); c != (CornerRadii{}) {
			sn.Corners = &c
		}
	}
	if t, ok := n.(*Text); ok {
		sn.TextStyleID = t.TextStyleID()
		if ps, _ := t.ParagraphSpacing(); ps != 0 {
			sn.ParagraphSpacing = ps
		}
		sn.Runs = t.Runs()
	}

	if b := n.Bindings(); b != nil && (len(b.Props) > 0 || len(b.Fills) > 0 || len(b.Strokes) > 0) {
		sb := &snapshotBindings{
			Fills:   append([]string(nil), b.Fills...),
			Strokes: append([]string(nil), b.Strokes...),
		}
		if len(b.Props) > 0 {
			sb.Props = make(map[string]string, len(b.Props))
			for f, id := range b.Props {
				sb.Props[string(f)] = id
			}
		}
		sn.Bindings = sb
	}

	for _, c := range n.Children() {
		sn.Children = append(sn.Children, encodeNode(c))
	}
	return sn
}

func encodePaints(in []Paint) []snapshotPaint {
	out := make([]snapshotPaint, 0, len(in))
	for _, p := range in {
		sp := snapshotPaint{Kind: string(p.Kind)}
		if p.Kind == PaintSolid {
			c := p.Color
			sp.Color = &c
		}
		o := p.Opacity
		sp.Opacity = &o
		v := p.Visible
		sp.Visible = &v
		out = append(out, sp)
	}
	return out
}
