package scan

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
)

const sampleLimit = 50

// scanner emits findings for one category over a candidate set. Every
// category shares the loop shape: checkpoint, per-node recover, emit.
type scanner struct {
	category   Category
	classifier *Classifier
	vis        *Visibility
	log        hclog.Logger
}

func newScanner(category Category, classifier *Classifier, vis *Visibility, log hclog.Logger) *scanner {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &scanner{category: category, classifier: classifier, vis: vis, log: log}
}

// run processes the candidates in order. A cancelled session returns
// ErrCancelled; the partial findings must not be reported as results.
func (s *scanner) run(ctx context.Context, session *Session, nodes []document.Node, meter *progressMeter) ([]Finding, error) {
	findings := make([]Finding, 0)
	for _, n := range nodes {
		if !session.checkpoint() {
			return findings, ErrCancelled
		}
		s.scanNode(ctx, n, &findings)
		meter.step()
	}
	meter.finish()
	return findings, nil
}

// scanNode recovers per node so one bad node never aborts the scan.
func (s *scanner) scanNode(ctx context.Context, n document.Node, out *[]Finding) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("node scan failed, skipping", "node", safeID(n), "category", s.category, "panic", r)
		}
	}()

	switch s.category {
	case CategoryFill:
		s.scanPaints(ctx, n, document.FieldFills, out)
	case CategoryStroke:
		s.scanPaints(ctx, n, document.FieldStrokes, out)
	case CategoryTypography:
		s.scanTypography(ctx, n, out)
	case CategoryVerticalGap:
		s.scanGap(ctx, n, out)
	case CategoryHorizontalPadding:
		s.scanPadding(ctx, n, document.SideLeft, document.SideRight, out)
	case CategoryVerticalPadding:
		s.scanPadding(ctx, n, document.SideTop, document.SideBottom, out)
	case CategoryCornerRadius:
		s.scanCorners(ctx, n, out)
	case CategoryOpacity:
		s.scanOpacity(ctx, n, out)
	case CategoryTeamLibrary, CategoryLocalLibrary, CategoryMissingLibrary:
		s.scanLibrary(ctx, n, out)
	}
}

func (s *scanner) emit(n document.Node, property string, value Value, state BindingState, out *[]Finding) {
	*out = append(*out, Finding{
		NodeID:   n.ID(),
		NodeName: n.Name(),
		NodePath: nodePath(n),
		Category: s.category,
		Property: property,
		Value:    value,
		Binding:  state,
		Visible:  s.vis.IsVisible(n),
	})
}

// scanPaints reports raw solid paints per index. Gradient and image
// paints keep their binding slots but are never reported as raw colors.
func (s *scanner) scanPaints(ctx context.Context, n document.Node, field document.Field, out *[]Finding) {
	var paints []document.Paint
	switch field {
	case document.FieldFills:
		fn, ok := n.(document.FillsNode)
		if !ok {
			return
		}
		paints = fn.Fills()
	case document.FieldStrokes:
		sn, ok := n.(document.StrokesNode)
		if !ok {
			return
		}
		paints = sn.Strokes()
	}

	for i, p := range paints {
		state := s.classifier.ClassifyPaint(ctx, n, field, i)
		if state != BindingRaw {
			continue
		}
		if p.Kind != document.PaintSolid {
			continue
		}
		s.emit(n, fmt.Sprintf("%s[%d]", field, i), ColorValue{Color: p.Color}, BindingRaw, out)
	}
}

// scanTypography emits one finding per text node that has neither a
// text style nor a style-id variable binding. Run-mixed properties are
// reported as the MIXED sentinel, never averaged.
func (s *scanner) scanTypography(ctx context.Context, n document.Node, out *[]Finding) {
	t, ok := n.(document.TextNode)
	if !ok {
		return
	}
	if state := s.classifier.ClassifyScalar(ctx, n, document.FieldTextStyle); state != BindingRaw {
		return
	}

	value := TypographyValue{
		Family:           Mixed,
		Weight:           Mixed,
		Size:             Mixed,
		LineHeight:       Mixed,
		LetterSpacing:    Mixed,
		ParagraphSpacing: Mixed,
		Case:             Mixed,
		Decoration:       Mixed,
		Sample:           truncate(t.Characters(), sampleLimit),
	}
	if font, ok := t.FontName(); ok {
		value.Family = font.Family
		value.Weight = font.Style
	}
	if size, ok := t.FontSize(); ok {
		value.Size = trimNumber(size)
	}
	if lh, ok := t.LineHeight(); ok {
		value.LineHeight = lh.String()
	}
	if ls, ok := t.LetterSpacing(); ok {
		value.LetterSpacing = ls.String()
	}
	if ps, ok := t.ParagraphSpacing(); ok {
		value.ParagraphSpacing = trimNumber(ps)
	}
	if tc, ok := t.TextCase(); ok {
		value.Case = string(tc)
	}
	if td, ok := t.TextDecoration(); ok {
		value.Decoration = string(td)
	}
	s.emit(n, string(document.FieldTextStyle), value, BindingRaw, out)
}

// scanGap reports a strictly positive, unbound item spacing on
// vertically stacking containers.
func (s *scanner) scanGap(ctx context.Context, n document.Node, out *[]Finding) {
	al, ok := n.(document.AutoLayoutNode)
	if !ok {
		return
	}
	l := al.Layout()
	if l.Mode != document.LayoutVertical || l.ItemSpacing <= 0 {
		return
	}
	if state := s.classifier.ClassifyScalar(ctx, n, document.FieldItemSpacing); state != BindingRaw {
		return
	}
	s.emit(n, string(document.FieldItemSpacing),
		ScalarValue{Value: l.ItemSpacing, Display: trimNumber(l.ItemSpacing)}, BindingRaw, out)
}

// scanPadding evaluates the two sides of one axis independently; a
// container yields zero, one or two findings per axis.
func (s *scanner) scanPadding(ctx context.Context, n document.Node, a, b document.Side, out *[]Finding) {
	al, ok := n.(document.AutoLayoutNode)
	if !ok {
		return
	}
	l := al.Layout()
	if l.Mode == document.LayoutNone || l.Mode == "" {
		return
	}
	for _, side := range []document.Side{a, b} {
		value := l.Padding(side)
		if value <= 0 {
			continue
		}
		field := document.PaddingField(side)
		if state := s.classifier.ClassifyScalar(ctx, n, field); state != BindingRaw {
			continue
		}
		s.emit(n, string(field), ScalarValue{Value: value, Display: trimNumber(value)}, BindingRaw, out)
	}
}

// scanCorners reports the uniform radius once or each corner
// independently when the radii diverge.
func (s *scanner) scanCorners(ctx context.Context, n document.Node, out *[]Finding) {
	cn, ok := n.(document.CornerNode)
	if !ok {
		return
	}
	c := cn.Corners()
	if c.Uniform {
		if c.All <= 0 {
			return
		}
		if state := s.classifier.ClassifyScalar(ctx, n, document.FieldCornerRadius); state != BindingRaw {
			return
		}
		s.emit(n, string(document.FieldCornerRadius),
			ScalarValue{Value: c.All, Display: trimNumber(c.All)}, BindingRaw, out)
		return
	}
	for _, corner := range document.Corners {
		value := c.Corner(corner)
		if value <= 0 {
			continue
		}
		field := document.CornerField(corner)
		if state := s.classifier.ClassifyScalar(ctx, n, field); state != BindingRaw {
			continue
		}
		s.emit(n, string(field), ScalarValue{Value: value, Display: trimNumber(value)}, BindingRaw, out)
	}
}

// scanOpacity reports unbound non-default opacity on any node carrying
// the capability; the display string is the rounded percent while the
// fraction stays in Value.
func (s *scanner) scanOpacity(ctx context.Context, n document.Node, out *[]Finding) {
	on, ok := n.(document.OpacityNode)
	if !ok {
		return
	}
	value := on.Opacity()
	if value == 1 {
		return
	}
	if state := s.classifier.ClassifyScalar(ctx, n, document.FieldOpacity); state != BindingRaw {
		return
	}
	pct := strconv.Itoa(int(math.Round(value*100))) + "%"
	s.emit(n, string(document.FieldOpacity), ScalarValue{Value: value, Display: pct}, BindingRaw, out)
}

// scanLibrary surfaces every variable binding of one provenance across
// the node's scalar fields and paint indexes.
func (s *scanner) scanLibrary(ctx context.Context, n document.Node, out *[]Finding) {
	target := BindingTeamActive
	switch s.category {
	case CategoryLocalLibrary:
		target = BindingLocal
	case CategoryMissingLibrary:
		target = BindingMissing
	}

	bind := n.Bindings()
	for _, field := range bind.BoundFields() {
		id := bind.Var(field)
		if state := s.classifier.ClassifyVariable(ctx, id); state != target {
			continue
		}
		s.emit(n, string(field), s.classifier.Describe(id), target, out)
	}
	for i, id := range bind.Fills {
		if id == "" {
			continue
		}
		if state := s.classifier.ClassifyVariable(ctx, id); state != target {
			continue
		}
		s.emit(n, fmt.Sprintf("%s[%d]", document.FieldFills, i), s.classifier.Describe(id), target, out)
	}
	for i, id := range bind.Strokes {
		if id == "" {
			continue
		}
		if state := s.classifier.ClassifyVariable(ctx, id); state != target {
			continue
		}
		s.emit(n, fmt.Sprintf("%s[%d]", document.FieldStrokes, i), s.classifier.Describe(id), target, out)
	}
}

func nodePath(n document.Node) []string {
	var rev []string
	for a := n.Parent(); a != nil; a = a.Parent() {
		rev = append(rev, a.Name())
	}
	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func trimNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
