// Package remediate applies bind and unbind actions to document nodes.
// Batches process every member independently; partial success is a
// normal outcome, not an error.
package remediate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/pkg/events"
)

// BatchResult tallies one group remediation.
type BatchResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Messages   []string `json:"messages,omitempty"`
}

// Actor mutates the host document on behalf of a client. All writes go
// through the node's typed setters so invalid values are rejected at
// the same place interactive edits would reject them.
type Actor struct {
	host document.Host
	bus  *events.Bus
	log  hclog.Logger
}

func NewActor(host document.Host, bus *events.Bus, log hclog.Logger) *Actor {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Actor{host: host, bus: bus, log: log}
}

// Unbind writes the finding's snapshot literal back to the property and
// clears any binding on it. Properties this actor does not know how to
// write are skipped with a warning. The returned error means the item
// failed and should count against the batch.
func (a *Actor) Unbind(ctx context.Context, f scan.Finding) error {
	n, ok := a.host.NodeByID(f.NodeID)
	if !ok {
		return fmt.Errorf("node %s no longer exists", f.NodeID)
	}
	field, index, isPaint, err := parseProperty(f.Property)
	if err != nil {
		return fmt.Errorf("node %s: %w", f.NodeID, err)
	}

	if isPaint {
		if err := a.unbindPaint(n, f, field, index); err != nil {
			return err
		}
	} else if err := a.unbindScalar(n, f, field); err != nil {
		return err
	}

	a.publish(events.ValueUnbound, map[string]interface{}{
		"node":     f.NodeID,
		"property": f.Property,
	})
	return nil
}

// unbindPaint rewrites one paint entry as a literal solid and drops its
// binding. A finding without a color snapshot keeps the paint that is
// already on the node and only the binding goes.
func (a *Actor) unbindPaint(n document.Node, f scan.Finding, field document.Field, index int) error {
	var paints []document.Paint
	var write func([]document.Paint) error
	switch field {
	case document.FieldFills:
		fn, ok := n.(document.FillsNode)
		if !ok {
			a.warnSkip(f)
			return nil
		}
		paints, write = fn.Fills(), fn.SetFills
	case document.FieldStrokes:
		sn, ok := n.(document.StrokesNode)
		if !ok {
			a.warnSkip(f)
			return nil
		}
		paints, write = sn.Strokes(), sn.SetStrokes
	default:
		a.warnSkip(f)
		return nil
	}

	if index >= len(paints) {
		return fmt.Errorf("node %s has no %s entry %d anymore", f.NodeID, field, index)
	}
	if cv, ok := f.Value.(scan.ColorValue); ok {
		paints[index] = document.SolidPaint(cv.Color)
	}
	if err := write(paints); err != nil {
		return fmt.Errorf("node %s: %w", f.NodeID, err)
	}
	n.Bindings().ClearPaint(field, index)
	return nil
}

func (a *Actor) unbindScalar(n document.Node, f scan.Finding, field document.Field) error {
	value, hasValue := scalarSnapshot(f)

	var err error
	applied := true
	switch {
	case field == document.FieldItemSpacing:
		al, ok := n.(document.AutoLayoutNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = al.SetItemSpacing(value)
		}
	case field == document.FieldPaddingTop || field == document.FieldPaddingRight ||
		field == document.FieldPaddingBottom || field == document.FieldPaddingLeft:
		al, ok := n.(document.AutoLayoutNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = al.SetPadding(sideFor(field), value)
		}
	case field == document.FieldCornerRadius:
		cn, ok := n.(document.CornerNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = cn.SetCornerRadius(value)
		}
	case field == document.FieldTopLeftRadius || field == document.FieldTopRightRadius ||
		field == document.FieldBottomRightRadius || field == document.FieldBottomLeftRadius:
		cn, ok := n.(document.CornerNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = cn.SetCorner(cornerFor(field), value)
		}
	case field == document.FieldOpacity:
		on, ok := n.(document.OpacityNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = on.SetOpacity(value)
		}
	case field == document.FieldTextStyle:
		tn, ok := n.(document.TextNode)
		if !ok {
			applied = false
			break
		}
		err = tn.SetTextStyleID("")
	case field == document.FieldFontSize:
		tn, ok := n.(document.TextNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			err = tn.SetFontSize(value)
		}
	case field == document.FieldLineHeight:
		tn, ok := n.(document.TextNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			tn.SetLineHeight(document.LineMetric{Value: value, Unit: document.UnitPixels})
		}
	case field == document.FieldLetterSpacing:
		tn, ok := n.(document.TextNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			tn.SetLetterSpacing(document.LineMetric{Value: value, Unit: document.UnitPixels})
		}
	case field == document.FieldParagraphSpacing:
		tn, ok := n.(document.TextNode)
		if !ok {
			applied = false
			break
		}
		if hasValue {
			tn.SetParagraphSpacing(value)
		}
	default:
		applied = false
	}

	if !applied {
		a.warnSkip(f)
		return nil
	}
	if errors.Is(err, document.ErrUnsupported) {
		a.warnSkip(f)
		return nil
	}
	if err != nil {
		return fmt.Errorf("node %s: %w", f.NodeID, err)
	}
	n.Bindings().Clear(field)
	return nil
}

// Bind attaches a variable or style to one node property. The target
// is resolved before anything is touched; an unknown id fails with
// document.ErrNotFound and the node stays untouched.
func (a *Actor) Bind(ctx context.Context, nodeID, property, targetID string) error {
	n, ok := a.host.NodeByID(nodeID)
	if !ok {
		return fmt.Errorf("node %s no longer exists", nodeID)
	}
	field, index, isPaint, err := parseProperty(property)
	if err != nil {
		return fmt.Errorf("node %s: %w", nodeID, err)
	}

	if v, verr := a.host.Variables().ResolveVariable(targetID); verr == nil {
		err = a.bindVariable(n, v, field, index, isPaint)
	} else if s, serr := a.host.Styles().ResolveStyle(targetID); serr == nil {
		err = a.bindStyle(n, s, field)
	} else {
		return fmt.Errorf("bind target %s: %w", targetID, document.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("node %s: %w", nodeID, err)
	}

	a.publish(events.ValueBound, map[string]interface{}{
		"node":     nodeID,
		"property": property,
		"target":   targetID,
	})
	return nil
}

func (a *Actor) bindVariable(n document.Node, v *document.Variable, field document.Field, index int, isPaint bool) error {
	want := expectedVariableType(field)
	if v.Type != want {
		return fmt.Errorf("variable %s is %s, property %s needs %s", v.ID, v.Type, field, want)
	}
	if isPaint {
		if index < 0 {
			return fmt.Errorf("paint property %s needs an index", field)
		}
		var paints []document.Paint
		switch field {
		case document.FieldFills:
			fn, ok := n.(document.FillsNode)
			if !ok {
				return fmt.Errorf("property %s does not exist on %s nodes", field, n.Kind())
			}
			paints = fn.Fills()
		case document.FieldStrokes:
			sn, ok := n.(document.StrokesNode)
			if !ok {
				return fmt.Errorf("property %s does not exist on %s nodes", field, n.Kind())
			}
			paints = sn.Strokes()
		}
		if index >= len(paints) {
			return fmt.Errorf("no %s entry at index %d to bind", field, index)
		}
		n.Bindings().SetPaint(field, index, v.ID)
		return nil
	}
	if !bindableScalar(field) {
		return fmt.Errorf("property %s does not accept a variable binding", field)
	}
	n.Bindings().Set(field, v.ID)
	return nil
}

func (a *Actor) bindStyle(n document.Node, s *document.Style, field document.Field) error {
	switch field {
	case document.FieldFills:
		if s.Kind != document.StylePaint {
			return fmt.Errorf("style %s is %s, fills need a paint style", s.ID, s.Kind)
		}
		fn, ok := n.(document.FillsNode)
		if !ok {
			return fmt.Errorf("property fills does not exist on %s nodes", n.Kind())
		}
		return fn.SetFillStyleID(s.ID)
	case document.FieldStrokes:
		if s.Kind != document.StylePaint {
			return fmt.Errorf("style %s is %s, strokes need a paint style", s.ID, s.Kind)
		}
		sn, ok := n.(document.StrokesNode)
		if !ok {
			return fmt.Errorf("property strokes does not exist on %s nodes", n.Kind())
		}
		return sn.SetStrokeStyleID(s.ID)
	case document.FieldTextStyle:
		if s.Kind != document.StyleText {
			return fmt.Errorf("style %s is %s, text needs a text style", s.ID, s.Kind)
		}
		tn, ok := n.(document.TextNode)
		if !ok {
			return fmt.Errorf("property textStyleId does not exist on %s nodes", n.Kind())
		}
		return tn.SetTextStyleID(s.ID)
	}
	return fmt.Errorf("style %s cannot attach to property %s", s.ID, field)
}

// UnbindGroup unbinds every finding independently and tallies the
// outcomes. Failures carry one message each naming the node.
func (a *Actor) UnbindGroup(ctx context.Context, findings []scan.Finding) BatchResult {
	var res BatchResult
	for _, f := range findings {
		if err := a.Unbind(ctx, f); err != nil {
			res.Failed++
			res.Messages = append(res.Messages, err.Error())
			a.log.Warn("unbind failed", "node", f.NodeID, "property", f.Property, "error", err)
			continue
		}
		res.Successful++
	}
	a.log.Info("group unbind finished", "successful", res.Successful, "failed", res.Failed)
	return res
}

func (a *Actor) warnSkip(f scan.Finding) {
	a.log.Warn("property not supported for unbind, skipping",
		"node", f.NodeID, "property", f.Property, "category", f.Category)
}

func (a *Actor) publish(eventType events.EventType, data map[string]interface{}) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(events.Event{Type: eventType, Data: data})
}

// parseProperty splits "fills[2]" into its field and index. Properties
// without brackets come back with index -1.
func parseProperty(property string) (document.Field, int, bool, error) {
	open := strings.IndexByte(property, '[')
	if open < 0 {
		return document.Field(property), -1, false, nil
	}
	if !strings.HasSuffix(property, "]") {
		return "", 0, false, fmt.Errorf("malformed property %q", property)
	}
	index, err := strconv.Atoi(property[open+1 : len(property)-1])
	if err != nil || index < 0 {
		return "", 0, false, fmt.Errorf("malformed property %q", property)
	}
	field := document.Field(property[:open])
	if field != document.FieldFills && field != document.FieldStrokes {
		return "", 0, false, fmt.Errorf("property %q is not indexable", property)
	}
	return field, index, true, nil
}

func scalarSnapshot(f scan.Finding) (float64, bool) {
	v, ok := f.Value.(scan.ScalarValue)
	if !ok {
		return 0, false
	}
	return v.Value, true
}

func sideFor(field document.Field) document.Side {
	switch field {
	case document.FieldPaddingTop:
		return document.SideTop
	case document.FieldPaddingRight:
		return document.SideRight
	case document.FieldPaddingBottom:
		return document.SideBottom
	default:
		return document.SideLeft
	}
}

func cornerFor(field document.Field) document.Corner {
	switch field {
	case document.FieldTopLeftRadius:
		return document.CornerTopLeft
	case document.FieldTopRightRadius:
		return document.CornerTopRight
	case document.FieldBottomRightRadius:
		return document.CornerBottomRight
	default:
		return document.CornerBottomLeft
	}
}

func expectedVariableType(field document.Field) document.VariableType {
	switch field {
	case document.FieldFills, document.FieldStrokes:
		return document.VariableColor
	case document.FieldTextStyle, document.FieldFontFamily, document.FieldFontStyle:
		return document.VariableString
	}
	return document.VariableNumber
}

func bindableScalar(field document.Field) bool {
	switch field {
	case document.FieldItemSpacing,
		document.FieldPaddingTop, document.FieldPaddingRight,
		document.FieldPaddingBottom, document.FieldPaddingLeft,
		document.FieldCornerRadius,
		document.FieldTopLeftRadius, document.FieldTopRightRadius,
		document.FieldBottomRightRadius, document.FieldBottomLeftRadius,
		document.FieldOpacity,
		document.FieldTextStyle, document.FieldFontFamily, document.FieldFontStyle,
		document.FieldFontSize, document.FieldLineHeight,
		document.FieldLetterSpacing, document.FieldParagraphSpacing:
		return true
	}
	return false
}
