package document

import "sort"

// Field names a bindable node property. The strings match the property
// names the host uses, so they double as wire labels.
type Field string

const (
	FieldFills             Field = "fills"
	FieldStrokes           Field = "strokes"
	FieldItemSpacing       Field = "itemSpacing"
	FieldPaddingTop        Field = "paddingTop"
	FieldPaddingRight      Field = "paddingRight"
	FieldPaddingBottom     Field = "paddingBottom"
	FieldPaddingLeft       Field = "paddingLeft"
	FieldCornerRadius      Field = "cornerRadius"
	FieldTopLeftRadius     Field = "topLeftRadius"
	FieldTopRightRadius    Field = "topRightRadius"
	FieldBottomRightRadius Field = "bottomRightRadius"
	FieldBottomLeftRadius  Field = "bottomLeftRadius"
	FieldOpacity           Field = "opacity"
	FieldTextStyle         Field = "textStyleId"
	FieldFontFamily        Field = "fontFamily"
	FieldFontStyle         Field = "fontStyle"
	FieldFontSize          Field = "fontSize"
	FieldLineHeight        Field = "lineHeight"
	FieldLetterSpacing     Field = "letterSpacing"
	FieldParagraphSpacing  Field = "paragraphSpacing"
)

// PaddingField maps an auto-layout side to its padding field.
func PaddingField(side Side) Field {
	switch side {
	case SideTop:
		return FieldPaddingTop
	case SideRight:
		return FieldPaddingRight
	case SideBottom:
		return FieldPaddingBottom
	default:
		return FieldPaddingLeft
	}
}

// CornerField maps a corner to its radius field.
func CornerField(corner Corner) Field {
	switch corner {
	case CornerTopLeft:
		return FieldTopLeftRadius
	case CornerTopRight:
		return FieldTopRightRadius
	case CornerBottomRight:
		return FieldBottomRightRadius
	default:
		return FieldBottomLeftRadius
	}
}

// Bindings records which properties of a node are driven by variables.
// Scalar properties map a field to a variable id. Paint lists are bound
// per index; the slice may be shorter than the paint list, and indexes
// past its end are unbound.
type Bindings struct {
	Props   map[Field]string
	Fills   []string
	Strokes []string
}

// Var returns the variable id bound to a scalar field, or "" when the
// field is unbound.
func (b *Bindings) Var(field Field) string {
	if b == nil || b.Props == nil {
		return ""
	}
	return b.Props[field]
}

// PaintVar returns the variable id bound to one entry of a paint list,
// or "" when that index is unbound.
func (b *Bindings) PaintVar(field Field, index int) string {
	if b == nil || index < 0 {
		return ""
	}
	list := b.Fills
	if field == FieldStrokes {
		list = b.Strokes
	}
	if index >= len(list) {
		return ""
	}
	return list[index]
}

// Set binds a scalar field to a variable id.
func (b *Bindings) Set(field Field, id string) {
	if b.Props == nil {
		b.Props = make(map[Field]string)
	}
	b.Props[field] = id
}

// Clear removes the binding for a scalar field.
func (b *Bindings) Clear(field Field) {
	if b.Props != nil {
		delete(b.Props, field)
	}
}

// SetPaint binds one entry of a paint list, growing the slice as needed.
func (b *Bindings) SetPaint(field Field, index int, id string) {
	if index < 0 {
		return
	}
	list := &b.Fills
	if field == FieldStrokes {
		list = &b.Strokes
	}
	for len(*list) <= index {
		*list = append(*list, "")
	}
	(*list)[index] = id
}

// ClearPaint removes the binding for one entry of a paint list.
func (b *Bindings) ClearPaint(field Field, index int) {
	list := b.Fills
	if field == FieldStrokes {
		list = b.Strokes
	}
	if index >= 0 && index < len(list) {
		list[index] = ""
	}
}

// BoundFields returns the scalar fields with a non-empty binding, sorted
// for stable iteration.
func (b *Bindings) BoundFields() []Field {
	if b == nil || len(b.Props) == 0 {
		return nil
	}
	fields := make([]Field, 0, len(b.Props))
	for f, id := range b.Props {
		if id != "" {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Clone returns a deep copy.
func (b *Bindings) Clone() *Bindings {
	if b == nil {
		return &Bindings{}
	}
	out := &Bindings{}
	if len(b.Props) > 0 {
		out.Props = make(map[Field]string, len(b.Props))
		for f, id := range b.Props {
			out.Props[f] = id
		}
	}
	out.Fills = append([]string(nil), b.Fills...)
	out.Strokes = append([]string(nil), b.Strokes...)
	return out
}
