package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color with channels in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Hex renders the color as uppercase #RRGGBB, or #RRGGBBAA when the
// alpha channel is not fully opaque.
func (c Color) Hex() string {
	r := channelByte(c.R)
	g := channelByte(c.G)
	b := channelByte(c.B)
	if c.A < 1 {
		return fmt.Sprintf("#%02X%02X%02X%02X", r, g, b, channelByte(c.A))
	}
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func channelByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ParseHex parses #RGB, #RRGGBB and #RRGGBBAA color strings.
func ParseHex(s string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(raw) {
	case 3:
		var sb strings.Builder
		for _, r := range raw {
			sb.WriteRune(r)
			sb.WriteRune(r)
		}
		raw = sb.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	c := Color{A: 1}
	if len(raw) == 8 {
		c.A = float64(n&0xFF) / 255
		n >>= 8
	}
	c.B = float64(n&0xFF) / 255
	c.G = float64((n>>8)&0xFF) / 255
	c.R = float64((n>>16)&0xFF) / 255
	return c, nil
}

// PaintKind discriminates paint entries.
type PaintKind string

const (
	PaintSolid    PaintKind = "SOLID"
	PaintGradient PaintKind = "GRADIENT"
	PaintImage    PaintKind = "IMAGE"
)

// Paint is one entry of a fill or stroke list. Color is meaningful for
// solid paints only.
type Paint struct {
	Kind    PaintKind `json:"kind"`
	Color   Color     `json:"color,omitempty"`
	Opacity float64   `json:"opacity"`
	Visible bool      `json:"visible"`
}

// SolidPaint builds a visible solid paint at full paint opacity.
func SolidPaint(c Color) Paint {
	return Paint{Kind: PaintSolid, Color: c, Opacity: 1, Visible: true}
}

// Side labels one edge of an auto-layout container.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Sides lists all edges in clockwise order from the top.
var Sides = []Side{SideTop, SideRight, SideBottom, SideLeft}

// LayoutMode is the auto-layout direction of a container.
type LayoutMode string

const (
	LayoutNone       LayoutMode = "NONE"
	LayoutHorizontal LayoutMode = "HORIZONTAL"
	LayoutVertical   LayoutMode = "VERTICAL"
)

// AutoLayout is the spacing model of an auto-layout container.
type AutoLayout struct {
	Mode          LayoutMode `json:"mode"`
	ItemSpacing   float64    `json:"itemSpacing"`
	PaddingTop    float64    `json:"paddingTop"`
	PaddingRight  float64    `json:"paddingRight"`
	PaddingBottom float64    `json:"paddingBottom"`
	PaddingLeft   float64    `json:"paddingLeft"`
}

// Padding returns the padding on one side.
func (l AutoLayout) Padding(side Side) float64 {
	switch side {
	case SideTop:
		return l.PaddingTop
	case SideRight:
		return l.PaddingRight
	case SideBottom:
		return l.PaddingBottom
	default:
		return l.PaddingLeft
	}
}

// Corner labels one corner of a node.
type Corner string

const (
	CornerTopLeft     Corner = "topLeft"
	CornerTopRight    Corner = "topRight"
	CornerBottomRight Corner = "bottomRight"
	CornerBottomLeft  Corner = "bottomLeft"
)

// Corners lists all corners in clockwise order from the top left.
var Corners = []Corner{CornerTopLeft, CornerTopRight, CornerBottomRight, CornerBottomLeft}

// CornerRadii is a node's rounding. When Uniform is set, All carries the
// shared radius and the per-corner values are ignored.
type CornerRadii struct {
	Uniform     bool    `json:"uniform"`
	All         float64 `json:"all,omitempty"`
	TopLeft     float64 `json:"topLeft,omitempty"`
	TopRight    float64 `json:"topRight,omitempty"`
	BottomRight float64 `json:"bottomRight,omitempty"`
	BottomLeft  float64 `json:"bottomLeft,omitempty"`
}

// Corner returns the radius at one corner.
func (c CornerRadii) Corner(corner Corner) float64 {
	if c.Uniform {
		return c.All
	}
	switch corner {
	case CornerTopLeft:
		return c.TopLeft
	case CornerTopRight:
		return c.TopRight
	case CornerBottomRight:
		return c.BottomRight
	default:
		return c.BottomLeft
	}
}

// FontName pairs a font family with its style variant.
type FontName struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}

// MetricUnit is the unit of a line-height or letter-spacing metric.
type MetricUnit string

const (
	UnitPixels  MetricUnit = "PIXELS"
	UnitPercent MetricUnit = "PERCENT"
	UnitAuto    MetricUnit = "AUTO"
)

// LineMetric is a line-height or letter-spacing value with its unit.
type LineMetric struct {
	Value float64    `json:"value,omitempty"`
	Unit  MetricUnit `json:"unit"`
}

// String renders the metric the way the host inspector shows it.
func (m LineMetric) String() string {
	switch m.Unit {
	case UnitPixels:
		return trimFloat(m.Value) + "px"
	case UnitPercent:
		return trimFloat(m.Value) + "%"
	default:
		return "AUTO"
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TextCase is the casing transform applied to a text range.
type TextCase string

const (
	CaseOriginal TextCase = "ORIGINAL"
	CaseUpper    TextCase = "UPPER"
	CaseLower    TextCase = "LOWER"
	CaseTitle    TextCase = "TITLE"
)

// TextDecoration is the decoration applied to a text range.
type TextDecoration string

const (
	DecorationNone          TextDecoration = "NONE"
	DecorationUnderline     TextDecoration = "UNDERLINE"
	DecorationStrikethrough TextDecoration = "STRIKETHROUGH"
)
