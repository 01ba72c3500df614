package scan

import (
	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
)

// maxAncestorDepth bounds the walk so a corrupted parent cycle cannot
// hang a scan.
const maxAncestorDepth = 10000

// Visibility decides whether a node is effectively visible given its
// ancestor chain at call time. Verdicts are not cached; the tree may
// mutate between scans.
type Visibility struct {
	// FailOpen flips the verdict for walks that fail internally. The
	// default is fail-closed: a node we cannot judge is treated as
	// hidden.
	FailOpen bool

	log hclog.Logger
}

func NewVisibility(log hclog.Logger) *Visibility {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Visibility{log: log}
}

// IsVisible walks from the node to the root. The node's own hidden flag
// fails first; then each ancestor can fail the walk: hidden, collapsed
// container, zero opacity (which also covers pass-through blends under
// it), a masking ancestor, or a clipping auto-layout container whose
// bounds the node's geometry falls fully outside. An absolutely
// positioned branch escapes layout flow, so clipping is additionally
// tested against the branch root's box.
func (v *Visibility) IsVisible(n document.Node) (visible bool) {
	defer func() {
		if r := recover(); r != nil {
			v.log.Warn("visibility walk failed", "node", safeID(n), "panic", r)
			visible = v.FailOpen
		}
	}()

	if n == nil {
		return v.FailOpen
	}
	if !n.Visible() {
		return false
	}

	child := n
	depth := 0
	for anc := n.Parent(); anc != nil; anc = anc.Parent() {
		depth++
		if depth > maxAncestorDepth {
			v.log.Warn("ancestor chain exceeds depth bound", "node", safeID(n))
			return v.FailOpen
		}
		if !anc.Visible() {
			return false
		}
		if anc.Collapsed() && anc.Kind().Container() {
			return false
		}
		if op, ok := anc.(document.OpacityNode); ok && op.Opacity() == 0 {
			return false
		}
		if anc.IsMask() {
			return false
		}
		if al, ok := anc.(document.AutoLayoutNode); ok &&
			al.Layout().Mode != document.LayoutNone && al.ClipsContent() {
			ab := anc.Bounds()
			if !ab.Empty() {
				if nb := n.Bounds(); !nb.Empty() && !ab.Intersects(nb) {
					return false
				}
				if child.Positioning() == document.PositionAbsolute {
					if cb := child.Bounds(); !cb.Empty() && !ab.Intersects(cb) {
						return false
					}
				}
			}
		}
		child = anc
	}
	return true
}

func safeID(n document.Node) (id string) {
	defer func() {
		if recover() != nil {
			id = "<unknown>"
		}
	}()
	if n == nil {
		return "<nil>"
	}
	return n.ID()
}
