package scan

import (
	"fmt"
	"math"
	"runtime"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
)

// TypeFilter selects the node kinds one category scans.
type TypeFilter func(document.Node) bool

// Traverser enumerates scan candidates: whole-page depth-first or the
// expansion of an explicit selection. Children of component instances
// are never candidates; they belong to a definition the user does not
// own.
type Traverser struct {
	host document.Host
	vis  *Visibility
	log  hclog.Logger
}

func NewTraverser(host document.Host, vis *Visibility, log hclog.Logger) *Traverser {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Traverser{host: host, vis: vis, log: log}
}

// Collect returns the candidate nodes for one scan pass in document
// order. Cancellation is checked per node; a cancelled collection
// returns ErrCancelled and its partial output must be discarded.
func (t *Traverser) Collect(session *Session, scope Scope, filter TypeFilter, ignoreHidden bool) ([]document.Node, error) {
	roots, err := t.resolveRoots(scope)
	if err != nil {
		return nil, err
	}

	var out []document.Node
	for _, root := range roots {
		if !t.walk(session, root, filter, ignoreHidden, &out) {
			return out, ErrCancelled
		}
	}
	return out, nil
}

// resolveRoots expands the scope. A selected section contributes its
// child frames and components rather than itself or its raw shapes.
func (t *Traverser) resolveRoots(scope Scope) ([]document.Node, error) {
	if scope.WholePage() {
		root := t.host.Root()
		if root == nil {
			return nil, fmt.Errorf("document has no page to scan")
		}
		return []document.Node{root}, nil
	}

	var roots []document.Node
	for _, id := range scope.NodeIDs {
		n, ok := t.host.NodeByID(id)
		if !ok {
			t.log.Warn("scoped node no longer exists, skipping", "node", id)
			continue
		}
		if n.Kind() == document.KindSection {
			for _, c := range n.Children() {
				switch c.Kind() {
				case document.KindFrame, document.KindComponent:
					roots = append(roots, c)
				}
			}
			continue
		}
		roots = append(roots, n)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("none of the %d selected nodes exist", len(scope.NodeIDs))
	}
	return roots, nil
}

func (t *Traverser) walk(session *Session, n document.Node, filter TypeFilter, ignoreHidden bool, out *[]document.Node) bool {
	if session.Cancelled() {
		return false
	}
	skip := n.Parent() != nil && n.Parent().Kind() == document.KindInstance
	if !skip && ignoreHidden && !t.vis.IsVisible(n) {
		skip = true
	}
	if !skip && (filter == nil || filter(n)) {
		*out = append(*out, n)
	}
	if n.Kind() == document.KindInstance {
		return true
	}
	for _, c := range n.Children() {
		if !t.walk(session, c, filter, ignoreHidden, out) {
			return false
		}
	}
	return true
}

// filterFor returns the candidate filter for a category.
func filterFor(category Category) TypeFilter {
	switch category {
	case CategoryFill:
		return func(n document.Node) bool {
			_, ok := n.(document.FillsNode)
			return ok
		}
	case CategoryStroke:
		return func(n document.Node) bool {
			_, ok := n.(document.StrokesNode)
			return ok
		}
	case CategoryTypography:
		return func(n document.Node) bool {
			_, ok := n.(document.TextNode)
			return ok
		}
	case CategoryVerticalGap:
		return func(n document.Node) bool {
			al, ok := n.(document.AutoLayoutNode)
			return ok && al.Layout().Mode == document.LayoutVertical
		}
	case CategoryHorizontalPadding, CategoryVerticalPadding:
		return func(n document.Node) bool {
			al, ok := n.(document.AutoLayoutNode)
			return ok && al.Layout().Mode != document.LayoutNone && al.Layout().Mode != ""
		}
	case CategoryCornerRadius:
		return func(n document.Node) bool {
			_, ok := n.(document.CornerNode)
			return ok
		}
	case CategoryOpacity:
		return func(n document.Node) bool {
			_, ok := n.(document.OpacityNode)
			return ok
		}
	default:
		// Library audits look at every bindable node.
		return func(n document.Node) bool {
			return n.Kind() != document.KindPage
		}
	}
}

const (
	progressBatch   = 10
	progressMinStep = 0.5
	yieldEvery      = 50
)

var progressMilestones = []int{10, 25, 50, 75, 90, 99}

// progressMeter turns processed/total counts into throttled integer
// percent callbacks. Milestones fire exactly once each, in order, so
// clients can rely on seeing 10/25/50/75/90/99 on any scan that passes
// them; between milestones updates are batched to every 10th node or a
// half-point delta. Every yieldEvery nodes the scheduler is yielded to
// keep the hosting loop responsive.
type progressMeter struct {
	session   *Session
	total     int
	processed int
	lastPct   float64
	lastSent  int
	fired     map[int]bool
	emit      func(percent int)
}

func newProgressMeter(session *Session, total int, emit func(int)) *progressMeter {
	return &progressMeter{
		session:  session,
		total:    total,
		lastPct:  -1,
		lastSent: -1,
		fired:    make(map[int]bool),
		emit:     emit,
	}
}

func (m *progressMeter) step() {
	m.processed++
	if m.total <= 0 {
		return
	}
	pct := float64(m.processed) * 100 / float64(m.total)
	m.session.setProgress(pct / 100)

	for _, ms := range progressMilestones {
		if pct >= float64(ms) && !m.fired[ms] {
			m.fired[ms] = true
			m.send(ms, pct)
		}
	}
	if m.processed%progressBatch == 0 || pct-m.lastPct >= progressMinStep {
		m.send(int(math.Round(pct)), pct)
	}
	if m.processed%yieldEvery == 0 {
		runtime.Gosched()
	}
}

// finish reports completion for scans that never emitted 100 through
// the throttle, which happens whenever the node count is small.
func (m *progressMeter) finish() {
	if m.total <= 0 {
		return
	}
	m.session.setProgress(1)
	m.send(100, 100)
}

func (m *progressMeter) send(percent int, pct float64) {
	m.lastPct = pct
	if m.emit == nil || percent == m.lastSent {
		return
	}
	m.lastSent = percent
	m.emit(percent)
}
