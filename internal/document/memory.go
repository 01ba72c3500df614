package document

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Memory is the in-process document host. Tests build trees against it
// directly, and the snapshot loader hydrates one from disk.
type Memory struct {
	mu         sync.RWMutex
	docID      string
	docName    string
	page       *Page
	index      map[string]Node
	variables  *VariableStore
	styles     *StyleStore
	selection  []string
	scrolledTo string
	changes    chan Change
	log        hclog.Logger
}

func NewMemory(log hclog.Logger) *Memory {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	m := &Memory{
		docID:     "doc-local",
		docName:   "Untitled",
		index:     make(map[string]Node),
		variables: NewVariableStore(log.Named("variables")),
		styles:    NewStyleStore(),
		changes:   make(chan Change, 16),
		log:       log,
	}
	m.setPageLocked(NewPage("0:1", "Page 1"))
	return m
}

func (m *Memory) DocID() string   { m.mu.RLock(); defer m.mu.RUnlock(); return m.docID }
func (m *Memory) DocName() string { m.mu.RLock(); defer m.mu.RUnlock(); return m.docName }

func (m *Memory) SetDocInfo(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docID = id
	m.docName = name
}

// SetPage replaces the scanned tree and rebuilds the id index.
func (m *Memory) SetPage(p *Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPageLocked(p)
}

func (m *Memory) setPageLocked(p *Page) {
	m.page = p
	m.index = make(map[string]Node)
	indexTree(m.index, p)
}

func indexTree(index map[string]Node, n Node) {
	index[n.ID()] = n
	for _, c := range n.Children() {
		indexTree(index, c)
	}
}

// Attach parents children under parent and indexes their subtrees. A
// nil parent attaches to the page.
func (m *Memory) Attach(parent Node, children ...Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parent == nil {
		parent = m.page
	}
	tp, ok := parent.(treeNode)
	if !ok {
		return
	}
	for _, c := range children {
		tc, ok := c.(treeNode)
		if !ok {
			continue
		}
		tc.setParent(parent)
		tp.addChild(c)
		indexTree(m.index, c)
	}
}

// Detach removes a node and its subtree from the document.
func (m *Memory) Detach(n Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parent, ok := n.Parent().(treeNode); ok {
		parent.removeChild(n.ID())
	}
	if tn, ok := n.(treeNode); ok {
		tn.setParent(nil)
	}
	var unindex func(Node)
	unindex = func(node Node) {
		delete(m.index, node.ID())
		for _, c := range node.Children() {
			unindex(c)
		}
	}
	unindex(n)
}

func (m *Memory) Root() Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page
}

func (m *Memory) NodeByID(id string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.index[id]
	return n, ok
}

func (m *Memory) Variables() VariableRegistry { return m.VariableStore() }
func (m *Memory) Styles() StyleRegistry       { return m.StyleStore() }

// VariableStore exposes the concrete store for host setup. The store is
// swapped wholesale on snapshot reload, so callers should not hold the
// returned pointer across reloads.
func (m *Memory) VariableStore() *VariableStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.variables
}

// StyleStore exposes the concrete store for host setup.
func (m *Memory) StyleStore() *StyleStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.styles
}

// SetSelection keeps the ids that still resolve and reports how many
// survived. Selecting nothing clears the selection.
func (m *Memory) SetSelection(ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.index[id]; ok {
			resolved = append(resolved, id)
		}
	}
	m.selection = resolved
	return len(resolved), nil
}

// Selection returns the currently selected node ids.
func (m *Memory) Selection() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.selection...)
}

func (m *Memory) ScrollIntoView(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.index[id]; ok {
			m.scrolledTo = id
			return nil
		}
	}
	return fmt.Errorf("scroll target: %w", ErrNotFound)
}

// ScrolledTo returns the id last brought into view.
func (m *Memory) ScrolledTo() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scrolledTo
}

func (m *Memory) Changes() <-chan Change { return m.changes }

// NotifyChange publishes a mutation burst. Delivery is best effort; a
// full channel drops the burst rather than blocking the mutator.
func (m *Memory) NotifyChange(origin string, nodeIDs ...string) {
	ch := Change{Origin: origin, NodeIDs: nodeIDs, At: time.Now()}
	select {
	case m.changes <- ch:
	default:
		m.log.Warn("change notification dropped", "origin", origin, "nodes", len(nodeIDs))
	}
}
