package document

import "time"

// Change describes one mutation burst reported by the host document.
type Change struct {
	// Origin says what caused the burst: "edit" for in-document
	// mutations, "reload" when the whole document was replaced.
	Origin  string
	NodeIDs []string
	At      time.Time
}

// Host is the full document surface the engine runs against.
type Host interface {
	// Root returns the page being scanned.
	Root() Node
	// NodeByID resolves a node anywhere in the tree.
	NodeByID(id string) (Node, bool)
	Variables() VariableRegistry
	Styles() StyleRegistry
	// SetSelection selects the nodes that still exist and returns how
	// many ids resolved.
	SetSelection(ids []string) (int, error)
	// ScrollIntoView scrolls the viewport to the first resolvable id.
	ScrollIntoView(ids []string) error
	// Changes delivers document mutation notifications. The channel is
	// never closed while the host is alive; slow consumers may miss
	// bursts, each carrying the full change set since the last.
	Changes() <-chan Change
}
