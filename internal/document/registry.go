package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// VariableStore is the in-memory variable registry. Remote variables
// activated through ImportByKey are cached so repeated imports of the
// same key resolve without touching the importer again. A merely
// referenced remote variable is not an activation: the store keeps a
// separate activated index, because a stale reference to a disabled
// library must keep failing its import.
type VariableStore struct {
	mu          sync.RWMutex
	vars        map[string]*Variable
	byKey       map[string]string
	activated   map[string]string
	collections []*Collection
	importer    Importer
	log         hclog.Logger
}

func NewVariableStore(log hclog.Logger) *VariableStore {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &VariableStore{
		vars:      make(map[string]*Variable),
		byKey:     make(map[string]string),
		activated: make(map[string]string),
		log:       log,
	}
}

// SetImporter wires the team library backend used by ImportByKey.
func (s *VariableStore) SetImporter(imp Importer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importer = imp
}

// Importer returns the wired library backend, if any.
func (s *VariableStore) Importer() Importer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importer
}

// Add registers variables under their ids.
func (s *VariableStore) Add(vars ...*Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vars {
		s.vars[v.ID] = v
		if v.Key != "" {
			s.byKey[v.Key] = v.ID
		}
	}
}

// Remove drops a variable, typically to model token deletion.
func (s *VariableStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vars[id]; ok {
		if v.Key != "" {
			delete(s.byKey, v.Key)
			if s.activated[v.Key] == id {
				delete(s.activated, v.Key)
			}
		}
		delete(s.vars, id)
	}
}

// AddCollection registers variable collections.
func (s *VariableStore) AddCollection(cols ...*Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(s.collections, cols...)
}

func (s *VariableStore) ResolveVariable(id string) (*Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[id]
	if !ok {
		return nil, fmt.Errorf("variable %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *VariableStore) VariableByKey(key string) (*Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	v, ok := s.vars[id]
	return v, ok
}

func (s *VariableStore) LocalVariables() []*Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Variable, 0, len(s.vars))
	for _, v := range s.vars {
		if !v.Remote {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllVariables returns every variable, sorted by id for stable output.
func (s *VariableStore) AllVariables() []*Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Variable, 0, len(s.vars))
	for _, v := range s.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *VariableStore) Collections() []*Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Collection(nil), s.collections...)
}

func (s *VariableStore) ImportByKey(ctx context.Context, key string) (*Variable, error) {
	s.mu.RLock()
	if id, ok := s.activated[key]; ok {
		if v, ok := s.vars[id]; ok {
			s.mu.RUnlock()
			return v, nil
		}
	}
	imp := s.importer
	seed := Variable{Key: key, Remote: true}
	if id, ok := s.byKey[key]; ok {
		if v, ok := s.vars[id]; ok {
			seed = *v
		}
	}
	s.mu.RUnlock()

	if imp == nil {
		return nil, fmt.Errorf("import variable %s: no importer configured", key)
	}
	v, err := imp.ImportVariable(ctx, &seed)
	if err != nil {
		return nil, fmt.Errorf("import variable %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another import may have won the race; keep the first activation.
	if id, ok := s.activated[key]; ok {
		if existing, ok := s.vars[id]; ok {
			return existing, nil
		}
	}
	s.vars[v.ID] = v
	s.byKey[key] = v.ID
	s.activated[key] = v.ID
	s.log.Debug("activated library variable", "key", key, "id", v.ID, "name", v.Name)
	return v, nil
}

// StyleStore is the in-memory style registry.
type StyleStore struct {
	mu     sync.RWMutex
	styles map[string]*Style
}

func NewStyleStore() *StyleStore {
	return &StyleStore{styles: make(map[string]*Style)}
}

func (s *StyleStore) Add(styles ...*Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range styles {
		s.styles[st.ID] = st
	}
}

func (s *StyleStore) ResolveStyle(id string) (*Style, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.styles[id]
	if !ok {
		return nil, fmt.Errorf("style %s: %w", id, ErrNotFound)
	}
	return st, nil
}

// AllStyles returns every style, sorted by id for stable output.
func (s *StyleStore) AllStyles() []*Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Style, 0, len(s.styles))
	for _, st := range s.styles {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
