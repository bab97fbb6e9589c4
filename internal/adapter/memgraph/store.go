// Package memgraph is an in-memory knowledge graph implementing
// domain.GraphStore. Writers are serialized by a single mutex.
package memgraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
)

// Element is a node or an edge. Edges have a non-zero Kind.
type Element struct {
	Addr       domain.Addr
	Identifier string
	Kind       domain.EdgeKind
	From       domain.Addr
	To         domain.Addr
}

// IsEdge reports whether e is an edge.
func (e Element) IsEdge() bool { return e.Kind != 0 }

type edgeKey struct {
	kind     domain.EdgeKind
	from, to domain.Addr
}

// Store implements domain.GraphStore in memory.
type Store struct {
	mu       sync.RWMutex
	next     domain.Addr
	elements map[domain.Addr]*Element
	byIdtf   map[string]domain.Addr
	out      map[domain.Addr][]domain.Addr // source -> edges, creation order
	in       map[domain.Addr][]domain.Addr // target -> edges
	edges    map[edgeKey]domain.Addr
}

// New creates an empty store.
func New() *Store {
	return &Store{
		elements: make(map[domain.Addr]*Element),
		byIdtf:   make(map[string]domain.Addr),
		out:      make(map[domain.Addr][]domain.Addr),
		in:       make(map[domain.Addr][]domain.Addr),
		edges:    make(map[edgeKey]domain.Addr),
	}
}

// CreateNode adds a node. An empty identifier leaves it unnamed; a taken
// identifier is an error.
func (s *Store) CreateNode(_ context.Context, idtf string) (domain.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idtf != "" {
		if _, taken := s.byIdtf[idtf]; taken {
			return 0, fmt.Errorf("create node: identifier %q already in use", idtf)
		}
	}
	s.next++
	a := s.next
	s.elements[a] = &Element{Addr: a, Identifier: idtf}
	if idtf != "" {
		s.byIdtf[idtf] = a
	}
	return a, nil
}

// FindByIdentifier returns the node holding idtf.
func (s *Store) FindByIdentifier(_ context.Context, idtf string) (domain.Addr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byIdtf[idtf]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrElementNotFound, idtf)
	}
	return a, nil
}

// Members returns the nodes concept links to by membership, in edge
// creation order. Membership arcs that point at edges are skipped.
func (s *Store) Members(_ context.Context, concept domain.Addr) ([]domain.Addr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.elements[concept]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, concept)
	}
	var members []domain.Addr
	for _, ea := range s.out[concept] {
		e := s.elements[ea]
		if e.Kind != domain.EdgeMembership {
			continue
		}
		if target := s.elements[e.To]; target.IsEdge() {
			continue
		}
		members = append(members, e.To)
	}
	return members, nil
}

// Identifier returns the identifier of an element.
func (s *Store) Identifier(_ context.Context, a domain.Addr) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elements[a]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrElementNotFound, a)
	}
	return e.Identifier, nil
}

// TryRename assigns idtf to node unless another node owns it. Renaming a
// node to the identifier it already holds is applied.
func (s *Store) TryRename(_ context.Context, node domain.Addr, idtf string) (domain.RenameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elements[node]
	if !ok {
		return domain.RenameResult{}, fmt.Errorf("%w: %s", domain.ErrElementNotFound, node)
	}
	if owner, taken := s.byIdtf[idtf]; taken && owner != node {
		return domain.RenameResult{Status: domain.RenameConflict, Owner: owner}, nil
	}
	if e.Identifier != "" {
		delete(s.byIdtf, e.Identifier)
	}
	e.Identifier = idtf
	s.byIdtf[idtf] = node
	return domain.RenameResult{Status: domain.RenameApplied}, nil
}

// CreateEdge adds an edge. Parallel edges are allowed here; Apply is the
// deduplicating path.
func (s *Store) CreateEdge(_ context.Context, kind domain.EdgeKind, from, to domain.Addr) (domain.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEdge(kind, from, to); err != nil {
		return 0, err
	}
	return s.addEdge(kind, from, to), nil
}

// Erase removes an element and, transitively, every edge touching it.
func (s *Store) Erase(_ context.Context, a domain.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elements[a]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, a)
	}
	s.erase(a)
	return nil
}

// Apply validates the whole transaction before touching the graph, so a
// rejected plan leaves the store unchanged.
func (s *Store) Apply(_ context.Context, tx *domain.Transaction) ([]domain.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	erasing := make(map[domain.Addr]bool, len(tx.Erase))
	for _, a := range tx.Erase {
		if _, ok := s.elements[a]; !ok {
			return nil, fmt.Errorf("apply: erase: %w: %s", domain.ErrElementNotFound, a)
		}
		erasing[a] = true
	}
	for i, pe := range tx.Edges {
		for _, ref := range []domain.Ref{pe.From, pe.To} {
			if idx, planned := ref.Planned(); planned {
				if idx >= i {
					return nil, fmt.Errorf("apply: edge %d: %w: forward reference to edge %d", i, domain.ErrInvalidEdge, idx)
				}
				continue
			}
			a, _ := ref.Addr()
			if _, ok := s.elements[a]; !ok {
				return nil, fmt.Errorf("apply: edge %d: %w: %s", i, domain.ErrElementNotFound, a)
			}
			if erasing[a] {
				return nil, fmt.Errorf("apply: edge %d: %w: endpoint %s is erased", i, domain.ErrInvalidEdge, a)
			}
		}
		if pe.Kind != domain.EdgeMembership && pe.Kind != domain.EdgeRelation {
			return nil, fmt.Errorf("apply: edge %d: %w: kind %d", i, domain.ErrInvalidEdge, pe.Kind)
		}
	}

	addrs := make([]domain.Addr, len(tx.Edges))
	resolve := func(r domain.Ref) domain.Addr {
		if idx, planned := r.Planned(); planned {
			return addrs[idx]
		}
		a, _ := r.Addr()
		return a
	}
	for i, pe := range tx.Edges {
		from, to := resolve(pe.From), resolve(pe.To)
		if existing, ok := s.edges[edgeKey{pe.Kind, from, to}]; ok {
			addrs[i] = existing
			continue
		}
		addrs[i] = s.addEdge(pe.Kind, from, to)
	}
	for _, a := range tx.Erase {
		if _, ok := s.elements[a]; ok {
			s.erase(a)
		}
	}
	return addrs, nil
}

// Snapshot returns every element ordered by address.
func (s *Store) Snapshot() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Element, 0, len(s.elements))
	for a := domain.Addr(1); a <= s.next; a++ {
		if e, ok := s.elements[a]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// Element returns a copy of the element at a.
func (s *Store) Element(a domain.Addr) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elements[a]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// EdgesFrom returns the edges leaving a, in creation order.
func (s *Store) EdgesFrom(a domain.Addr) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Element, 0, len(s.out[a]))
	for _, ea := range s.out[a] {
		out = append(out, *s.elements[ea])
	}
	return out
}

func (s *Store) checkEdge(kind domain.EdgeKind, from, to domain.Addr) error {
	if kind != domain.EdgeMembership && kind != domain.EdgeRelation {
		return fmt.Errorf("%w: kind %d", domain.ErrInvalidEdge, kind)
	}
	for _, a := range []domain.Addr{from, to} {
		if _, ok := s.elements[a]; !ok {
			return fmt.Errorf("%w: endpoint %s", domain.ErrElementNotFound, a)
		}
	}
	return nil
}

func (s *Store) addEdge(kind domain.EdgeKind, from, to domain.Addr) domain.Addr {
	s.next++
	a := s.next
	s.elements[a] = &Element{Addr: a, Kind: kind, From: from, To: to}
	s.out[from] = append(s.out[from], a)
	s.in[to] = append(s.in[to], a)
	key := edgeKey{kind, from, to}
	if _, ok := s.edges[key]; !ok {
		s.edges[key] = a
	}
	return a
}

func (s *Store) erase(a domain.Addr) {
	e, ok := s.elements[a]
	if !ok {
		return
	}
	delete(s.elements, a)
	if e.Identifier != "" && s.byIdtf[e.Identifier] == a {
		delete(s.byIdtf, e.Identifier)
	}

	incident := append(append([]domain.Addr{}, s.out[a]...), s.in[a]...)
	delete(s.out, a)
	delete(s.in, a)

	if e.IsEdge() {
		if _, ok := s.elements[e.From]; ok {
			s.out[e.From] = without(s.out[e.From], a)
		}
		if _, ok := s.elements[e.To]; ok {
			s.in[e.To] = without(s.in[e.To], a)
		}
		key := edgeKey{e.Kind, e.From, e.To}
		if s.edges[key] == a {
			delete(s.edges, key)
			s.reindex(key)
		}
	}
	for _, ea := range incident {
		s.erase(ea)
	}
}

// reindex points key at a surviving parallel edge, if any.
func (s *Store) reindex(key edgeKey) {
	for _, ea := range s.out[key.from] {
		e := s.elements[ea]
		if e.Kind == key.kind && e.To == key.to {
			s.edges[key] = ea
			return
		}
	}
}

func without(list []domain.Addr, a domain.Addr) []domain.Addr {
	out := list[:0]
	for _, x := range list {
		if x != a {
			out = append(out, x)
		}
	}
	return out
}
