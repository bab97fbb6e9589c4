package memgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML description of an initial graph. Edge endpoints name
// nodes by identifier; an edge may also be given a label so later edges can
// point at it.
//
//	nodes: [concept_city, Minsk]
//	edges:
//	  - {kind: membership, from: concept_city, to: Minsk}
type Seed struct {
	Nodes []string   `yaml:"nodes"`
	Edges []SeedEdge `yaml:"edges"`
}

// SeedEdge is one edge of a Seed.
type SeedEdge struct {
	Label string `yaml:"label,omitempty"`
	Kind  string `yaml:"kind"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// ConceptSeed holds only the fixed concept nodes the engine resolves at
// startup.
func ConceptSeed() Seed {
	return Seed{Nodes: []string{
		domain.IdtfConceptCity,
		domain.IdtfConceptDate,
		domain.IdtfConceptRain,
		domain.IdtfConceptWeather,
		domain.IdtfNrelRain,
	}}
}

// NewWithConcepts returns a store holding just the ConceptSeed nodes.
func NewWithConcepts(ctx context.Context) (*Store, error) {
	s := New()
	if err := s.ApplySeed(ctx, ConceptSeed()); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSeedFile reads and applies a YAML seed file to a new store.
func LoadSeedFile(ctx context.Context, path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(ctx, f)
}

// LoadSeed decodes a YAML seed and builds a store from it.
func LoadSeed(ctx context.Context, r io.Reader) (*Store, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	s := New()
	if err := s.ApplySeed(ctx, seed); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplySeed creates the nodes and edges of seed in order.
func (s *Store) ApplySeed(ctx context.Context, seed Seed) error {
	for _, idtf := range seed.Nodes {
		if _, err := s.CreateNode(ctx, idtf); err != nil {
			return fmt.Errorf("seed node %q: %w", idtf, err)
		}
	}

	labels := make(map[string]domain.Addr)
	lookup := func(name string) (domain.Addr, error) {
		if a, ok := labels[name]; ok {
			return a, nil
		}
		return s.FindByIdentifier(ctx, name)
	}

	for i, se := range seed.Edges {
		kind, err := domain.ParseEdgeKind(se.Kind)
		if err != nil {
			return fmt.Errorf("seed edge %d: %w", i, err)
		}
		from, err := lookup(se.From)
		if err != nil {
			return fmt.Errorf("seed edge %d: from: %w", i, err)
		}
		to, err := lookup(se.To)
		if err != nil {
			return fmt.Errorf("seed edge %d: to: %w", i, err)
		}
		a, err := s.CreateEdge(ctx, kind, from, to)
		if err != nil {
			return fmt.Errorf("seed edge %d: %w", i, err)
		}
		if se.Label != "" {
			labels[se.Label] = a
		}
	}
	return nil
}

// ExportSeed renders the current graph in seed form. Unnamed nodes and edges
// get generated labels.
func (s *Store) ExportSeed() Seed {
	elems := s.Snapshot()
	names := make(map[domain.Addr]string, len(elems))
	var seed Seed
	for _, e := range elems {
		if e.IsEdge() {
			names[e.Addr] = fmt.Sprintf("edge%d", e.Addr)
			continue
		}
		name := e.Identifier
		if name == "" {
			name = fmt.Sprintf("node%d", e.Addr)
		}
		names[e.Addr] = name
		seed.Nodes = append(seed.Nodes, name)
	}
	for _, e := range elems {
		if !e.IsEdge() {
			continue
		}
		seed.Edges = append(seed.Edges, SeedEdge{
			Label: names[e.Addr],
			Kind:  e.Kind.String(),
			From:  names[e.From],
			To:    names[e.To],
		})
	}
	return seed
}

// WriteYAML encodes seed as YAML.
func WriteYAML(w io.Writer, seed Seed) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seed); err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	return enc.Close()
}
