package domain

import (
	"context"
	"errors"
	"fmt"
)

// Addr addresses a graph element, node or edge. The zero Addr is invalid.
type Addr uint64

// IsValid reports whether a refers to an element.
func (a Addr) IsValid() bool { return a != 0 }

func (a Addr) String() string { return fmt.Sprintf("#%d", uint64(a)) }

// EdgeKind distinguishes membership arcs from relation edges.
type EdgeKind int

const (
	// EdgeMembership links a concept or structure to one of its elements.
	EdgeMembership EdgeKind = iota + 1
	// EdgeRelation is a directed relation edge, labelled by a relation node
	// through a membership arc that points at the edge itself.
	EdgeRelation
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeMembership:
		return "membership"
	case EdgeRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// ParseEdgeKind is the inverse of EdgeKind.String.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch s {
	case "membership":
		return EdgeMembership, nil
	case "relation":
		return EdgeRelation, nil
	default:
		return 0, fmt.Errorf("unknown edge kind %q", s)
	}
}

// Graph store errors.
var (
	ErrElementNotFound = errors.New("graph element not found")
	ErrInvalidEdge     = errors.New("invalid edge")
)

// RenameStatus is the discriminant of RenameResult.
type RenameStatus int

const (
	// RenameApplied means the node now holds the identifier.
	RenameApplied RenameStatus = iota + 1
	// RenameConflict means another node already owns the identifier.
	RenameConflict
)

func (s RenameStatus) String() string {
	switch s {
	case RenameApplied:
		return "applied"
	case RenameConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// RenameResult reports the outcome of TryRename. Owner is set on conflict.
type RenameResult struct {
	Status RenameStatus
	Owner  Addr
}

// GraphStore is the narrow view of the knowledge graph the engine needs.
type GraphStore interface {
	// FindByIdentifier returns the node holding idtf, or ErrElementNotFound.
	FindByIdentifier(ctx context.Context, idtf string) (Addr, error)

	// Members returns the nodes a concept links to by membership, in a
	// deterministic order.
	Members(ctx context.Context, concept Addr) ([]Addr, error)

	// Identifier returns the system identifier of a node ("" if unnamed).
	Identifier(ctx context.Context, node Addr) (string, error)

	// TryRename assigns idtf to node unless a different node owns it.
	TryRename(ctx context.Context, node Addr, idtf string) (RenameResult, error)

	// CreateEdge adds an edge between two existing elements. The engine
	// writes through Apply; this serves seeding and non-transactional stores.
	CreateEdge(ctx context.Context, kind EdgeKind, from, to Addr) (Addr, error)

	// Erase removes an element together with every edge incident to it.
	// The engine erases inside Apply; this serves non-transactional stores.
	Erase(ctx context.Context, element Addr) error

	// Apply commits a transaction in one pass: either every step is
	// applied or none is. It returns the edge addresses in plan order.
	Apply(ctx context.Context, tx *Transaction) ([]Addr, error)
}

// Ref names a transaction operand: an existing element or an edge planned
// earlier in the same transaction.
type Ref struct {
	addr    Addr
	planned int // 1-based index into Transaction.Edges
}

// Existing refers to an element already in the store.
func Existing(a Addr) Ref { return Ref{addr: a} }

// Addr returns the referenced element when it already exists.
func (r Ref) Addr() (Addr, bool) { return r.addr, r.planned == 0 }

// Planned returns the zero-based index of a planned edge.
func (r Ref) Planned() (int, bool) { return r.planned - 1, r.planned > 0 }

// PlannedEdge is an edge a transaction ensures exists.
type PlannedEdge struct {
	Kind EdgeKind
	From Ref
	To   Ref
}

// Transaction is a list of edge creations followed by erasures. Edges are
// ensured: an identical (kind, from, to) edge is reused instead of being
// duplicated, so re-applying a plan converges.
type Transaction struct {
	Edges []PlannedEdge
	Erase []Addr
}

// EnsureEdge plans an edge and returns a reference to it.
func (tx *Transaction) EnsureEdge(kind EdgeKind, from, to Ref) Ref {
	tx.Edges = append(tx.Edges, PlannedEdge{Kind: kind, From: from, To: to})
	return Ref{planned: len(tx.Edges)}
}

// EraseElement plans removal of an element after all edges are in place.
func (tx *Transaction) EraseElement(a Addr) {
	tx.Erase = append(tx.Erase, a)
}

// Well-known identifiers of the concept nodes the engine relies on.
const (
	IdtfConceptCity    = "concept_city"
	IdtfConceptDate    = "concept_date"
	IdtfConceptRain    = "concept_rain"
	IdtfConceptWeather = "concept_weather"
	IdtfNrelRain       = "nrel_rain"

	IdtfActionFillWeatherForecast = "action_fill_weather_forecast_structure"
	IdtfActionRecommendUmbrella   = "action_recommend_to_bring_umbrella"
	IdtfTrue                      = "True"
	IdtfFalse                     = "False"
)

// ConceptRegistry holds the addresses of the fixed concept nodes. It is
// resolved once at startup and never mutated.
type ConceptRegistry struct {
	City     Addr
	Date     Addr
	Rain     Addr
	Weather  Addr
	NrelRain Addr
}

// FactIdentifier is the identifier encoding a rain fact value.
func FactIdentifier(isRain bool) string {
	if isRain {
		return IdtfTrue
	}
	return IdtfFalse
}
