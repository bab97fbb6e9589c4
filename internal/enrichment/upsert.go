package enrichment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
)

// Upserter commits a rain fact to the graph.
//
// The current fact node is first renamed in place to "True" or "False".
// Identifiers are unique, so when another node already owns the target
// identifier that node becomes the fact: the full linkage is planned against
// it and the stale node is erased, all in one transaction.
type Upserter struct {
	store  domain.GraphStore
	logger *slog.Logger
}

// NewUpserter creates an Upserter over store.
func NewUpserter(store domain.GraphStore, logger *slog.Logger) *Upserter {
	return &Upserter{store: store, logger: logger}
}

// Upsert writes isRain into the graph, starting from the fact node that is
// currently a member of the rain concept.
func (u *Upserter) Upsert(ctx context.Context, isRain bool, current domain.Addr, anchors domain.Anchors) (domain.UpsertOutcome, error) {
	idtf := domain.FactIdentifier(isRain)

	res, err := u.store.TryRename(ctx, current, idtf)
	if err != nil {
		return domain.UpsertOutcome{}, fmt.Errorf("rename fact %s to %s: %w", current, idtf, err)
	}

	switch res.Status {
	case domain.RenameApplied:
		u.logger.Debug("rain fact updated in place", "node", current.String(), "value", idtf)
		return domain.UpsertOutcome{Path: domain.PathInPlace, FactNode: current}, nil
	case domain.RenameConflict:
		return u.replace(ctx, res.Owner, current, anchors)
	default:
		return domain.UpsertOutcome{}, fmt.Errorf("rename fact %s: unexpected status %s", current, res.Status)
	}
}

func (u *Upserter) replace(ctx context.Context, fact, stale domain.Addr, anchors domain.Anchors) (domain.UpsertOutcome, error) {
	tx := PlanLinkage(fact, anchors)
	tx.EraseElement(stale)

	edges, err := u.store.Apply(ctx, tx)
	if err != nil {
		return domain.UpsertOutcome{}, fmt.Errorf("replace fact %s with %s: %w", stale, fact, err)
	}

	u.logger.Debug("rain fact replaced",
		"node", fact.String(),
		"replaced", stale.String(),
		"edges", len(edges),
	)
	return domain.UpsertOutcome{
		Path:     domain.PathReplaced,
		FactNode: fact,
		Replaced: stale,
		Edges:    edges,
	}, nil
}

// PlanLinkage plans the edges binding fact to the rain concept, the weather
// node and the input structure, in this order:
//
//	0 concept_rain -> fact
//	1 weather => fact (relation)
//	2 nrel_rain -> edge 1
//	3..6 input_structure -> fact, edge 0, edge 1, edge 2
func PlanLinkage(fact domain.Addr, anchors domain.Anchors) *domain.Transaction {
	tx := &domain.Transaction{}
	factRef := domain.Existing(fact)

	rainArc := tx.EnsureEdge(domain.EdgeMembership, domain.Existing(anchors.Concepts.Rain), factRef)
	weatherArc := tx.EnsureEdge(domain.EdgeRelation, domain.Existing(anchors.Weather), factRef)
	labelArc := tx.EnsureEdge(domain.EdgeMembership, domain.Existing(anchors.Concepts.NrelRain), weatherArc)

	input := domain.Existing(anchors.InputStructure)
	for _, target := range []domain.Ref{factRef, rainArc, weatherArc, labelArc} {
		tx.EnsureEdge(domain.EdgeMembership, input, target)
	}
	return tx
}
