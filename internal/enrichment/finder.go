package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
)

// Finder resolves the graph elements an enrichment run needs. It never
// writes to the store.
type Finder struct {
	store    domain.GraphStore
	concepts domain.ConceptRegistry
}

// NewFinder creates a Finder over store.
func NewFinder(store domain.GraphStore, concepts domain.ConceptRegistry) *Finder {
	return &Finder{store: store, concepts: concepts}
}

// Resolve looks up the input structure, city, date, weather node and the
// current rain fact. Each missing element yields its own sentinel error.
func (f *Finder) Resolve(ctx context.Context, req domain.Request) (domain.Inputs, error) {
	var in domain.Inputs
	var err error

	if in.InputStructure, err = f.byIdentifier(ctx, req.InputStructure, domain.ErrInputStructureNotFound); err != nil {
		return domain.Inputs{}, err
	}

	if in.City, err = f.named(ctx, req.City, f.concepts.City, domain.ErrCityNotFound); err != nil {
		return domain.Inputs{}, err
	}
	if in.CityName, err = f.store.Identifier(ctx, in.City); err != nil {
		return domain.Inputs{}, fmt.Errorf("%w: %w", domain.ErrCityNotFound, err)
	}
	if in.CityName == "" {
		return domain.Inputs{}, fmt.Errorf("%w: city node %s has no identifier", domain.ErrCityNotFound, in.City)
	}

	if in.Date, err = f.named(ctx, req.Date, f.concepts.Date, domain.ErrDateNotFound); err != nil {
		return domain.Inputs{}, err
	}
	dateIdtf, err := f.store.Identifier(ctx, in.Date)
	if err != nil {
		return domain.Inputs{}, fmt.Errorf("%w: %w", domain.ErrDateNotFound, err)
	}
	if in.DateISO, err = domain.NormalizeDate(dateIdtf); err != nil {
		return domain.Inputs{}, err
	}

	if in.Weather, err = f.first(ctx, f.concepts.Weather, domain.ErrWeatherNotFound); err != nil {
		return domain.Inputs{}, err
	}
	if in.Fact, err = f.first(ctx, f.concepts.Rain, domain.ErrFactNotFound); err != nil {
		return domain.Inputs{}, err
	}
	return in, nil
}

// named resolves idtf when given, otherwise the first member of concept.
func (f *Finder) named(ctx context.Context, idtf string, concept domain.Addr, notFound error) (domain.Addr, error) {
	if idtf != "" {
		return f.byIdentifier(ctx, idtf, notFound)
	}
	return f.first(ctx, concept, notFound)
}

func (f *Finder) byIdentifier(ctx context.Context, idtf string, notFound error) (domain.Addr, error) {
	if idtf == "" {
		return 0, fmt.Errorf("%w: no identifier given", notFound)
	}
	a, err := f.store.FindByIdentifier(ctx, idtf)
	if errors.Is(err, domain.ErrElementNotFound) {
		return 0, fmt.Errorf("%w: %q", notFound, idtf)
	}
	if err != nil {
		return 0, fmt.Errorf("find %q: %w", idtf, err)
	}
	return a, nil
}

// first returns the first member of concept in store iteration order.
func (f *Finder) first(ctx context.Context, concept domain.Addr, notFound error) (domain.Addr, error) {
	members, err := f.store.Members(ctx, concept)
	if errors.Is(err, domain.ErrElementNotFound) {
		return 0, fmt.Errorf("%w: concept %s missing", notFound, concept)
	}
	if err != nil {
		return 0, fmt.Errorf("members of %s: %w", concept, err)
	}
	if len(members) == 0 {
		return 0, notFound
	}
	return members[0], nil
}
