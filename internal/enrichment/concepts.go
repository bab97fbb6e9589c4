package enrichment

import (
	"context"
	"fmt"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
)

// ResolveConcepts looks up the fixed concept nodes once. A missing concept
// is a startup error.
func ResolveConcepts(ctx context.Context, store domain.GraphStore) (domain.ConceptRegistry, error) {
	var reg domain.ConceptRegistry
	targets := []struct {
		idtf string
		dst  *domain.Addr
	}{
		{domain.IdtfConceptCity, &reg.City},
		{domain.IdtfConceptDate, &reg.Date},
		{domain.IdtfConceptRain, &reg.Rain},
		{domain.IdtfConceptWeather, &reg.Weather},
		{domain.IdtfNrelRain, &reg.NrelRain},
	}
	for _, t := range targets {
		a, err := store.FindByIdentifier(ctx, t.idtf)
		if err != nil {
			return domain.ConceptRegistry{}, fmt.Errorf("resolve concept %s: %w", t.idtf, err)
		}
		*t.dst = a
	}
	return reg, nil
}
