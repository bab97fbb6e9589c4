// Package domain models the rain-fact enrichment of a knowledge graph.
//
// # Graph Conventions
//
// The graph is made of addressable elements. Nodes carry an optional system
// identifier that is unique across the store; edges are elements too, so an
// edge can be the source or target of another edge.
//
//	concept_city    -> London            membership: London is a city
//	concept_date    -> 2024_06_01        identifiers use underscores for dashes
//	concept_rain    -> <fact>            exactly one fact node, named "True" or "False"
//	concept_weather -> <weather>         node the rain relation starts at
//
// # Fact Linkage
//
// A committed fact is bound by three edges plus four provenance arcs:
//
//	concept_rain ---------------> fact           (a) membership
//	weather ====================> fact           (b) relation edge
//	nrel_rain ------------------> (b)            (d) labels edge (b)
//	input_structure ------------> fact, (a), (b), (d)
//
// # Forecast Data
//
// The provider returns 3-hour samples for the next five days:
//
//	{"list": [{"dt_txt": "2024-06-01 12:00:00", "pop": 0.7}, ...]}
//
// A sample belongs to a calendar day when the first ten characters of dt_txt
// equal the ISO date. No timezone conversion is applied. A missing pop is 0.
//
// # Rain Threshold
//
// The day is rainy when the highest precipitation probability among its
// samples is at least the configured threshold (0.5 by default, inclusive).
package domain
