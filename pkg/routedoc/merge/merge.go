// Package merge pairs route facts with the documentation comment that
// precedes them.
package merge

import (
	"sort"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

// Pair is a route fact with the documentation fact chosen for it, if any.
type Pair struct {
	Route model.RouteFact
	Doc   *model.DocFact
}

// Merge attaches to each route the documentation fact whose end position is
// the largest one strictly before the route's start. Routes keep their input
// order. The same documentation fact may be attached to several routes when
// no closer comment separates them.
func Merge(routes []model.RouteFact, docs []model.DocFact) []Pair {
	sorted := make([]model.DocFact, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndPos < sorted[j].EndPos
	})

	pairs := make([]Pair, 0, len(routes))
	for _, route := range routes {
		pair := Pair{Route: route}
		// First doc ending at or after the route start; the one before it is
		// the nearest preceding comment.
		idx := sort.Search(len(sorted), func(i int) bool {
			return sorted[i].EndPos >= route.Pos
		})
		if idx > 0 {
			doc := sorted[idx-1]
			pair.Doc = &doc
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
