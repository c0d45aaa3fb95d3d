package services

import (
	"context"
	"sort"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const defaultSimilarLimit = 5

// SimilarOrder is another live order ranked by how close its address is
type SimilarOrder struct {
	Order    models.Order `json:"order"`
	SameCity bool         `json:"same_city"`
	Distance int          `json:"distance"`
}

// SimilarOrders ranks other live orders by address similarity, same city first
func (s *OrderService) SimilarOrders(ctx context.Context, id string, limit int) ([]SimilarOrder, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	live, err := s.store.LiveOrders(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}

	address := strings.ToLower(target.PropertyAddress)
	candidates := make([]SimilarOrder, 0, len(live))
	for _, o := range live {
		if o.ID == target.ID {
			continue
		}
		other := strings.ToLower(o.PropertyAddress)
		sameCity := strings.EqualFold(o.PropertyCity, target.PropertyCity) &&
			strings.EqualFold(o.PropertyState, target.PropertyState)
		// unrelated addresses in another city are noise
		if !sameCity && o.PropertyZip != target.PropertyZip &&
			!fuzzy.MatchNormalizedFold(streetName(address), other) {
			continue
		}
		candidates = append(candidates, SimilarOrder{
			Order:    o,
			SameCity: sameCity,
			Distance: fuzzy.LevenshteinDistance(address, other),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SameCity != candidates[j].SameCity {
			return candidates[i].SameCity
		}
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// streetName drops a leading house number
func streetName(address string) string {
	fields := strings.Fields(address)
	if len(fields) > 1 && strings.IndexFunc(fields[0], func(r rune) bool { return r < '0' || r > '9' }) == -1 {
		return strings.Join(fields[1:], " ")
	}
	return address
}
