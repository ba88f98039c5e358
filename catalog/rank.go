package catalog

import (
	"math"
	"sort"

	"github.com/hupe1980/shopmesh/core"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores products against query and returns those scoring strictly
// above minScore, best first. Equal scores are ordered by product id so the
// result for topK is always a prefix of the result for a larger topK. A
// non-positive topK returns every match.
func Rank(products []core.Product, query []float32, minScore float64, topK int) []core.ScoredProduct {
	scored := make([]core.ScoredProduct, 0, len(products))
	for _, p := range products {
		s := Cosine(p.Embedding, query)
		if s <= minScore {
			continue
		}
		scored = append(scored, core.ScoredProduct{Product: p, Score: s})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Product.ID < scored[j].Product.ID
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
