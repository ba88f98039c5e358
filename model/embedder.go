package model

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size used by NewHashEmbedder when dim <= 0.
const DefaultHashDimensions = 512

// HashEmbedder is a deterministic bag-of-words embedder based on the hashing
// trick. It needs no network access, which makes it suitable for tests,
// offline demos and seeding a catalog without an embedding service.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing vectors of size dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Dimensions returns the vector size.
func (h *HashEmbedder) Dimensions() int { return h.dim }

// Embed returns the L2-normalized term frequency vector of text. Empty text
// yields the zero vector.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		hs := fnv.New32a()
		_, _ = hs.Write([]byte(tok))
		vec[hs.Sum32()%uint32(h.dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dim)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
