package rank

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Candidate is a retrieval candidate chunk scored against a query vector.
type Candidate struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Document   string // filename of the owning document
	ChunkIndex int
	Text       string
	Vector     []float32
	Score      float64
}

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Mismatched dimensions or a zero-magnitude vector score 0 instead of failing.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankBySimilarity scores every candidate against the query vector and returns
// them sorted by score descending. Candidates without a vector are excluded.
// Ties are broken by ascending chunk index so repeated calls are deterministic.
func RankBySimilarity(query []float32, pool []Candidate) []Candidate {
	ranked := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if len(c.Vector) == 0 {
			continue
		}
		c.Score = CosineSimilarity(query, c.Vector)
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ChunkIndex < ranked[j].ChunkIndex
	})

	return ranked
}
