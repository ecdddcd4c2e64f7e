package rank

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite vectors", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mismatched dimensions", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "empty vectors", a: nil, b: nil, want: 0},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankBySimilarityOrdersByScoreDescending(t *testing.T) {
	query := []float32{1, 0}
	pool := []Candidate{
		{ChunkIndex: 0, Vector: []float32{0, 1}},   // orthogonal, score 0
		{ChunkIndex: 1, Vector: []float32{1, 0}},   // identical, score 1
		{ChunkIndex: 2, Vector: []float32{1, 1}},   // score ~0.707
		{ChunkIndex: 3, Vector: nil},               // no embedding, excluded
		{ChunkIndex: 4, Vector: []float32{-1, 0}},  // score -1
	}

	ranked := RankBySimilarity(query, pool)

	if len(ranked) != 4 {
		t.Fatalf("len(ranked) = %d, want 4", len(ranked))
	}
	wantOrder := []int{1, 2, 0, 4}
	for i, want := range wantOrder {
		if ranked[i].ChunkIndex != want {
			t.Errorf("ranked[%d].ChunkIndex = %d, want %d", i, ranked[i].ChunkIndex, want)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRankBySimilarityBreaksTiesByChunkIndex(t *testing.T) {
	query := []float32{1, 0}
	// All candidates score identically; only the chunk index differs.
	pool := []Candidate{
		{ChunkIndex: 7, Vector: []float32{2, 0}},
		{ChunkIndex: 2, Vector: []float32{1, 0}},
		{ChunkIndex: 5, Vector: []float32{3, 0}},
	}

	ranked := RankBySimilarity(query, pool)

	wantOrder := []int{2, 5, 7}
	for i, want := range wantOrder {
		if ranked[i].ChunkIndex != want {
			t.Errorf("ranked[%d].ChunkIndex = %d, want %d", i, ranked[i].ChunkIndex, want)
		}
	}
}

func TestRankBySimilarityIsDeterministic(t *testing.T) {
	query := []float32{0.3, 0.7, 0.1}
	pool := make([]Candidate, 0, 20)
	for i := 0; i < 20; i++ {
		pool = append(pool, Candidate{
			ChunkId:    uuid.New(),
			ChunkIndex: i % 5,
			Vector:     []float32{float32(i%3) + 0.1, float32(i%4) + 0.2, float32(i%2) + 0.3},
		})
	}

	first := RankBySimilarity(query, pool)
	for run := 0; run < 5; run++ {
		again := RankBySimilarity(query, pool)
		for i := range first {
			if again[i].ChunkId != first[i].ChunkId {
				t.Fatalf("run %d: position %d differs between runs", run, i)
			}
		}
	}
}
