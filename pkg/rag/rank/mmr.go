package rank

// SelectMMR applies Maximal Marginal Relevance to a relevance-ranked candidate
// list and returns at most topK candidates balancing relevance against
// redundancy.
//
// At each step the unselected candidate maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// is moved into the result. With an empty selected set the penalty term is 0,
// so the first pick is always the top relevance candidate. lambda=1 degenerates
// to plain relevance ranking truncated to topK; lambda=0 ignores relevance
// after the first pick and maximizes diversity.
//
// The input must already be sorted by relevance (see RankBySimilarity); score
// ties are resolved in favor of the better relevance rank, which also encodes
// the chunk-index tie-break. O(topK * len(ranked)), fine for session-scoped
// pools.
func SelectMMR(ranked []Candidate, topK int, lambda float64) []Candidate {
	if topK <= 0 || len(ranked) == 0 {
		return []Candidate{}
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}

	selected := make([]Candidate, 0, topK)
	remaining := make([]Candidate, len(ranked))
	copy(remaining, ranked)

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)

		for i := 1; i < len(remaining); i++ {
			// Strict > keeps the earliest (better-ranked) candidate on ties.
			if score := mmrScore(remaining[i], selected, lambda); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func mmrScore(c Candidate, selected []Candidate, lambda float64) float64 {
	maxSim := 0.0
	for i, s := range selected {
		sim := CosineSimilarity(c.Vector, s.Vector)
		if i == 0 || sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.Score - (1-lambda)*maxSim
}
