package drain

// seqSimilarity computes the similarity between a cluster template and a
// candidate token sequence.
//
// Only literal template positions that agree with the candidate count as
// matched; wildcard positions neither help nor hurt. The score is
// matched / len(candidate), so a fully generalized template scores 0
// against any candidate.
//
// The sequences may differ in length (degraded matching once the global
// cluster cap is hit compares across length buckets); comparison stops at
// the shorter of the two.
func seqSimilarity(template, candidate []string) float64 {
	if len(candidate) == 0 {
		if len(template) == 0 {
			return 1.0
		}
		return 0.0
	}

	n := len(template)
	if len(candidate) < n {
		n = len(candidate)
	}

	matched := 0
	for i := 0; i < n; i++ {
		if template[i] != Wildcard && template[i] == candidate[i] {
			matched++
		}
	}

	return float64(matched) / float64(len(candidate))
}

// bestMatch scans clusters in creation order and returns the one with the
// highest similarity to the candidate, along with its score. Ties keep the
// earliest cluster so results are deterministic. Returns nil for an empty
// slice.
func bestMatch(clusters []*Cluster, candidate []string) (*Cluster, float64) {
	var best *Cluster
	bestSim := -1.0

	for _, c := range clusters {
		sim := seqSimilarity(c.Tokens, candidate)
		if sim > bestSim {
			best = c
			bestSim = sim
		}
	}

	return best, bestSim
}
