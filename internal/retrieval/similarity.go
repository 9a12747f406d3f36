package retrieval

import "math"

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Vectors of different length, empty vectors and zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(score):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return score
}
