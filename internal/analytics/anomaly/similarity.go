package anomaly

import (
	"math"
	"sort"
)

// PercentageDiff returns the relative deviation of a from baseline b.
// A zero baseline yields 1 for any nonzero a and 0 otherwise.
func PercentageDiff(a, b float64) float64 {
	if b == 0 {
		if a != 0 {
			return 1.0
		}
		return 0.0
	}
	return math.Abs(a-b) / math.Abs(b)
}

// ToneSimilarityScore returns the cosine similarity of two label proportion
// maps over the union of their labels. Two empty maps are identical; one
// empty map is maximally different.
func ToneSimilarityScore(t1, t2 map[string]float64) float64 {
	if len(t1) == 0 && len(t2) == 0 {
		return 1.0
	}
	if len(t1) == 0 || len(t2) == 0 {
		return 0.0
	}

	labels := make([]string, 0, len(t1)+len(t2))
	for k := range t1 {
		labels = append(labels, k)
	}
	for k := range t2 {
		if _, ok := t1[k]; !ok {
			labels = append(labels, k)
		}
	}
	sort.Strings(labels)

	var dot, norm1, norm2 float64
	for _, k := range labels {
		a, b := t1[k], t2[k]
		dot += a * b
		norm1 += a * a
		norm2 += b * b
	}
	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}
	// sqrt(n*n) is exact, so identical vectors score exactly 1.
	return math.Min(1, dot/math.Sqrt(norm1*norm2))
}

// Proportions normalizes a count distribution by its own total. It returns
// nil when the total is not positive.
func Proportions(counts map[string]int) map[string]float64 {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total <= 0 {
		return nil
	}
	out := make(map[string]float64, len(counts))
	for k, n := range counts {
		out[k] = float64(n) / float64(total)
	}
	return out
}
