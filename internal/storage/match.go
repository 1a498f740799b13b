package storage

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mrfrench/backend/internal/models"
)

// DefaultSimilarityThreshold is the acceptance bar for fuzzy name matches.
const DefaultSimilarityThreshold = 0.8

// normalizeName lowercases and collapses runs of whitespace so that
// "Clean  your Room " and "clean your room" compare equal.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity returns a normalized string similarity in [0, 1]:
// 1 - levenshtein/maxlen over the normalized forms.
func Similarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 1
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(longest)
}

// BestMatch picks the task whose name is most similar to name, requiring
// similarity >= threshold. Exact (normalized) matches always win. Among
// candidates with equal similarity the most recently updated task wins.
func BestMatch(tasks []models.Task, name string, threshold float64) (models.Task, bool) {
	var (
		best     models.Task
		bestSim  float64
		found    bool
		wantName = normalizeName(name)
	)
	for _, t := range tasks {
		sim := Similarity(t.Task, name)
		if normalizeName(t.Task) == wantName {
			sim = 1
		}
		if sim < threshold {
			continue
		}
		if !found || sim > bestSim || (sim == bestSim && t.UpdatedAt.After(best.UpdatedAt)) {
			best = t
			bestSim = sim
			found = true
		}
	}
	return best, found
}
