package matching

import (
	"math"
	"strings"
	"time"
)

func dateDiffDays(a, b time.Time) int {
	d := a.Sub(b).Hours() / 24
	return int(math.Round(math.Abs(d)))
}

// conceptSimilarity scores how well the movement concept text covers the
// counterparty name, in [0,1]. Each name token is matched against its best
// concept token by Levenshtein distance; bank concept lines are noisy, so
// token-level matching beats comparing the whole strings.
func conceptSimilarity(concept, partnerName string) float64 {
	cTokens := strings.Fields(normalize(concept))
	pTokens := strings.Fields(normalize(partnerName))

	if len(pTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, pt := range pTokens {
		best := 0.0
		for _, ct := range cTokens {
			dist := levenshtein(pt, ct)
			maxLen := math.Max(float64(len(pt)), float64(len(ct)))
			sim := 1 - float64(dist)/maxLen
			if sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(pTokens))
}

func normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(s)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = min(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}
