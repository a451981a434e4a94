package licensing

import "strings"

const (
	baselineScore = 10
	highRiskPts   = 40
	mediumRiskPts = 20
	maxScore      = 100
)

// Keyword lists are matched case-insensitively; each keyword counts once.
var (
	highRiskKeywords   = []string{"infringement", "unauthorized", "lawsuit", "dmca", "copyright violation"}
	mediumRiskKeywords = []string{"license required", "attribution", "restricted use", "permission needed"}
)

// RiskScore derives a score in [10, 100] from the model's response text.
func RiskScore(response string) int {
	lower := strings.ToLower(response)
	score := baselineScore

	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			score += highRiskPts
		}
	}
	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			score += mediumRiskPts
		}
	}

	if score > maxScore {
		return maxScore
	}
	return score
}
