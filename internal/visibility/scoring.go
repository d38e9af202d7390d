package visibility

import "strings"

// Per-query scores: 2 when the target is the first recommendation, 1 when it
// appears anywhere in the list, 0 otherwise.
const (
	ScorePrimary   = 2
	ScoreMentioned = 1
	ScoreAbsent    = 0
)

// QueryScore is the outcome of matching brand aliases against one
// recommendation list.
type QueryScore struct {
	Mentioned             bool     `json:"mentioned"`
	PrimaryRecommendation bool     `json:"primary_recommendation"`
	Score                 int      `json:"score"`
	OurNames              []string `json:"our_names"`
	Competitors           []string `json:"competitors"`
}

// NormalizeName lowercases and trims a brand name for comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MatchesAlias reports whether a recommended name refers to the target
// business. Containment runs both directions so "Acme" matches
// "Acme Packaging Co" and vice versa.
func MatchesAlias(name string, aliases []string) bool {
	normalized := NormalizeName(name)
	if normalized == "" {
		return false
	}
	for _, alias := range aliases {
		a := NormalizeName(alias)
		if a == "" {
			continue
		}
		if normalized == a || strings.Contains(normalized, a) || strings.Contains(a, normalized) {
			return true
		}
	}
	return false
}

// ScoreQueryResult matches brand aliases against a provider's recommendation
// list and assigns the per-query score.
func ScoreQueryResult(aliases []string, brands []BrandHit) QueryScore {
	result := QueryScore{
		OurNames:    []string{},
		Competitors: []string{},
	}

	for idx, brand := range brands {
		if MatchesAlias(brand.Name, aliases) {
			result.Mentioned = true
			result.OurNames = append(result.OurNames, brand.Name)
			if idx == 0 {
				result.PrimaryRecommendation = true
			}
		} else {
			result.Competitors = append(result.Competitors, brand.Name)
		}
	}

	switch {
	case result.PrimaryRecommendation:
		result.Score = ScorePrimary
	case result.Mentioned:
		result.Score = ScoreMentioned
	default:
		result.Score = ScoreAbsent
	}

	return result
}
