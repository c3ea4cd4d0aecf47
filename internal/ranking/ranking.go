// Package ranking scores ad candidates against an audience profile with a
// deterministic keyword oracle: token overlap, category match, banned-term
// safety, and field completeness. No model calls; used to pre-filter the
// inventory before the creative phase.
package ranking

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"adintel/internal/logging"
	"adintel/internal/types"
)

// Factor weights; safety and completeness keep weak ads from winning on
// keyword luck alone.
const (
	weightAlignment    = 0.35
	weightCategory     = 0.25
	weightSafety       = 0.25
	weightCompleteness = 0.15

	bannedHitPenalty = 0.25
)

// Profile is the audience side of the scoring: free text describing the
// audience, preferred categories, and terms the audience must not see.
type Profile struct {
	Text       string
	Categories []string
	Banned     []string
}

// ProfileFromPersona derives a scoring profile from a context card.
func ProfileFromPersona(p types.PersonaContext) Profile {
	return Profile{
		Text:       p.GeneralTopic + " " + p.PersonaTone,
		Categories: p.Categories,
		Banned:     p.ExcludedTerms,
	}
}

// Scores holds per-factor results, scaled 0-100 and rounded to one decimal.
type Scores struct {
	PersonaAlignment float64 `json:"persona_alignment"`
	CategoryMatch    float64 `json:"category_match"`
	Safety           float64 `json:"safety"`
	Completeness     float64 `json:"completeness"`
	Total            float64 `json:"total"`
}

// RankedCandidate pairs a candidate with its scores.
type RankedCandidate struct {
	Candidate types.Candidate `json:"ad"`
	Scores    Scores          `json:"scores"`
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9']+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// overlap is the share of a's distinct tokens that also occur in b.
func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	hits := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(setA))
}

// bannedPenalty counts banned substrings in text, 0.25 per hit, capped at 1.
func bannedPenalty(banned []string, text string) float64 {
	if len(banned) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, b := range banned {
		b = strings.TrimSpace(b)
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			hits++
		}
	}
	return math.Min(float64(hits)*bannedHitPenalty, 1.0)
}

// splitTerms splits a free-text term list on commas and semicolons.
func splitTerms(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Score evaluates one candidate against a profile.
func Score(c types.Candidate, profile Profile) Scores {
	adText := strings.Join([]string{c.Title, c.Description, c.Tagline, c.CompanyPersona}, " ")

	alignment := overlap(tokenize(profile.Text), tokenize(adText))
	category := overlap(profile.Categories, c.Categories)

	banned := append(append([]string{}, profile.Banned...), splitTerms(c.StrictlyAgainst)...)
	safety := math.Max(0, 1-bannedPenalty(banned, adText))

	present := 0
	for _, f := range []string{c.Title, c.Description, c.ImageURL} {
		if f != "" {
			present++
		}
	}
	completeness := float64(present) / 3

	total := alignment*weightAlignment +
		category*weightCategory +
		safety*weightSafety +
		completeness*weightCompleteness

	return Scores{
		PersonaAlignment: round1(alignment * 100),
		CategoryMatch:    round1(category * 100),
		Safety:           round1(safety * 100),
		Completeness:     round1(completeness * 100),
		Total:            round1(total * 100),
	}
}

// Rank scores all candidates and returns them sorted descending by total.
// Ties keep input order.
func Rank(candidates []types.Candidate, profile Profile) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{Candidate: c, Scores: Score(c, profile)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Total > ranked[j].Scores.Total
	})

	if len(ranked) > 0 {
		logging.Ranking("ranked %d candidates, top total=%.1f", len(ranked), ranked[0].Scores.Total)
	}
	return ranked
}
