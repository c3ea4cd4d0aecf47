package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adintel/internal/types"
)

func TestOverlap(t *testing.T) {
	assert.Equal(t, 0.0, overlap(nil, []string{"a"}))
	assert.Equal(t, 0.0, overlap([]string{"a"}, nil))
	assert.Equal(t, 1.0, overlap([]string{"a", "b"}, []string{"a", "b", "c"}))
	assert.Equal(t, 0.5, overlap([]string{"a", "x"}, []string{"a", "b"}))
	// Duplicates collapse before dividing.
	assert.Equal(t, 1.0, overlap([]string{"a", "a"}, []string{"a"}))
}

func TestBannedPenalty(t *testing.T) {
	assert.Equal(t, 0.0, bannedPenalty(nil, "anything"))
	assert.Equal(t, 0.25, bannedPenalty([]string{"gambling"}, "online Gambling site"))
	assert.Equal(t, 0.5, bannedPenalty([]string{"a", "b"}, "a and b present"))
	// Caps at full penalty.
	assert.Equal(t, 1.0, bannedPenalty([]string{"a", "b", "c", "d", "e"}, "a b c d e"))
}

func TestScoreCompleteness(t *testing.T) {
	full := types.Candidate{Title: "t", Description: "d", ImageURL: "http://i"}
	partial := types.Candidate{Title: "t"}

	assert.Equal(t, 100.0, Score(full, Profile{}).Completeness)
	assert.InDelta(t, 33.3, Score(partial, Profile{}).Completeness, 0.05)
}

func TestScoreWeighting(t *testing.T) {
	c := types.Candidate{
		Title:       "running shoes",
		Description: "lightweight shoes for trail running",
		ImageURL:    "http://i",
		Categories:  []string{"sports", "outdoors"},
	}
	profile := Profile{
		Text:       "trail running shoes",
		Categories: []string{"sports"},
	}

	s := Score(c, profile)
	// All profile tokens appear in the ad text.
	assert.Equal(t, 100.0, s.PersonaAlignment)
	assert.Equal(t, 100.0, s.CategoryMatch)
	assert.Equal(t, 100.0, s.Safety)
	assert.Equal(t, 100.0, s.Completeness)
	assert.Equal(t, 100.0, s.Total)
}

func TestScoreBannedTermTanksSafety(t *testing.T) {
	c := types.Candidate{
		Title:       "crypto casino",
		Description: "win big today",
	}
	profile := Profile{Banned: []string{"casino"}}

	s := Score(c, profile)
	assert.Equal(t, 75.0, s.Safety)
}

func TestCandidateOwnStrictlyAgainstApplies(t *testing.T) {
	c := types.Candidate{
		Title:           "energy drink for gamers",
		StrictlyAgainst: "gamers, children",
	}
	s := Score(c, Profile{})
	// The ad text itself contains "gamers", one hit.
	assert.Equal(t, 75.0, s.Safety)
}

func TestRankSortsDescendingAndStable(t *testing.T) {
	profile := Profile{Text: "coffee espresso brewing"}
	candidates := []types.Candidate{
		{ID: "tea", Title: "green tea sampler", Description: "calm afternoons"},
		{ID: "espresso", Title: "espresso machine", Description: "brewing perfect coffee"},
		{ID: "grinder", Title: "coffee grinder", Description: "fresh espresso grounds"},
	}

	ranked := Rank(candidates, profile)
	require.Len(t, ranked, 3)

	assert.NotEqual(t, "tea", ranked[0].Candidate.ID)
	assert.Equal(t, "tea", ranked[2].Candidate.ID)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Scores.Total, ranked[i].Scores.Total)
	}
}

func TestRankEmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil, Profile{}))
}

func TestSplitTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTerms("a, b; c"))
	assert.Nil(t, splitTerms(""))
	assert.Nil(t, splitTerms(" , ; "))
}
