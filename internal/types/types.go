// Package types defines the canonical domain types shared across the adintel
// pipeline. Every entity that crosses a component boundary has exactly one
// structured representation here; conversion from raw external data happens
// once, at the boundary (see persona.FromRawUserData).
package types

import "strings"

// ReferencePost is a single reranked post used as style evidence for a user.
type ReferencePost struct {
	PostID         string  `json:"post_id"`
	Text           string  `json:"text"`
	Source         string  `json:"source"` // posts, timeline, likes, bookmarks
	Rank           int     `json:"rank"`
	RelevanceScore float64 `json:"relevance_score"`
}

// PersonaContext summarizes a user's interests, tone and reference posts.
// Immutable once built; created once per pipeline run.
type PersonaContext struct {
	Username       string          `json:"username"`
	UserID         string          `json:"user_id"`
	GeneralTopic   string          `json:"general_topic"`
	PopularMemes   string          `json:"popular_memes,omitempty"`
	PersonaTone    string          `json:"user_persona_tone"`
	ReferencePosts []ReferencePost `json:"top_25_reranked_posts"`
	Categories     []string        `json:"categories,omitempty"`
	ExcludedTerms  []string        `json:"excluded_terms,omitempty"`
}

// Candidate is a single ad under consideration.
type Candidate struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Company         string   `json:"company,omitempty"`
	Tagline         string   `json:"tagline,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	CompanyPersona  string   `json:"company_persona,omitempty"`
	StrictlyAgainst string   `json:"strictly_against,omitempty"`
	Categories      []string `json:"categories,omitempty"`
}

// DisplayText flattens the candidate into the text shown to models and users.
// Non-empty title/description/tagline are joined with an em-dash separator.
func (c Candidate) DisplayText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Title, c.Description, c.Tagline} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " — ")
}

// ImageAnalysis is the structured description of an existing ad image,
// used to bias subsequent generation toward evolving the original.
type ImageAnalysis struct {
	Description            string   `json:"description"`
	Strengths              []string `json:"strengths"`
	KeyElements            []string `json:"key_elements"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	StyleNotes             string   `json:"style_notes"`
}

// Image kinds used by arbitration.
const (
	ImageKindOriginal = "original"
	ImageKindEnhanced = "enhanced"
)

// ImageScore is one entry in an original-vs-enhanced comparison.
type ImageScore struct {
	Kind      string  `json:"kind"`  // "original" or "enhanced"
	Score     float64 `json:"score"` // 0-100 predicted click-through
	Reasoning string  `json:"reasoning"`
}

// ImageComparison records the outcome of image arbitration for one variant.
// Scores are sorted descending; the first entry is the winner.
type ImageComparison struct {
	WinnerKind  string       `json:"winner_kind"`
	WinnerScore float64      `json:"winner_score"`
	Scores      []ImageScore `json:"scores"`
}

// GeneratedVariant is the output of the creative orchestrator for one
// candidate/direction pair. Never mutated after return; a new run produces
// a new instance.
type GeneratedVariant struct {
	Text              string           `json:"content"`
	GeneratedImageURL string           `json:"image_uri,omitempty"`
	ImagePrompt       string           `json:"image_prompt,omitempty"`
	EnhancementNotes  string           `json:"enhancement_notes,omitempty"`
	ChosenImageURL    string           `json:"chosen_image_uri,omitempty"`
	ImageComparison   *ImageComparison `json:"image_comparison,omitempty"`
}

// Selection is the result of picking the best candidate for a persona.
type Selection struct {
	Index     int    `json:"selected_ad_index"`
	Text      string `json:"selected_ad_text"`
	Reasoning string `json:"reasoning"`
}

// EnsembleScore is the per-candidate aggregate over all ensemble runs.
// The composite CTR is derived per run, then averaged; means of the three
// factors are never recombined after the fact.
type EnsembleScore struct {
	CandidateIndex int     `json:"ad_index"`
	Text           string  `json:"ad_text"`
	ClickProbMean  float64 `json:"click_prob_mean"`
	AttentionMean  float64 `json:"attention_mean"`
	RelevanceMean  float64 `json:"relevance_mean"`
	CTRMean        float64 `json:"ctr_mean"`
	ClickProbStd   float64 `json:"click_prob_std"`
	CTRStd         float64 `json:"ctr_std"`
	RunCount       int     `json:"num_runs"`
}

// Prediction is the final ensemble CTR prediction across all variants.
// Scores are sorted descending by CTRMean.
type Prediction struct {
	UserID     string          `json:"user_id"`
	BestIndex  int             `json:"best_ad_index"`
	BestText   string          `json:"best_ad_text"`
	Confidence float64         `json:"confidence"`
	Scores     []EnsembleScore `json:"scores"`
	TotalRuns  int             `json:"total_simulations"`
}

// Post is one raw social post supplied by the data-collection collaborator.
type Post struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

// RawUserData is the uncooked input from the auth/data-collection
// collaborator: up to 25 items per source, already capped upstream.
type RawUserData struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Posts     []Post `json:"posts"`
	Timeline  []Post `json:"timeline"`
	Likes     []Post `json:"likes"`
	Bookmarks []Post `json:"bookmarks"`
}

// RemixResult bundles the selection and the generated variants for one run.
type RemixResult struct {
	UserID             string             `json:"user_id"`
	SelectedAd         string             `json:"selected_ad"`
	SelectionReasoning string             `json:"selection_reasoning"`
	Variants           []GeneratedVariant `json:"rewritten_ads"`
}
