// Package critic predicts click-through for generated ad variants by
// simulating the target persona across an ensemble of stochastic runs and
// aggregating the results into ranked scores with a confidence estimate.
package critic

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/prompt"
	"adintel/internal/types"
)

// DefaultEnsembleRuns is the run count used when none is configured.
const DefaultEnsembleRuns = 10

// Composite CTR weights and confidence constants.
const (
	weightClick     = 0.5
	weightAttention = 0.3
	weightRelevance = 0.2

	baselineConfidence = 0.7
	confidenceCap      = 0.95
)

// Critic runs ensemble CTR predictions against a gateway.
type Critic struct {
	gw           llm.Gateway
	ensembleRuns int
}

// New creates a critic. runs < 1 falls back to DefaultEnsembleRuns.
func New(gw llm.Gateway, runs int) *Critic {
	if runs < 1 {
		runs = DefaultEnsembleRuns
	}
	return &Critic{gw: gw, ensembleRuns: runs}
}

// evalResult is one run's parsed triple.
type evalResult struct {
	ClickProbability float64 `json:"click_probability"`
	AttentionScore   float64 `json:"attention_score"`
	RelevanceScore   float64 `json:"relevance_score"`
}

// neutralResult replaces a failed run so runCount never shrinks.
var neutralResult = evalResult{ClickProbability: 0.5, AttentionScore: 0.5, RelevanceScore: 0.5}

// Predict scores every variant with ensembleRuns persona simulations each,
// ranks them by mean composite CTR, and derives a confidence from the
// winner's margin and consistency. Never returns an error: failed runs
// degrade to neutral scores.
func (c *Critic) Predict(
	ctx context.Context,
	variants []types.GeneratedVariant,
	persona types.PersonaContext,
	product string,
) types.Prediction {
	userID := persona.UserID
	if userID == "" {
		userID = persona.Username
	}
	if userID == "" {
		userID = "unknown"
	}

	pred := types.Prediction{UserID: userID, Confidence: baselineConfidence}
	if len(variants) == 0 {
		logging.CriticWarn("predict called with no variants")
		return pred
	}

	if product == "" {
		product = c.inferProduct(ctx, variants)
	}

	scores := make([]types.EnsembleScore, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		idx, text := i, v.Text
		g.Go(func() error {
			scores[idx] = c.ensembleEval(gctx, text, idx, product, persona)
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].CTRMean > scores[j].CTRMean })

	pred.Scores = scores
	pred.BestIndex = scores[0].CandidateIndex
	pred.BestText = scores[0].Text
	for _, s := range scores {
		pred.TotalRuns += s.RunCount
	}
	pred.Confidence = confidence(scores)

	logging.Critic("prediction: best=%d ctr=%.3f confidence=%.2f runs=%d",
		pred.BestIndex, scores[0].CTRMean, pred.Confidence, pred.TotalRuns)
	return pred
}

// ensembleEval runs the full run set for one variant concurrently, each run
// at its own temperature, and aggregates the triples.
func (c *Critic) ensembleEval(
	ctx context.Context,
	adText string,
	idx int,
	product string,
	persona types.PersonaContext,
) types.EnsembleScore {
	results := make([]evalResult, c.ensembleRuns)

	g, gctx := errgroup.WithContext(ctx)
	for run := 0; run < c.ensembleRuns; run++ {
		r := run
		temp := 0.5 + 0.15*float64(run)
		g.Go(func() error {
			results[r] = c.evalOnce(gctx, adText, product, persona, temp)
			return nil
		})
	}
	g.Wait()

	clicks := make([]float64, len(results))
	attns := make([]float64, len(results))
	rels := make([]float64, len(results))
	ctrs := make([]float64, len(results))
	for i, r := range results {
		clicks[i] = r.ClickProbability
		attns[i] = r.AttentionScore
		rels[i] = r.RelevanceScore
		ctrs[i] = weightClick*r.ClickProbability + weightAttention*r.AttentionScore + weightRelevance*r.RelevanceScore
	}

	return types.EnsembleScore{
		CandidateIndex: idx,
		Text:           adText,
		ClickProbMean:  mean(clicks),
		AttentionMean:  mean(attns),
		RelevanceMean:  mean(rels),
		CTRMean:        mean(ctrs),
		ClickProbStd:   popStdDev(clicks),
		CTRStd:         popStdDev(ctrs),
		RunCount:       len(results),
	}
}

// evalOnce performs one persona-conditioned "would you click" simulation.
// Any failure yields the neutral triple; a run is never dropped.
func (c *Critic) evalOnce(
	ctx context.Context,
	adText, product string,
	persona types.PersonaContext,
	temperature float64,
) evalResult {
	resp, err := c.gw.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.TextMessage("system", prompt.PersonaSystem(persona)),
			llm.TextMessage("user", prompt.CTR(adText, product)),
		},
		Temperature: temperature,
		MaxTokens:   100,
	})
	if err != nil {
		logging.CriticDebug("eval failed (temp %.2f): %v", temperature, err)
		return neutralResult
	}

	var r evalResult
	if !llm.ExtractJSON(resp.Text, &r) {
		logging.CriticDebug("eval reply not parseable (temp %.2f)", temperature)
		return neutralResult
	}
	return r
}

// inferProduct extracts a bare product name from the variant texts for use
// as scoring context. Failure yields "", an accepted CTR prompt input.
func (c *Critic) inferProduct(ctx context.Context, variants []types.GeneratedVariant) string {
	texts := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.Text != "" {
			texts = append(texts, v.Text)
		}
	}
	if len(texts) == 0 {
		return ""
	}

	resp, err := c.gw.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.TextMessage("user", prompt.ExtractProduct(texts))},
		Temperature: 0.3,
		MaxTokens:   50,
	})
	if err != nil {
		logging.CriticWarn("product inference failed: %v", err)
		return ""
	}

	product := llm.CleanReply(resp.Text)
	logging.Critic("inferred product: %q", product)
	return product
}

// confidence rewards a wide winning margin and penalizes high variance in
// the winner's own ensemble, capped to avoid false certainty.
func confidence(scores []types.EnsembleScore) float64 {
	if len(scores) < 2 {
		return baselineConfidence
	}
	gap := scores[0].CTRMean - scores[1].CTRMean
	consistency := 1 - minFloat(2*scores[0].CTRStd, 0.4)
	return minFloat((0.4+2*gap)*consistency+0.2, confidenceCap)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
