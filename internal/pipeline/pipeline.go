// Package pipeline coordinates the full ad intelligence flow: persona
// context, inventory ranking, candidate selection, creative remixing, CTR
// prediction, and the hand-off queue. Components are injected so tests can
// run the whole flow against a fake gateway.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"adintel/internal/config"
	"adintel/internal/critic"
	"adintel/internal/inventory"
	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/persona"
	"adintel/internal/queue"
	"adintel/internal/ranking"
	"adintel/internal/remix"
	"adintel/internal/types"
)

// Result is the complete output of one pipeline run.
type Result struct {
	RunID       string               `json:"run_id"`
	UserID      string               `json:"user_id"`
	Username    string               `json:"username"`
	ContextCard types.PersonaContext `json:"context_card"`
	Remix       types.RemixResult    `json:"remixed_ads"`
	Prediction  types.Prediction     `json:"ctr_prediction"`
}

// Pipeline wires the phases together. Store and Queue are optional; when
// absent, candidates must be supplied by the caller and hand-off is skipped.
type Pipeline struct {
	cfg     *config.Config
	builder *persona.Builder
	orch    *remix.Orchestrator
	crt     *critic.Critic
	store   *inventory.Store
	q       *queue.Queue
}

// New builds a pipeline from a config and gateway plus optional storage.
func New(cfg *config.Config, gw llm.Gateway, store *inventory.Store, q *queue.Queue) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		builder: persona.NewBuilder(gw),
		orch:    remix.New(gw),
		crt:     critic.New(gw, cfg.Critic.EnsembleRuns),
		store:   store,
		q:       q,
	}
}

// RunFromUserData runs the whole flow starting from raw collected data.
func (p *Pipeline) RunFromUserData(
	ctx context.Context,
	raw types.RawUserData,
	candidates []types.Candidate,
	product string,
) (*Result, error) {
	logging.Pipeline("run from user data: user=%s", raw.Username)

	cardCtx, cancel := context.WithTimeout(ctx, p.cfg.ContextTimeout())
	card := p.builder.FromRawUserData(cardCtx, raw)
	cancel()

	return p.RunFromContextCard(ctx, card, candidates, product)
}

// RunFromContextCard runs selection, remixing, prediction, and hand-off for
// an already-built context card. When no candidates are supplied they are
// fetched from the inventory store and ranked against the persona.
func (p *Pipeline) RunFromContextCard(
	ctx context.Context,
	card types.PersonaContext,
	candidates []types.Candidate,
	product string,
) (*Result, error) {
	runID := uuid.NewString()
	logging.Pipeline("run %s: user=%s topic=%q", runID, card.Username, card.GeneralTopic)

	candidates, err := p.resolveCandidates(ctx, card, candidates)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.DisplayText()
	}

	remixCtx, cancelRemix := context.WithTimeout(ctx, p.cfg.RemixTimeout())
	defer cancelRemix()

	sel := p.orch.SelectBest(remixCtx, texts, card)
	selected := candidates[sel.Index]
	logging.Pipeline("run %s: selected candidate %d (%s)", runID, sel.Index, sel.Reasoning)

	var analysis *types.ImageAnalysis
	if selected.ImageURL != "" {
		analysis = p.orch.AnalyzeImage(remixCtx, selected.ImageURL, sel.Text, card)
	}

	variants := p.orch.GenerateVariants(remixCtx, sel.Text, card, selected.ImageURL, analysis)
	cancelRemix()

	criticCtx, cancelCritic := context.WithTimeout(ctx, p.cfg.CriticTimeout())
	pred := p.crt.Predict(criticCtx, variants, card, product)
	cancelCritic()

	result := &Result{
		RunID:       runID,
		UserID:      pred.UserID,
		Username:    card.Username,
		ContextCard: card,
		Remix: types.RemixResult{
			UserID:             pred.UserID,
			SelectedAd:         sel.Text,
			SelectionReasoning: sel.Reasoning,
			Variants:           variants,
		},
		Prediction: pred,
	}

	p.enqueueBest(result, selected)

	logging.Pipeline("run %s done: best=%d confidence=%.2f", runID, pred.BestIndex, pred.Confidence)
	return result, nil
}

// resolveCandidates returns the supplied candidates, or fetches and ranks
// the inventory against the persona when none were given.
func (p *Pipeline) resolveCandidates(
	ctx context.Context,
	card types.PersonaContext,
	candidates []types.Candidate,
) ([]types.Candidate, error) {
	if len(candidates) > 0 {
		return candidates, nil
	}
	if p.store == nil {
		return nil, fmt.Errorf("pipeline: no candidates supplied and no inventory store configured")
	}

	fetched, err := p.store.FetchRelevant(ctx, card, 50)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetch candidates: %w", err)
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("pipeline: inventory is empty")
	}

	ranked := ranking.Rank(fetched, ranking.ProfileFromPersona(card))
	out := make([]types.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate
	}
	return out, nil
}

// enqueueBest pushes the winning variant to the hand-off queue when one is
// configured. Queue failure is logged, never fatal: the run result stands.
func (p *Pipeline) enqueueBest(result *Result, original types.Candidate) {
	if p.q == nil || len(result.Remix.Variants) == 0 {
		return
	}

	best := result.Remix.Variants[0]
	if result.Prediction.BestIndex >= 0 && result.Prediction.BestIndex < len(result.Remix.Variants) {
		best = result.Remix.Variants[result.Prediction.BestIndex]
	}

	entry := queue.FormatBestVariant(best, result.Prediction, original, len(result.Remix.Variants))
	if _, err := p.q.Append(result.UserID, result.Username, []queue.Entry{entry}); err != nil {
		logging.PipelineWarn("queue hand-off failed for %s: %v", result.UserID, err)
	}
}
