package remix

import (
	"context"

	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/prompt"
	"adintel/internal/types"
)

// maxSelectionCandidates caps the list sent to the selection call; extras
// are dropped deterministically, keeping the first ones in input order.
const maxSelectionCandidates = 5

// SelectBest asks the model to pick the candidate most aligned with the
// persona. Selection failure never blocks the pipeline: any transport or
// parse error falls back to the first candidate.
func (o *Orchestrator) SelectBest(
	ctx context.Context,
	candidates []string,
	persona types.PersonaContext,
) types.Selection {
	if len(candidates) == 0 {
		return types.Selection{Reasoning: "Fallback due to error"}
	}
	if len(candidates) > maxSelectionCandidates {
		candidates = candidates[:maxSelectionCandidates]
	}

	fallback := types.Selection{
		Index:     0,
		Text:      candidates[0],
		Reasoning: "Fallback due to error",
	}

	resp, err := o.gw.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.TextMessage("system", prompt.SelectionSystem),
			llm.TextMessage("user", prompt.Selection(candidates, persona)),
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		logging.RemixWarn("selection call failed: %v", err)
		return fallback
	}

	var sel types.Selection
	if !llm.ExtractJSON(resp.Text, &sel) {
		logging.RemixWarn("selection reply not parseable")
		return fallback
	}
	if sel.Index < 0 || sel.Index >= len(candidates) {
		logging.RemixWarn("selection index %d out of range", sel.Index)
		return fallback
	}
	if sel.Text == "" {
		sel.Text = candidates[sel.Index]
	}

	logging.Remix("selected candidate %d: %s", sel.Index, sel.Reasoning)
	return sel
}
