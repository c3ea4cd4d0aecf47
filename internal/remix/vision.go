package remix

import (
	"context"

	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/prompt"
	"adintel/internal/types"
)

// AnalyzeImage describes an existing ad image so later generation can
// evolve it instead of replacing it. Returns nil on any transport or parse
// failure; callers treat nil as "generate a fresh image".
func (o *Orchestrator) AnalyzeImage(
	ctx context.Context,
	imageURL, candidateCopy string,
	persona types.PersonaContext,
) *types.ImageAnalysis {
	if imageURL == "" {
		return nil
	}

	resp, err := o.gw.Vision(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.VisionMessage(
				llm.ImagePart(imageURL),
				llm.TextPart(prompt.AnalyzeImage(candidateCopy, persona)),
			),
		},
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		logging.VisionWarn("image analysis failed: %v", err)
		return nil
	}

	var analysis types.ImageAnalysis
	if !llm.ExtractJSON(resp.Text, &analysis) {
		logging.VisionWarn("image analysis reply not parseable")
		return nil
	}

	logging.Vision("image analyzed: %d key elements, %d suggestions",
		len(analysis.KeyElements), len(analysis.ImprovementSuggestions))
	return &analysis
}
