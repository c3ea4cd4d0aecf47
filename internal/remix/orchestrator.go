// Package remix implements the creative side of the pipeline: candidate
// selection, the tool-calling rewrite loop that produces ad copy and an
// image as one coherent unit, and vision-based image arbitration.
package remix

import (
	"context"
	"encoding/json"
	"sort"

	"golang.org/x/sync/errgroup"

	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/prompt"
	"adintel/internal/types"
)

const (
	maxIterations = 3
	variantCount  = 3

	toolGenerateAdImage = "generate_ad_image"
)

// Orchestrator state machine states.
type loopState int

const (
	stateAwaitModel loopState = iota
	stateExecuteTool
	stateDone
)

// imageTool is the single tool offered to the model during rewriting.
var imageTool = llm.ToolDefinition{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        toolGenerateAdImage,
		Description: "Generate a compelling visual image for the ad. Call this AFTER you've written the ad copy to create a coherent image that complements the text.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"image_prompt": map[string]interface{}{
					"type":        "string",
					"description": "A detailed prompt describing the image to generate. Include style, mood, colors, composition, and key visual elements that align with the ad copy. Be specific about what should be shown.",
				},
				"ad_copy": map[string]interface{}{
					"type":        "string",
					"description": "The final ad copy text that this image should complement.",
				},
				"enhancement_notes": map[string]interface{}{
					"type":        "string",
					"description": "When evolving an existing ad image, notes on what to improve or preserve.",
				},
			},
			"required": []string{"image_prompt", "ad_copy"},
		},
	},
}

// toolArgs is the parsed argument payload of a generate_ad_image call.
type toolArgs struct {
	ImagePrompt      string `json:"image_prompt"`
	AdCopy           string `json:"ad_copy"`
	EnhancementNotes string `json:"enhancement_notes"`
}

// toolResult is the synthetic tool-result payload fed back to the model.
type toolResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url,omitempty"`
	Message  string `json:"message"`
}

// Orchestrator runs selection, rewriting, and image arbitration against a
// single LLM gateway. Safe for concurrent use.
type Orchestrator struct {
	gw llm.Gateway
}

// New creates an orchestrator over the given gateway.
func New(gw llm.Gateway) *Orchestrator {
	return &Orchestrator{gw: gw}
}

// GenerateVariant rewrites candidateText in the user's style for one
// creative direction (1-3), driving a bounded tool-calling loop that pairs
// the copy with a generated image. It never fails: on total generation
// failure the variant carries the original candidate text and no image.
func (o *Orchestrator) GenerateVariant(
	ctx context.Context,
	candidateText string,
	persona types.PersonaContext,
	direction int,
	sourceImage string,
	analysis *types.ImageAnalysis,
) types.GeneratedVariant {
	temperature := 0.5 + 0.2*float64(direction)

	messages := []llm.Message{
		llm.TextMessage("system", prompt.RewriteSystem),
		llm.TextMessage("user", prompt.Rewrite(candidateText, persona, direction, analysis)),
	}

	var copyText, imageURL, imagePromptUsed, notes string

	st := stateAwaitModel
	for iter := 0; iter < maxIterations && st != stateDone; iter++ {
		resp, err := o.gw.Chat(ctx, llm.ChatRequest{
			Messages:    messages,
			Tools:       []llm.ToolDefinition{imageTool},
			ToolChoice:  "auto",
			Temperature: temperature,
			MaxTokens:   1000,
		})
		if err != nil {
			logging.RemixWarn("direction %d iteration %d: chat failed: %v", direction, iter, err)
			break
		}

		// Free text is the current best copy until a tool call overrides it.
		if cleaned := llm.CleanReply(resp.Text); cleaned != "" {
			copyText = cleaned
		}

		if len(resp.ToolCalls) == 0 {
			st = stateDone
			break
		}

		st = stateExecuteTool
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			if tc.Function.Name != toolGenerateAdImage {
				logging.RemixWarn("direction %d: unknown tool %q ignored", direction, tc.Function.Name)
				continue
			}

			var args toolArgs
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				logging.RemixWarn("direction %d: bad tool arguments: %v", direction, err)
				continue
			}

			// Tool-provided copy is authoritative over earlier free text.
			if args.AdCopy != "" {
				copyText = args.AdCopy
			}
			imagePromptUsed = args.ImagePrompt
			notes = args.EnhancementNotes

			genPrompt := args.ImagePrompt
			if sourceImage != "" && analysis != nil {
				genPrompt = prompt.ImageReferenceClause(genPrompt, analysis)
			}

			logging.RemixDebug("direction %d: generating image, prompt_len=%d", direction, len(genPrompt))
			url, genErr := o.gw.GenerateImage(ctx, genPrompt)
			result := toolResult{Success: genErr == nil, ImageURL: url}
			if genErr != nil {
				logging.RemixWarn("direction %d: image generation failed: %v", direction, genErr)
				result.Message = "Image generation failed"
			} else {
				imageURL = url
				result.Message = "Image generated successfully"
			}

			payload, _ := json.Marshal(result)
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    string(payload),
			})
		}

		st = stateAwaitModel
	}

	if copyText == "" {
		logging.RemixWarn("direction %d: no copy produced, falling back to original", direction)
		copyText = candidateText
	}

	variant := types.GeneratedVariant{
		Text:              copyText,
		GeneratedImageURL: imageURL,
		ImagePrompt:       imagePromptUsed,
		EnhancementNotes:  notes,
	}

	switch {
	case sourceImage != "" && imageURL != "" && copyText != "":
		cmp := o.compareImages(ctx, sourceImage, imageURL, copyText, persona)
		variant.ImageComparison = &cmp
		variant.ChosenImageURL = chosenURL(cmp, sourceImage, imageURL)
	case imageURL != "":
		variant.ChosenImageURL = imageURL
	}

	logging.Remix("direction %d done: copy_len=%d image=%v", direction, len(copyText), imageURL != "")
	return variant
}

// GenerateVariants runs the three creative directions concurrently. Each
// direction is an independent state machine; a failure in one never affects
// the others, so the group never carries an error.
func (o *Orchestrator) GenerateVariants(
	ctx context.Context,
	candidateText string,
	persona types.PersonaContext,
	sourceImage string,
	analysis *types.ImageAnalysis,
) []types.GeneratedVariant {
	variants := make([]types.GeneratedVariant, variantCount)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < variantCount; i++ {
		direction := i + 1
		idx := i
		g.Go(func() error {
			variants[idx] = o.GenerateVariant(gctx, candidateText, persona, direction, sourceImage, analysis)
			return nil
		})
	}
	g.Wait()

	return variants
}

// chosenURL maps the comparison winner back to a concrete URL.
func chosenURL(cmp types.ImageComparison, sourceImage, generatedImage string) string {
	if cmp.WinnerKind == types.ImageKindOriginal {
		return sourceImage
	}
	return generatedImage
}

// compareScore is the wire shape of one arbitration entry.
type compareScore struct {
	ImageIndex int     `json:"image_index"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

// compareImages asks the vision model to score the original and the
// generated image 0-100 against the final copy. On any failure both images
// score 50 and the generated image wins.
func (o *Orchestrator) compareImages(
	ctx context.Context,
	sourceImage, generatedImage, finalCopy string,
	persona types.PersonaContext,
) types.ImageComparison {
	fallback := types.ImageComparison{
		WinnerKind:  types.ImageKindEnhanced,
		WinnerScore: 50,
		Scores: []types.ImageScore{
			{Kind: types.ImageKindEnhanced, Score: 50, Reasoning: "unavailable"},
			{Kind: types.ImageKindOriginal, Score: 50, Reasoning: "unavailable"},
		},
	}

	resp, err := o.gw.Vision(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.VisionMessage(
				llm.ImagePart(sourceImage),
				llm.ImagePart(generatedImage),
				llm.TextPart(prompt.CompareImages(finalCopy, persona)),
			),
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		logging.VisionWarn("image comparison failed: %v", err)
		return fallback
	}

	var parsed []compareScore
	if !llm.ExtractJSON(resp.Text, &parsed) || len(parsed) == 0 {
		logging.VisionWarn("image comparison reply not parseable")
		return fallback
	}

	// Attach scores by 1-based index: 1 = original, 2 = enhanced.
	var scores []types.ImageScore
	for _, s := range parsed {
		switch s.ImageIndex {
		case 1:
			scores = append(scores, types.ImageScore{
				Kind: types.ImageKindOriginal, Score: s.Score, Reasoning: s.Reasoning})
		case 2:
			scores = append(scores, types.ImageScore{
				Kind: types.ImageKindEnhanced, Score: s.Score, Reasoning: s.Reasoning})
		}
	}
	if len(scores) == 0 {
		logging.VisionWarn("image comparison reply had no usable indices")
		return fallback
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	logging.Vision("image comparison: winner=%s score=%.0f", scores[0].Kind, scores[0].Score)
	return types.ImageComparison{
		WinnerKind:  scores[0].Kind,
		WinnerScore: scores[0].Score,
		Scores:      scores,
	}
}
