// Package prompt builds the prompts used across the pipeline. Everything
// here is pure string assembly; no I/O, no model calls.
package prompt

import (
	"fmt"
	"strings"

	"adintel/internal/types"
)

// Fixed creative-angle instructions for the three rewrite directions.
var directionInstructions = map[int]string{
	1: "Focus on their most casual, conversational style. Use their typical slang and informal tone. Image should feel authentic and relatable.",
	2: "Match their authentic voice but emphasize the core benefit more directly. Image should highlight the key value proposition.",
	3: "Channel their personality but take a slightly different angle or hook on the message. Image should be eye-catching and memorable.",
}

// StyleReference renders the user's top reranked posts plus persona summary,
// shared by the selection and rewrite prompts.
func StyleReference(persona types.PersonaContext) string {
	if len(persona.ReferencePosts) == 0 {
		return "No style reference available."
	}

	posts := persona.ReferencePosts
	if len(posts) > 25 {
		posts = posts[:25]
	}
	var b strings.Builder
	for _, p := range posts {
		if p.Text != "" {
			fmt.Fprintf(&b, "- %s\n", p.Text)
		}
	}

	tone := persona.PersonaTone
	if tone == "" {
		tone = "unknown"
	}
	topic := persona.GeneralTopic
	if topic == "" {
		topic = "unknown"
	}

	return fmt.Sprintf(`USER STYLE REFERENCE (top 25 posts from their posts, timeline, likes, and bookmarks):
%s
PERSONA: %s
INTERESTS: %s`, b.String(), tone, topic)
}

// SelectionSystem is the system message for candidate selection.
const SelectionSystem = "You are an expert at analyzing user preferences and selecting the most suitable content. Return only valid JSON."

// Selection builds the best-candidate selection prompt over an enumerated list.
func Selection(candidates []string, persona types.PersonaContext) string {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c)
	}

	return fmt.Sprintf(`%s

CANDIDATE ADS:
%s
Select the ad most aligned with this user's interests and content engagement patterns.

Return JSON only:
{
    "selected_ad_index": <0-based index>,
    "selected_ad_text": "<exact ad text>",
    "reasoning": "<1 sentence>"
}`, StyleReference(persona), list.String())
}

// RewriteSystem is the system message for the tool-calling rewrite loop.
const RewriteSystem = `You are an expert at rewriting content to match specific writing styles and creating compelling ad creatives.

When you rewrite an ad, you MUST use the generate_ad_image tool to create a visual that complements your copy.
Think holistically - the text and image should work together as a unified creative.`

// Rewrite builds the rewrite task prompt for one creative direction (1-3).
// When analysis is non-nil the prompt steers toward evolving the existing
// image rather than replacing it.
func Rewrite(candidateText string, persona types.PersonaContext, direction int, analysis *types.ImageAnalysis) string {
	instruction, ok := directionInstructions[direction]
	if !ok {
		instruction = directionInstructions[1]
	}

	base := fmt.Sprintf(`%s

ORIGINAL AD:
"%s"

Your task:
1. Rewrite this ad to match the user's style. %s
   Make it sound like THEY wrote it based on the examples above.

2. After writing the ad copy, use the generate_ad_image tool to create a visual that perfectly complements your ad copy.
   - The image should reinforce the message
   - Match the tone and style of the copy
   - Be visually compelling for social media

Think about the ad copy and image as a unified creative unit - they should work together to deliver the message.`,
		StyleReference(persona), candidateText, instruction)

	if analysis != nil {
		base += fmt.Sprintf(`

The ad already has an image. Evolve it rather than replacing it:
- Current image: %s
- Keep these elements: %s
- Original style: %s
Describe improvements in the enhancement_notes argument when you call the tool.`,
			analysis.Description,
			strings.Join(analysis.KeyElements, ", "),
			analysis.StyleNotes)
	}

	return base
}

// ImageReferenceClause appends evolve-don't-replace guidance to an image
// generation prompt when a source image and its analysis are available.
func ImageReferenceClause(imagePrompt string, analysis *types.ImageAnalysis) string {
	if analysis == nil {
		return imagePrompt
	}
	return fmt.Sprintf("%s. Based on an existing ad image: %s. Preserve these key elements: %s. Original style: %s",
		imagePrompt,
		analysis.Description,
		strings.Join(analysis.KeyElements, ", "),
		analysis.StyleNotes)
}

// AnalyzeImage builds the vision prompt describing an existing ad image.
func AnalyzeImage(candidateCopy string, persona types.PersonaContext) string {
	return fmt.Sprintf(`This image currently accompanies the following ad copy:
"%s"

Target viewer: %s (interests: %s)

Analyze the image for ad performance. Return JSON only:
{
    "description": "<what the image shows>",
    "strengths": ["<what works well>"],
    "key_elements": ["<visual elements to preserve>"],
    "improvement_suggestions": ["<what could be improved>"],
    "style_notes": "<overall visual style>"
}`, candidateCopy, persona.PersonaTone, persona.GeneralTopic)
}

// CompareImages builds the two-image arbitration prompt. Image 1 is the
// original, image 2 the enhanced one; the model scores each 0-100.
func CompareImages(finalCopy string, persona types.PersonaContext) string {
	return fmt.Sprintf(`Both images are candidates to accompany this ad copy:
"%s"

Target viewer: %s (interests: %s)

Image 1 is the original ad image. Image 2 is a newly generated alternative.
Score each image 0-100 for predicted click-through when paired with the copy.

Return JSON only:
[
    {"image_index": 1, "score": <0-100>, "reasoning": "<1 sentence>"},
    {"image_index": 2, "score": <0-100>, "reasoning": "<1 sentence>"}
]`, finalCopy, persona.PersonaTone, persona.GeneralTopic)
}

// PersonaSystem builds the system message that puts the model in the user's
// shoes for CTR simulation.
func PersonaSystem(persona types.PersonaContext) string {
	var posts strings.Builder
	for _, p := range persona.ReferencePosts {
		fmt.Fprintf(&posts, "- %s\n", p.Text)
	}
	return fmt.Sprintf(`You ARE this person:
INTERESTS: %s
VIBE: %s
POSTS:
%s
React as them. Be authentic.`, persona.GeneralTopic, persona.PersonaTone, posts.String())
}

// CTR builds the would-you-click prompt for one ad.
func CTR(adText, product string) string {
	return fmt.Sprintf(`Ad for "%s":
"%s"

Would you click? JSON only:
{"click_probability": <0-1>, "attention_score": <0-1>, "relevance_score": <0-1>}`, product, adText)
}

// ExtractProduct builds the bare product-name extraction prompt.
func ExtractProduct(adTexts []string) string {
	var list strings.Builder
	for _, ad := range adTexts {
		fmt.Fprintf(&list, "- %s\n", ad)
	}
	return fmt.Sprintf(`Given these ads:
%s
Extract the product name being advertised. Return ONLY the product name, nothing else.`, list.String())
}

// ContextSystem is the system message for context-card generation.
const ContextSystem = "You are an expert at analyzing social media data to understand user personas. Return only valid JSON."

// ContextCard builds the persona-analysis prompt over a user data summary.
func ContextCard(userDataSummary, username string) string {
	return fmt.Sprintf(`Analyze the following user data from X (Twitter) and create a comprehensive context card.

%s

Based on this data, provide a JSON response with the following structure:
{
    "username": "%s",
    "general_topic": "<main topic/theme the user is interested in>",
    "popular_memes": "<popular memes or trending content patterns, or null if none>",
    "user_persona_tone": "<general tone: casual and humorous, professional and technical, etc.>",
    "top_25_reranked_posts": [
        {
            "post_id": "<source.id format e.g. timeline.123456>",
            "rank": <1-25>,
            "relevance_score": <0.0-1.0>
        }
    ]
}

IMPORTANT:
- The post_id MUST include the source prefix (posts, timeline, likes, or bookmarks) followed by a dot and the ID.
- Include posts from ALL sources to get a diverse mix.
- Rank by relevance to user's persona and interests.

Return ONLY the JSON, no other text.`, userDataSummary, username)
}
