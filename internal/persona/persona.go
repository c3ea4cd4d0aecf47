// Package persona turns raw collected user data into a PersonaContext card:
// one model call summarizes interests and tone and reranks the most
// persona-relevant posts, which are then re-enriched from the raw data.
// This is the single conversion boundary from raw external data into the
// canonical domain types.
package persona

import (
	"context"
	"fmt"
	"strings"

	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/prompt"
	"adintel/internal/types"
)

// maxPostsPerSource caps each raw source before summarization.
const maxPostsPerSource = 25

// previewLength truncates post text in the summary prompt.
const previewLength = 150

// Builder creates context cards through a gateway.
type Builder struct {
	gw llm.Gateway
}

// NewBuilder creates a persona builder.
func NewBuilder(gw llm.Gateway) *Builder {
	return &Builder{gw: gw}
}

// lookupEntry is the original post data behind a composite source.id key.
type lookupEntry struct {
	text       string
	source     string
	originalID string
}

// cardReply is the wire shape of the model's context-card JSON.
type cardReply struct {
	Username     string        `json:"username"`
	GeneralTopic string        `json:"general_topic"`
	PopularMemes string        `json:"popular_memes"`
	PersonaTone  string        `json:"user_persona_tone"`
	Reranked     []rerankEntry `json:"top_25_reranked_posts"`
}

type rerankEntry struct {
	PostID         string  `json:"post_id"`
	Rank           int     `json:"rank"`
	RelevanceScore float64 `json:"relevance_score"`
}

// FromRawUserData analyzes the raw data and returns a context card. On model
// or parse failure it returns a deterministic fallback card so downstream
// phases always have a persona to work with.
func (b *Builder) FromRawUserData(ctx context.Context, raw types.RawUserData) types.PersonaContext {
	username := raw.Username
	if username == "" {
		username = "unknown"
	}
	userID := raw.UserID
	if userID == "" {
		userID = "unknown"
	}

	lookup := buildPostLookup(raw)
	summary := summarize(raw, userID, username)

	card := types.PersonaContext{
		Username:     username,
		UserID:       userID,
		GeneralTopic: "General interests",
		PersonaTone:  "Casual",
	}

	resp, err := b.gw.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.TextMessage("system", prompt.ContextSystem),
			llm.TextMessage("user", prompt.ContextCard(summary, username)),
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		logging.PersonaWarn("context card call failed for %s: %v", username, err)
		return card
	}

	var reply cardReply
	if !llm.ExtractJSON(resp.Text, &reply) {
		logging.PersonaWarn("context card reply not parseable for %s", username)
		return card
	}

	if reply.GeneralTopic != "" {
		card.GeneralTopic = reply.GeneralTopic
	}
	if reply.PersonaTone != "" {
		card.PersonaTone = reply.PersonaTone
	}
	card.PopularMemes = reply.PopularMemes
	card.ReferencePosts = enrich(reply.Reranked, lookup)

	logging.Persona("context card for %s: topic=%q posts=%d",
		username, card.GeneralTopic, len(card.ReferencePosts))
	return card
}

// buildPostLookup maps composite source.id keys to original post data.
func buildPostLookup(raw types.RawUserData) map[string]lookupEntry {
	lookup := make(map[string]lookupEntry)
	add := func(posts []types.Post, source string) {
		for _, p := range posts {
			if p.ID == "" {
				continue
			}
			lookup[source+"."+p.ID] = lookupEntry{
				text:       p.Text,
				source:     source,
				originalID: p.ID,
			}
		}
	}
	add(raw.Posts, "posts")
	add(raw.Timeline, "timeline")
	add(raw.Likes, "likes")
	add(raw.Bookmarks, "bookmarks")
	return lookup
}

// enrich resolves reranked composite IDs back to full post data. Entries
// that cannot be resolved are dropped. A bare ID (missing the source prefix)
// is matched against any source as a fallback.
func enrich(reranked []rerankEntry, lookup map[string]lookupEntry) []types.ReferencePost {
	var out []types.ReferencePost
	for _, r := range reranked {
		entry, ok := lookup[r.PostID]
		if !ok {
			for key, data := range lookup {
				if strings.HasSuffix(key, "."+r.PostID) || data.originalID == r.PostID {
					entry, ok = data, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		score := r.RelevanceScore
		if score == 0 {
			score = 0.5
		}
		out = append(out, types.ReferencePost{
			PostID:         entry.originalID,
			Text:           entry.text,
			Source:         entry.source,
			Rank:           r.Rank,
			RelevanceScore: score,
		})
	}
	return out
}

func capPosts(posts []types.Post) []types.Post {
	if len(posts) > maxPostsPerSource {
		return posts[:maxPostsPerSource]
	}
	return posts
}

func preview(text string) string {
	if len(text) > previewLength {
		return text[:previewLength] + "..."
	}
	return text
}

func formatSource(b *strings.Builder, header, source string, posts []types.Post) {
	fmt.Fprintf(b, "%s:\n", header)
	for _, p := range posts {
		fmt.Fprintf(b, "- ID: %s.%s | %s\n", source, p.ID, preview(p.Text))
	}
	b.WriteString("\n")
}

// summarize renders the raw data into the analysis prompt body, listing each
// source and then a combined reranking pool with composite IDs.
func summarize(raw types.RawUserData, userID, username string) string {
	posts := capPosts(raw.Posts)
	timeline := capPosts(raw.Timeline)
	likes := capPosts(raw.Likes)
	bookmarks := capPosts(raw.Bookmarks)

	var b strings.Builder
	fmt.Fprintf(&b, "User ID: %s\nUsername: %s\n\n", userID, username)
	formatSource(&b, "LAST 25 POSTS (user's own posts)", "posts", posts)
	formatSource(&b, "TIMELINE (Last 25 - recommended posts from X)", "timeline", timeline)
	formatSource(&b, "LIKES (Last 25 - posts the user liked)", "likes", likes)
	formatSource(&b, "BOOKMARKS (Last 25 - posts the user bookmarked)", "bookmarks", bookmarks)

	total := 0
	var pool strings.Builder
	appendPool := func(source string, list []types.Post) {
		for _, p := range list {
			if p.ID == "" {
				continue
			}
			fmt.Fprintf(&pool, "ID: %s.%s [%s] Preview: %s\n", source, p.ID, source, preview(p.Text))
			total++
		}
	}
	appendPool("posts", posts)
	appendPool("timeline", timeline)
	appendPool("likes", likes)
	appendPool("bookmarks", bookmarks)

	fmt.Fprintf(&b, "ALL POSTS FOR RERANKING (%d total):\n%s", total, pool.String())
	return b.String()
}
