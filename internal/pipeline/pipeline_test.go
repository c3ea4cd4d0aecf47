package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adintel/internal/config"
	"adintel/internal/inventory"
	"adintel/internal/llm"
	"adintel/internal/queue"
	"adintel/internal/types"
)

// scriptedGateway answers by inspecting the prompt, so one fake can serve
// every phase of a full run.
type scriptedGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *scriptedGateway) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	p, _ := req.Messages[len(req.Messages)-1].Content.(string)
	switch {
	case strings.Contains(p, "create a comprehensive context card"):
		return &llm.ChatResponse{Text: `{
			"general_topic": "streaming and binge watching",
			"user_persona_tone": "casual and meme heavy",
			"top_25_reranked_posts": [{"post_id": "posts.p1", "rank": 1, "relevance_score": 0.9}]
		}`, FinishReason: "stop"}, nil

	case strings.Contains(p, "Select the ad most aligned"):
		return &llm.ChatResponse{Text: `{"selected_ad_index": 0, "selected_ad_text": "", "reasoning": "matches streaming interest"}`,
			FinishReason: "stop"}, nil

	case strings.Contains(p, "Rewrite this ad"):
		return &llm.ChatResponse{Text: fmt.Sprintf("yo this deal slaps (temp %.1f)", req.Temperature),
			FinishReason: "stop"}, nil

	case strings.Contains(p, "Extract the product name"):
		return &llm.ChatResponse{Text: "StreamBox", FinishReason: "stop"}, nil

	case strings.Contains(p, "Would you click"):
		return &llm.ChatResponse{Text: `{"click_probability": 0.8, "attention_score": 0.7, "relevance_score": 0.9}`,
			FinishReason: "stop"}, nil
	}
	return nil, fmt.Errorf("unscripted prompt: %.80s", p)
}

func (g *scriptedGateway) Vision(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("no images in this scenario")
}

func (g *scriptedGateway) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no images in this scenario")
}

func testPipeline(t *testing.T) (*Pipeline, *queue.Queue) {
	t.Helper()

	cfg := config.DefaultConfig(t.TempDir())
	cfg.Critic.EnsembleRuns = 2

	store, err := inventory.Open(filepath.Join(t.TempDir(), "ads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	_, err = store.Insert(ctx, types.Candidate{
		ID:          "stream-1",
		Title:       "6 months of premium streaming free",
		Description: "endless binge watching",
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, types.Candidate{
		ID:    "chair-1",
		Title: "ergonomic office chair sale",
	})
	require.NoError(t, err)

	q, err := queue.New(t.TempDir())
	require.NoError(t, err)

	return New(cfg, &scriptedGateway{}, store, q), q
}

func TestFullRunFromUserData(t *testing.T) {
	p, q := testPipeline(t)

	raw := types.RawUserData{
		UserID:   "u77",
		Username: "bingequeen",
		Posts:    []types.Post{{ID: "p1", Text: "just finished another season in one night"}},
	}

	result, err := p.RunFromUserData(context.Background(), raw, nil, "")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "u77", result.UserID)
	assert.Equal(t, "bingequeen", result.Username)
	assert.Equal(t, "streaming and binge watching", result.ContextCard.GeneralTopic)

	// Streaming candidate outranks the chair and gets selected.
	assert.Contains(t, result.Remix.SelectedAd, "streaming")
	assert.Equal(t, "matches streaming interest", result.Remix.SelectionReasoning)
	require.Len(t, result.Remix.Variants, 3)
	for _, v := range result.Remix.Variants {
		assert.NotEmpty(t, v.Text)
	}

	require.Len(t, result.Prediction.Scores, 3)
	assert.Equal(t, 6, result.Prediction.TotalRuns)
	for _, s := range result.Prediction.Scores {
		assert.Equal(t, 2, s.RunCount)
		assert.InDelta(t, 0.79, s.CTRMean, 1e-9)
	}

	// Winner landed in the hand-off queue.
	assert.Equal(t, 1, q.Size("u77"))
	entry, err := q.Pop("u77")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "id:stream-1", entry.AdKey)
	assert.Equal(t, result.Prediction.Confidence, entry.Confidence)
}

func TestRunWithExplicitCandidatesSkipsStore(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	cfg.Critic.EnsembleRuns = 1
	p := New(cfg, &scriptedGateway{}, nil, nil)

	card := types.PersonaContext{UserID: "u1", Username: "someone", GeneralTopic: "anything", PersonaTone: "calm"}
	result, err := p.RunFromContextCard(context.Background(), card,
		[]types.Candidate{{Title: "only ad"}}, "Gadget")
	require.NoError(t, err)

	assert.Equal(t, "only ad", result.Remix.SelectedAd)
	assert.Equal(t, 3, result.Prediction.TotalRuns)
}

func TestRunFailsWithoutCandidatesOrStore(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	p := New(cfg, &scriptedGateway{}, nil, nil)

	_, err := p.RunFromContextCard(context.Background(), types.PersonaContext{Username: "x"}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestSaveResults(t *testing.T) {
	p, _ := testPipeline(t)

	raw := types.RawUserData{
		UserID:   "u77",
		Username: "bingequeen",
		Posts:    []types.Post{{ID: "p1", Text: "tv time"}},
	}
	result, err := p.RunFromUserData(context.Background(), raw, nil, "")
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := SaveResults(result, dir)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	suffixes := []string{"_context_card.json", "_remixed_ads.json", "_ctr_prediction.json", "_full_result.json"}
	for i, path := range paths {
		assert.True(t, strings.HasSuffix(path, suffixes[i]), "path %s", path)
		assert.FileExists(t, path)
	}
}
