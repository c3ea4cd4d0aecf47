package queue

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adintel/internal/types"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(t.TempDir())
	require.NoError(t, err)
	return q
}

func TestComputeAdKey(t *testing.T) {
	t.Run("id wins", func(t *testing.T) {
		key := ComputeAdKey(types.Candidate{ID: "c42", Title: "x"})
		assert.Equal(t, "id:c42", key)
	})

	t.Run("content hash otherwise", func(t *testing.T) {
		a := ComputeAdKey(types.Candidate{Title: "buy shoes", ImageURL: "http://i/1.png"})
		b := ComputeAdKey(types.Candidate{Title: "buy shoes", ImageURL: "http://i/1.png"})
		c := ComputeAdKey(types.Candidate{Title: "buy hats", ImageURL: "http://i/1.png"})

		assert.True(t, strings.HasPrefix(a, "hash:"))
		assert.Equal(t, a, b, "same content hashes the same")
		assert.NotEqual(t, a, c)
	})

	t.Run("empty ad", func(t *testing.T) {
		assert.Equal(t, "unknown_ad", ComputeAdKey(types.Candidate{}))
	})
}

func TestAppendPopFIFO(t *testing.T) {
	q := newTestQueue(t)

	added, err := q.Append("u1", "alice", []Entry{
		{ID: "e1", AdKey: "id:1", FullContent: "first"},
		{ID: "e2", AdKey: "id:2", FullContent: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, q.Size("u1"))

	got, err := q.Pop("u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e1", got.ID)

	got, err = q.Pop("u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e2", got.ID)

	got, err = q.Pop("u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAppendSkipsServedAndQueuedKeys(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.Append("u1", "", []Entry{{ID: "e1", AdKey: "id:1"}})
	require.NoError(t, err)

	// Duplicate of a queued key is skipped.
	added, err := q.Append("u1", "", []Entry{{ID: "e1-dup", AdKey: "id:1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	// Pop marks the key served; re-appending it is still skipped.
	_, err = q.Pop("u1")
	require.NoError(t, err)
	added, err = q.Append("u1", "", []Entry{{ID: "e1-again", AdKey: "id:1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, q.Size("u1"))
}

func TestAppendKeylessEntriesAlwaysAdded(t *testing.T) {
	q := newTestQueue(t)

	added, err := q.Append("u1", "", []Entry{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestCorruptFileResetsState(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.Append("u1", "", []Entry{{ID: "e1", AdKey: "id:1"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(q.FilePath("u1"), []byte("{not json"), 0644))

	assert.Equal(t, 0, q.Size("u1"))

	added, err := q.Append("u1", "", []Entry{{ID: "e2", AdKey: "id:2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestUserIDSanitizedInPath(t *testing.T) {
	q := newTestQueue(t)
	path := q.FilePath("users/42")
	assert.NotContains(t, strings.TrimPrefix(path, q.Dir()), "users/42")
	assert.Contains(t, path, "users_42_queue.json")
}

func TestFormatBestVariant(t *testing.T) {
	best := types.GeneratedVariant{
		Text:              "Big headline\nSupporting line here\nmore",
		GeneratedImageURL: "http://i/gen.png",
		ChosenImageURL:    "http://i/chosen.png",
	}
	pred := types.Prediction{
		UserID:     "u1",
		BestIndex:  2,
		Confidence: 0.83,
		Scores:     []types.EnsembleScore{{CTRMean: 0.71}},
	}
	original := types.Candidate{ID: "c9", Title: "original ad"}

	e := FormatBestVariant(best, pred, original, 3)

	assert.Equal(t, "u1_ad_2", e.ID)
	assert.Equal(t, "Big headline", e.Title)
	assert.Equal(t, "Supporting line here", e.Description)
	assert.Equal(t, best.Text, e.FullContent)
	assert.Equal(t, "http://i/chosen.png", e.ImageURI)
	assert.Equal(t, 0.71, e.CTRScore)
	assert.Equal(t, 0.83, e.Confidence)
	assert.Equal(t, "id:c9", e.AdKey)
	assert.Equal(t, "original ad", e.OriginalAd)
	assert.Equal(t, 3, e.TotalVariants)
	assert.Equal(t, "AI Personalized", e.Brand)
}

func TestFormatBestVariantFallbacks(t *testing.T) {
	e := FormatBestVariant(types.GeneratedVariant{
		Text:              "single line",
		GeneratedImageURL: "http://i/gen.png",
	}, types.Prediction{UserID: "u"}, types.Candidate{}, 1)

	assert.Equal(t, "single line", e.Title)
	assert.Empty(t, e.Description)
	assert.Equal(t, "http://i/gen.png", e.ImageURI, "falls back to generated image")
}
