// Package queue persists per-user ad hand-off queues as JSON files for the
// downstream serving client. It tracks already-served ads by stable ad key
// so a user never sees the same original ad twice.
package queue

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"adintel/internal/logging"
	"adintel/internal/types"
)

// Entry is one queued ad in the shape expected by the serving client.
type Entry struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	FullContent   string  `json:"full_content"`
	ImageURI      string  `json:"image_uri,omitempty"`
	Brand         string  `json:"brand"`
	Avatar        string  `json:"avatar"`
	CTRScore      float64 `json:"ctr_score"`
	Confidence    float64 `json:"confidence"`
	AdIndex       int     `json:"ad_index"`
	OriginalAd    string  `json:"original_ad,omitempty"`
	AdKey         string  `json:"ad_key,omitempty"`
	TotalVariants int     `json:"total_variants"`
}

// state is the persisted per-user queue file.
type state struct {
	UserID     string   `json:"user_id"`
	Username   string   `json:"username"`
	Queue      []Entry  `json:"queue"`
	ServedKeys []string `json:"served_keys"`
}

// Queue manages the queue files under one directory.
type Queue struct {
	dir string
	mu  sync.Mutex
}

// New creates a queue rooted at dir, creating it if needed.
func New(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("queue: create dir %s: %w", dir, err)
	}
	return &Queue{dir: dir}, nil
}

// FilePath returns the queue file for a user.
func (q *Queue) FilePath(userID string) string {
	safe := strings.ReplaceAll(userID, "/", "_")
	return filepath.Join(q.dir, safe+"_queue.json")
}

// Dir returns the queue directory.
func (q *Queue) Dir() string { return q.dir }

// ComputeAdKey builds a stable identifier for an original ad: the campaign
// ID when present, otherwise a content hash over text and image URL.
func ComputeAdKey(c types.Candidate) string {
	if c.ID != "" {
		return "id:" + c.ID
	}
	text := c.DisplayText()
	if text == "" && c.ImageURL == "" {
		return "unknown_ad"
	}
	digest := sha256.Sum256([]byte(text + "||" + c.ImageURL))
	return fmt.Sprintf("hash:%x", digest)
}

// FormatBestVariant normalizes a winning variant plus its prediction into a
// queue entry. The first copy line becomes the title, the second the
// description.
func FormatBestVariant(best types.GeneratedVariant, pred types.Prediction, original types.Candidate, totalVariants int) Entry {
	lines := strings.Split(best.Text, "\n")
	title := "Sponsored Ad"
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		title = strings.TrimSpace(lines[0])
	}
	description := ""
	if len(lines) > 1 {
		description = strings.TrimSpace(lines[1])
	}

	imageURI := best.ChosenImageURL
	if imageURI == "" {
		imageURI = best.GeneratedImageURL
	}

	ctr := 0.0
	if len(pred.Scores) > 0 {
		ctr = pred.Scores[0].CTRMean
	}

	return Entry{
		ID:            fmt.Sprintf("%s_ad_%d", pred.UserID, pred.BestIndex),
		Title:         title,
		Description:   description,
		FullContent:   best.Text,
		ImageURI:      imageURI,
		Brand:         "AI Personalized",
		Avatar:        "https://abs.twimg.com/icons/apple-touch-icon-192x192.png",
		CTRScore:      ctr,
		Confidence:    pred.Confidence,
		AdIndex:       pred.BestIndex,
		OriginalAd:    original.DisplayText(),
		AdKey:         ComputeAdKey(original),
		TotalVariants: totalVariants,
	}
}

// load reads a user's state, returning a fresh default on a missing or
// corrupt file. Caller holds q.mu.
func (q *Queue) load(userID string) state {
	st := state{UserID: userID, Username: userID, Queue: []Entry{}, ServedKeys: []string{}}

	data, err := os.ReadFile(q.FilePath(userID))
	if err != nil {
		return st
	}
	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil {
		logging.QueueWarn("corrupt queue file for %s, resetting: %v", userID, err)
		return st
	}
	if loaded.UserID == "" {
		loaded.UserID = userID
	}
	if loaded.Username == "" {
		loaded.Username = userID
	}
	if loaded.Queue == nil {
		loaded.Queue = []Entry{}
	}
	if loaded.ServedKeys == nil {
		loaded.ServedKeys = []string{}
	}
	return loaded
}

// save persists a user's state. Caller holds q.mu.
func (q *Queue) save(userID string, st state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshal state: %w", err)
	}
	if err := os.WriteFile(q.FilePath(userID), data, 0644); err != nil {
		return fmt.Errorf("queue: write state: %w", err)
	}
	return nil
}

// Append adds entries to a user's queue, skipping entries whose ad key was
// already queued or served. Returns the number actually added.
func (q *Queue) Append(userID, username string, entries []Entry) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.load(userID)
	if username != "" {
		st.Username = username
	}

	served := make(map[string]struct{}, len(st.ServedKeys))
	for _, k := range st.ServedKeys {
		served[k] = struct{}{}
	}
	queued := make(map[string]struct{}, len(st.Queue))
	for _, e := range st.Queue {
		if e.AdKey != "" {
			queued[e.AdKey] = struct{}{}
		}
	}

	added := 0
	for _, e := range entries {
		if e.AdKey != "" {
			if _, ok := served[e.AdKey]; ok {
				continue
			}
			if _, ok := queued[e.AdKey]; ok {
				continue
			}
			queued[e.AdKey] = struct{}{}
		}
		st.Queue = append(st.Queue, e)
		added++
	}

	if err := q.save(userID, st); err != nil {
		return 0, err
	}
	logging.Queue("appended %d/%d entries for %s", added, len(entries), userID)
	return added, nil
}

// Pop removes and returns the next ad in FIFO order, recording its key as
// served. Returns nil when the queue is empty.
func (q *Queue) Pop(userID string) (*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.load(userID)
	if len(st.Queue) == 0 {
		return nil, nil
	}

	entry := st.Queue[0]
	st.Queue = st.Queue[1:]
	if entry.AdKey != "" {
		st.ServedKeys = append(st.ServedKeys, entry.AdKey)
	}

	if err := q.save(userID, st); err != nil {
		return nil, err
	}
	logging.Queue("popped %s for %s, %d remaining", entry.ID, userID, len(st.Queue))
	return &entry, nil
}

// Size returns the number of queued ads for a user.
func (q *Queue) Size(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.load(userID).Queue)
}
