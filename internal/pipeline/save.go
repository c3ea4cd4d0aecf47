package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"adintel/internal/logging"
)

// SaveResults writes the run's context card, remixed ads, CTR prediction,
// and the combined result as separate JSON files under dir. Returns the
// written paths.
func SaveResults(result *Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", result.Username, timestamp)

	files := []struct {
		name string
		data interface{}
	}{
		{base + "_context_card.json", result.ContextCard},
		{base + "_remixed_ads.json", result.Remix},
		{base + "_ctr_prediction.json", result.Prediction},
		{base + "_full_result.json", result},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := json.MarshalIndent(f.data, "", "  ")
		if err != nil {
			return paths, fmt.Errorf("pipeline: marshal %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("pipeline: write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	logging.Pipeline("saved %d result files under %s", len(paths), dir)
	return paths, nil
}
