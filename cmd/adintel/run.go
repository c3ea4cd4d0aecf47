package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adintel/internal/pipeline"
	"adintel/internal/types"
)

var (
	runUserDataFile string
	runContextFile  string
	runAdsFile      string
	runProduct      string
	runOutputDir    string
	runNoSave       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full personalization pipeline for one user",
	Long: `Runs context analysis, candidate selection, creative remixing, CTR
prediction, and queue hand-off for a single user.

Input is either raw collected user data (--user-data) or an already-built
context card (--context). Candidates come from --ads or, when omitted, from
the workspace campaign store ranked against the persona.

Example:
  adintel run --user-data user.json --product "StreamBox" --output results/`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runUserDataFile, "user-data", "", "raw user data JSON file")
	runCmd.Flags().StringVar(&runContextFile, "context", "", "context card JSON file")
	runCmd.Flags().StringVar(&runAdsFile, "ads", "", "candidate ads JSON file (objects or strings)")
	runCmd.Flags().StringVar(&runProduct, "product", "", "product name for CTR scoring (inferred when empty)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "results directory (default from config)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "don't write result files")
}

// loadCandidates reads an ads file that may hold full candidate objects or
// plain strings.
func loadCandidates(path string) ([]types.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ads file: %w", err)
	}

	var candidates []types.Candidate
	if err := json.Unmarshal(data, &candidates); err == nil {
		return candidates, nil
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("ads file must be a JSON array of objects or strings")
	}
	candidates = make([]types.Candidate, len(texts))
	for i, t := range texts {
		candidates[i] = types.Candidate{Title: t}
	}
	return candidates, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if runUserDataFile == "" && runContextFile == "" {
		return fmt.Errorf("one of --user-data or --context is required")
	}

	var candidates []types.Candidate
	if runAdsFile != "" {
		var err error
		candidates, err = loadCandidates(runAdsFile)
		if err != nil {
			return err
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := openQueue()
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, newGateway(), store, q)
	ctx := cmd.Context()

	var result *pipeline.Result
	if runUserDataFile != "" {
		var raw types.RawUserData
		if err := readJSONFile(runUserDataFile, &raw); err != nil {
			return err
		}
		result, err = p.RunFromUserData(ctx, raw, candidates, runProduct)
	} else {
		var card types.PersonaContext
		if err := readJSONFile(runContextFile, &card); err != nil {
			return err
		}
		result, err = p.RunFromContextCard(ctx, card, candidates, runProduct)
	}
	if err != nil {
		return err
	}

	printSummary(result)

	if !runNoSave && cfg.Output.SaveResults {
		dir := runOutputDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		paths, err := pipeline.SaveResults(result, dir)
		if err != nil {
			return err
		}
		fmt.Printf("\nResults saved:\n")
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
	}

	logger.Info("pipeline run complete",
		zap.String("run_id", result.RunID),
		zap.String("user_id", result.UserID),
		zap.Int("best_index", result.Prediction.BestIndex),
		zap.Float64("confidence", result.Prediction.Confidence))
	return nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	winnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func printSummary(result *pipeline.Result) {
	fmt.Println()
	fmt.Println(headerStyle.Render("PIPELINE RESULTS"))
	fmt.Printf("%s @%s (%s)\n", labelStyle.Render("User:"), result.Username, result.UserID)
	fmt.Printf("%s %s\n", labelStyle.Render("Interests:"), result.ContextCard.GeneralTopic)
	fmt.Printf("%s %s\n", labelStyle.Render("Tone:"), result.ContextCard.PersonaTone)

	fmt.Printf("\n%s %q\n", labelStyle.Render("Selected ad:"), result.Remix.SelectedAd)
	fmt.Printf("%s %s\n", dimStyle.Render("Reason:"), result.Remix.SelectionReasoning)

	fmt.Printf("\n%s #%d (confidence %.1f%%, %d simulations)\n",
		winnerStyle.Render("Best variant:"),
		result.Prediction.BestIndex,
		result.Prediction.Confidence*100,
		result.Prediction.TotalRuns)

	for i, s := range result.Prediction.Scores {
		marker := "  "
		if i == 0 {
			marker = winnerStyle.Render("► ")
		}
		text := s.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		fmt.Printf("\n%sVariant %d: %q\n", marker, s.CandidateIndex+1, text)
		fmt.Printf("   CTR %.3f ± %.3f  (click %.2f, attention %.2f, relevance %.2f)\n",
			s.CTRMean, s.CTRStd, s.ClickProbMean, s.AttentionMean, s.RelevanceMean)
		if s.CandidateIndex < len(result.Remix.Variants) {
			if url := result.Remix.Variants[s.CandidateIndex].ChosenImageURL; url != "" {
				fmt.Printf("   %s %s\n", dimStyle.Render("Image:"), url)
			}
		}
	}
	fmt.Println()
}
