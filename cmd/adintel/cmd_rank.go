package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adintel/internal/ranking"
	"adintel/internal/types"
)

var (
	rankAdsFile     string
	rankContextFile string
	rankLimit       int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidate ads against a persona without calling any model",
	Long: `Scores candidates with the deterministic keyword oracle (persona
alignment, category match, banned-term safety, completeness) and prints
them sorted by total score. Candidates come from --ads or the workspace
campaign store.`,
	RunE: rankCandidates,
}

func init() {
	rankCmd.Flags().StringVar(&rankAdsFile, "ads", "", "candidate ads JSON file")
	rankCmd.Flags().StringVar(&rankContextFile, "context", "", "context card JSON file (required)")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 50, "max candidates to fetch from the store")
}

func rankCandidates(cmd *cobra.Command, args []string) error {
	if rankContextFile == "" {
		return fmt.Errorf("--context is required")
	}

	var card types.PersonaContext
	if err := readJSONFile(rankContextFile, &card); err != nil {
		return err
	}

	var candidates []types.Candidate
	if rankAdsFile != "" {
		var err error
		candidates, err = loadCandidates(rankAdsFile)
		if err != nil {
			return err
		}
	} else {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		candidates, err = store.FetchRelevant(cmd.Context(), card, rankLimit)
		if err != nil {
			return err
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to rank")
	}

	ranked := ranking.Rank(candidates, ranking.ProfileFromPersona(card))

	fmt.Println(headerStyle.Render("CANDIDATE RANKING"))
	for i, r := range ranked {
		text := r.Candidate.DisplayText()
		if len(text) > 70 {
			text = text[:70] + "..."
		}
		fmt.Printf("%2d. [%5.1f] %s\n", i+1, r.Scores.Total, text)
		fmt.Printf("     %s\n", dimStyle.Render(fmt.Sprintf(
			"alignment %.1f  category %.1f  safety %.1f  completeness %.1f",
			r.Scores.PersonaAlignment, r.Scores.CategoryMatch, r.Scores.Safety, r.Scores.Completeness)))
	}
	return nil
}
