package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adintel/internal/critic"
	"adintel/internal/types"
)

var (
	predictContextFile string
	predictRemixFile   string
	predictProduct     string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the ensemble CTR critic over already-remixed ads",
	Long: `Loads a context card and a remixed-ads result and predicts
click-through for each variant with the ensemble persona critic.

Example:
  adintel predict --context card.json --remixed remixed_ads.json`,
	RunE: predictCTR,
}

func init() {
	predictCmd.Flags().StringVar(&predictContextFile, "context", "", "context card JSON file (required)")
	predictCmd.Flags().StringVar(&predictRemixFile, "remixed", "", "remixed ads JSON file (required)")
	predictCmd.Flags().StringVar(&predictProduct, "product", "", "product name (inferred when empty)")
}

func predictCTR(cmd *cobra.Command, args []string) error {
	if predictContextFile == "" || predictRemixFile == "" {
		return fmt.Errorf("--context and --remixed are required")
	}

	var card types.PersonaContext
	if err := readJSONFile(predictContextFile, &card); err != nil {
		return err
	}
	var remixed types.RemixResult
	if err := readJSONFile(predictRemixFile, &remixed); err != nil {
		return err
	}
	if len(remixed.Variants) == 0 {
		return fmt.Errorf("remixed ads file has no variants")
	}

	crt := critic.New(newGateway(), cfg.Critic.EnsembleRuns)
	pred := crt.Predict(cmd.Context(), remixed.Variants, card, predictProduct)

	fmt.Println(headerStyle.Render("ENSEMBLE CTR PREDICTION"))
	fmt.Printf("%s %d simulations, confidence %.1f%%\n",
		labelStyle.Render("Total:"), pred.TotalRuns, pred.Confidence*100)
	fmt.Printf("%s #%d %q\n", winnerStyle.Render("Best:"), pred.BestIndex, pred.BestText)
	for i, s := range pred.Scores {
		fmt.Printf("%2d. variant %d  CTR %.3f ± %.3f  (%d runs)\n",
			i+1, s.CandidateIndex+1, s.CTRMean, s.CTRStd, s.RunCount)
	}
	return nil
}
