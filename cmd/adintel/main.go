package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"adintel/internal/config"
	"adintel/internal/inventory"
	"adintel/internal/llm"
	"adintel/internal/logging"
	"adintel/internal/queue"
)

var (
	// Global flags
	verbose   bool
	workspace string
	apiKey    string

	// Shared state built in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adintel",
	Short: "adintel - LLM-driven ad personalization pipeline",
	Long: `adintel personalizes ad campaigns for individual users.

It builds a persona context card from collected user data, ranks the ad
inventory against it, rewrites the best candidate into three creative
variants (copy + image, generated together via tool calling), predicts
click-through for each variant with an ensemble persona critic, and hands
the winner off to a serving queue.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}

		cfg, err = config.Load(workspace)
		if err != nil {
			return err
		}
		if apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// newGateway builds the LLM client from the loaded config.
func newGateway() *llm.Client {
	return llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		ChatModel:   cfg.LLM.ChatModel,
		ImageModel:  cfg.LLM.ImageModel,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.LLMTimeout(),
	})
}

// campaignDBPath is where the inventory store lives inside the workspace.
func campaignDBPath() string {
	return filepath.Join(workspace, ".adintel", "campaigns.db")
}

// openStore opens the campaign store, creating its directory first.
func openStore() (*inventory.Store, error) {
	if err := os.MkdirAll(filepath.Dir(campaignDBPath()), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return inventory.Open(campaignDBPath())
}

// openQueue opens the hand-off queue directory from config.
func openQueue() (*queue.Queue, error) {
	return queue.New(cfg.Queue.Dir)
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "xAI API key (overrides XAI_API_KEY)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(queueCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
