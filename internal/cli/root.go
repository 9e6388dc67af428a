package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/internal/app"
	"github.com/yapay-ai/llm-cost-advisor/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lca",
	Short: "LLM Cost Advisor - cost saving suggestions for LLM usage",
	Long: `LLM Cost Advisor records LLM API usage, detects what each prompt is for and
suggests cheaper ways to get the same result: switching models, trimming context
and stopping idle instances. It also estimates the quality cost of a model switch
with A/B tests.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Root returns the root command.
func Root() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.lca/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// openApp loads the configuration and wires storage, pricing and the rule engine.
// Logs go to stderr unless a log file is configured.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, cmd.ErrOrStderr())
}
