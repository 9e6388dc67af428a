package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/internal/app"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect provider price tables",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all providers and their per-token model pricing",
	RunE:  runProvidersList,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
}

func runProvidersList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := app.NewRegistry(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	allProviders := registry.All()
	if len(allProviders) == 0 {
		fmt.Fprintln(out, "No providers configured. Check pricing directory in config.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PROVIDER\tMODEL\tINPUT ($/token)\tOUTPUT ($/token)\n")
	for _, p := range allProviders {
		for _, m := range p.Models() {
			fmt.Fprintf(w, "%s\t%s\t%g\t%g\n", p.Name(), m.Model, m.InputPerToken, m.OutputPrice())
		}
	}
	return w.Flush()
}
