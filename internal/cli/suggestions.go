package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

var suggestionsCmd = &cobra.Command{
	Use:     "suggestions",
	Aliases: []string{"sug"},
	Short:   "List and act on cost saving suggestions",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suggestions, newest first",
	RunE:  runSuggestionsList,
}

var suggestionsImplementCmd = &cobra.Command{
	Use:   "implement <id>",
	Short: "Mark a suggestion as implemented",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggestionTransition(cmd, args[0], "implemented")
	},
}

var suggestionsDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggestionTransition(cmd, args[0], "dismissed")
	},
}

var suggestionsSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Record sample usage that triggers every built-in rule",
	RunE:  runSuggestionsSample,
}

func init() {
	rootCmd.AddCommand(suggestionsCmd)
	suggestionsCmd.AddCommand(suggestionsListCmd, suggestionsImplementCmd, suggestionsDismissCmd, suggestionsSampleCmd)

	suggestionsListCmd.Flags().String("org", "", "Filter by organization")
	suggestionsListCmd.Flags().String("status", "", "Filter by status (active, implemented, dismissed)")
	suggestionsSampleCmd.Flags().String("org", "", "Organization (default from config)")
}

func runSuggestionsList(cmd *cobra.Command, _ []string) error {
	org, _ := cmd.Flags().GetString("org")
	status, _ := cmd.Flags().GetString("status")

	filter := model.SuggestionFilter{OrgID: org, Status: model.SuggestionStatus(status)}
	if status != "" && !filter.Status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Tracker.Suggestions(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list suggestions: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No suggestions.")
		return nil
	}
	printSuggestions(cmd.OutOrStdout(), list)
	return nil
}

func runSuggestionTransition(cmd *cobra.Command, id, to string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	apply := a.Tracker.Implement
	if to == "dismissed" {
		apply = a.Tracker.Dismiss
	}
	s, err := apply(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("update suggestion %s: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Suggestion %s is now %s\n", s.ID, s.Status)
	return nil
}

func runSuggestionsSample(cmd *cobra.Command, _ []string) error {
	org, _ := cmd.Flags().GetString("org")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if org == "" {
		org = a.Config.Defaults.OrgID
	}
	list, err := a.Tracker.GenerateSample(cmd.Context(), org)
	if err != nil {
		return fmt.Errorf("generate sample suggestions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d suggestions for %s\n", len(list), org)
	printSuggestions(cmd.OutOrStdout(), list)
	return nil
}

func printSuggestions(out io.Writer, list []model.Suggestion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tORG\tRULE\tSTATUS\tIMPACT\tPER MONTH\tTITLE\n")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.2f/%s\t$%.2f\t%s\n",
			s.ID, s.OrgID, s.RuleID, s.Status,
			s.Impact, s.ImpactType, s.MonthlyImpact(),
			s.Title,
		)
	}
	w.Flush()
}
