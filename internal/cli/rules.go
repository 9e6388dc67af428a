package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and toggle suggestion rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	RunE:  runRulesList,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuleToggle(cmd, args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuleToggle(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesEnableCmd, rulesDisableCmd)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\tENABLED\tDESCRIPTION\n")
	for _, r := range a.Tracker.Rules() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, r.Type, r.Enabled, r.Description)
	}
	return w.Flush()
}

func runRuleToggle(cmd *cobra.Command, id string, enabled bool) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.Tracker.SetRuleStatus(cmd.Context(), id, enabled)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rule not found: %s", id)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %s\n", id, state)
	return nil
}
