package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/pkg/abtest"
)

var abtestCmd = &cobra.Command{
	Use:   "abtest",
	Short: "Estimate the quality and latency cost of a model switch",
}

var abtestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run and store an A/B test for a model pair",
	RunE:  runABTest,
}

var abtestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored A/B tests of an organization",
	RunE:  runABTestList,
}

func init() {
	rootCmd.AddCommand(abtestCmd)
	abtestCmd.AddCommand(abtestRunCmd, abtestListCmd)

	abtestRunCmd.Flags().String("org", "", "Organization (default from config)")
	abtestRunCmd.Flags().String("current", "", "Model in use")
	abtestRunCmd.Flags().String("candidate", "", "Model to compare against")
	abtestRunCmd.Flags().String("tag", "", "Endpoint tag")
	abtestRunCmd.Flags().Int("sample-size", 0, "Number of paired samples (default from config)")
	_ = abtestRunCmd.MarkFlagRequired("current")
	_ = abtestRunCmd.MarkFlagRequired("candidate")

	abtestListCmd.Flags().String("org", "", "Organization (default from config)")
}

func runABTest(cmd *cobra.Command, _ []string) error {
	org, _ := cmd.Flags().GetString("org")
	current, _ := cmd.Flags().GetString("current")
	candidate, _ := cmd.Flags().GetString("candidate")
	tag, _ := cmd.Flags().GetString("tag")
	sampleSize, _ := cmd.Flags().GetInt("sample-size")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if org == "" {
		org = a.Config.Defaults.OrgID
	}
	res, err := a.Tracker.RunABTest(cmd.Context(), abtest.Params{
		OrgID:          org,
		CurrentModel:   current,
		CandidateModel: candidate,
		EndpointTag:    tag,
		SampleSize:     sampleSize,
	})
	if err != nil {
		return fmt.Errorf("run ab test: %w", err)
	}

	verdict := "FAIL"
	if res.Success {
		verdict = "PASS"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "A/B test %s: %s -> %s\n", res.ID, res.CurrentModel, res.CandidateModel)
	fmt.Fprintf(out, "  Samples:        %d\n", res.SampleCount)
	fmt.Fprintf(out, "  Quality delta:  %+.1f%%\n", res.QualityDeltaPct)
	fmt.Fprintf(out, "  Latency delta:  %+.1f ms\n", res.AvgLatencyDeltaMs)
	fmt.Fprintf(out, "  Known pair:     %t\n", res.Matched)
	fmt.Fprintf(out, "  Result:         %s\n", verdict)
	return nil
}

func runABTestList(cmd *cobra.Command, _ []string) error {
	org, _ := cmd.Flags().GetString("org")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if org == "" {
		org = a.Config.Defaults.OrgID
	}
	tests, err := a.Tracker.ABTests(cmd.Context(), org)
	if err != nil {
		return fmt.Errorf("list ab tests: %w", err)
	}
	if len(tests) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No A/B tests.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CREATED\tCURRENT\tCANDIDATE\tSAMPLES\tQUALITY\tLATENCY\tSUCCESS\n")
	for _, t := range tests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%+.1f%%\t%+.1fms\t%t\n",
			t.CreatedAt.Format("2006-01-02 15:04"),
			t.CurrentModel, t.CandidateModel, t.SampleSize,
			t.QualityDeltaPct, t.AvgLatencyDeltaMs, t.Success,
		)
	}
	return w.Flush()
}
