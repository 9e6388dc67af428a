package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/pkg/intent"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [prompt]",
	Short: "Detect the task intent of a prompt",
	Long: `Detect the task intent (sql, translate, summarize, code, general_chat) of a prompt.
With --file, classify a JSON array of {"id", "text", "tag"} prompts instead.`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringP("tag", "t", "", "Endpoint tag")
	classifyCmd.Flags().Bool("fallback", false, "Use keyword scoring for long ambiguous prompts")
	classifyCmd.Flags().StringP("file", "f", "", "JSON file with prompts to classify in batch (\"-\" reads stdin)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	tag, _ := cmd.Flags().GetString("tag")
	fallback, _ := cmd.Flags().GetBool("fallback")
	file, _ := cmd.Flags().GetString("file")
	out := cmd.OutOrStdout()

	if file != "" {
		data, err := readInput(cmd, file)
		if err != nil {
			return err
		}
		var prompts []intent.Prompt
		if err := json.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("parse prompts: %w", err)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tINTENT\n")
		for _, c := range intent.ClassifyBatch(prompts) {
			fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Intent)
		}
		return w.Flush()
	}

	if len(args) == 0 {
		return fmt.Errorf("a prompt or --file is required")
	}
	prompt := strings.Join(args, " ")

	classify := intent.Classify
	if fallback {
		classify = intent.ClassifyWithFallback
	}
	fmt.Fprintln(out, classify(prompt, tag))
	return nil
}
