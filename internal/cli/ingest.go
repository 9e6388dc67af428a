package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tokenizer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json|->",
	Short: "Record usage events from a JSON file",
	Long: `Record one usage event or an array of events from a JSON file ("-" reads stdin).
Invalid events are reported and skipped. Suggestions triggered by the events are stored
and printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Bool("count-tokens", false, "Count prompt tokens from prompt_text when prompt_tokens is missing")
	ingestCmd.Flags().String("org", "", "Organization for events without org_id (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	events, err := parseEvents(data)
	if err != nil {
		return err
	}

	countTokens, _ := cmd.Flags().GetBool("count-tokens")
	org, _ := cmd.Flags().GetString("org")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if org == "" {
		org = a.Config.Defaults.OrgID
	}
	counter := tokenizer.NewCounter()
	for i := range events {
		if events[i].OrgID == "" {
			events[i].OrgID = org
		}
		if countTokens {
			if err := fillTokens(counter, &events[i]); err != nil {
				return err
			}
		}
	}

	res, ingestErr := a.Tracker.IngestBatch(cmd.Context(), events)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded %d of %d events\n", len(res.Records), len(events))
	for _, rej := range res.Rejected {
		fmt.Fprintf(out, "  event %d rejected: %v\n", rej.Index, rej.Err)
	}
	if len(res.Suggestions) > 0 {
		fmt.Fprintf(out, "\n")
		printSuggestions(out, res.Suggestions)
	}
	if ingestErr != nil {
		return fmt.Errorf("ingest usage: %w", ingestErr)
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// parseEvents accepts a single JSON object or an array of them.
func parseEvents(data []byte) ([]model.UsageEvent, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var events []model.UsageEvent
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("parse events: %w", err)
		}
		return events, nil
	}

	var event model.UsageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	return []model.UsageEvent{event}, nil
}

func fillTokens(counter *tokenizer.Counter, e *model.UsageEvent) error {
	if e.PromptTokens != 0 || e.PromptText == "" {
		return nil
	}
	n, err := counter.Count(e.PromptText, e.Provider, e.Model)
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}
	e.PromptTokens = n
	if e.TotalTokens == 0 {
		e.TotalTokens = n + e.CompletionTokens
	}
	return nil
}
