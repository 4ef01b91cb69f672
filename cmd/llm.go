package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect routing and extraction LLM calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls grouped by routing and extraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No LLM events found.")
			return nil
		}
		renderLLMList(cmd.OutOrStdout(), events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt, schema and answer of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		renderLLMEvent(cmd.OutOrStdout(), *e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show routing decisions, extraction schemas, token usage and cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()
		usage, err := repo.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(usage) == 0 {
			fmt.Fprintln(w, "No LLM usage recorded yet.")
			return nil
		}
		events, err := repo.QueryLLMEvents(ctx, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		models, err := repo.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		renderPurposeUsage(w, usage)
		renderTally(w, "Routing Decisions", "Tool", tallyDecisions(events, llm.PurposeRouting))
		renderTally(w, "Extraction Schemas", "Schema", tallyDecisions(events, llm.PurposeExtraction))
		renderCost(w, models)
		return nil
	},
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

var schemaLineRe = regexp.MustCompile(`(?m)^\[schema: ([^\]\n]+)\]$`)

// llmDecision is what one LLM call decided, read back from its logged
// request and response bodies.
type llmDecision struct {
	Schema     string
	Tool       string // routing calls only
	Confidence float64
}

func decisionOf(e store.LLMEvent) llmDecision {
	var d llmDecision
	if m := schemaLineRe.FindStringSubmatch(e.RequestBody); m != nil {
		d.Schema = m[1]
	}
	if e.Purpose == llm.PurposeRouting && e.ResponseBody != "" {
		var route struct {
			Tool       string  `json:"tool"`
			Confidence float64 `json:"confidence"`
		}
		if json.Unmarshal([]byte(e.ResponseBody), &route) == nil {
			d.Tool, d.Confidence = route.Tool, route.Confidence
		}
	}
	return d
}

func (d llmDecision) String() string {
	switch {
	case d.Tool != "":
		return fmt.Sprintf("%s (%.2f)", d.Tool, d.Confidence)
	case d.Schema != "":
		return d.Schema
	}
	return "-"
}

// purposeOrder lists the purposes the orchestrator tags; anything else
// is shown after them.
var purposeOrder = []string{llm.PurposeRouting, llm.PurposeExtraction}

type purposeGroup struct {
	purpose string
	events  []store.LLMEvent
}

func groupByPurpose(events []store.LLMEvent) []purposeGroup {
	byPurpose := make(map[string][]store.LLMEvent)
	var others []string
	for _, e := range events {
		if _, seen := byPurpose[e.Purpose]; !seen && e.Purpose != llm.PurposeRouting && e.Purpose != llm.PurposeExtraction {
			others = append(others, e.Purpose)
		}
		byPurpose[e.Purpose] = append(byPurpose[e.Purpose], e)
	}
	sort.Strings(others)

	var groups []purposeGroup
	for _, p := range append(append([]string{}, purposeOrder...), others...) {
		if evs := byPurpose[p]; len(evs) > 0 {
			groups = append(groups, purposeGroup{purpose: p, events: evs})
		}
	}
	return groups
}

func purposeTitle(purpose string) string {
	switch purpose {
	case llm.PurposeRouting:
		return "Routing"
	case llm.PurposeExtraction:
		return "Extraction"
	case "":
		return "Untagged"
	}
	return purpose
}

func decisionColumn(purpose string) string {
	switch purpose {
	case llm.PurposeRouting:
		return "Routed To"
	case llm.PurposeExtraction:
		return "Schema"
	}
	return "Decision"
}

func renderLLMList(w io.Writer, events []store.LLMEvent) {
	for i, g := range groupByPurpose(events) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", purposeTitle(g.purpose), len(g.events))
		fmt.Fprintf(w, "%-5s  %-19s  %-30s  %-24s  %-11s  %-6s  %s\n",
			"ID", "Timestamp", decisionColumn(g.purpose), "Model", "Tokens", "Ms", "OK")
		fmt.Fprintln(w, strings.Repeat("─", 108))
		for _, e := range g.events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			fmt.Fprintf(w, "%-5d  %-19s  %-30s  %-24s  %-11s  %-6d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(decisionOf(e).String(), 30),
				truncate(e.Model, 24),
				fmt.Sprintf("%d/%d", e.InputTokens, e.OutputTokens),
				e.LatencyMs,
				ok,
			)
		}
	}
}

func renderLLMEvent(w io.Writer, e store.LLMEvent) {
	d := decisionOf(e)
	fmt.Fprintf(w, "ID:        %d\n", e.ID)
	fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Purpose:   %s\n", purposeTitle(e.Purpose))
	fmt.Fprintf(w, "Model:     %s/%s\n", e.Provider, e.Model)
	if d.Schema != "" {
		fmt.Fprintf(w, "Schema:    %s\n", d.Schema)
	}
	if d.Tool != "" {
		fmt.Fprintf(w, "Routed To: %s (confidence %.2f)\n", d.Tool, d.Confidence)
	}
	fmt.Fprintf(w, "Tokens:    %d in / %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", e.ErrorMessage)
	}

	section := func(title, body string) {
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(w, "\n%s\n%s\n%s\n", sep, title, sep)
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(w, strings.TrimRight(body, "\n"))
	}
	section("PROMPT", e.RequestBody)
	section("ANSWER", e.ResponseBody)
}

// decisionTally counts the calls that chose one label.
type decisionTally struct {
	Label    string
	Calls    int
	Failures int
	AvgConf  float64
}

// tallyDecisions groups events of one purpose by routed tool (routing)
// or schema name (everything else), most frequent first.
func tallyDecisions(events []store.LLMEvent, purpose string) []decisionTally {
	index := make(map[string]int)
	var out []decisionTally
	confSum := make(map[string]float64)
	for _, e := range events {
		if e.Purpose != purpose {
			continue
		}
		d := decisionOf(e)
		label := d.Schema
		if purpose == llm.PurposeRouting {
			label = d.Tool
		}
		if label == "" {
			label = "(none)"
		}
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, decisionTally{Label: label})
		}
		out[i].Calls++
		if !e.Success {
			out[i].Failures++
		}
		confSum[label] += d.Confidence
	}
	for i := range out {
		out[i].AvgConf = confSum[out[i].Label] / float64(out[i].Calls)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Calls != out[b].Calls {
			return out[a].Calls > out[b].Calls
		}
		return out[a].Label < out[b].Label
	})
	return out
}

func renderPurposeUsage(w io.Writer, usage []store.PurposeUsage) {
	fmt.Fprintln(w, "Usage by Purpose")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	fmt.Fprintf(w, "%-16s  %6s  %10s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	var calls, in, out int
	for _, u := range usage {
		fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
			purposeTitle(u.Purpose), u.Calls, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Fprintln(w, strings.Repeat("─", 72))
	fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, out, in+out)
}

func renderTally(w io.Writer, title, column string, tally []decisionTally) {
	if len(tally) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-32s  %6s  %8s  %8s\n", column, "Calls", "Failed", "Avg Conf")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, t := range tally {
		conf := "-"
		if column == "Tool" {
			conf = fmt.Sprintf("%.2f", t.AvgConf)
		}
		fmt.Fprintf(w, "%-32s  %6d  %8d  %8s\n", truncate(t.Label, 32), t.Calls, t.Failures, conf)
	}
}

func renderCost(w io.Writer, models []store.ModelUsage) {
	if len(models) == 0 {
		return
	}
	fmt.Fprintln(w, "\nEstimated Cost (USD)")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	var total float64
	var unpriced []string
	for _, m := range models {
		cost := "?"
		if p := llm.LookupCost(m.Model); p != nil {
			c := p.Cost(m.InputTokens, m.OutputTokens)
			total += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, m.Model)
		}
		fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n", truncate(m.Model, 32), m.Calls, m.InputTokens, m.OutputTokens, cost)
	}

	fmt.Fprintln(w, strings.Repeat("─", 72))
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show one purpose (routing, extraction)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
