// Package ui renders orchestration results for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/router"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/abhisek/tutorflow/internal/ui/theme"
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render(label), theme.Value.Render(value))
}

// Response renders a completed run as a card.
func Response(resp *orchestrator.Response) string {
	var rows []string
	rows = append(rows, theme.Title.Render(resp.Tool.String()))
	rows = append(rows, row("request", resp.RequestID))

	trail := make([]string, len(resp.Trail))
	for i, s := range resp.Trail {
		trail[i] = s.String()
	}
	rows = append(rows, row("states", strings.Join(trail, " → ")))

	if resp.Params != nil {
		if b, err := json.MarshalIndent(paramsView(resp.Params), "", "  "); err == nil {
			rows = append(rows, "", theme.Hint.Render("parameters"), theme.Value.Render(string(b)))
		}
	}

	rows = append(rows, "")
	switch r := resp.Result; {
	case r == nil:
		rows = append(rows, theme.Hint.Render("No tool applies to this message."))
	case r.Failed():
		rows = append(rows, theme.Failed.Render("✗ "+r.Message))
	default:
		rows = append(rows, theme.Ok.Render("✓ "+r.Message))
		if id := resultID(r); id != "" {
			rows = append(rows, row("id", id))
		}
	}

	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Decision renders a routing decision.
func Decision(d router.Decision) string {
	rows := []string{
		theme.Title.Render(d.Tool.String()),
		row("confidence", fmt.Sprintf("%.2f", d.Confidence)),
		row("source", d.Source),
	}
	if d.Reasoning != "" {
		rows = append(rows, row("reasoning", d.Reasoning))
	}
	if d.Err != nil {
		rows = append(rows, theme.Warn.Render("fell back to NoTool: "+d.Err.Error()))
	}
	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// paramsView drops the profile from the printed parameters; it is the
// same for every request.
func paramsView(p tools.Params) map[string]any {
	var m map[string]any
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	delete(m, "user_info")
	return m
}

func resultID(r *tools.Result) string {
	switch {
	case r.NotesID != "":
		return r.NotesID
	case r.FlashcardDeckID != "":
		return r.FlashcardDeckID
	case r.ExplanationID != "":
		return r.ExplanationID
	}
	return ""
}
