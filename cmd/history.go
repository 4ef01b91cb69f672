package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorflow/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent orchestrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		user, _ := cmd.Flags().GetString("user")
		tool, _ := cmd.Flags().GetString("tool")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryOrchestrations(cmd.Context(), store.QueryOpts{
			Limit:  limit,
			UserID: user,
			Tool:   tool,
		})
		if err != nil {
			return fmt.Errorf("query orchestrations: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No orchestrations found.")
			return nil
		}

		fmt.Printf("%-19s  %-12s  %-18s  %-17s  %-6s  %s\n",
			"Timestamp", "User", "Tool", "Outcome", "Ms", "Message")
		fmt.Println(strings.Repeat("─", 100))
		for _, e := range events {
			fmt.Printf("%-19s  %-12s  %-18s  %-17s  %-6d  %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.UserID, 12),
				e.Tool,
				e.Outcome,
				e.LatencyMs,
				truncate(e.Message, 40),
			)
		}
		return nil
	},
}

var historyViewCmd = &cobra.Command{
	Use:   "view <request-id>",
	Short: "View the parameters and result of one orchestration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetOrchestration(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get orchestration: %w", err)
		}
		if e == nil {
			return fmt.Errorf("orchestration %s not found", args[0])
		}

		sep := strings.Repeat("─", 60)
		fmt.Printf("Request:   %s\n", e.RequestID)
		fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("User:      %s\n", e.UserID)
		fmt.Printf("Tool:      %s\n", e.Tool)
		fmt.Printf("Outcome:   %s\n", e.Outcome)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Message:   %s\n", e.Message)

		for _, part := range []struct {
			title string
			body  []byte
		}{{"PARAMETERS", e.Parameters}, {"RESULT", e.Result}} {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println(part.title)
			fmt.Println(sep)
			if len(part.body) > 0 {
				fmt.Println(string(part.body))
			} else {
				fmt.Println("(none)")
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of orchestrations to show")
	historyCmd.Flags().StringP("user", "u", "", "Filter by user id")
	historyCmd.Flags().StringP("tool", "t", "", "Filter by tool (e.g. NoteMaker)")

	historyCmd.AddCommand(historyViewCmd)
}
