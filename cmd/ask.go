package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/ui"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Orchestrate a single message and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		userID, _ := cmd.Flags().GetString("user")
		historyPath, _ := cmd.Flags().GetString("history")
		asJSON, _ := cmd.Flags().GetBool("json")

		req := orchestrator.Request{Message: strings.Join(args, " "), UserID: userID}
		if historyPath != "" {
			if req.History, err = readHistory(historyPath); err != nil {
				return err
			}
		}

		resp, err := rt.app.Controller.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Response(resp))
		return nil
	},
}

func readHistory(path string) ([]learner.ChatTurn, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var turns []learner.ChatTurn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	return turns, nil
}

func init() {
	askCmd.Flags().StringP("user", "u", "student123", "Learner user id")
	askCmd.Flags().String("history", "", "JSON file with prior chat turns ([{role, content}])")
	askCmd.Flags().Bool("json", false, "Print the full response as JSON")
}
