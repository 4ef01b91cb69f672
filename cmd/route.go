package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorflow/internal/ui"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <message>",
	Short: "Show which tool a message routes to, without invoking it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		d := rt.app.Router.Decide(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), ui.Decision(d))
		return nil
	},
}
