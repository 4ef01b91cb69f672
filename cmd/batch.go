package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/spf13/cobra"
)

// batchLine is one line of batch output.
type batchLine struct {
	Line     int                    `json:"line"`
	Response *orchestrator.Response `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl|->",
	Short: "Orchestrate a JSONL file of requests concurrently",
	Long: "Each input line is a request object {message, user_id, profile?, chat_history?}.\n" +
		"Results are written as JSONL in input order.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		reqs, err := readRequests(in)
		if err != nil {
			return err
		}

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		pool := rt.app.Pool
		if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
			pool = orchestrator.NewPool(rt.app.Controller, n)
		}

		results, runErr := pool.RunAll(cmd.Context(), reqs)

		enc := json.NewEncoder(cmd.OutOrStdout())
		for i, r := range results {
			line := batchLine{Line: i + 1, Response: r.Response}
			if r.Err != nil {
				line.Error = r.Err.Error()
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		return runErr
	},
}

func readRequests(r io.Reader) ([]orchestrator.Request, error) {
	var reqs []orchestrator.Request
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var req orchestrator.Request
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, sc.Err()
}

func init() {
	batchCmd.Flags().IntP("workers", "w", 0, "Concurrent requests (default from config)")
}
