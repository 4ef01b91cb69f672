package cmd

import (
	"os/signal"
	"syscall"

	"github.com/abhisek/tutorflow/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.cfg.Addr
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if rt.cfg.Log.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(rt.app.Controller, server.Config{RequestTimeout: timeout}, rt.logger)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config and TUTORFLOW_ADDR)")
	serveCmd.Flags().Duration("timeout", server.DefaultConfig().RequestTimeout, "Per-request orchestration timeout")
}
