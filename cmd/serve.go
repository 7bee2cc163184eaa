package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/cortex-session/internal"
	"github.com/iksnae/cortex-session/internal/relay"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the streaming relay for browser clients",
	Long: `Run an HTTP relay in front of the Cortex Agent endpoint.

Routes:
  POST /api/agent/run   forward a run request and stream the events back
  GET  /health          health probe
  GET  /                service banner

The PAT token stays on the server. Set REMOVE_SQL_FROM_RESPONSE=true to strip
generated SQL from every streamed payload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.ListenAddr = serveAddr
		}

		srv := relay.NewServer(relay.Options{
			Transport:   cfg.Transport(),
			RemoveSQL:   cfg.RemoveSQL,
			CORSOrigins: cfg.CORSOrigins,
		})
		if cfg.RemoveSQL {
			internal.LogInfo("SQL fields will be removed from streamed events")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.ListenAndServe(ctx, cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides RELAY_LISTEN_ADDR)")
}
