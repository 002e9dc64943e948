package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abramin/launchargs/internal/config"
	"github.com/abramin/launchargs/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve launch-argument resolution over HTTP",
	Long: `Start an HTTP resolution service.

Endpoints:
  POST /api/resolve   resolve a request into launch arguments
  GET  /api/history   recent resolutions (?limit=N)
  GET  /api/stats     history statistics
  GET  /api/health    health check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		port := listenPort(cfg, servePort)

		resolver, err := newResolver(cfg, true)
		if err != nil {
			return err
		}
		history, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if history != nil {
			defer history.Close()
		}

		srv, err := server.New(server.Config{
			Port:     port,
			Resolver: resolver,
			History:  history,
			Logger:   logger.Named("server"),
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Resolution service on http://localhost:%d\n", srv.Port())
		return srv.Start(cmd.Context())
	},
}

// listenPort returns the port flag when set, else the configured port.
func listenPort(cfg *config.Config, flag int) int {
	if flag > 0 {
		return flag
	}
	return cfg.Server.Port
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config server.port)")
	rootCmd.AddCommand(serveCmd)
}
