package main

import (
	"github.com/Veraticus/local-guide/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Serve sessions, questions, stats and health over HTTP, with Prometheus
metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.Logging.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return withApp(cmd.Context(), func(a *app) error {
				return server.New(a.engine, a.cfg.Server, a.logger).Run(cmd.Context())
			})
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
