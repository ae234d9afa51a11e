/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redhat-appstudio/clerkhook/pkg/apis/webhook"
	"github.com/redhat-appstudio/clerkhook/pkg/logger"
	"github.com/redhat-appstudio/clerkhook/pkg/metrics"
	"github.com/redhat-appstudio/clerkhook/pkg/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Clerk webhook receiver",
	Long: `Run an HTTP server accepting Clerk webhooks on POST /user-created.
The signing secret is read from the CLERK_WEBHOOK_SIGNING_SECRET environment variable.
Other settings can come from flags, CLERKHOOK_* environment variables or --config:

clerkhook server --port 8080 --metrics-port 6000
	`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newViper(cmd.Flags(), cfgFile)
		if err != nil {
			return err
		}
		cfg, err := loadServerConfig(v)
		if err != nil {
			return err
		}

		zapLogger := logger.Get(cfg.Debug)
		server.SetLogger(zapLogger)

		srv, err := server.NewServer(cfg.Host, cfg.Port, cfg.webhookConfig(), nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		metrics.InitMetrics(nil)
		if cfg.MetricsPort > 0 {
			metricsServer, err := metrics.NewServer(cfg.MetricsHost, cfg.MetricsPort, cfg.MetricsCert, cfg.MetricsKey, zapLogger)
			if err != nil {
				return err
			}
			go metricsServer.RunServer(ctx.Done())
		} else {
			zapLogger.Info("metrics server disabled")
		}

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String(keyHost, "localhost", "Host for running the server. Defaults to localhost")
	serverCmd.Flags().Int(keyPort, 8080, "Port for running the server. Defaults to 8080")
	serverCmd.Flags().Int64(keyMaxRequestSize, webhook.DefaultMaxRequestSize, "Maximum accepted webhook body size in bytes")
	serverCmd.Flags().String(keyMetricsHost, "", "Host for the metrics server. Defaults to all interfaces")
	serverCmd.Flags().Int(keyMetricsPort, metrics.MetricsPort, "Port for the metrics server, 0 disables it")
	serverCmd.Flags().String(keyMetricsCert, "", "TLS certificate file for the metrics server")
	serverCmd.Flags().String(keyMetricsKey, "", "TLS key file for the metrics server")
	serverCmd.Flags().Bool(keyDebug, false, "Enable debug logging")
}
