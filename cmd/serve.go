package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/server"
)

var serveAddr string

// serveCmd starts the HTTP upload shell.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversions over HTTP",
	Long: `Start an HTTP server that converts uploaded exports.

  POST /api/preview   records, diagnostics and validation findings as JSON
  POST /api/convert   the workbook (?format=csv for the CSV table)
  GET  /healthz
  GET  /metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := appConfig.Server
		if serveAddr != "" {
			settings.Addr = serveAddr
		}

		m := metrics.New()
		conv, err := converter.New(appConfig, logger, converter.WithMetrics(m))
		if err != nil {
			return err
		}

		return server.New(conv, settings, m, logger).ListenAndServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
