package cli

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genera/compass/internal/pipeline"
	"github.com/genera/compass/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the questionnaire over HTTP",
	Long: `Serve starts the web form, the JSON API and the metrics endpoint.

Routes:
  GET  /              questionnaire form (items in a per-session random order)
  POST /submit        result page
  GET  /api/catalog   catalog definition
  POST /api/sessions  new session with its presentation order
  POST /api/score     score a JSON submission (422 on invalid answers)
  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics

Example:
  compass serve --addr :8080
  COMPASS_EXPORT_BACKEND=csv compass serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().Duration("session-ttl", 0, "idle lifetime of a questionnaire session")
	serveCmd.Flags().Bool("debug", false, "gin debug mode and request logging")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.session_ttl", serveCmd.Flags().Lookup("session-ttl"))
	_ = viper.BindPFlag("server.debug", serveCmd.Flags().Lookup("debug"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.NewPipeline(ctx, cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(p, cfg.Server, server.WithRegistry(reg), server.WithLogger(logger))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
