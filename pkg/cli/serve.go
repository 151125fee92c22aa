package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/routeval/pkg/config"
	"github.com/getmockd/routeval/pkg/metrics"
	"github.com/getmockd/routeval/pkg/server"
	"github.com/getmockd/routeval/pkg/validation"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 10 * time.Second

var (
	serveFile     string
	serveAddr     string
	serveProblems bool
	serveMaxBody  int64
	serveMetrics  string
)

var serveCmd = &cobra.Command{
	Use:   "serve -f <file>",
	Short: "Run an HTTP server that validates requests and echoes them",
	Long: `Start an HTTP server with the routes of a route file or OpenAPI document.
Every route validates its targets and echoes the validated values back as
JSON. Unknown routes answer 404.

Examples:
  routeval serve -f routes.yaml
  routeval serve -f openapi.yaml --addr 127.0.0.1:9000 --problem-details
  routeval serve -f routes.yaml --metrics-path /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)

		routes, err := config.Load(serveFile)
		if err != nil {
			return err
		}

		vopts := []validation.Option{validation.WithMaxBodyBytes(serveMaxBody)}
		if serveProblems {
			vopts = append(vopts, validation.WithErrorHandler(validation.NewProblemErrorHandler(log)))
		}
		opts := []server.Option{server.WithLogger(log), server.WithValidationOptions(vopts...)}
		if serveMetrics != "" {
			opts = append(opts, server.WithMetrics(metrics.NewRegistry(), serveMetrics))
		}
		srv, err := server.New(routes, opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Start(serveAddr); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %d routes on http://%s\n", len(routes), srv.Addr())

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "Route file or OpenAPI document (path or URL)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveProblems, "problem-details", false, "Render failures as RFC 7807 problem+json")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body", validation.DefaultMaxBodyBytes, "Maximum request body size in bytes")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics-path", "", "Serve Prometheus metrics at this path (disabled when empty)")
	_ = serveCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(serveCmd)
}
