package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/acceptevents/internal/server"
	"github.com/getmockd/acceptevents/pkg/config"
	"github.com/getmockd/acceptevents/pkg/logging"
	"github.com/getmockd/acceptevents/pkg/mqtt"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

type serveFlags struct {
	configFile string
	listen     string
	logLevel   string
	logFormat  string
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the acceptevents server (foreground)",
		Long: `Start the resource server.

Without --config every protocol except mqtt is enabled with its defaults.
Flags override the values of the configuration file.`,
		Example: `  # Start with defaults on :8080
  acceptevents serve

  # Start from a configuration file on a custom address
  acceptevents serve --config acceptevents.yaml --listen :9000

  # Debug logging as JSON
  acceptevents serve --log-level debug --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, f, nil)
		},
	}

	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to configuration file (YAML or JSON)")
	cmd.Flags().StringVarP(&f.listen, "listen", "l", "", "HTTP listen address (default \":8080\")")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	return cmd
}

// loadServeConfig resolves the configuration file and flag overrides.
func loadServeConfig(f *serveFlags) (*config.ServerConfig, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configFile); err != nil {
			return nil, err
		}
	}

	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe runs the server until ctx is done. When ready is not nil it
// receives the bound address once the listener is open.
func runServe(ctx context.Context, f *serveFlags, ready chan<- net.Addr) error {
	cfg, err := loadServeConfig(f)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    logging.ParseFormat(cfg.Log.Format),
		Output:    os.Stderr,
		Component: "acceptevents",
	})

	var opts []server.Option
	opts = append(opts, server.WithLogger(log))

	if cfg.MQTT != nil {
		pubCfg := cfg.MQTT.Broker
		pubCfg.Logger = log.With("protocol", mqtt.Protocol)
		publisher := mqtt.NewPublisher(pubCfg)
		if err := publisher.Connect(ctx); err != nil {
			log.Warn("mqtt broker unavailable, retrying in background", "broker", pubCfg.BrokerURL, "error", err)
		}
		defer publisher.Close()
		opts = append(opts, server.WithMQTTClient(publisher))
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}

	httpServer := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	log.Info("server started", "addr", ln.Addr().String(), "protocols", srv.Registry().Protocols())
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
