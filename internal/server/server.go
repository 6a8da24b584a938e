package server

import (
	"log/slog"
	"net/http"

	"github.com/getmockd/acceptevents/internal/storage"
	"github.com/getmockd/acceptevents/pkg/config"
	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/getmockd/acceptevents/pkg/logging"
	"github.com/getmockd/acceptevents/pkg/metrics"
	"github.com/getmockd/acceptevents/pkg/mqtt"
	"github.com/getmockd/acceptevents/pkg/sse"
	"github.com/getmockd/acceptevents/pkg/webhook"
	"github.com/getmockd/acceptevents/pkg/websocket"
)

// MaxResourceSize is the largest body accepted by PUT /resources/{name}.
const MaxResourceSize = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStore replaces the in-memory resource store.
func WithStore(store storage.ResourceStore) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithMetricsRegistry registers the server metrics on reg instead of a
// private registry.
func WithMetricsRegistry(reg *metrics.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.metricsRegistry = reg
		}
	}
}

// WithMQTTClient sets the broker client used by the mqtt protocol.
// Without it the mqtt protocol is not registered.
func WithMQTTClient(c mqtt.Client) Option {
	return func(s *Server) {
		s.mqttClient = c
	}
}

// WithHTTPClient sets the client used for webhook deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.httpClient = c
	}
}

// Server serves resources with Accept-Events negotiation.
type Server struct {
	cfg        *config.ServerConfig
	log        *slog.Logger
	store      storage.ResourceStore
	registry   *events.Registry
	mqttClient mqtt.Client
	httpClient *http.Client
	handler    http.Handler

	metricsRegistry *metrics.Registry
	metrics         *metrics.Metrics
}

// New creates a Server for cfg. A nil cfg uses config.Default.
func New(cfg *config.ServerConfig, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:        cfg,
		log:        logging.Nop(),
		store:      storage.NewInMemoryResourceStore(),
		registry:   events.NewRegistry(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metricsRegistry == nil {
		s.metricsRegistry = metrics.NewRegistry()
	}
	s.metrics = metrics.New(s.metricsRegistry)
	s.metrics.Resources.WithLabels().Set(float64(s.store.Count()))

	if err := s.registerProtocols(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metricsRegistry.Handler())
	mux.HandleFunc("GET /resources", s.handleListResources)
	mux.HandleFunc("GET /resources/{name}", s.handleGetResource)
	mux.HandleFunc("PUT /resources/{name}", s.handlePutResource)
	mux.HandleFunc("DELETE /resources/{name}", s.handleDeleteResource)
	mux.HandleFunc("POST /resources/{name}/events", s.handleNotifyResource)

	s.handler = s.instrument(mux, events.Middleware(s.registry, events.WithLogger(s.log))(mux))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Registry returns the protocol registry.
func (s *Server) Registry() *events.Registry {
	return s.registry
}

// Store returns the resource store.
func (s *Server) Store() storage.ResourceStore {
	return s.store
}

func (s *Server) registerProtocols() error {
	if s.cfg.SSE != nil {
		if err := s.registry.Register(sse.Protocol, sse.NewFactory()); err != nil {
			return err
		}
	}
	if s.cfg.Webhook != nil {
		f := webhook.NewFactory(
			webhook.WithHTTPClient(s.httpClient),
			webhook.WithLogger(s.log.With("protocol", webhook.Protocol)),
		)
		if err := s.registry.Register(webhook.Protocol, f); err != nil {
			return err
		}
	}
	if s.cfg.WebSocket != nil {
		if err := s.registry.Register(websocket.Protocol, websocket.NewFactory()); err != nil {
			return err
		}
	}
	if s.cfg.MQTT != nil {
		if s.mqttClient == nil {
			s.log.Warn("mqtt configured without a broker client, protocol disabled")
			return nil
		}
		if err := s.registry.Register(mqtt.Protocol, mqtt.NewFactory(s.mqttClient)); err != nil {
			return err
		}
	}
	return nil
}

// eventConfig returns the per-protocol configuration of every enabled protocol.
func (s *Server) eventConfig() events.Config {
	cfg := events.Config{}
	if s.cfg.SSE != nil {
		cfg[sse.Protocol] = *s.cfg.SSE
	}
	if s.cfg.Webhook != nil {
		cfg[webhook.Protocol] = *s.cfg.Webhook
	}
	if s.cfg.WebSocket != nil {
		cfg[websocket.Protocol] = *s.cfg.WebSocket
	}
	if s.cfg.MQTT != nil {
		cfg[mqtt.Protocol] = s.cfg.MQTT.Protocol
	}
	return cfg
}
