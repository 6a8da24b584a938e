package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/binding"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"

	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/getmockd/acceptevents/pkg/logging"
)

// Protocol is the Accept-Events identifier of this handler.
const Protocol = "webhook"

// DefaultEventType is the CloudEvents type used when none is configured.
const DefaultEventType = "com.getmockd.acceptevents.notification"

// ParamTarget is the Accept-Events parameter carrying the callback URL.
const ParamTarget = "target"

// Failure reasons reported in the Events header.
const (
	ReasonInvalidTarget   = "invalid-target"
	ReasonTargetForbidden = "target-forbidden"
)

// Config is the server-side configuration of the webhook protocol.
type Config struct {
	// Source is the CloudEvents source attribute. Required.
	Source string `yaml:"source" json:"source"`

	// Type is the CloudEvents type attribute. Defaults to DefaultEventType.
	Type string `yaml:"type" json:"type,omitempty"`

	// AllowedHosts restricts callback hosts. Empty allows any host that
	// resolves to a public address. A listed host is allowed whatever it
	// resolves to.
	AllowedHosts []string `yaml:"allowedHosts" json:"allowedHosts,omitempty"`

	// AllowPrivateTargets permits loopback, private, link-local and other
	// non-public target addresses for hosts not listed in AllowedHosts.
	AllowPrivateTargets bool `yaml:"allowPrivateTargets" json:"allowPrivateTargets,omitempty"`

	// Structured posts the event in structured content mode.
	Structured bool `yaml:"structured" json:"structured,omitempty"`

	// Timeout bounds a single delivery. Zero means no extra bound.
	Timeout time.Duration `yaml:"timeout" json:"timeout,omitempty"`
}

// Modifiers override Config for a single event.
type Modifiers struct {
	Type    string
	Subject string
}

// Option configures the factory.
type Option func(*factory)

// WithHTTPClient sets the client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(f *factory) {
		if c != nil {
			f.client = c
		}
	}
}

// WithResolver sets the resolver used to check target addresses.
func WithResolver(r *net.Resolver) Option {
	return func(f *factory) {
		if r != nil {
			f.resolver = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *factory) {
		if l != nil {
			f.log = l
		}
	}
}

type factory struct {
	client   *http.Client
	resolver *net.Resolver
	log      *slog.Logger
}

// NewFactory returns the events.Factory registering this protocol.
// One CloudEvents HTTP client is shared by every request.
func NewFactory(opts ...Option) events.Factory {
	f := &factory{
		client:   http.DefaultClient,
		resolver: net.DefaultResolver,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	ce, err := cloudevents.NewClientHTTP(cehttp.WithClient(*f.client))
	if err != nil {
		f.log.Error("failed to create cloudevents client", "error", err)
	}
	return func(_ http.ResponseWriter, r *http.Request) events.Handler {
		return &Handler{
			client:   ce,
			resolver: f.resolver,
			log:      f.log,
			subject:  r.URL.Path,
		}
	}
}

// Handler posts a negotiated event to the client's callback URL.
type Handler struct {
	events.Base
	client   cloudevents.Client
	resolver *net.Resolver
	log      *slog.Logger
	subject  string
	cfg      Config
}

// Configure validates the webhook configuration.
func (h *Handler) Configure(_ context.Context, cfg any) error {
	c, ok := events.DecodeConfig[Config](cfg)
	if !ok {
		return h.Settle(events.InvalidConfig(Protocol, cfg))
	}
	if h.client == nil {
		return h.Settle(status(http.StatusInternalServerError, events.ReasonError, "cloudevents client unavailable"))
	}
	if c.Source == "" {
		return h.Settle(&events.Status{
			Protocol: Protocol,
			Code:     http.StatusBadRequest,
			Reason:   events.ReasonInvalidConfig,
			Detail:   "source is required",
		})
	}
	if c.Type == "" {
		c.Type = DefaultEventType
	}
	h.cfg = c
	return h.Settle(nil)
}

// Send posts the event to the target parameter of the client's entry.
func (h *Handler) Send(ctx context.Context, d events.Delivery) error {
	raw, ok := d.Params.String(ParamTarget)
	if !ok || raw == "" {
		return status(http.StatusBadRequest, events.ReasonMissingParam, "target parameter is required")
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return status(http.StatusBadRequest, ReasonInvalidTarget, "target must be an absolute http(s) URL")
	}

	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	if err := h.checkTarget(ctx, target.Hostname()); err != nil {
		return err
	}

	event, err := h.buildEvent(d)
	if err != nil {
		return status(http.StatusInternalServerError, events.ReasonError, err.Error())
	}

	if h.cfg.Structured {
		ctx = binding.WithForceStructured(ctx)
	}
	ctx = cloudevents.ContextWithTarget(ctx, target.String())

	res := h.client.Send(ctx, event)
	if cloudevents.IsACK(res) {
		return nil
	}
	h.log.Debug("webhook delivery failed", "target", target.Host, "result", res)

	var httpResult *cehttp.Result
	if !cloudevents.IsUndelivered(res) && cloudevents.ResultAs(res, &httpResult) {
		return status(http.StatusBadGateway, events.ReasonFailed, fmt.Sprintf("target responded %d", httpResult.StatusCode))
	}
	return status(http.StatusBadGateway, events.ReasonFailed, res.Error())
}

func (h *Handler) buildEvent(d events.Delivery) (cloudevents.Event, error) {
	mods, _ := events.DecodeConfig[Modifiers](d.Modifiers)

	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(h.cfg.Source)
	e.SetType(h.cfg.Type)
	e.SetTime(time.Now())
	e.SetSubject(h.subject)
	if mods.Type != "" {
		e.SetType(mods.Type)
	}
	if mods.Subject != "" {
		e.SetSubject(mods.Subject)
	}

	if d.Body == nil {
		return e, nil
	}
	data, err := io.ReadAll(d.Body)
	if err != nil {
		return e, fmt.Errorf("failed to read event body: %w", err)
	}

	ct := d.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := e.SetData(ct, data); err != nil {
		return e, fmt.Errorf("set data: %w", err)
	}
	return e, nil
}

// checkTarget enforces AllowedHosts and refuses hosts that resolve to a
// non-public address unless they are listed or private targets are allowed.
func (h *Handler) checkTarget(ctx context.Context, host string) error {
	for _, allowed := range h.cfg.AllowedHosts {
		if strings.EqualFold(allowed, host) {
			return nil
		}
	}
	if len(h.cfg.AllowedHosts) > 0 {
		return status(http.StatusForbidden, ReasonTargetForbidden, host)
	}
	if h.cfg.AllowPrivateTargets {
		return nil
	}

	var addrs []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{ip}
	} else {
		ips, err := h.resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return status(http.StatusBadGateway, events.ReasonFailed, err.Error())
		}
		addrs = ips
	}
	for _, ip := range addrs {
		if !IsPublicAddr(ip) {
			return status(http.StatusForbidden, ReasonTargetForbidden, host+" resolves to a non-public address")
		}
	}
	return nil
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPublicAddr reports whether ip is a globally routable unicast address.
func IsPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

func status(code int, reason, detail string) *events.Status {
	return &events.Status{Protocol: Protocol, Code: code, Reason: reason, Detail: detail}
}
