package events

import (
	"context"
	"net/http"
)

type negotiatorKey struct{}

// Middleware installs event negotiation on every request.
//
// It parses the Accept-Events header, builds the request's handlers from reg
// and stores a Negotiator in the request context. It always calls next; a
// malformed header is logged and treated as an empty accepted list.
func Middleware(reg *Registry, opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accepted, err := ParseAcceptEvents(r.Header)

			n := NewNegotiator(w, r, accepted, reg.Handlers(w, r), opts...)
			if err != nil {
				n.log.Debug("ignoring accept-events header", "path", n.path, "error", err)
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), n)))
		})
	}
}

// NewContext returns a copy of ctx carrying n.
func NewContext(ctx context.Context, n *Negotiator) context.Context {
	return context.WithValue(ctx, negotiatorKey{}, n)
}

// FromContext returns the Negotiator stored in ctx, or nil.
func FromContext(ctx context.Context) *Negotiator {
	n, _ := ctx.Value(negotiatorKey{}).(*Negotiator)
	return n
}

// AcceptedFromContext returns the accepted protocols of the request that ctx belongs to.
func AcceptedFromContext(ctx context.Context) []AcceptedProtocol {
	if n := FromContext(ctx); n != nil {
		return n.Accepted()
	}
	return nil
}

// SendEvent sends ev through the Negotiator installed on r by Middleware.
func SendEvent(r *http.Request, ev Event) error {
	n := FromContext(r.Context())
	if n == nil {
		return ErrNoNegotiator
	}
	return n.SendEvent(r.Context(), ev)
}
