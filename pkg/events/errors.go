package events

// Error is a sentinel error type for negotiation errors.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors returned by the registry and the negotiator.
var (
	// ErrNilFactory is returned when registering a nil handler factory.
	ErrNilFactory = Error("events: factory cannot be nil")

	// ErrEmptyProtocol is returned when registering a factory without a protocol identifier.
	ErrEmptyProtocol = Error("events: protocol identifier cannot be empty")

	// ErrInvalidProtocol is returned when a protocol identifier is not a valid
	// structured-field dictionary key.
	ErrInvalidProtocol = Error("events: invalid protocol identifier")

	// ErrProtocolExists is returned when a protocol is registered twice.
	ErrProtocolExists = Error("events: protocol already registered")

	// ErrProtocolNotFound is returned when a protocol is not registered.
	ErrProtocolNotFound = Error("events: protocol not registered")

	// ErrNoProtocolConfigured is returned by SendEvent when no handler could be
	// configured and no configuration failure was reported, e.g. because the
	// event config was empty or named only unregistered protocols.
	ErrNoProtocolConfigured = Error("events: no protocol configured")

	// ErrNoAcceptedProtocol is returned by SendEvent when at least one protocol
	// was configured but none of them was accepted by the client.
	ErrNoAcceptedProtocol = Error("events: no accepted protocol available")

	// ErrNoNegotiator is returned by SendEvent when the request did not pass
	// through the negotiation middleware.
	ErrNoNegotiator = Error("events: negotiation middleware not installed")

	// ErrInvalidHeader is returned when the Accept-Events header is malformed.
	ErrInvalidHeader = Error("events: invalid Accept-Events header")
)
