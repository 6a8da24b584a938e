package websocket

// Failure reasons reported in the Events header.
const (
	// ReasonUpgradeRequired means the request is not a WebSocket handshake.
	ReasonUpgradeRequired = "upgrade-required"
	// ReasonBadHandshake means the handshake headers are malformed.
	ReasonBadHandshake = "bad-handshake"
	// ReasonOriginForbidden means the Origin header is not allowed.
	ReasonOriginForbidden = "origin-forbidden"
	// ReasonHandshakeFailed means the upgrade was rejected while accepting.
	ReasonHandshakeFailed = "handshake-failed"
	// ReasonWriteFailed means the message could not be written.
	ReasonWriteFailed = "write-failed"
)
