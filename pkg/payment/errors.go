package payment

import "errors"

var (
	// ErrConfiguration means credentials are missing or the provider rejected them.
	ErrConfiguration = errors.New("gateway not configured")
	// ErrUnsupportedGateway means the caller passed an unknown gateway id.
	ErrUnsupportedGateway = errors.New("unsupported gateway")
	// ErrUnsupportedCapability means the provider has no native support for the
	// requested operation (e.g. recurring billing on a one-off-only provider).
	ErrUnsupportedCapability = errors.New("capability not supported by gateway")
	// ErrNotFound means the provider reported the referenced id as unknown.
	ErrNotFound = errors.New("not found at gateway")
	// ErrTransport covers network failures, timeouts and unexpected provider
	// responses. Callers may retry; no local state is persisted.
	ErrTransport = errors.New("gateway request failed")
	// ErrSignature means a webhook payload failed authenticity verification.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrInvalidAmount means the requested amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
)
