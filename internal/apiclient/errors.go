package apiclient

// The API Client's error set is closed (§4.2): NotFoundError, Unauthorized,
// ServerError, NetworkError, Timeout, Conflict. Each is its own type rather
// than a shared struct with an error-code field, so a type switch in the
// Sync Worker's disposition table (§4.4) can dispatch on it directly.

// NotFoundError means the server doesn't recognize the scanned badge.
type NotFoundError struct{ Message string }

func (e NotFoundError) Error() string { return "not found: " + e.Message }

// Unauthorized means the terminal's credentials were rejected.
type Unauthorized struct{}

func (Unauthorized) Error() string { return "unauthorized" }

// ServerError wraps a non-2xx response the client doesn't otherwise classify,
// or a 2xx response whose body failed to parse.
type ServerError struct{ Message string }

func (e ServerError) Error() string { return "server error: " + e.Message }

// NetworkError means the request never reached the server, or the transport
// failed for a reason other than a timeout.
type NetworkError struct{ Message string }

func (e NetworkError) Error() string { return "network error: " + e.Message }

// Timeout means no response arrived before the per-attempt deadline.
type Timeout struct{}

func (Timeout) Error() string { return "request timed out" }

// Conflict means another terminal already recorded this employee's toggle.
type Conflict struct{}

func (Conflict) Error() string { return "conflict" }
