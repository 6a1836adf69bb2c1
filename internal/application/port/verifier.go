package port

import "errors"

// ErrInvalidToken is returned by Verify for unknown, malformed or expired
// tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks an authentication token presented during the websocket
// handshake. Token issuance belongs to the auth subsystem; this side only
// verifies.
type Verifier interface {
	Verify(token string) (identity string, err error)
}
