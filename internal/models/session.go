package models

import "github.com/golang-jwt/jwt/v5"

// SessionUser mirrors the backend's session-check payload.
type SessionUser struct {
	Username      string `json:"username"`
	SecurityLevel int    `json:"security_level"`
}

// SessionContext is the resolved per-request session capability. It is
// decoded once at the edge and threaded explicitly into every component
// that needs it; there is no ambient current-user global.
type SessionContext struct {
	Username      string
	SecurityLevel int
	// CanEdit gates mutating operations at display level only; the real
	// authorization lives in the backend.
	CanEdit bool
	// Credential is the raw token forwarded upstream on every call.
	Credential string
}

// SessionClaims is the JWT payload of the backend-issued session token.
type SessionClaims struct {
	Username      string `json:"username"`
	SecurityLevel int    `json:"security_level"`
	jwt.RegisteredClaims
}
