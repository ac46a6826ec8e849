// Package common contains shared constants and sentinel errors used across
// docvault components.
package common

// AuthorizationHeaderName is the gRPC metadata key used to carry the
// session or MFA-pending token ("Bearer <jwt>").
const AuthorizationHeaderName = "authorization"

// ForwardedForHeaderName carries the original client address when the
// server runs behind a proxy.
const ForwardedForHeaderName = "x-forwarded-for"

// UserAgentHeaderName carries the caller's agent string.
const UserAgentHeaderName = "user-agent"
