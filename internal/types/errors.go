package types

import "errors"

// Sentinel errors shared by the repositories, services and handlers.
// Callers match them with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidSession        = errors.New("invalid or expired session")
	ErrProviderNotConfigured = errors.New("identity provider not configured")
	ErrExchangeFailed        = errors.New("authorization code exchange failed")
	ErrInvalidProviderToken  = errors.New("invalid provider token")
	ErrAccountLinkRefused    = errors.New("account exists and cannot be linked to this provider identity")

	ErrNotFound     = errors.New("requested item not found")
	ErrDuplicateKey = errors.New("unique constraint violated")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrRateLimited  = errors.New("too many requests")

	// ErrInvalidToken is returned by the token codec. The service never
	// surfaces it directly; refresh and verify collapse it into ErrInvalidSession.
	ErrInvalidToken = errors.New("invalid token")
)

// ErrorKind is the closed set of failure categories a caller can observe.
type ErrorKind string

const (
	KindDuplicateEmail        ErrorKind = "duplicate_email"
	KindInvalidCredentials    ErrorKind = "invalid_credentials"
	KindInvalidSession        ErrorKind = "invalid_session"
	KindProviderNotConfigured ErrorKind = "provider_not_configured"
	KindExchangeFailed        ErrorKind = "exchange_failed"
	KindInvalidProviderToken  ErrorKind = "invalid_provider_token"
	KindAccountLinkRefused    ErrorKind = "account_link_refused"
	KindNotFound              ErrorKind = "not_found"
	KindInvalidInput          ErrorKind = "invalid_input"
	KindForbidden             ErrorKind = "forbidden"
	KindRateLimited           ErrorKind = "rate_limited"
	KindInternal              ErrorKind = "internal"
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrDuplicateEmail, KindDuplicateEmail},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrInvalidSession, KindInvalidSession},
	{ErrInvalidToken, KindInvalidSession},
	{ErrProviderNotConfigured, KindProviderNotConfigured},
	{ErrExchangeFailed, KindExchangeFailed},
	{ErrInvalidProviderToken, KindInvalidProviderToken},
	{ErrAccountLinkRefused, KindAccountLinkRefused},
	{ErrNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrForbidden, KindForbidden},
	{ErrRateLimited, KindRateLimited},
}

// KindOf classifies err. Anything not wrapping a known sentinel is KindInternal.
func KindOf(err error) ErrorKind {
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}
