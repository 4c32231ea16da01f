package api

import (
	stdErrors "errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpool/internal/errors"
)

// ErrorType classifies pool failures for clients that need more than the HTTP status.
type ErrorType string

// HeaderErrorType is the HTTP header key which should be used to convey API error types.
const HeaderErrorType = "Mcpool-Error-Type"

const (
	ErrorTypeInvalidURL        ErrorType = "invalid-url"
	ErrorTypeCapacity          ErrorType = "capacity-exceeded"
	ErrorTypePoolClosed        ErrorType = "pool-closed"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeDNS               ErrorType = "dns"
	ErrorTypeConnectionRefused ErrorType = "connection-refused"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeUpstream          ErrorType = "upstream"
	ErrorTypeConnectFailed     ErrorType = "connect-failed"
	ErrorTypeUnknown           ErrorType = ""
)

// errorTypes is checked in order; the most specific cause wins.
var errorTypes = []struct {
	err error
	typ ErrorType
}{
	{errors.ErrInvalidServerURL, ErrorTypeInvalidURL},
	{errors.ErrCapacityExceeded, ErrorTypeCapacity},
	{errors.ErrPoolClosed, ErrorTypePoolClosed},
	{errors.ErrTimeout, ErrorTypeTimeout},
	{errors.ErrDNS, ErrorTypeDNS},
	{errors.ErrConnectionRefused, ErrorTypeConnectionRefused},
	{errors.ErrNetwork, ErrorTypeNetwork},
	{errors.ErrUpstream, ErrorTypeUpstream},
	{errors.ErrConnectFailed, ErrorTypeConnectFailed},
}

// ErrorTypeOf returns the pool failure category carried by err, or ErrorTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	for _, et := range errorTypes {
		if stdErrors.Is(err, et.err) {
			return et.typ
		}
	}

	return ErrorTypeUnknown
}

// withErrorType attaches the HeaderErrorType header to pool failures.
// Errors without a known type are returned unchanged.
func withErrorType(err error) error {
	typ := ErrorTypeOf(err)
	if typ == ErrorTypeUnknown {
		return err
	}

	return huma.ErrorWithHeaders(err, http.Header{HeaderErrorType: []string{string(typ)}})
}
