package conn

import "net/http"

// 1xx: Informational
const (
	StatusContinue           = 100
	StatusSwitchingProtocols = 101
)

// 2xx: Success
const (
	StatusOK               = 200
	StatusCreated          = 201
	StatusAccepted         = 202
	StatusNotAuthoritative = 203
	StatusNoContent        = 204
	StatusReset            = 205
	StatusPartial          = 206
)

// 3xx: Redirection
const (
	StatusMultChoice   = 300
	StatusMovedPerm    = 301
	StatusMovedTemp    = 302
	StatusSeeOther     = 303
	StatusNotModified  = 304
	StatusUseProxy     = 305
	StatusTempRedirect = 307
	StatusPermRedirect = 308
)

// 4xx: Client Error
const (
	StatusBadRequest      = 400
	StatusUnauthorized    = 401
	StatusPaymentRequired = 402
	StatusForbidden       = 403
	StatusNotFound        = 404
	StatusBadMethod       = 405
	StatusNotAcceptable   = 406
	StatusProxyAuth       = 407
	StatusClientTimeout   = 408
	StatusConflict        = 409
	StatusGone            = 410
	StatusLengthRequired  = 411
	StatusPreconFailed    = 412
	StatusEntityTooLarge  = 413
	StatusReqTooLong      = 414
	StatusUnsupportedType = 415
)

// 5xx: Server Error
const (
	StatusInternalError  = 500
	StatusNotImplemented = 501
	StatusBadGateway     = 502
	StatusUnavailable    = 503
	StatusGatewayTimeout = 504
	StatusVersion        = 505

	// Deprecated: use StatusInternalError.
	StatusServerError = StatusInternalError
)

// StatusEntry is one row of the status catalogue
type StatusEntry struct {
	Code       int
	Name       string
	Text       string
	Deprecated bool
}

// Catalogue lists the named status constants in ascending code order.
// The deprecated alias follows its replacement.
var Catalogue = []StatusEntry{
	{Code: StatusContinue, Name: "StatusContinue"},
	{Code: StatusSwitchingProtocols, Name: "StatusSwitchingProtocols"},
	{Code: StatusOK, Name: "StatusOK"},
	{Code: StatusCreated, Name: "StatusCreated"},
	{Code: StatusAccepted, Name: "StatusAccepted"},
	{Code: StatusNotAuthoritative, Name: "StatusNotAuthoritative"},
	{Code: StatusNoContent, Name: "StatusNoContent"},
	{Code: StatusReset, Name: "StatusReset"},
	{Code: StatusPartial, Name: "StatusPartial"},
	{Code: StatusMultChoice, Name: "StatusMultChoice"},
	{Code: StatusMovedPerm, Name: "StatusMovedPerm"},
	{Code: StatusMovedTemp, Name: "StatusMovedTemp"},
	{Code: StatusSeeOther, Name: "StatusSeeOther"},
	{Code: StatusNotModified, Name: "StatusNotModified"},
	{Code: StatusUseProxy, Name: "StatusUseProxy"},
	{Code: StatusTempRedirect, Name: "StatusTempRedirect"},
	{Code: StatusPermRedirect, Name: "StatusPermRedirect"},
	{Code: StatusBadRequest, Name: "StatusBadRequest"},
	{Code: StatusUnauthorized, Name: "StatusUnauthorized"},
	{Code: StatusPaymentRequired, Name: "StatusPaymentRequired"},
	{Code: StatusForbidden, Name: "StatusForbidden"},
	{Code: StatusNotFound, Name: "StatusNotFound"},
	{Code: StatusBadMethod, Name: "StatusBadMethod"},
	{Code: StatusNotAcceptable, Name: "StatusNotAcceptable"},
	{Code: StatusProxyAuth, Name: "StatusProxyAuth"},
	{Code: StatusClientTimeout, Name: "StatusClientTimeout"},
	{Code: StatusConflict, Name: "StatusConflict"},
	{Code: StatusGone, Name: "StatusGone"},
	{Code: StatusLengthRequired, Name: "StatusLengthRequired"},
	{Code: StatusPreconFailed, Name: "StatusPreconFailed"},
	{Code: StatusEntityTooLarge, Name: "StatusEntityTooLarge"},
	{Code: StatusReqTooLong, Name: "StatusReqTooLong"},
	{Code: StatusUnsupportedType, Name: "StatusUnsupportedType"},
	{Code: StatusInternalError, Name: "StatusInternalError"},
	{Code: StatusServerError, Name: "StatusServerError", Deprecated: true},
	{Code: StatusNotImplemented, Name: "StatusNotImplemented"},
	{Code: StatusBadGateway, Name: "StatusBadGateway"},
	{Code: StatusUnavailable, Name: "StatusUnavailable"},
	{Code: StatusGatewayTimeout, Name: "StatusGatewayTimeout"},
	{Code: StatusVersion, Name: "StatusVersion"},
}

func init() {
	for i := range Catalogue {
		Catalogue[i].Text = http.StatusText(Catalogue[i].Code)
	}
}

// LookupStatus returns the non-deprecated catalogue entry for code
func LookupStatus(code int) (StatusEntry, bool) {
	for _, e := range Catalogue {
		if e.Code == code && !e.Deprecated {
			return e, true
		}
	}
	return StatusEntry{}, false
}

// StatusText returns the standard reason phrase for code, or "" if unknown
func StatusText(code int) string {
	return http.StatusText(code)
}

func IsInformational(code int) bool {
	return code >= 100 && code < 200
}

func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

func IsRedirect(code int) bool {
	return code >= 300 && code < 400
}

func IsClientError(code int) bool {
	return code >= 400 && code < 500
}

func IsServerError(code int) bool {
	return code >= 500 && code < 600
}

// IsError reports whether code belongs to the 4xx or 5xx class
func IsError(code int) bool {
	return code >= 400 && code < 600
}
