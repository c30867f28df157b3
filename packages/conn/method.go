package conn

// Request methods a Connection accepts
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodTrace   = "TRACE"
)

var methods = []string{
	MethodGet, MethodPost, MethodHead, MethodOptions, MethodPut, MethodDelete, MethodTrace,
}

// Methods returns the accepted request methods in declaration order
func Methods() []string {
	out := make([]string, len(methods))
	copy(out, methods)
	return out
}

// IsValidMethod reports whether m is one of the accepted methods. Matching is case-sensitive.
func IsValidMethod(m string) bool {
	for _, v := range methods {
		if v == m {
			return true
		}
	}
	return false
}

// allowsBody reports whether a request body is meaningful for m
func allowsBody(m string) bool {
	switch m {
	case MethodPost, MethodPut, MethodDelete, MethodOptions:
		return true
	}
	return false
}
