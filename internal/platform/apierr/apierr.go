package apierr

import "net/http"

// Error is a failure whose HTTP status the handler already knows, such as a
// malformed body, so the service error mapping is skipped.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case http.StatusText(e.Status) != "":
		return http.StatusText(e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// InvalidRequest is the 400 for bodies and params that fail to bind.
func InvalidRequest(err error) *Error {
	return New(http.StatusBadRequest, "invalid_request", err)
}
