package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a 2xx body can't be decoded into the expected shape.
var ErrMalformedResponse = errors.New("malformed backend response")

// ServerError is a non-2xx response. Message comes from the {"error": ...} body when present.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure: the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the backend couldn't serve the call:
// it was unreachable or answered with a 5xx. Client errors such as 404 are answers.
func IsUnavailable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var srvErr *ServerError
	return errors.As(err, &srvErr) && srvErr.Status >= http.StatusInternalServerError
}
