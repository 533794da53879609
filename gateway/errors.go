package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindRequest is any other non-2xx answer.
	KindRequest Kind = iota
	KindOffline
	KindTimeout
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindRateLimited
	KindServer
)

var kindNames = map[Kind]string{
	KindRequest:      "request",
	KindOffline:      "offline",
	KindTimeout:      "timeout",
	KindNetwork:      "network",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindNotFound:     "not_found",
	KindValidation:   "validation",
	KindRateLimited:  "rate_limited",
	KindServer:       "server",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether the retry policy may repeat a call that failed
// with this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer, KindRateLimited:
		return true
	}
	return false
}

// Error is a classified backend failure. Message is meant for end users.
type Error struct {
	Kind     Kind
	Status   int // HTTP status, 0 when no response was received
	Method   string
	Endpoint string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s %s: %s", e.Method, e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a gateway Error of kind k.
func IsKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}

// ErrQueued is returned by Request when the caller opted into queueing and
// the call was deferred until connectivity returns.
var ErrQueued = errors.New("gateway: queued for submission when back online")

const (
	msgOffline      = "You are offline. Please check your internet connection."
	msgTimeout      = "Request timed out. Please check your internet connection and try again."
	msgNetwork      = "Unable to connect to the server. Please check your internet connection."
	msgUnauthorized = "Your session has expired. Please sign in again."
	msgForbidden    = "You do not have permission to access this resource."
	msgNotFound     = "The requested resource was not found."
	msgValidation   = "Validation failed. Please check your input."
	msgRateLimited  = "Too many requests. Please try again in a few moments."
	msgServer       = "Server error. Please try again later."
)
