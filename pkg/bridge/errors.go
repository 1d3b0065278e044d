package bridge

import "fmt"

// Kind classifies boundary errors so hosts can dispatch on them without
// parsing messages.
type Kind int

const (
	// KindInternal is an unexpected failure inside the bridge or engine.
	KindInternal Kind = iota
	// KindStorage covers data directory creation and store open failures.
	KindStorage
	// KindConnection covers dialing and the sync handshake.
	KindConnection
	// KindNotInitialized: an operation needed the node before InitNode
	// succeeded.
	KindNotInitialized
	// KindAlreadyInitialized: a bring-up step observed an existing node.
	KindAlreadyInitialized
	// KindTimeout: the root-loaded / system-ready wait exceeded the
	// configured bound.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindConnection:
		return "connection"
	case KindNotInitialized:
		return "not_initialized"
	case KindAlreadyInitialized:
		return "already_initialized"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is the typed error surfaced across the boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Kind.String() + ": " + e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors by Kind, so errors.Is(err, &Error{Kind: KindTimeout})
// and the sentinel values below both work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for the message-free kinds.
var (
	ErrNotInitialized     = &Error{Kind: KindNotInitialized, Message: "node not initialized"}
	ErrAlreadyInitialized = &Error{Kind: KindAlreadyInitialized, Message: "node already initialized"}
)

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func storageError(err error, format string, args ...interface{}) *Error {
	return newError(KindStorage, err, format, args...)
}

func connectionError(err error, format string, args ...interface{}) *Error {
	return newError(KindConnection, err, format, args...)
}

func timeoutError(err error, format string, args ...interface{}) *Error {
	return newError(KindTimeout, err, format, args...)
}

func internalError(err error, format string, args ...interface{}) *Error {
	return newError(KindInternal, err, format, args...)
}
