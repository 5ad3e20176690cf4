package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means a price, window or indicator is missing for this bar.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrOrderRejected means the execution engine declined a buy or sell.
	ErrOrderRejected = errors.New("order rejected")

	// ErrPersistence means an audit record could not be written.
	ErrPersistence = errors.New("persistence failure")

	// ErrConfiguration means the run must not start.
	ErrConfiguration = errors.New("configuration error")
)

// Error carries the failure kind plus the symbol it concerns.
type Error struct {
	Kind    error // one of the sentinels above
	Symbol  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := e.Kind.Error()
	if e.Symbol != "" {
		prefix = fmt.Sprintf("%s for %s", prefix, e.Symbol)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Is matches the sentinel kind so callers can use errors.Is.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func DataUnavailable(symbol, message string) *Error {
	return &Error{Kind: ErrDataUnavailable, Symbol: symbol, Message: message}
}

func OrderRejected(symbol, message string) *Error {
	return &Error{Kind: ErrOrderRejected, Symbol: symbol, Message: message}
}

func PersistenceFailure(message string, cause error) *Error {
	return &Error{Kind: ErrPersistence, Message: message, Cause: cause}
}

func ConfigurationError(message string) *Error {
	return &Error{Kind: ErrConfiguration, Message: message}
}
