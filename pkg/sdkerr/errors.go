package sdkerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an SDK failure so callers can branch on cause
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindValidation
	KindSigning
	KindOrder
	KindAccount
	KindMarket
	KindAPI
	KindNetwork
)

// Sentinels for errors.Is(err, sdkerr.Validation) style checks.
// An *Error matches the sentinel of its own Kind.
var (
	Configuration = &Error{Kind: KindConfiguration}
	Validation    = &Error{Kind: KindValidation}
	Signing       = &Error{Kind: KindSigning}
	Order         = &Error{Kind: KindOrder}
	Account       = &Error{Kind: KindAccount}
	Market        = &Error{Kind: KindMarket}
	API           = &Error{Kind: KindAPI}
	Network       = &Error{Kind: KindNetwork}
)

// String returns the wire-style error code (e.g. "VALIDATION_ERROR")
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "CONFIGURATION_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindSigning:
		return "SIGNING_ERROR"
	case KindOrder:
		return "ORDER_ERROR"
	case KindAccount:
		return "ACCOUNT_ERROR"
	case KindMarket:
		return "MARKET_ERROR"
	case KindAPI:
		return "API_ERROR"
	case KindNetwork:
		return "NETWORK_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the single error type returned across the SDK.
// Status and Body are only set for KindAPI.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any

	Status int // HTTP status code
	Body   any // decoded response body

	Err error // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == KindAPI && e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind only
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Context == nil && t.Err == nil && t.Kind == e.Kind
}

// New creates an error of the given kind. ctx is redacted before being stored.
func New(kind Kind, msg string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Context: Redact(ctx)}
}

// Newf creates an error with a formatted message and no context
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind + message to an underlying cause
func Wrap(kind Kind, err error, msg string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Context: Redact(ctx), Err: err}
}

// NewAPI builds a KindAPI error from a non-2xx response
func NewAPI(msg string, status int, body any, ctx map[string]any) *Error {
	return &Error{Kind: KindAPI, Message: msg, Status: status, Body: body, Context: Redact(ctx)}
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HasKind reports whether any *Error in err's chain has the given kind
func HasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsAny reports whether err's outermost kind is one of kinds
func IsAny(err error, kinds ...Kind) bool {
	k := KindOf(err)
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// AsAPI returns the first KindAPI error in the chain
func AsAPI(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindAPI {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}
