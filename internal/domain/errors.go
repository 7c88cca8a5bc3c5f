package domain

import (
	stderrors "errors"
	"net/http"

	"github.com/pkg/errors"
)

// Kind discriminates the client-facing failures the service raises on
// purpose. Anything that is not an *AppError is unclassified.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindForbidden
)

// Default messages used when a constructor receives an empty message.
const (
	MsgValidation   = "Dados inválidos"
	MsgNotFound     = "Recurso não encontrado"
	MsgUnauthorized = "Não autorizado"
	MsgForbidden    = "Acesso negado"
)

// String returns a stable lowercase name, used as a metrics label.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an intentional, client-facing failure. Values are immutable
// and can only be built through the New* constructors, so the status is
// always the one implied by the kind.
type AppError struct {
	kind    Kind
	message string
	fields  []string
	origin  error // carries the stack captured at construction
}

func newAppError(kind Kind, message, def string, fields []string) *AppError {
	if message == "" {
		message = def
	}
	var fs []string
	if len(fields) > 0 {
		fs = append([]string(nil), fields...)
	}
	return &AppError{
		kind:    kind,
		message: message,
		fields:  fs,
		origin:  errors.New(message),
	}
}

// NewValidation builds a 400 error. fieldErrors keep the order given.
func NewValidation(message string, fieldErrors ...string) *AppError {
	return newAppError(KindValidation, message, MsgValidation, fieldErrors)
}

// NewNotFound builds a 404 error.
func NewNotFound(message string) *AppError {
	return newAppError(KindNotFound, message, MsgNotFound, nil)
}

// NewUnauthorized builds a 401 error.
func NewUnauthorized(message string) *AppError {
	return newAppError(KindUnauthorized, message, MsgUnauthorized, nil)
}

// NewForbidden builds a 403 error.
func NewForbidden(message string) *AppError {
	return newAppError(KindForbidden, message, MsgForbidden, nil)
}

func (e *AppError) Error() string { return e.message }

// Kind returns the error discriminator.
func (e *AppError) Kind() Kind { return e.kind }

// Message returns the human-readable message.
func (e *AppError) Message() string { return e.message }

// Status returns the HTTP status implied by the kind.
func (e *AppError) Status() int { return e.kind.Status() }

// Errors returns a copy of the per-field messages. Only validation errors
// carry them; the result is nil for every other kind.
func (e *AppError) Errors() []string {
	if e.kind != KindValidation {
		return nil
	}
	if e.fields == nil {
		return []string{}
	}
	return append([]string(nil), e.fields...)
}

// StackTrace exposes the frames recorded when the error was constructed.
func (e *AppError) StackTrace() errors.StackTrace {
	if st, ok := e.origin.(interface{ StackTrace() errors.StackTrace }); ok {
		return st.StackTrace()
	}
	return nil
}

// AsAppError unwraps err to an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err wraps an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := AsAppError(err)
	return ok && ae.kind == kind
}

// StatusLabel returns "fail" for 4xx statuses and "error" for anything else.
func StatusLabel(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}
