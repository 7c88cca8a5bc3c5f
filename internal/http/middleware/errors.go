// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the terminal error handler. Handlers never write error
// bodies themselves: they record the failure with c.Error(err) and abort, and
// ErrorHandler turns the last recorded error into a status code and a JSON
// envelope once the chain unwinds.
//
// Classification order (first match wins):
//  1. *domain.AppError          -> its own status (400/401/403/404)
//  2. unique violation          -> 409
//  3. foreign-key violation     -> 400
//  4. not-null violation        -> 400
//  5. storage unreachable       -> 503
//  6. anything else             -> StatusCode() if implemented, else 500
//
// Example response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "status": "fail",
//	  "message": "Campos obrigatórios não preenchidos",
//	  "errors": ["Título é obrigatório"],
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-posts-backend/internal/config"
	"github.com/tbourn/go-posts-backend/internal/domain"
	"github.com/tbourn/go-posts-backend/internal/repo"
)

// Messages for storage and unclassified failures.
const (
	MsgConflict    = "Conflito: recurso já existe"
	MsgReference   = "Erro de referência: recurso relacionado não existe"
	MsgNotNull     = "Campos obrigatórios não preenchidos"
	MsgUnavailable = "Serviço temporariamente indisponível"
	MsgInternal    = "Erro interno do servidor"
)

// ErrorResponse is the envelope returned for every failed request.
type ErrorResponse struct {
	// "fail" for client errors (4xx), "error" otherwise
	Status string `json:"status" example:"fail"`
	// Human-readable message
	Message string `json:"message" example:"Post não encontrado"`
	// Per-field validation messages, in the order they were checked.
	// Present (possibly empty) on every validation failure, absent otherwise.
	Errors []string `json:"errors,omitempty"`
	// Stack trace, development mode only
	Stack string `json:"stack,omitempty"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// MarshalJSON keeps an empty but non-nil Errors as "errors": [], so a
// validation failure without field messages still carries the key.
func (r ErrorResponse) MarshalJSON() ([]byte, error) {
	type envelope ErrorResponse
	if r.Errors == nil {
		return json.Marshal(envelope(r))
	}
	return json.Marshal(struct {
		envelope
		Errors []string `json:"errors"`
	}{envelope(r), r.Errors})
}

// StatusError is a transport-level failure carrying its own HTTP status.
// The error handler honours it through the StatusCode method. Msg is safe to
// show to clients in production; the wrapped Err is not.
type StatusError struct {
	Code int
	Msg  string
	Err  error
}

// NewStatusError builds a StatusError wrapping err (which may be nil).
func NewStatusError(code int, msg string, err error) *StatusError {
	return &StatusError{Code: code, Msg: msg, Err: err}
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// StatusCode returns the HTTP status to respond with.
func (e *StatusError) StatusCode() int { return e.Code }

func (e *StatusError) Unwrap() error { return e.Err }

// ErrorOptions configures ErrorHandler and Recovery.
type ErrorOptions struct {
	// Mode decides how much detail reaches the client. Production hides raw
	// messages of unclassified errors; development adds stack traces.
	Mode config.Mode
	// Logger receives one record per handled failure. When nil the
	// request-scoped logger from LoggerFrom is used.
	Logger *zerolog.Logger
}

// failure is the outcome of classifying an error.
type failure struct {
	status int
	class  string
	body   ErrorResponse
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

type statusCoder interface {
	StatusCode() int
}

// ErrorHandler returns the terminal error-handling middleware. Install it once,
// early in the chain, so it observes errors recorded by everything after it.
func ErrorHandler(opts ErrorOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		// Someone already answered; never write twice.
		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		f := opts.classify(err)

		ev := opts.logger(c).Error().
			Str("error", err.Error()).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("ip", c.ClientIP()).
			Int("status", f.status).
			Str("class", f.class)
		if f.body.Stack != "" {
			ev = ev.Str("stack", f.body.Stack)
		}
		ev.Msg("request failed")

		f.body.RequestID = requestIDFrom(c)
		observeError(f.status, f.class)
		c.AbortWithStatusJSON(f.status, f.body)
	}
}

func (o ErrorOptions) logger(c *gin.Context) *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return LoggerFrom(c)
}

// classify maps err to a status, a metrics class and a response body.
func (o ErrorOptions) classify(err error) failure {
	var f failure

	if ae, ok := domain.AsAppError(err); ok {
		f.status = ae.Status()
		f.class = ae.Kind().String()
		f.body = ErrorResponse{
			Status:  domain.StatusLabel(f.status),
			Message: ae.Message(),
			Errors:  ae.Errors(),
		}
	} else {
		switch cls := repo.Classify(err); cls {
		case repo.ClassUnique:
			f = storageFailure(http.StatusConflict, cls, MsgConflict)
		case repo.ClassForeignKey:
			f = storageFailure(http.StatusBadRequest, cls, MsgReference)
		case repo.ClassNotNull:
			f = storageFailure(http.StatusBadRequest, cls, MsgNotNull)
		case repo.ClassUnavailable:
			f = storageFailure(http.StatusServiceUnavailable, cls, MsgUnavailable)
		default:
			f.status = http.StatusInternalServerError
			f.class = "unclassified"
			var sc statusCoder
			if errors.As(err, &sc) && sc.StatusCode() >= 400 {
				f.status = sc.StatusCode()
			}
			msg := err.Error()
			if o.Mode.IsProduction() {
				msg = MsgInternal
				var se *StatusError
				if errors.As(err, &se) && se.Msg != "" {
					msg = se.Msg
				}
			}
			f.body = ErrorResponse{Status: domain.StatusLabel(f.status), Message: msg}
		}
	}

	if o.Mode.IsDevelopment() {
		f.body.Stack = stackOf(err)
	}
	return f
}

func storageFailure(status int, cls repo.Class, msg string) failure {
	return failure{
		status: status,
		class:  cls.String(),
		body:   ErrorResponse{Status: domain.StatusLabel(status), Message: msg},
	}
}

// stackOf renders the outermost recorded stack trace, or the bare message
// when the error carries none.
func stackOf(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return err.Error() + fmt.Sprintf("%+v", st.StackTrace())
	}
	return err.Error()
}
