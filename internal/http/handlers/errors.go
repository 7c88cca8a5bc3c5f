// Package handlers: transport-level failures.
//
// Most failures come from the service layer already typed. The ones defined
// here belong to HTTP itself: undecodable or oversized bodies, unknown routes
// and unsupported methods.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-posts-backend/internal/domain"
	"github.com/tbourn/go-posts-backend/internal/http/middleware"
)

// Messages for transport failures.
const (
	MsgInvalidJSON      = "JSON inválido"
	MsgBodyTooLarge     = "Corpo da requisição muito grande"
	MsgRouteNotFound    = "Rota não encontrada"
	MsgMethodNotAllowed = "Método não permitido"
)

// bindError maps a JSON binding failure to the error reported to the client.
// An empty body is not a failure: it decodes to an input with every field
// absent and validation reports what is missing.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return middleware.NewStatusError(http.StatusRequestEntityTooLarge, MsgBodyTooLarge, err)
	default:
		return domain.NewValidation(MsgInvalidJSON)
	}
}

// NoRoute reports unknown paths as a 404 envelope.
func NoRoute(c *gin.Context) {
	Abort(c, domain.NewNotFound(MsgRouteNotFound))
}

// NoMethod reports a known path with an unsupported method as a 405 envelope.
func NoMethod(c *gin.Context) {
	Abort(c, middleware.NewStatusError(http.StatusMethodNotAllowed, MsgMethodNotAllowed, nil))
}
