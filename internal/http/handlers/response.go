// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Success
// bodies are written directly; failures are never written here. A handler
// records the failure with Abort and the middleware.ErrorHandler turns it into
// the standard envelope once the chain unwinds, so every error response has
// the same shape.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "status": "fail",
//	  "message": "Post não encontrado",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "message": "Post criado com sucesso", "post": { "id": 1, ... } }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

// MessageResponse pairs a confirmation message with the affected post.
type MessageResponse struct {
	Message string       `json:"message" example:"Post criado com sucesso"`
	Post    *domain.Post `json:"post"`
}

// Abort records err for the error handler and stops the chain.
//
// External packages (e.g., router fallbacks) use it to report failures
// without writing a body themselves.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
