package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAbort_RecordsErrorWithoutWriting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var recorded []*gin.Error
	nextRan := false
	r.Use(func(c *gin.Context) {
		c.Next()
		recorded = c.Errors
	})
	r.GET("/x", func(c *gin.Context) { Abort(c, errors.New("boom")) }, func(c *gin.Context) { nextRan = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if nextRan {
		t.Fatalf("Abort must stop the chain")
	}
	if len(recorded) != 1 || recorded[0].Err.Error() != "boom" {
		t.Fatalf("expected one recorded error, got %v", recorded)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("Abort must not write a body, got %q", w.Body.String())
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"a": 1}) })
	r.GET("/nc", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"a":1}` {
		t.Fatalf("ok: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nc", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}
