// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for post creation. The
// middleware validates the header, stashes the key for the handler and, when
// a lookup is supplied, marks requests that would replay a completed create.
// Serving the stored result is left to the handler.
package middleware

import (
	"context"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// MsgInvalidIdempotencyKey is reported when the header fails validation.
const MsgInvalidIdempotencyKey = "Idempotency-Key inválido"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a live record exists for the key
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a live record for this key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 128, the
	// width of the stored column.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a live record exists for key at now.
// TTL is enforced by the implementation. Lookup errors never block the
// request; the handler simply proceeds as for a fresh key.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (exists bool, err error)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyValidator validates the Idempotency-Key header when present.
//
//   - header absent: no-op.
//   - header invalid: records a validation error and aborts; ErrorHandler
//     writes the 400 envelope.
//   - lookup finds a live record: the request is marked as a replay.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			_ = c.Error(domain.NewValidation(MsgInvalidIdempotencyKey))
			c.Abort()
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, err := lookup(c.Request.Context(), key, time.Now().UTC()); err == nil && exists {
				c.Set(ctxKeyIdemReplay, true)
			}
		}

		c.Next()
	}
}
