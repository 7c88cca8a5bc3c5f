// Post HTTP handlers.
//
// This file exposes REST endpoints for the post resource:
//   - POST   /posts             (create, Idempotency-Key aware)
//   - GET    /posts             (list, newest first)
//   - GET    /posts/search      (substring search over title, content, author)
//   - GET    /posts/{id}        (fetch)
//   - PUT    /posts/{id}        (partial update)
//   - DELETE /posts/{id}        (delete)
//
// Handlers are transport-thin: they decode input, delegate to the
// PostService and write success bodies. Every failure goes through Abort.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous create
// with that key is still live, the handler returns the originally created
// post and sets `Idempotency-Replayed: true` instead of inserting again.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-posts-backend/internal/domain"
	"github.com/tbourn/go-posts-backend/internal/http/middleware"
	"github.com/tbourn/go-posts-backend/internal/services"
)

// Confirmation messages.
const (
	MsgPostCreated = "Post criado com sucesso"
	MsgPostUpdated = "Post atualizado com sucesso"
)

// HeaderIdempotencyReplayed marks a create answered from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

//
// Service contracts (context-aware)
//

// PostService defines the post operations consumed by HTTP handlers.
//
// Implementations report client mistakes as *domain.AppError and must honor
// the provided context for cancellation and timeouts.
type PostService interface {
	// List returns every post, newest first.
	List(ctx context.Context) ([]domain.Post, error)
	// GetByID validates the raw id and fetches the post.
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// Create validates all required fields and persists a new post.
	Create(ctx context.Context, in services.PostInput) (*domain.Post, error)
	// Update merges the present fields into the stored post.
	Update(ctx context.Context, id string, in services.PostInput) (*domain.Post, error)
	// Delete removes the post.
	Delete(ctx context.Context, id string) error
	// Search matches query against title, content and author.
	Search(ctx context.Context, query string) ([]domain.Post, error)
}

// IdempotencyStore remembers which post a given Idempotency-Key created.
type IdempotencyStore interface {
	// Lookup returns the post created under key, if the record is still live.
	Lookup(ctx context.Context, key string, now time.Time) (postID int64, found bool, err error)
	// Remember records that key created postID with the given status.
	Remember(ctx context.Context, key string, postID int64, status int) error
}

//
// Handler wiring
//

// Handlers groups the post endpoints.
type Handlers struct {
	postSvc PostService
	idem    IdempotencyStore
}

// New constructs Handlers bound to the given service. idem may be nil, in
// which case Idempotency-Key headers are validated but never replayed.
func New(postSvc PostService, idem IdempotencyStore) *Handlers {
	return &Handlers{postSvc: postSvc, idem: idem}
}

// bindPostInput decodes the JSON body into a PostInput.
func bindPostInput(c *gin.Context) (services.PostInput, error) {
	var in services.PostInput
	err := bindError(c.ShouldBindJSON(&in))
	return in, err
}

//
// Handlers
//

// CreatePost godoc
// @ID          createPost
// @Summary     Create a post
// @Description Creates a post. title, content and author are all required; every
// @Description missing field is reported at once in `errors`.
// @Description Supports idempotency via the Idempotency-Key header (same key → same post).
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string               false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    services.PostInput   true  "Post payload"
//
// @Success     201  {object}  handlers.MessageResponse    "Created post"
// @Failure     400  {object}  middleware.ErrorResponse    "Validation failed"
// @Failure     413  {object}  middleware.ErrorResponse    "Body too large"
// @Failure     500  {object}  middleware.ErrorResponse    "Internal error"
// @Failure     503  {object}  middleware.ErrorResponse    "Storage unavailable"
// @Router      /posts [post]
func (h *Handlers) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	in, err := bindPostInput(c)
	if err != nil {
		Abort(c, err)
		return
	}

	// Idempotency (replay path).
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.idem != nil && middleware.IsReplay(c) {
		if postID, found, err := h.idem.Lookup(ctx, idemKey, time.Now().UTC()); err == nil && found {
			prev, err := h.postSvc.GetByID(ctx, strconv.FormatInt(postID, 10))
			if err != nil {
				Abort(c, err)
				return
			}
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusCreated, MessageResponse{Message: MsgPostCreated, Post: prev})
			return
		}
	}

	p, err := h.postSvc.Create(ctx, in)
	if err != nil {
		Abort(c, err)
		return
	}

	// Idempotency (store path), best effort.
	if hasKey && h.idem != nil {
		if err := h.idem.Remember(ctx, idemKey, p.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Int64("post_id", p.ID).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, MessageResponse{Message: MsgPostCreated, Post: p})
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List posts
// @Description Returns every post, newest first. An empty collection is reported as 404.
// @Tags        Posts
// @Produce     json
//
// @Success     200  {array}   domain.Post
// @Failure     404  {object}  middleware.ErrorResponse "No posts"
// @Failure     500  {object}  middleware.ErrorResponse "Internal error"
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	posts, err := h.postSvc.List(c.Request.Context())
	if err != nil {
		Abort(c, err)
		return
	}
	if len(posts) == 0 {
		Abort(c, domain.NewNotFound(services.MsgPostsNotFound))
		return
	}
	ok(c, http.StatusOK, posts)
}

// SearchPosts godoc
// @ID          searchPosts
// @Summary     Search posts
// @Description Case-insensitive substring match against title, content and author.
// @Description Zero matches is a 200 with an empty array.
// @Tags        Posts
// @Produce     json
//
// @Param       q      query  string  false "Search text"
// @Param       query  query  string  false "Alias of q, used when q is absent"
//
// @Success     200  {array}   domain.Post
// @Failure     400  {object}  middleware.ErrorResponse "Query missing"
// @Failure     500  {object}  middleware.ErrorResponse "Internal error"
// @Router      /posts/search [get]
func (h *Handlers) SearchPosts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		q = c.Query("query")
	}

	posts, err := h.postSvc.Search(c.Request.Context(), q)
	if err != nil {
		Abort(c, err)
		return
	}
	ok(c, http.StatusOK, posts)
}

// GetPost godoc
// @ID          getPost
// @Summary     Get a post
// @Tags        Posts
// @Produce     json
//
// @Param       id  path  int  true  "Post ID"  minimum(1)
//
// @Success     200  {object}  domain.Post
// @Failure     400  {object}  middleware.ErrorResponse "Invalid id"
// @Failure     404  {object}  middleware.ErrorResponse "Post not found"
// @Failure     500  {object}  middleware.ErrorResponse "Internal error"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	p, err := h.postSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Abort(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdatePost godoc
// @ID          updatePost
// @Summary     Update a post
// @Description Fields present in the body replace the stored values, including
// @Description empty strings. Absent fields keep their current value.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                 true  "Post ID"  minimum(1)
// @Param       body  body  services.PostInput  true  "Fields to change"
//
// @Success     200  {object}  handlers.MessageResponse "Updated post"
// @Failure     400  {object}  middleware.ErrorResponse "Invalid id or body"
// @Failure     404  {object}  middleware.ErrorResponse "Post not found"
// @Failure     500  {object}  middleware.ErrorResponse "Internal error"
// @Router      /posts/{id} [put]
func (h *Handlers) UpdatePost(c *gin.Context) {
	in, err := bindPostInput(c)
	if err != nil {
		Abort(c, err)
		return
	}

	p, err := h.postSvc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		Abort(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: MsgPostUpdated, Post: p})
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete a post
// @Tags        Posts
//
// @Param       id  path  int  true  "Post ID"  minimum(1)
//
// @Success     204  "Deleted"
// @Failure     400  {object}  middleware.ErrorResponse "Invalid id"
// @Failure     404  {object}  middleware.ErrorResponse "Post not found"
// @Failure     500  {object}  middleware.ErrorResponse "Internal error"
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	if err := h.postSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Abort(c, err)
		return
	}
	noContent(c)
}
