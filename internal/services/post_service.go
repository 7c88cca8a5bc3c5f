// Package services – PostService
//
// This file implements the PostService, the validation and business-rule
// layer in front of the post repository. Client mistakes are reported as
// *domain.AppError values; storage failures are wrapped with a short
// context message and returned untouched otherwise, so the HTTP error
// handler can still classify the driver error underneath.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

// PostRepo defines the repository contract required by PostService.
type PostRepo interface {
	// CreatePost inserts a new post.
	CreatePost(ctx context.Context, db *gorm.DB, title, content, author string) (*domain.Post, error)

	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context, db *gorm.DB) ([]domain.Post, error)

	// GetPost fetches a post by id.
	GetPost(ctx context.Context, db *gorm.DB, id int64) (*domain.Post, error)

	// UpdatePost persists all mutable columns of p.
	UpdatePost(ctx context.Context, db *gorm.DB, p *domain.Post) (*domain.Post, error)

	// DeletePost removes a post by id.
	DeletePost(ctx context.Context, db *gorm.DB, id int64) error

	// SearchPosts matches q against title, content and author.
	SearchPosts(ctx context.Context, db *gorm.DB, q string) ([]domain.Post, error)
}

// PostInput carries the fields of a create or update request. A nil field
// was absent from the request; a non-nil field was present, even if empty.
type PostInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Author  *string `json:"author,omitempty"`
}

// PostService validates requests and coordinates repository calls.
type PostService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the post repository used by this service.
	Repo PostRepo
}

// NewPostService constructs a PostService.
func NewPostService(db *gorm.DB, r PostRepo) *PostService {
	return &PostService{DB: db, Repo: r}
}

// List returns all posts, newest first. An empty result is not an error here.
func (s *PostService) List(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.Repo.ListPosts(ctx, s.DB)
	if err != nil {
		return nil, pkgerrors.Wrap(err, wrapList)
	}
	return posts, nil
}

// GetByID returns the post identified by the raw path parameter id.
func (s *PostService) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.GetPost(ctx, s.DB, n)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound(MsgPostNotFound)
		}
		return nil, pkgerrors.Wrap(err, wrapGet)
	}
	return p, nil
}

// Create validates the three required fields and inserts the post.
// All missing fields are reported together, in title, content, author order.
func (s *PostService) Create(ctx context.Context, in PostInput) (*domain.Post, error) {
	var fieldErrs []string
	if blank(in.Title) {
		fieldErrs = append(fieldErrs, MsgTitleRequired)
	}
	if blank(in.Content) {
		fieldErrs = append(fieldErrs, MsgContentRequired)
	}
	if blank(in.Author) {
		fieldErrs = append(fieldErrs, MsgAuthorRequired)
	}
	if len(fieldErrs) > 0 {
		return nil, domain.NewValidation(MsgRequiredFields, fieldErrs...)
	}

	p, err := s.Repo.CreatePost(ctx, s.DB, *in.Title, *in.Content, *in.Author)
	if err != nil {
		return nil, pkgerrors.Wrap(err, wrapCreate)
	}
	return p, nil
}

// Update merges the present fields of in over the stored post. Absent
// fields keep their stored value; present fields override, empty included.
func (s *PostService) Update(ctx context.Context, id string, in PostInput) (*domain.Post, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if in.Title != nil {
		merged.Title = *in.Title
	}
	if in.Content != nil {
		merged.Content = *in.Content
	}
	if in.Author != nil {
		merged.Author = *in.Author
	}

	out, err := s.Repo.UpdatePost(ctx, s.DB, &merged)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound(MsgPostNotFound)
		}
		return nil, pkgerrors.Wrap(err, wrapUpdate)
	}
	return out, nil
}

// Delete removes the post identified by id.
func (s *PostService) Delete(ctx context.Context, id string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeletePost(ctx, s.DB, current.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewNotFound(MsgPostNotFound)
		}
		return pkgerrors.Wrap(err, wrapDelete)
	}
	return nil
}

// Search returns posts containing query in title, content or author,
// ignoring case. A blank query is a validation error; no matches is not.
func (s *PostService) Search(ctx context.Context, query string) ([]domain.Post, error) {
	q := norm.NFC.String(strings.TrimSpace(query))
	if q == "" {
		return nil, domain.NewValidation(MsgQueryRequired)
	}
	posts, err := s.Repo.SearchPosts(ctx, s.DB, q)
	if err != nil {
		return nil, pkgerrors.Wrap(err, wrapSearch)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// ParseID accepts only a base-10 integer greater than zero.
func ParseID(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.NewValidation(MsgInvalidID)
	}
	return n, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
