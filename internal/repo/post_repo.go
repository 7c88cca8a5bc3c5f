// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle. Each one
// issues a single parameterized statement; business rules live in the
// service layer.
//
// Error semantics:
//   - When a post is not found, functions return ErrNotFound.
//   - Driver errors (constraint violations, connectivity issues) are
//     propagated untouched so Classify can inspect them.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePost inserts a new post and returns it with the generated id and
// timestamps.
func CreatePost(ctx context.Context, db *gorm.DB, title, content, author string) (*domain.Post, error) {
	now := time.Now().UTC()
	p := &domain.Post{
		Title:     title,
		Content:   content,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPosts returns every post, newest first. Posts created in the same
// instant are ordered by id, highest first.
func ListPosts(ctx context.Context, db *gorm.DB) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	return out, err
}

// GetPost fetches a single post by id, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id int64) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost writes every mutable column of p (empty strings included) and
// refreshes UpdatedAt. Returns ErrNotFound if the row is gone.
func UpdatePost(ctx context.Context, db *gorm.DB, p *domain.Post) (*domain.Post, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"title":      p.Title,
			"content":    p.Content,
			"author":     p.Author,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	out := *p
	out.UpdatedAt = now
	return &out, nil
}

// DeletePost removes the post with the given id. Returns ErrNotFound when
// nothing was deleted.
func DeletePost(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchPosts returns posts whose title, content or author contains q,
// ignoring case. LIKE wildcards in q are matched literally.
func SearchPosts(ctx context.Context, db *gorm.DB, q string) ([]domain.Post, error) {
	pattern := "%" + escapeLike(q) + "%"
	var out []domain.Post
	err := db.WithContext(ctx).
		Where(`LOWER(title) LIKE LOWER(?) ESCAPE '\' OR LOWER(content) LIKE LOWER(?) ESCAPE '\' OR LOWER(author) LIKE LOWER(?) ESCAPE '\'`,
			pattern, pattern, pattern).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
