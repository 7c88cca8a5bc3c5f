// Package domain defines the persistence models and the error taxonomy of the
// posts service. Models are mapped with GORM and shared across the repository,
// service and HTTP layers.
package domain

import "time"

// Post is a single published entry.
//
// Fields:
//   - ID: database-generated primary key, immutable after creation.
//   - Title / Content / Author: required on create, free-form text.
//   - CreatedAt: set once on insert.
//   - UpdatedAt: refreshed on every save.
type Post struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	Author    string    `json:"author"     gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_posts_created"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }
