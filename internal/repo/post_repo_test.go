package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

func newPostDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedPost(t *testing.T, db *gorm.DB, title, content, author string, created time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{Title: title, Content: content, Author: author, CreatedAt: created, UpdatedAt: created}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func TestCreatePost_Error_NoTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	p, err := CreatePost(context.Background(), db, "t", "c", "a")
	if err == nil || p != nil {
		t.Fatalf("expected error creating without table, got post=%v err=%v", p, err)
	}
}

func TestCreatePost_Success_SetsIDAndTimestamps(t *testing.T) {
	db := newPostDB(t)
	start := time.Now().UTC().Add(-time.Second)

	p, err := CreatePost(context.Background(), db, "Hello", "World", "Ana")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.ID <= 0 || p.Title != "Hello" || p.Content != "World" || p.Author != "Ana" {
		t.Fatalf("unexpected post: %+v", p)
	}
	if p.CreatedAt.Before(start) || p.UpdatedAt.Before(start) {
		t.Fatalf("timestamps not set: %+v", p)
	}

	got, err := GetPost(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Hello" {
		t.Fatalf("readback mismatch: %+v", got)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := newPostDB(t)
	p, err := GetPost(context.Background(), db, 999)
	if p != nil || !IsNotFound(err) {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", p, err)
	}
}

func TestListPosts_NewestFirst_IDTieBreak(t *testing.T) {
	db := newPostDB(t)
	base := time.Now().UTC().Add(-time.Hour)

	old := seedPost(t, db, "old", "c", "a", base)
	sameA := seedPost(t, db, "sameA", "c", "a", base.Add(time.Minute))
	sameB := seedPost(t, db, "sameB", "c", "a", base.Add(time.Minute))
	newest := seedPost(t, db, "new", "c", "a", base.Add(2*time.Minute))

	list, err := ListPosts(context.Background(), db)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	want := []int64{newest.ID, sameB.ID, sameA.ID, old.ID}
	if len(list) != len(want) {
		t.Fatalf("len=%d want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("order mismatch at %d: got %d want %d", i, list[i].ID, id)
		}
	}
}

func TestListPosts_Empty(t *testing.T) {
	db := newPostDB(t)
	list, err := ListPosts(context.Background(), db)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestUpdatePost_WritesEmptyStrings_AndRefreshesUpdatedAt(t *testing.T) {
	db := newPostDB(t)
	created := time.Now().UTC().Add(-time.Hour)
	p := seedPost(t, db, "t", "c", "a", created)

	p.Title = ""
	p.Author = "Bia"
	out, err := UpdatePost(context.Background(), db, p)
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if !out.UpdatedAt.After(created) {
		t.Fatalf("UpdatedAt not refreshed: %v", out.UpdatedAt)
	}

	got, err := GetPost(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "" || got.Content != "c" || got.Author != "Bia" {
		t.Fatalf("unexpected persisted row: %+v", got)
	}
	if got.CreatedAt.Sub(created).Abs() > time.Millisecond {
		t.Fatalf("CreatedAt must not change: got %v want %v", got.CreatedAt, created)
	}
}

func TestUpdatePost_Missing_ReturnsNotFound(t *testing.T) {
	db := newPostDB(t)
	_, err := UpdatePost(context.Background(), db, &domain.Post{ID: 42, Title: "x"})
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePost_SuccessThenNotFound(t *testing.T) {
	db := newPostDB(t)
	p := seedPost(t, db, "t", "c", "a", time.Now().UTC())

	if err := DeletePost(context.Background(), db, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := GetPost(context.Background(), db, p.ID); !IsNotFound(err) {
		t.Fatalf("expected row gone, got %v", err)
	}
	if err := DeletePost(context.Background(), db, p.ID); !IsNotFound(err) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSearchPosts_CaseInsensitive_AcrossColumns(t *testing.T) {
	db := newPostDB(t)
	now := time.Now().UTC()
	a := seedPost(t, db, "Learning Go", "body", "ana", now)
	b := seedPost(t, db, "other", "all about GOLANG", "bob", now.Add(time.Second))
	c := seedPost(t, db, "misc", "text", "Gopher", now.Add(2*time.Second))
	_ = seedPost(t, db, "unrelated", "nothing", "zed", now.Add(3*time.Second))

	out, err := SearchPosts(context.Background(), db, "go")
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	ids := map[int64]bool{}
	for _, p := range out {
		ids[p.ID] = true
	}
	if len(out) != 3 || !ids[a.ID] || !ids[b.ID] || !ids[c.ID] {
		t.Fatalf("unexpected matches: %+v", out)
	}
}

func TestSearchPosts_WildcardsMatchedLiterally(t *testing.T) {
	db := newPostDB(t)
	now := time.Now().UTC()
	pct := seedPost(t, db, "100% sure", "c", "a", now)
	_ = seedPost(t, db, "1000 sure", "c", "a", now)
	under := seedPost(t, db, "snake_case", "c", "a", now)
	_ = seedPost(t, db, "snakeXcase", "c", "a", now)

	out, err := SearchPosts(context.Background(), db, "%")
	if err != nil {
		t.Fatalf("SearchPosts %%: %v", err)
	}
	if len(out) != 1 || out[0].ID != pct.ID {
		t.Fatalf("expected only the literal %% match, got %+v", out)
	}

	out, err = SearchPosts(context.Background(), db, "e_c")
	if err != nil {
		t.Fatalf("SearchPosts _: %v", err)
	}
	if len(out) != 1 || out[0].ID != under.ID {
		t.Fatalf("expected only the literal _ match, got %+v", out)
	}
}

func TestSearchPosts_NoMatch_EmptyNotError(t *testing.T) {
	db := newPostDB(t)
	_ = seedPost(t, db, "t", "c", "a", time.Now().UTC())
	out, err := SearchPosts(context.Background(), db, "zzz")
	if err != nil || len(out) != 0 {
		t.Fatalf("expected (empty, nil), got (%v, %v)", out, err)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"plain":  "plain",
		"50%":    `50\%`,
		"a_b":    `a\_b`,
		`back\s`: `back\\s`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Fatalf("escapeLike(%q) = %q; want %q", in, got, want)
		}
	}
}
