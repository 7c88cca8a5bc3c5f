package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/tbourn/go-posts-backend/internal/domain"
)

type codedErr struct{ code int }

func (e codedErr) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e codedErr) Code() int     { return e.code }

func TestClassify_Table(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"plain", errors.New("boom"), ClassUnknown},
		{"gorm duplicated", gorm.ErrDuplicatedKey, ClassUnique},
		{"gorm fk", gorm.ErrForeignKeyViolated, ClassForeignKey},
		{"pg unique", &pgconn.PgError{Code: "23505"}, ClassUnique},
		{"pg fk", &pgconn.PgError{Code: "23503"}, ClassForeignKey},
		{"pg not null", &pgconn.PgError{Code: "23502"}, ClassNotNull},
		{"pg other", &pgconn.PgError{Code: "42P01"}, ClassUnknown},
		{"sqlite unique", codedErr{2067}, ClassUnique},
		{"sqlite pk", codedErr{1555}, ClassUnique},
		{"sqlite fk", codedErr{787}, ClassForeignKey},
		{"sqlite not null", codedErr{1299}, ClassNotNull},
		{"sqlite cantopen", codedErr{14}, ClassUnavailable},
		{"econnrefused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ClassUnavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "db"}, ClassUnavailable},
		{"bad conn", driver.ErrBadConn, ClassUnavailable},
		{"text unique", errors.New("UNIQUE constraint failed: posts.title"), ClassUnique},
		{"text duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "x"`), ClassUnique},
		{"text fk", errors.New("FOREIGN KEY constraint failed"), ClassForeignKey},
		{"text not null", errors.New("NOT NULL constraint failed: posts.title"), ClassNotNull},
		{"text refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), ClassUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassify_SeesThroughWrapping(t *testing.T) {
	err := pkgerrors.Wrap(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), "Erro ao criar post")
	assert.Equal(t, ClassUnique, Classify(err))
}

func TestClassify_RealSQLiteNotNull(t *testing.T) {
	db := newPostDB(t)
	now := time.Now().UTC()
	err := db.WithContext(context.Background()).
		Exec(`INSERT INTO posts (title, content, author, created_at, updated_at) VALUES (?,?,?,?,?)`,
			nil, "c", "a", now, now).Error
	if err == nil {
		t.Fatalf("expected NOT NULL violation")
	}
	assert.Equal(t, ClassNotNull, Classify(err))
}

func TestClassify_RealSQLiteUnique(t *testing.T) {
	db := newPostDB(t)
	now := time.Now().UTC()
	p := &domain.Post{Title: "t", Content: "c", Author: "a", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	dup := &domain.Post{ID: p.ID, Title: "t", Content: "c", Author: "a", CreatedAt: now, UpdatedAt: now}
	err := db.Create(dup).Error
	if err == nil {
		t.Fatalf("expected primary key violation")
	}
	assert.Equal(t, ClassUnique, Classify(err))
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "unique_violation", ClassUnique.String())
	assert.Equal(t, "foreign_key_violation", ClassForeignKey.String())
	assert.Equal(t, "not_null_violation", ClassNotNull.String())
	assert.Equal(t, "unavailable", ClassUnavailable.String())
	assert.Equal(t, "unknown", ClassUnknown.String())
}
