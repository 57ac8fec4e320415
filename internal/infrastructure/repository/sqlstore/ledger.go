// Package sqlstore implements the submission ledger over database/sql for both
// Postgres and SQLite. Queries are written with "?" placeholders and rebound
// per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Ledger stores submissions, documents and append-only scores.
type Ledger struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Ledger {
	return &Ledger{db: db, dialect: dialect}
}

func (l *Ledger) DB() *sql.DB {
	return l.db
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (l *Ledger) rebind(query string) string {
	if l.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *Ledger) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return l.db.ExecContext(ctx, l.rebind(query), args...)
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return l.db.QueryContext(ctx, l.rebind(query), args...)
}

func (l *Ledger) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return l.db.QueryRowContext(ctx, l.rebind(query), args...)
}

// expectOneRow maps an update that touched nothing to ErrNotFound.
func expectOneRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrNotFound, op, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
