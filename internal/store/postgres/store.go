package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"counsel/backend/internal/store"
)

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Store struct {
	queries
	db *bun.DB
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Outbox = (*Store)(nil)
)

func NewStore(db *bun.DB) *Store {
	return &Store{queries: queries{db: db}, db: db}
}

type queries struct {
	db bun.IDB
}

type pgTx struct {
	queries
	tx bun.Tx
}

// InTx runs fn inside one database transaction. Errors returned by fn are
// passed back unchanged; begin/commit failures surface as ErrUnavailable.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var fnErr error
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fnErr = fn(ctx, &pgTx{queries: queries{db: tx}, tx: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return store.Unavailable("transaction", err)
	}
	return err
}

func (t *pgTx) Lock(ctx context.Context, key string) error {
	_, err := t.tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return store.Unavailable("advisory lock", err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
