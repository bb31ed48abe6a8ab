package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX es el subconjunto de pgx que usan los repositorios.
// *pgxpool.Pool y pgx.Tx lo satisfacen.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store agrupa los repositorios del almacen de credenciales.
type Store interface {
	Users() UserRepository
	Credentials() CredentialRepository
	// WithinTx ejecuta fn con repositorios ligados a una transaccion:
	// commit si fn devuelve nil, rollback en otro caso.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// PgStore implementa Store sobre pgxpool.
type PgStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (s *PgStore) Users() UserRepository {
	return NewPgUserRepository(s.db)
}

func (s *PgStore) Credentials() CredentialRepository {
	return NewPgCredentialRepository(s.db)
}

func (s *PgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	// Ya dentro de una transaccion: se reutiliza.
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PgStore{db: tx})
	})
}
