package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgDatabase is what transactional repositories need: plain statement
// execution plus the ability to open a transaction. Both *pgxpool.Pool and
// pgxmock pools satisfy it.
type pgDatabase interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Accounts    *AccountRepository
	Enrollments *EnrollmentRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts:    NewAccountRepository(pool),
		Enrollments: NewEnrollmentRepository(pool),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func rollback(ctx context.Context, tx pgx.Tx, err error) error {
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		return fmt.Errorf("%w (rollback: %v)", err, rbErr)
	}
	return err
}
