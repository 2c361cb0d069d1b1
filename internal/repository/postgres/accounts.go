package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"full_name",
	"role",
	"provider",
	"provider_id",
	"enabled",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new account row. A unique violation on email maps to
// repository.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var providerID any
	if account.ProviderID != nil && *account.ProviderID != "" {
		providerID = *account.ProviderID
	}

	stmt, args, err := r.builder.Insert("campus.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.PasswordHash,
			account.FullName,
			account.Role,
			account.Provider,
			providerID,
			account.Enabled,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("campus.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by email, compared case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("campus.accounts").
		Where(squirrel.Expr("LOWER(email) = LOWER(?)", email)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account by email: %w", err)
	}

	return account, nil
}

// ExistsByEmail reports whether any account already claims the email.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	stmt := `SELECT EXISTS(SELECT 1 FROM campus.accounts WHERE LOWER(email) = LOWER($1))`

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("scan account exists: %w", err)
	}

	return exists, nil
}

// Update modifies an existing account's mutable fields.
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	var providerID any
	if account.ProviderID != nil && *account.ProviderID != "" {
		providerID = *account.ProviderID
	}

	stmt, args, err := r.builder.Update("campus.accounts").
		Set("email", account.Email).
		Set("password_hash", account.PasswordHash).
		Set("full_name", account.FullName).
		Set("role", account.Role).
		Set("provider", account.Provider).
		Set("provider_id", providerID).
		Set("enabled", account.Enabled).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an account row.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("campus.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("campus.accounts").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account    domain.Account
		providerID *string
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FullName,
		&account.Role,
		&account.Provider,
		&providerID,
		&account.Enabled,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	account.ProviderID = providerID
	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
