package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var (
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidRole indicates an unrecognized role value.
	ErrInvalidRole = errors.New("invalid role")
)

// AccountUpdate carries the mutable fields of an admin account edit. Nil
// fields are left untouched.
type AccountUpdate struct {
	FullName *string
	Role     *string
	Enabled  *bool
}

// UserService exposes account administration. Reads of a single account are
// open to the owner; everything else is staff or admin territory.
type UserService struct {
	accounts port.AccountRepository
	now      func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(accounts port.AccountRepository) *UserService {
	return &UserService{accounts: accounts, now: time.Now}
}

// WithClock injects a custom clock, primarily for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get returns one account. Owners can read themselves; admins and
// instructors can read anyone.
func (s *UserService) Get(ctx context.Context, identity *domain.Identity, id string) (*domain.Account, error) {
	if err := domain.OwnerOr(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, id); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	account.PasswordHash = ""
	return account, nil
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, identity *domain.Identity) ([]domain.Account, error) {
	if err := domain.Roles(domain.RoleAdmin).Authorize(identity, ""); err != nil {
		return nil, err
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	for i := range accounts {
		accounts[i].PasswordHash = ""
	}
	return accounts, nil
}

// Update edits an account's profile, role, or enabled flag. Admin only.
func (s *UserService) Update(ctx context.Context, identity *domain.Identity, id string, update AccountUpdate) (*domain.Account, error) {
	if err := domain.Roles(domain.RoleAdmin).Authorize(identity, ""); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if update.FullName != nil {
		if name := strings.TrimSpace(*update.FullName); name != "" {
			account.FullName = name
		}
	}
	if update.Role != nil {
		role, ok := domain.ParseRole(*update.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		account.Role = role
	}
	if update.Enabled != nil {
		account.Enabled = *update.Enabled
	}

	account.Touch(s.now().UTC())

	if err := s.accounts.Update(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	account.PasswordHash = ""
	return account, nil
}

// Delete removes an account. Admin only.
func (s *UserService) Delete(ctx context.Context, identity *domain.Identity, id string) error {
	if err := domain.Roles(domain.RoleAdmin).Authorize(identity, ""); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	return nil
}
