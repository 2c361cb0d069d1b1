package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

func seedAccount() *domain.Account {
	return &domain.Account{
		ID:           "acc-1",
		Email:        "alice@example.com",
		PasswordHash: "argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		FullName:     "Alice Example",
		Role:         domain.RoleUser,
		Provider:     domain.ProviderLocal,
		Enabled:      true,
	}
}

func TestUserService_Get(t *testing.T) {
	accounts := &mockAccountRepository{getByIDResult: seedAccount()}
	service := NewUserService(accounts)

	account, err := service.Get(context.Background(), ownerIdentity, "acc-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if account.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped")
	}

	if _, err := service.Get(context.Background(), strangerIdentity, "acc-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if _, err := service.Get(context.Background(), instructorIdentity, "acc-1"); err != nil {
		t.Fatalf("expected instructor read access, got %v", err)
	}

	accounts.getByIDErr = repository.ErrNotFound
	accounts.getByIDResult = nil
	if _, err := service.Get(context.Background(), adminIdentity, "acc-ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUserService_List_AdminOnly(t *testing.T) {
	accounts := &mockAccountRepository{listResult: []domain.Account{*seedAccount()}}
	service := NewUserService(accounts)

	if _, err := service.List(context.Background(), instructorIdentity); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for instructor, got %v", err)
	}

	listed, err := service.List(context.Background(), adminIdentity)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 account, got %d", len(listed))
	}
	if listed[0].PasswordHash != "" {
		t.Fatalf("expected password hashes to be stripped from listing")
	}
}

func TestUserService_Update(t *testing.T) {
	accounts := &mockAccountRepository{getByIDResult: seedAccount()}
	fixedNow := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	service := NewUserService(accounts).WithClock(func() time.Time { return fixedNow })

	newName := "Alicia Ejemplo"
	newRole := "instructor"
	disabled := false

	updated, err := service.Update(context.Background(), adminIdentity, "acc-1", AccountUpdate{
		FullName: &newName,
		Role:     &newRole,
		Enabled:  &disabled,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.FullName != newName {
		t.Fatalf("expected full name %q, got %q", newName, updated.FullName)
	}
	if updated.Role != domain.RoleInstructor {
		t.Fatalf("expected role INSTRUCTOR, got %s", updated.Role)
	}
	if updated.Enabled {
		t.Fatalf("expected account to be disabled")
	}
	if updated.UpdatedAt != fixedNow {
		t.Fatalf("expected UpdatedAt %v, got %v", fixedNow, updated.UpdatedAt)
	}
	if accounts.updateCalls != 1 {
		t.Fatalf("expected one persisted update, got %d", accounts.updateCalls)
	}
	if accounts.updatedResult.PasswordHash == "" {
		t.Fatalf("persisted update must keep the stored password hash")
	}
	if updated.PasswordHash != "" {
		t.Fatalf("returned account must not carry the password hash")
	}
}

func TestUserService_Update_Validation(t *testing.T) {
	accounts := &mockAccountRepository{getByIDResult: seedAccount()}
	service := NewUserService(accounts)

	badRole := "SUPERUSER"
	if _, err := service.Update(context.Background(), adminIdentity, "acc-1", AccountUpdate{Role: &badRole}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	name := "x"
	if _, err := service.Update(context.Background(), ownerIdentity, "acc-1", AccountUpdate{FullName: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owners must not self-edit through the admin endpoint, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	accounts := &mockAccountRepository{}
	service := NewUserService(accounts)

	if err := service.Delete(context.Background(), ownerIdentity, "acc-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}

	if err := service.Delete(context.Background(), adminIdentity, "acc-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if accounts.deleteCalls != 1 || accounts.deleteLastID != "acc-1" {
		t.Fatalf("expected delete of acc-1, got %d calls for %s", accounts.deleteCalls, accounts.deleteLastID)
	}

	accounts.deleteErr = repository.ErrNotFound
	if err := service.Delete(context.Background(), adminIdentity, "acc-ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
