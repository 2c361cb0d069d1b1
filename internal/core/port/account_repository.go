package port

import (
	"context"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts. Email lookups
// compare case-insensitively.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Account, error)
}
