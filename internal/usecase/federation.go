package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/logger"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/security"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

// ErrNoFederatedEmail indicates the provider assertion carried no email, so
// no account can be linked.
var ErrNoFederatedEmail = errors.New("federated assertion carries no email")

// FederatedAssertion is the identity material extracted from a verified
// provider response.
type FederatedAssertion struct {
	RegistrationID string
	SubjectID      string
	Email          string
	FullName       string
	// RoleHints holds the provider's role claims in priority order:
	// realm_access.roles first, then roles, then groups, flattened into
	// one list. Resolution takes the first mappable entry, so unmappable
	// entries in an earlier source never shadow a later one.
	RoleHints []string
}

// FederationService links externally asserted identities to platform
// accounts, provisioning on first sight and keying strictly by email.
type FederationService struct {
	accounts       port.AccountRepository
	codec          *security.TokenCodec
	publisher      port.EventPublisher
	adminAllowlist map[string]struct{}
	logger         *zap.Logger
	now            func() time.Time
}

// NewFederationService constructs a FederationService. adminAllowlist lists
// the emails permitted to receive ADMIN from provider role hints.
func NewFederationService(
	accounts port.AccountRepository,
	codec *security.TokenCodec,
	publisher port.EventPublisher,
	adminAllowlist []string,
	logger *zap.Logger,
) *FederationService {
	allow := make(map[string]struct{}, len(adminAllowlist))
	for _, email := range adminAllowlist {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allow[email] = struct{}{}
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FederationService{
		accounts:       accounts,
		codec:          codec,
		publisher:      publisher,
		adminAllowlist: allow,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *FederationService) WithClock(now func() time.Time) *FederationService {
	if now != nil {
		s.now = now
	}
	return s
}

// LinkIdentity resolves a federated assertion to a platform account,
// creating it on first login, and issues a platform credential. The email
// is the only linking key: repeat logins with the same email converge on
// the same account regardless of provider.
func (s *FederationService) LinkIdentity(ctx context.Context, assertion FederatedAssertion) (*AuthResult, error) {
	email := strings.TrimSpace(assertion.Email)
	if email == "" {
		return nil, ErrNoFederatedEmail
	}

	role := s.resolveRole(email, assertion.RoleHints)
	provider := domain.MapProvider(assertion.RegistrationID)
	now := s.now().UTC()

	account, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// Repeat login: the asserted origin and role are refreshed so the
		// account converges on the provider that last authenticated it and
		// provider-side promotions take effect.
		changed := false
		if account.Provider != provider {
			account.Provider = provider
			changed = true
		}
		if subject := strings.TrimSpace(assertion.SubjectID); subject != "" &&
			(account.ProviderID == nil || *account.ProviderID != subject) {
			account.ProviderID = &subject
			changed = true
		}
		if account.Role != role {
			account.Role = role
			changed = true
		}
		if changed {
			account.Touch(now)
			if err := s.accounts.Update(ctx, *account); err != nil {
				return nil, fmt.Errorf("update federated account: %w", err)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		created := domain.NewFederatedAccount(
			uuid.NewString(),
			email,
			strings.TrimSpace(assertion.FullName),
			provider,
			assertion.SubjectID,
			role,
			now,
		)
		if err := s.accounts.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Lost a provisioning race; the winner's row is authoritative.
				account, err = s.accounts.GetByEmail(ctx, email)
				if err != nil {
					return nil, fmt.Errorf("lookup account after conflict: %w", err)
				}
				break
			}
			return nil, fmt.Errorf("provision federated account: %w", err)
		}
		account = &created

		if s.publisher != nil {
			event := domain.AccountRegisteredEvent{
				AccountID:    created.ID,
				Email:        created.Email,
				FullName:     created.FullName,
				Role:         created.Role,
				Provider:     created.Provider,
				RegisteredAt: now,
				Metadata:     map[string]string{"registration_id": assertion.RegistrationID},
			}
			if err := s.publisher.PublishAccountRegistered(ctx, event); err != nil {
				s.logger.Warn("publish account registered", zap.Error(err))
			}
		}
	default:
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !account.Enabled {
		return nil, ErrInactiveAccount
	}

	token, err := s.codec.Sign(*account)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""

	return &AuthResult{
		Token:     token,
		ExpiresIn: s.codec.Validity(),
		Account:   sanitized,
	}, nil
}

// resolveRole maps provider role hints to a platform role. Matching is
// case-insensitive and substring-based; USUARIO is accepted as a synonym
// for USER. ADMIN hints only take effect for allow-listed emails; a
// disallowed ADMIN hint is skipped, not downgraded, so a later hint can
// still match. Unknown or empty hints fall back to USER.
func (s *FederationService) resolveRole(email string, hints []string) domain.Role {
	adminAllowed := s.adminAllowed(email)

	for _, hint := range hints {
		upper := strings.ToUpper(hint)
		switch {
		case strings.Contains(upper, "ADMIN"):
			if adminAllowed {
				return domain.RoleAdmin
			}
			s.logger.Warn("ignoring admin role hint for non-allowlisted email",
				zap.String("email", logger.MaskEmail(email)))
		case strings.Contains(upper, "INSTRUCTOR"):
			return domain.RoleInstructor
		case strings.Contains(upper, "USUARIO"), strings.Contains(upper, "USER"):
			return domain.RoleUser
		}
	}

	return domain.RoleUser
}

func (s *FederationService) adminAllowed(email string) bool {
	_, ok := s.adminAllowlist[strings.ToLower(email)]
	return ok
}
