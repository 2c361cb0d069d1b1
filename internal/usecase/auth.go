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
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/security"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrEmailTaken indicates registration collided with an existing account email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword indicates the password failed the registration policy.
	ErrWeakPassword = errors.New("password does not meet policy")
)

// AuthResult carries the outcome of a successful credential exchange.
type AuthResult struct {
	Token     string
	ExpiresIn time.Duration
	Account   domain.Account
}

// AuthService coordinates local credential flows: registration and the
// email-plus-password exchange for a signed bearer credential.
type AuthService struct {
	accounts  port.AccountRepository
	codec     *security.TokenCodec
	passwords *security.PasswordValidator
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	codec *security.TokenCodec,
	passwords *security.PasswordValidator,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	if passwords == nil {
		passwords = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:  accounts,
		codec:     codec,
		passwords: passwords,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates the email and password and issues a signed credential.
// Unknown email and wrong password collapse into the same error so callers
// cannot tell which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.PasswordHash == "" {
		// Federation-only account; it has no local password to check.
		return nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
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

// Register creates a local account with a hashed password and issues an
// initial credential so the caller lands authenticated. The role is
// optional; an absent role defaults to USER.
func (s *AuthService) Register(ctx context.Context, email, fullName, password, role string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if fullName = strings.TrimSpace(fullName); fullName == "" {
		fullName = email
	}

	accountRole := domain.RoleUser
	if strings.TrimSpace(role) != "" {
		parsed, ok := domain.ParseRole(role)
		if !ok {
			return nil, ErrInvalidRole
		}
		accountRole = parsed
	}

	if err := s.passwords.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.NewLocalAccount(uuid.NewString(), email, fullName, hash, accountRole, now)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.publisher != nil {
		event := domain.AccountRegisteredEvent{
			AccountID:    account.ID,
			Email:        account.Email,
			FullName:     account.FullName,
			Role:         account.Role,
			Provider:     account.Provider,
			RegisteredAt: now,
		}
		if err := s.publisher.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Warn("publish account registered", zap.Error(err))
		}
	}

	token, err := s.codec.Sign(account)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	account.PasswordHash = ""
	return &AuthResult{
		Token:     token,
		ExpiresIn: s.codec.Validity(),
		Account:   account,
	}, nil
}
