package domain

import (
	"strings"
	"time"
)

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleUser       Role = "USER"
)

// ParseRole normalizes raw input into a known Role. Unknown values report ok=false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleInstructor:
		return RoleInstructor, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// AuthProvider identifies where an account's identity was established.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "LOCAL"
	ProviderGoogle   AuthProvider = "GOOGLE"
	ProviderAzureAD  AuthProvider = "AZURE_AD"
	ProviderGitHub   AuthProvider = "GITHUB"
	ProviderKeycloak AuthProvider = "KEYCLOAK"
)

// MapProvider resolves an OAuth2 registration identifier to an AuthProvider.
func MapProvider(registrationID string) AuthProvider {
	switch strings.ToLower(strings.TrimSpace(registrationID)) {
	case "google":
		return ProviderGoogle
	case "azure", "azuread":
		return ProviderAzureAD
	case "github":
		return ProviderGitHub
	case "keycloak":
		return ProviderKeycloak
	}
	return ProviderLocal
}

// Account mirrors the persisted representation in the users table.
// PasswordHash is empty for federation-only accounts.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	Provider     AuthProvider
	ProviderID   *string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewLocalAccount builds an account created through local registration.
// Timestamps are set here rather than by persistence callbacks so the
// state transition is visible to callers.
func NewLocalAccount(id, email, fullName, passwordHash string, role Role, now time.Time) Account {
	if role == "" {
		role = RoleUser
	}
	return Account{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		Provider:     ProviderLocal,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewFederatedAccount builds an account created on first federated login.
func NewFederatedAccount(id, email, fullName string, provider AuthProvider, providerID string, role Role, now time.Time) Account {
	if role == "" {
		role = RoleUser
	}
	if fullName == "" {
		fullName = email
	}
	account := Account{
		ID:        id,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		Provider:  provider,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if providerID != "" {
		account.ProviderID = &providerID
	}
	return account
}

// Touch marks the account as modified.
func (a *Account) Touch(now time.Time) {
	a.UpdatedAt = now
}

// SameEmail compares emails case-insensitively; email is the account's
// globally unique comparison key.
func (a Account) SameEmail(email string) bool {
	return strings.EqualFold(a.Email, email)
}
