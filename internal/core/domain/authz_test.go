package domain

import (
	"errors"
	"testing"
)

func TestCapabilityAuthorize(t *testing.T) {
	admin := &Identity{AccountID: "acc-admin", Role: RoleAdmin}
	instructor := &Identity{AccountID: "acc-instructor", Role: RoleInstructor}
	owner := &Identity{AccountID: "acc-owner", Role: RoleUser}
	stranger := &Identity{AccountID: "acc-stranger", Role: RoleUser}

	cases := []struct {
		name       string
		capability Capability
		identity   *Identity
		ownerID    string
		want       error
	}{
		{"public allows anonymous", Public(), nil, "", nil},
		{"authenticated rejects anonymous", Authenticated(), nil, "", ErrUnauthenticated},
		{"authenticated rejects empty account id", Authenticated(), &Identity{}, "", ErrUnauthenticated},
		{"authenticated allows any role", Authenticated(), stranger, "", nil},
		{"roles allows admin", Roles(RoleAdmin), admin, "", nil},
		{"roles rejects user", Roles(RoleAdmin), stranger, "", ErrForbidden},
		{"roles allows any listed role", Roles(RoleAdmin, RoleInstructor), instructor, "", nil},
		{"roles rejects anonymous before role check", Roles(RoleAdmin), nil, "", ErrUnauthenticated},
		{"owner allowed on own resource", OwnerOr(RoleAdmin), owner, "acc-owner", nil},
		{"non-owner without role rejected", OwnerOr(RoleAdmin), stranger, "acc-owner", ErrForbidden},
		{"admin bypasses ownership", OwnerOr(RoleAdmin), admin, "acc-owner", nil},
		{"instructor bypasses ownership when listed", OwnerOr(RoleAdmin, RoleInstructor), instructor, "acc-owner", nil},
		{"owner capability with empty owner id falls back to roles", OwnerOr(RoleAdmin), stranger, "", ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.capability.Authorize(tc.identity, tc.ownerID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Authorize() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"admin", RoleAdmin, true},
		{" instructor ", RoleInstructor, true},
		{"User", RoleUser, true},
		{"ROOT", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseRole(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMapProvider(t *testing.T) {
	cases := []struct {
		registration string
		want         AuthProvider
	}{
		{"google", ProviderGoogle},
		{"GOOGLE", ProviderGoogle},
		{"azure", ProviderAzureAD},
		{"azuread", ProviderAzureAD},
		{"github", ProviderGitHub},
		{"keycloak", ProviderKeycloak},
		{"unknown", ProviderLocal},
	}

	for _, tc := range cases {
		if got := MapProvider(tc.registration); got != tc.want {
			t.Fatalf("MapProvider(%q) = %s, want %s", tc.registration, got, tc.want)
		}
	}
}
