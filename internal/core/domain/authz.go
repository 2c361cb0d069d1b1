package domain

import "errors"

var (
	// ErrUnauthenticated indicates the request carried no verified identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the identity lacks the role or ownership the
	// operation requires.
	ErrForbidden = errors.New("insufficient permissions")
)

// Identity is the set of verified facts about the caller, established once
// at the edge and propagated as trusted fields.
type Identity struct {
	AccountID string
	Email     string
	Role      Role
}

// Capability declares the authorization requirement of an operation. Every
// operation is gated by exactly one capability, evaluated by Authorize.
type Capability struct {
	public     bool
	roles      []Role
	allowOwner bool
}

// Public grants access to unauthenticated callers.
func Public() Capability {
	return Capability{public: true}
}

// Authenticated grants access to any verified identity regardless of role.
func Authenticated() Capability {
	return Capability{}
}

// Roles grants access only to identities holding one of the given roles.
func Roles(roles ...Role) Capability {
	return Capability{roles: roles}
}

// OwnerOr grants access to the owner of the target resource, or to
// identities holding one of the given roles.
func OwnerOr(roles ...Role) Capability {
	return Capability{roles: roles, allowOwner: true}
}

// Authorize evaluates the capability for the given identity. ownerID is the
// owning account of the target resource; it is ignored unless the
// capability was built with OwnerOr. A failed check is never downgraded to
// a partial result.
func (c Capability) Authorize(id *Identity, ownerID string) error {
	if c.public {
		return nil
	}
	if id == nil || id.AccountID == "" {
		return ErrUnauthenticated
	}
	if c.allowOwner && ownerID != "" && id.AccountID == ownerID {
		return nil
	}
	if len(c.roles) == 0 {
		if c.allowOwner {
			return ErrForbidden
		}
		return nil
	}
	for _, role := range c.roles {
		if id.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
