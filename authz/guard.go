// Package authz gates every role-, account- and content-mutating operation
// behind a principal check.
package authz

import (
	"errors"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
)

// Principal is the acting identity, as established by the auth middleware.
type Principal struct {
	ID       string
	Email    string
	Role     string
	Disabled bool
}

// Deny reasons. ErrUnauthenticated means no valid credential was presented;
// ErrForbidden means the credential is valid but the role is insufficient.
// The self-protection errors carry the exact messages shown to the caller.
var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrOwnRole         = errors.New("You cannot change your own role.")
	ErrOwnAccount      = errors.New("You cannot disable your own account.")
	ErrSuperAdmin      = errors.New("This account's role cannot be modified.")
)

// Guard evaluates authorization decisions. SuperAdminID is the one principal
// whose role can never be changed.
type Guard struct {
	SuperAdminID string
}

func (g Guard) authenticated(p Principal) error {
	if p.ID == "" {
		return ErrUnauthenticated
	}
	if p.Disabled {
		return ErrForbidden
	}
	return nil
}

// CanChangeRole decides whether p may change the role of the user targetID.
// The self and super-admin protections apply to every principal, admins
// included; the admin requirement is checked last.
func (g Guard) CanChangeRole(p Principal, targetID string) error {
	if err := g.authenticated(p); err != nil {
		return err
	}
	if targetID == p.ID {
		return ErrOwnRole
	}
	if g.SuperAdminID != "" && targetID == g.SuperAdminID {
		return ErrSuperAdmin
	}
	if p.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanSetDisabled decides whether p may disable or enable the user targetID.
func (g Guard) CanSetDisabled(p Principal, targetID string) error {
	if err := g.authenticated(p); err != nil {
		return err
	}
	if targetID == p.ID {
		return ErrOwnAccount
	}
	if p.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanAdminister decides whether p may perform plain admin-only actions
// (listing and creating users).
func (g Guard) CanAdminister(p Principal) error {
	if err := g.authenticated(p); err != nil {
		return err
	}
	if p.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanCreateContent decides whether p may create articles or upload assets.
func (g Guard) CanCreateContent(p Principal) error {
	if err := g.authenticated(p); err != nil {
		return err
	}
	if p.Role != models.RoleAuthor && p.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanMutateContent decides whether p may edit or delete the article owned by
// authorID: the author themselves or any admin.
func (g Guard) CanMutateContent(p Principal, authorID string) error {
	if err := g.authenticated(p); err != nil {
		return err
	}
	if p.ID == authorID || p.Role == models.RoleAdmin {
		return nil
	}
	return ErrForbidden
}

// SelfProtection reports whether the deny reason is one of the self-protection
// rules, which map to 400 rather than 403.
func SelfProtection(err error) bool {
	return errors.Is(err, ErrOwnRole) || errors.Is(err, ErrOwnAccount)
}
