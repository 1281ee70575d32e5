// Package tenant holds the church scoping rules applied to every tenant-owned table.
package tenant

import "github.com/conectaebd/backend/core"

// Roles
const (
	RoleMaster   = "master"
	RoleStandard = "standard"
)

var Roles = []string{RoleMaster, RoleStandard}

func IsRole(role string) bool {
	return role == RoleMaster || role == RoleStandard
}

// Principal is the authenticated caller, as carried by a verified token.
type Principal struct {
	UserID   int
	Role     string
	ChurchID int // 0 when the user is not bound to a church (masters only)
}

func (p Principal) IsMaster() bool {
	return p.Role == RoleMaster
}

// Scope returns the church filter to apply on list, update and delete queries.
// Masters get nil: no filter at all.
func (p Principal) Scope() *int {
	if p.IsMaster() {
		return nil
	}
	id := p.ChurchID
	return &id
}

// Stamp returns the church id written on inserts of tenant-owned rows.
// Standard users always write their own church, whatever the client sent.
// Masters write their own church when they have one, otherwise fallback (derived from the parent row).
func (p Principal) Stamp(fallback int) int {
	if !p.IsMaster() || p.ChurchID != 0 {
		return p.ChurchID
	}
	return fallback
}

// CanAccess reports whether a row owned by churchID is visible to the principal.
func (p Principal) CanAccess(churchID int) bool {
	return p.IsMaster() || p.ChurchID == churchID
}

// Authorize returns core.ErrForbidden when the row owned by churchID is out of reach.
func (p Principal) Authorize(churchID int) error {
	if p.CanAccess(churchID) {
		return nil
	}
	return core.ErrForbidden
}

// RequireMaster returns core.ErrForbidden for non-master principals.
func (p Principal) RequireMaster() error {
	if p.IsMaster() {
		return nil
	}
	return core.ErrForbidden
}

// InScope reports whether churchID passes the scope filter.
func InScope(scope *int, churchID int) bool {
	return scope == nil || *scope == churchID
}
