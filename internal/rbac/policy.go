package rbac

import (
	"slices"

	"github.com/manara-erp/manara/internal/shared"
)

// Checker is the capability query consulted before mutating the ledger.
type Checker interface {
	CanPerform(actor *shared.Actor, action Action, view View) bool
}

// Policy evaluates a role grant table.
type Policy struct {
	table map[Role]map[View][]Action
}

// DefaultPolicy returns the built-in role table.
func DefaultPolicy() *Policy {
	return &Policy{table: defaultTable}
}

// CanPerform reports whether actor may perform action on view. Admins may do
// everything. A permission granted directly to the user only applies to
// view-less checks; view checks consult the role table.
func (p *Policy) CanPerform(actor *shared.Actor, action Action, view View) bool {
	if actor == nil {
		return false
	}
	role := Role(actor.Role)
	if role == RoleAdmin {
		return true
	}
	if view == ViewNone {
		return slices.Contains(actor.Permissions, string(action))
	}
	return slices.Contains(p.table[role][view], action)
}

// Grants lists the actions role holds on view.
func (p *Policy) Grants(role Role, view View) []Action {
	return append([]Action(nil), p.table[role][view]...)
}

var _ Checker = (*Policy)(nil)
