// Package rbac answers whether an actor may perform an action on a view.
package rbac

// Role is a user's job profile.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleSales      Role = "sales"
	RoleWarehouse  Role = "warehouse"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleSales, RoleWarehouse:
		return true
	}
	return false
}

// View is a functional area of the application.
type View string

const (
	ViewNone            View = ""
	ViewDashboard       View = "dashboard"
	ViewSources         View = "sources"
	ViewOperations      View = "operations"
	ViewReports         View = "reports"
	ViewEmployees       View = "employees"
	ViewAccounting      View = "accounting"
	ViewRegistry        View = "registry"
	ViewStatements      View = "statements"
	ViewUsersManagement View = "users_management"
)

// Action is an operation within a view.
type Action string

const (
	ActionView             Action = "view"
	ActionCreate           Action = "create"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionPrint            Action = "print"
	ActionExport           Action = "export"
	ActionViewCosts        Action = "view_costs"
	ActionViewProfitLoss   Action = "view_profit_loss"
	ActionViewAlerts       Action = "view_alerts"
	ActionGiveDiscount     Action = "give_discount"
	ActionManagePrices     Action = "manage_prices"
	ActionManageStocks     Action = "manage_stocks"
	ActionVoidTransaction  Action = "void_transaction"
	ActionEditClosedPeriod Action = "edit_closed_period"
)

// Actions lists every known action.
var Actions = []Action{
	ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionPrint, ActionExport,
	ActionViewCosts, ActionViewProfitLoss, ActionViewAlerts, ActionGiveDiscount,
	ActionManagePrices, ActionManageStocks, ActionVoidTransaction, ActionEditClosedPeriod,
}

// ValidAction reports whether v names a known action.
func ValidAction(v string) bool {
	for _, a := range Actions {
		if string(a) == v {
			return true
		}
	}
	return false
}

// defaultTable is the built-in role grant table. Admins are not listed;
// they pass every check.
var defaultTable = map[Role]map[View][]Action{
	RoleAccountant: {
		ViewDashboard:  {ActionView, ActionViewAlerts},
		ViewAccounting: {ActionView, ActionCreate, ActionExport},
		ViewReports:    {ActionView, ActionExport, ActionPrint, ActionViewCosts, ActionViewProfitLoss},
		ViewStatements: {ActionView, ActionPrint, ActionExport},
		ViewRegistry:   {ActionView},
	},
	RoleSales: {
		ViewDashboard:  {ActionView},
		ViewOperations: {ActionView, ActionCreate},
		ViewRegistry:   {ActionView},
		ViewSources:    {ActionView, ActionCreate},
	},
	RoleWarehouse: {
		ViewDashboard:  {ActionView, ActionViewAlerts},
		ViewSources:    {ActionView, ActionCreate, ActionUpdate, ActionManageStocks},
		ViewOperations: {ActionView, ActionCreate},
		ViewRegistry:   {ActionView},
	},
}
