package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/shared"
)

func TestPolicyRoleTable(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		role   Role
		action Action
		view   View
		want   bool
	}{
		{RoleAdmin, ActionEditClosedPeriod, ViewAccounting, true},
		{RoleAdmin, ActionDelete, ViewNone, true},
		{RoleAccountant, ActionViewCosts, ViewReports, true},
		{RoleAccountant, ActionCreate, ViewOperations, false},
		{RoleAccountant, ActionExport, ViewStatements, true},
		{RoleSales, ActionCreate, ViewOperations, true},
		{RoleSales, ActionViewAlerts, ViewDashboard, false},
		{RoleSales, ActionUpdate, ViewSources, false},
		{RoleWarehouse, ActionManageStocks, ViewSources, true},
		{RoleWarehouse, ActionView, ViewReports, false},
		{RoleWarehouse, ActionView, ViewNone, false},
	}
	for _, tc := range cases {
		actor := &shared.Actor{Role: string(tc.role)}
		require.Equal(t, tc.want, p.CanPerform(actor, tc.action, tc.view), "%s %s %s", tc.role, tc.action, tc.view)
	}
}

func TestPolicyUserPermissionsOnlyApplyWithoutView(t *testing.T) {
	p := DefaultPolicy()
	actor := &shared.Actor{Role: string(RoleSales), Permissions: []string{string(ActionGiveDiscount), string(ActionViewCosts)}}
	require.True(t, p.CanPerform(actor, ActionGiveDiscount, ViewNone))
	require.False(t, p.CanPerform(actor, ActionViewCosts, ViewReports))
	require.False(t, p.CanPerform(nil, ActionView, ViewDashboard))
}

func TestMiddlewareRequire(t *testing.T) {
	m := Middleware{Checker: DefaultPolicy()}
	h := m.Require(ActionCreate, ViewAccounting)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	for role, want := range map[Role]int{RoleSales: http.StatusForbidden, RoleAccountant: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(shared.ContextWithActor(req.Context(), &shared.Actor{Role: string(role)}))
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)
		require.Equal(t, want, res.Code, string(role))
	}
}
