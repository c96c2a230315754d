package analytichttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/analytics"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
)

type stubService struct {
	log        []ledger.Transaction
	lastFilter analytics.Filter
}

func (s *stubService) Report(ctx context.Context, f analytics.Filter) (analytics.Report, error) {
	s.lastFilter = f
	return analytics.BuildReport(s.log, f), nil
}

func (s *stubService) Dashboard(ctx context.Context) (analytics.Dashboard, error) {
	return analytics.BuildDashboard(s.log, nil), nil
}

func (s *stubService) LowStock(ctx context.Context) []analytics.LowStockItem {
	return []analytics.LowStockItem{{ProductID: "rice", Name: "Rice", CurrentStock: 1, MinThreshold: 5}}
}

func (s *stubService) Transactions(f analytics.Filter) []ledger.Transaction {
	s.lastFilter = f
	return analytics.FilterTransactions(s.log, f)
}

func newStub() *stubService {
	return &stubService{log: []ledger.Transaction{
		{ID: "s1", Date: "2024-03-02", Type: ledger.TypeSale, EntityID: "c1", EntityName: "Amal", TotalAmount: decimal.NewFromInt(40),
			Items: []ledger.TransactionItem{{ProductID: "rice", ProductName: "Rice", Quantity: 4, Price: decimal.NewFromInt(10), Cost: decimal.NewFromInt(5)}}},
	}}
}

func newRouter(svc AnalyticsService, role rbac.Role) http.Handler {
	h := NewHandler(nil, svc, rbac.Middleware{Checker: rbac.DefaultPolicy()})
	h.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor := &shared.Actor{UserID: "u-" + string(role), Role: string(role)}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
		})
	})
	h.MountRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
	return res
}

func TestReportForAccountantIncludesProfit(t *testing.T) {
	svc := newStub()
	res := get(t, newRouter(svc, rbac.RoleAccountant), "/api/reports?from=2024-03-01&branch_id=b1&q=rice")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, analytics.Filter{From: "2024-03-01", BranchID: "b1", Search: "rice"}, svc.lastFilter)

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Contains(t, body, "grossProfit")
	require.Contains(t, body, "cogs")
}

func TestReportRejectsBadDates(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleAccountant), "/api/reports?from=03/01/2024")
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestReportForbiddenForSales(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleSales), "/api/reports")
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestDashboardRedactsForSales(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleSales), "/api/dashboard")
	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotContains(t, body, "grossProfit")
	require.NotContains(t, body, "cogs")
	require.Equal(t, "40", body["sales"])

	res = get(t, newRouter(newStub(), rbac.RoleAdmin), "/api/dashboard")
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Contains(t, body, "grossProfit")
}

func TestLowStockRequiresAlerts(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleSales), "/api/alerts/low-stock")
	require.Equal(t, http.StatusForbidden, res.Code)

	res = get(t, newRouter(newStub(), rbac.RoleWarehouse), "/api/alerts/low-stock")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"productId":"rice"`)
}

func TestTransactionsCSVExport(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleAdmin), "/api/transactions?format=csv")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "text/csv; charset=utf-8", res.Header().Get("Content-Type"))
	require.Contains(t, res.Header().Get("Content-Disposition"), "transactions-20240310.csv")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(res.Body.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "s1", records[1][1])
}

func TestExportNeedsExportGrant(t *testing.T) {
	res := get(t, newRouter(newStub(), rbac.RoleSales), "/api/transactions?format=csv")
	require.Equal(t, http.StatusForbidden, res.Code)

	res = get(t, newRouter(newStub(), rbac.RoleAccountant), "/api/reports?format=pdf")
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = get(t, newRouter(newStub(), rbac.RoleSales), "/api/transactions")
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRateLimitKeyPrefersActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	key, err := rateLimitKey(req)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "ip:"))

	req = req.WithContext(shared.ContextWithActor(req.Context(), &shared.Actor{UserID: "7"}))
	key, err = rateLimitKey(req)
	require.NoError(t, err)
	require.Equal(t, "user:7", key)
}
