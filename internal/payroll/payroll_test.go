package payroll_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/payroll"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
	"github.com/manara-erp/manara/internal/store"
	_ "github.com/manara-erp/manara/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seeded(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s := store.New(nil, nil)
	_, err := s.AddEntity(ctx, masterdata.Safe{ID: "S", Name: "Till", Balance: d("5000")})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Employee{ID: "E", Name: "Huda", BaseSalary: d("3000"), BranchID: "b1", Status: "active"})
	require.NoError(t, err)
	return s
}

func TestNetSalary(t *testing.T) {
	require.True(t, payroll.NetSalary(d("3000"), d("250"), d("100")).Equal(d("3150")))
	require.True(t, payroll.NetSalary(d("100"), d("0"), d("150")).Equal(d("-50")))
}

func TestPayDebitsSafe(t *testing.T) {
	s := seeded(t)
	svc := payroll.NewService(s)

	payment, outcome, err := svc.Pay(context.Background(), payroll.PaymentInput{
		EmployeeID: "E", Month: 3, Year: 2024, Bonus: d("250"), Deduction: d("100"), SafeID: "S", Date: "2024-03-31",
	})
	require.NoError(t, err)
	require.True(t, payment.NetSalary.Equal(d("3150")))
	require.Equal(t, "Huda", payment.EmployeeName)
	require.Equal(t, "b1", payment.BranchID)
	require.Equal(t, ledger.TypeSalary, outcome.Transaction.Type)
	require.Equal(t, payment.ID, outcome.Transaction.ID)

	bal, _ := s.SafeBalance("S")
	require.True(t, bal.Equal(d("1850")))
	require.Len(t, svc.Payments(), 1)
}

func TestPayRejectsUnknownEmployeeAndPeriod(t *testing.T) {
	svc := payroll.NewService(seeded(t))
	_, _, err := svc.Pay(context.Background(), payroll.PaymentInput{EmployeeID: "ghost", Month: 1, Year: 2024, SafeID: "S"})
	require.ErrorIs(t, err, payroll.ErrEmployeeNotFound)

	_, _, err = svc.Pay(context.Background(), payroll.PaymentInput{EmployeeID: "E", Month: 13, Year: 2024, SafeID: "S"})
	require.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

func TestPayWithUnknownSafeWarns(t *testing.T) {
	s := seeded(t)
	_, outcome, err := payroll.NewService(s).Pay(context.Background(), payroll.PaymentInput{EmployeeID: "E", Month: 1, Year: 2024, SafeID: "missing"})
	require.NoError(t, err)
	require.True(t, outcome.HasWarnings())
	require.Equal(t, ledger.WarnReferenceNotFound, outcome.Warnings[0].Kind)
}

func newRouter(s *store.Store, role rbac.Role) http.Handler {
	h := payroll.NewHandler(nil, payroll.NewService(s), rbac.Middleware{Checker: rbac.DefaultPolicy()})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithActor(req.Context(), &shared.Actor{UserID: "u1", Role: string(role)})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.MountRoutes(r)
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/payroll/payments", strings.NewReader(body)))
	return res
}

func TestHandlerPay(t *testing.T) {
	s := seeded(t)
	r := newRouter(s, rbac.RoleAdmin)

	res := post(r, `{"employeeId":"E","month":4,"year":2024,"bonus":"0","deduction":"500","safeId":"S"}`)
	require.Equal(t, http.StatusCreated, res.Code)
	var body struct {
		Payment ledger.SalaryPayment `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.True(t, body.Payment.NetSalary.Equal(d("2500")))
	require.NotEmpty(t, body.Payment.Date)

	require.Equal(t, http.StatusNotFound, post(r, `{"employeeId":"X","month":4,"year":2024,"safeId":"S"}`).Code)
	require.Equal(t, http.StatusBadRequest, post(r, `{"employeeId":"E","month":0,"year":2024,"safeId":"S"}`).Code)
	require.Equal(t, http.StatusBadRequest, post(r, `{"employeeId":"E","month":4,"year":2024,"deduction":"-1","safeId":"S"}`).Code)

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/payroll/payments", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var payments []ledger.SalaryPayment
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
}

func TestHandlerPayForbiddenOutsideEmployeesView(t *testing.T) {
	r := newRouter(seeded(t), rbac.RoleAccountant)
	require.Equal(t, http.StatusForbidden, post(r, `{"employeeId":"E","month":4,"year":2024,"safeId":"S"}`).Code)
}
