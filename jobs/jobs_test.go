package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/manara-erp/manara/internal/jobs"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
	"github.com/manara-erp/manara/internal/store"
)

type fakeVerifier struct {
	loadErr    error
	loads      int
	mismatches []store.Mismatch
}

func (f *fakeVerifier) Load(context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeVerifier) Verify() []store.Mismatch { return f.mismatches }

type fakeWarmer struct {
	calls int
	err   error
}

func (f *fakeWarmer) Warmup(context.Context) error {
	f.calls++
	return f.err
}

func TestNewTask(t *testing.T) {
	task, err := NewTask(TaskLedgerVerify, "cron")
	require.NoError(t, err)
	require.Equal(t, TaskLedgerVerify, task.Type())
	var payload LedgerVerifyPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "cron", payload.Trigger)

	task, err = NewTask(TaskAnalyticsWarmup, "manual")
	require.NoError(t, err)
	require.Equal(t, TaskAnalyticsWarmup, task.Type())

	_, err = NewTask("mail:send", "")
	require.ErrorIs(t, err, ErrUnknownTask)
}

func TestLedgerVerifyReportsMismatches(t *testing.T) {
	ledger := &fakeVerifier{mismatches: []store.Mismatch{
		{Kind: "stock", ID: "p1", WarehouseID: "w1", Current: "5", Replayed: "4"},
		{Kind: "cash", ID: "s1", Current: "10", Replayed: "12"},
	}}
	job := NewLedgerVerifyJob(ledger, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLedgerVerifyTask("cron")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, ledger.loads)
}

func TestLedgerVerifyPropagatesLoadFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewLedgerVerifyJob(&fakeVerifier{loadErr: boom}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLedgerVerifyTask("cron")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	verify := NewLedgerVerifyJob(&fakeVerifier{}, nil, nil)
	require.ErrorIs(t, verify.Handle(context.Background(), asynq.NewTask(TaskLedgerVerify, []byte("{"))), asynq.SkipRetry)

	warm := NewAnalyticsWarmupJob(&fakeWarmer{}, nil, nil, nil)
	require.ErrorIs(t, warm.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, []byte("{"))), asynq.SkipRetry)
}

func TestAnalyticsWarmupReloadsThenWarms(t *testing.T) {
	ledger := &fakeVerifier{}
	warmer := &fakeWarmer{}
	job := NewAnalyticsWarmupJob(warmer, ledger, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewAnalyticsWarmupTask("cron")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, ledger.loads)
	require.Equal(t, 1, warmer.calls)

	warmer.err = errors.New("redis down")
	require.ErrorIs(t, job.Handle(context.Background(), task), warmer.err)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

type fakeEnqueuer struct{ got string }

func (f *fakeEnqueuer) Trigger(_ context.Context, name, _ string) (*asynq.TaskInfo, error) {
	if _, err := NewTask(name, ""); err != nil {
		return nil, err
	}
	f.got = name
	return &asynq.TaskInfo{ID: "job-1", Type: name, Queue: QueueDefault}, nil
}

func newRouter(h *Handler, role rbac.Role) http.Handler {
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

func TestHandlerHealth(t *testing.T) {
	guard := rbac.Middleware{Checker: rbac.DefaultPolicy()}
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil, guard, nil)

	rr := httptest.NewRecorder()
	newRouter(h, rbac.RoleSales).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var out queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, 3, out.Pending)

	h = NewHandler(fakeInspector{err: errors.New("down")}, nil, guard, nil)
	rr = httptest.NewRecorder()
	newRouter(h, rbac.RoleSales).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandlerTrigger(t *testing.T) {
	guard := rbac.Middleware{Checker: rbac.DefaultPolicy()}
	enq := &fakeEnqueuer{}
	h := NewHandler(nil, enq, guard, nil)

	rr := httptest.NewRecorder()
	newRouter(h, rbac.RoleAccountant).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/jobs/ledger:verify", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(h, rbac.RoleAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/jobs/ledger:verify", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, TaskLedgerVerify, enq.got)

	rr = httptest.NewRecorder()
	newRouter(h, rbac.RoleAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/jobs/mail:send", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
