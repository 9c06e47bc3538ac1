package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"github.com/smallbiznis/revenue/internal/authorization"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/payment/validation"
	"github.com/smallbiznis/revenue/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentService struct {
	lastReq paymentdomain.SubmitRequest
	result  paymentdomain.Result
	err     error
	calls   int
}

func (f *fakePaymentService) Submit(ctx context.Context, req paymentdomain.SubmitRequest) (paymentdomain.Result, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

type fakeQueryService struct {
	lastList  paymentdomain.ListRequest
	lastStats paymentdomain.StatsRequest
	views     map[string]paymentdomain.PaymentView
	stats     paymentdomain.Stats
}

func (f *fakeQueryService) List(ctx context.Context, req paymentdomain.ListRequest) (paymentdomain.ListResponse, error) {
	f.lastList = req
	out := make([]paymentdomain.PaymentView, 0, len(f.views))
	for _, v := range f.views {
		out = append(out, v)
	}
	return paymentdomain.ListResponse{Payments: out}, nil
}

func (f *fakeQueryService) Get(ctx context.Context, reference string) (paymentdomain.PaymentView, error) {
	view, ok := f.views[reference]
	if !ok {
		return paymentdomain.PaymentView{}, paymentdomain.ErrNotFound
	}
	return view, nil
}

func (f *fakeQueryService) Stats(ctx context.Context, req paymentdomain.StatsRequest) (paymentdomain.Stats, error) {
	f.lastStats = req
	return f.stats, nil
}

type fakeAuditService struct {
	recorded []auditdomain.Entry
	lastList auditdomain.ListAuditLogRequest
}

func (f *fakeAuditService) Record(ctx context.Context, entry auditdomain.Entry) error {
	f.recorded = append(f.recorded, entry)
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.lastList = req
	return auditdomain.ListAuditLogResponse{
		PageInfo:  pagination.PageInfo{NextPageToken: "next", HasMore: true},
		AuditLogs: []auditdomain.AuditLog{{Action: auditdomain.ActionPaymentRecorded}},
	}, nil
}

type testServer struct {
	router   *gin.Engine
	payments *fakePaymentService
	query    *fakeQueryService
	audit    *fakeAuditService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer(nil)
	require.NoError(t, err)

	audit := &fakeAuditService{}
	payments := &fakePaymentService{}
	query := &fakeQueryService{views: map[string]paymentdomain.PaymentView{}}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine: router,
		log:    zap.NewNop(),
		authzSvc: authorization.NewService(authorization.Params{
			Log:      zap.NewNop(),
			Enforcer: enforcer,
			AuditSvc: audit,
		}),
		auditSvc:     audit,
		paymentSvc:   payments,
		paymentQuery: query,
	}
	srv.RegisterRoutes()

	return testServer{router: router, payments: payments, query: query, audit: audit}
}

func (ts testServer) do(method, path, body, actorID, role string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(HeaderActorID, actorID)
	}
	if role != "" {
		req.Header.Set(HeaderActorRole, role)
	}
	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

const cashBody = `{"account_number":"BOP-1001","account_type":"business","payment_method":"cash","amount":"500.00"}`

func TestSubmitPaymentRequiresActor(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/payments", cashBody, "", "")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, ts.payments.calls)
}

func TestSubmitPaymentViewerIsForbidden(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/payments", cashBody, "u-7", "viewer")

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, ts.payments.calls)
	require.Len(t, ts.audit.recorded, 1)
	assert.Equal(t, auditdomain.ActionAuthorizationDenied, ts.audit.recorded[0].Action)
}

func TestSubmitPaymentSuccess(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.result = paymentdomain.Result{
		Success:          true,
		PaymentReference: "PAY-20260115-01HZX3Q8K2M4",
		ReceiptNumber:    "RCP-20260115-01HZX3Q8K2M5",
		AmountPaid:       "500.00",
		NewBalance:       "0.00",
		Status:           "paid",
	}

	resp := ts.do(http.MethodPost, "/api/payments",
		`{"account_number":"BOP-1001","account_type":"business","payment_method":"cash","amount":500.00,"period":2026}`,
		"cashier-9", "Cashier")

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "PAY-20260115-01HZX3Q8K2M4", body["payment_reference"])
	assert.NotContains(t, body, "error")

	assert.Equal(t, "500.00", ts.payments.lastReq.Amount)
	assert.Equal(t, 2026, ts.payments.lastReq.Period)
	assert.Equal(t, paymentdomain.Actor{Type: "user", ID: "cashier-9", Role: "cashier"}, ts.payments.lastReq.Actor)
}

func TestSubmitPaymentSystemActor(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.result = paymentdomain.Result{Success: true}

	resp := ts.do(http.MethodPost, "/api/payments", cashBody, "momo-gateway", "system")

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "system", ts.payments.lastReq.Actor.Type)
}

func TestSubmitPaymentValidationReturnsEveryViolation(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.result = paymentdomain.Result{
		Errors: []string{"payment method is invalid", "amount must be greater than zero", "notes is too long"},
	}
	ts.payments.err = &validation.ValidationError{Violations: []validation.Violation{
		{Field: "method", Code: validation.CodeInvalidMethod, Message: "payment method is invalid"},
		{Field: "amount", Code: validation.CodeAmountNotPositive, Message: "amount must be greater than zero"},
		{Field: "notes", Code: validation.CodeTooLong, Message: "notes is too long"},
	}}

	resp := ts.do(http.MethodPost, "/api/payments", cashBody, "cashier-9", "cashier")

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Len(t, body["errors"], 3)

	payload := body["error"].(map[string]any)
	assert.Equal(t, "validation_error", payload["type"])
	assert.Len(t, payload["errors"], 3)
}

func TestSubmitPaymentErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{accountdomain.ErrNotFound, http.StatusNotFound},
		{accountdomain.ErrInvalidAccountType, http.StatusBadRequest},
		{ledgerdomain.ErrConcurrentModification, http.StatusConflict},
		{ledgerdomain.ErrDuplicateReference, http.StatusConflict},
		{fmt.Errorf("%w: %w", ledgerdomain.ErrPersistenceFailure, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ts := newTestServer(t)
			ts.payments.result = paymentdomain.Result{Errors: []string{"reason"}}
			ts.payments.err = tc.err

			resp := ts.do(http.MethodPost, "/api/payments", cashBody, "cashier-9", "cashier")

			assert.Equal(t, tc.status, resp.Code)
			body := decode(t, resp)
			assert.Equal(t, []any{"reason"}, body["errors"])
		})
	}
}

func TestSubmitPaymentMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/payments", `{"amount":`, "cashier-9", "cashier")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, ts.payments.calls)
}

func TestListPaymentsPassesFilters(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet,
		"/api/payments?start_date=2026-01-01&end_date=2026-01-31&account_type=property&payment_method=Mobile%20Money&status=successful&search=BOP&page_size=5",
		"", "v-1", "viewer")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := ts.query.lastList
	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.StartDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.EndDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "property", got.AccountType)
	assert.Equal(t, "Mobile Money", got.Method)
	assert.Equal(t, "successful", got.Status)
	assert.Equal(t, "BOP", got.Search)
	assert.Equal(t, 5, got.PageSize)
}

func TestListPaymentsRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/payments?start_date=yesterday", "", "v-1", "viewer")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetPayment(t *testing.T) {
	ts := newTestServer(t)
	ts.query.views["PAY-1"] = paymentdomain.PaymentView{Payment: paymentdomain.Payment{PaymentReference: "PAY-1", AmountPaid: 50000}}

	resp := ts.do(http.MethodGet, "/api/payments/PAY-1", "", "v-1", "viewer")
	require.Equal(t, http.StatusOK, resp.Code)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, "PAY-1", data["payment_reference"])

	resp = ts.do(http.MethodGet, "/api/payments/PAY-404", "", "v-1", "viewer")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPaymentStatsRouteIsNotAReference(t *testing.T) {
	ts := newTestServer(t)
	ts.query.stats = paymentdomain.Stats{
		Count: 2,
		Total: 80000,
		ByMethod: []paymentdomain.MethodTotal{
			{Method: paymentdomain.MethodCash, Count: 1, Total: 50000},
			{Method: paymentdomain.MethodMobileMoney, Count: 1, Total: 30000},
		},
	}

	resp := ts.do(http.MethodGet, "/api/payments/stats?today=true&account_type=business", "", "v-1", "viewer")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, ts.query.lastStats.TodayOnly)
	assert.Equal(t, "business", ts.query.lastStats.AccountType)

	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, "800.00", data["total_display"])
	methods := data["by_method"].([]any)
	require.Len(t, methods, 2)
	assert.Equal(t, "Mobile Money", methods[1].(map[string]any)["label"])
}

func TestListAuditLogsNeedsAdmin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/audit-logs", "", "c-1", "cashier")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(http.MethodGet, "/api/audit-logs?action=PAYMENT_RECORDED&actor_id=c-1&from=2026-01-01&page_size=10", "", "a-1", "admin")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := ts.audit.lastList
	assert.Equal(t, "PAYMENT_RECORDED", got.Action)
	assert.Equal(t, "c-1", got.ActorID)
	assert.Equal(t, 10, got.PageSize)
	require.NotNil(t, got.StartAt)

	pageInfo := decode(t, resp)["page_info"].(map[string]any)
	assert.Equal(t, "next", pageInfo["next_page_token"])
}

func TestUnknownRoleIsForbidden(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/payments", "", "x-1", "superuser")

	assert.Equal(t, http.StatusForbidden, resp.Code)
}
