package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/adapter/metrics"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/internal/core/ports/mocks"
	"ebook-marketplace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type routerFixture struct {
	router  *gin.Engine
	settle  *mocks.MockSettlementService
	creds   *mocks.MockCredentialService
	admin   *mocks.MockUserAdminService
	limiter *mocks.MockRateLimiter
}

// newRouterFixture wires the real permission service behind mocked business
// services. Bearer tokens have the form "tok-<userID>" and resolve to users.
func newRouterFixture(t *testing.T, users ...domain.User) *routerFixture {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenService(ctrl)
	repo := mocks.NewMockUserRepository(ctrl)

	byID := make(map[int64]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	tokens.EXPECT().Validate(gomock.Any()).DoAndReturn(func(tok string) (*ports.TokenClaims, error) {
		id, err := strconv.ParseInt(strings.TrimPrefix(tok, "tok-"), 10, 64)
		if err != nil {
			return nil, err
		}
		return &ports.TokenClaims{UserID: id}, nil
	}).AnyTimes()
	repo.EXPECT().GetByID(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, id int64) (*domain.User, error) {
		u, ok := byID[id]
		if !ok {
			return nil, nil
		}
		return &u, nil
	}).AnyTimes()

	f := &routerFixture{
		settle:  mocks.NewMockSettlementService(ctrl),
		creds:   mocks.NewMockCredentialService(ctrl),
		admin:   mocks.NewMockUserAdminService(ctrl),
		limiter: mocks.NewMockRateLimiter(ctrl),
	}
	f.router = SetupRouter(RouterDeps{
		SettlementSvc:   f.settle,
		CredentialSvc:   f.creds,
		AdminSvc:        f.admin,
		Evaluator:       service.NewPermissionService(nil),
		Capabilities:    domain.DefaultCapabilities(),
		TokenSvc:        tokens,
		UserRepo:        repo,
		RateLimiter:     f.limiter,
		CheckoutPerHour: 20,
		Metrics:         metrics.NewSettlementMetrics().Handler(),
		Docs:            NewAPIDocs([]byte("openapi: 3.0.3\n"), "Ebook Marketplace Payments"),
		Logger:          zerolog.Nop(),
	})
	return f
}

func (f *routerFixture) do(method, path string, userID int64, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer tok-"+strconv.FormatInt(userID, 10))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

var (
	clientUser  = domain.User{ID: 7, Role: domain.RoleClient, Status: domain.UserStatusApproved}
	vendorUser  = domain.User{ID: 3, Role: domain.RoleVendor, Status: domain.UserStatusApproved}
	adminUser   = domain.User{ID: 1, Role: domain.RoleAdmin, Status: domain.UserStatusApproved}
	pendingUser = domain.User{ID: 8, Role: domain.RoleVendor, Status: domain.UserStatusPending}
)

func TestRouter_PublicEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", 0, "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/payments/webhook", 0, "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/swagger/spec", 0, "").Code)

	w := f.do(http.MethodGet, "/metrics", 0, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_WebhookNeedsNoBearer(t *testing.T) {
	f := newRouterFixture(t)
	f.settle.EXPECT().HandleWebhook(gomock.Any(), []byte(`{"id":"p"}`), "sig").Return(domain.SettlementIgnored, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(`{"id":"p"}`))
	req.Header.Set("X-Slickpay-Signature", "sig")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_OversizedWebhookNeverReachesSettlement(t *testing.T) {
	f := newRouterFixture(t)
	// No HandleWebhook expectation: a body over the cap is refused before verification.

	body := strings.Repeat("x", int(middleware.MaxRequestBody)+1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Slickpay-Signature", "sig")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_003")
}

func TestRouter_CheckoutRequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/v1/payments/checkout", 0, `{"bookId":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_CheckoutAsClient(t *testing.T) {
	f := newRouterFixture(t, clientUser)

	f.limiter.EXPECT().Allow(gomock.Any(), "checkout:user:7", int64(20), time.Hour).Return(true, int64(19), nil)
	f.settle.EXPECT().Checkout(gomock.Any(), clientUser.Principal(), int64(5)).
		Return(&ports.CheckoutResult{Reference: uuid.New(), PaymentURL: "https://pay.example/x"}, nil)

	w := f.do(http.MethodPost, "/api/v1/payments/checkout", clientUser.ID, `{"bookId":5}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_CheckoutRateLimited(t *testing.T) {
	f := newRouterFixture(t, clientUser)

	f.limiter.EXPECT().Allow(gomock.Any(), "checkout:user:7", int64(20), time.Hour).Return(false, int64(0), nil)

	w := f.do(http.MethodPost, "/api/v1/payments/checkout", clientUser.ID, `{"bookId":5}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestRouter_PendingAccountGated(t *testing.T) {
	f := newRouterFixture(t, pendingUser)

	w := f.do(http.MethodGet, "/api/v1/payments/config", pendingUser.ID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHZ_002")

	// Profile reads stay open to pending accounts.
	w = f.do(http.MethodGet, "/api/v1/profile", pendingUser.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_PaymentConfigIsVendorOnly(t *testing.T) {
	f := newRouterFixture(t, clientUser, vendorUser)

	w := f.do(http.MethodGet, "/api/v1/payments/config", clientUser.ID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHZ_001")

	f.creds.EXPECT().GetSummary(gomock.Any(), vendorUser.ID).Return(domain.CredentialSummary{}, nil)
	w = f.do(http.MethodGet, "/api/v1/payments/config", vendorUser.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	f := newRouterFixture(t, vendorUser, adminUser)

	w := f.do(http.MethodPatch, "/api/v1/admin/users/8/approve", vendorUser.ID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.admin.EXPECT().Approve(gomock.Any(), adminUser.Principal(), int64(8)).
		Return(&domain.User{ID: 8, Role: domain.RoleVendor, Status: domain.UserStatusApproved}, nil)
	w = f.do(http.MethodPatch, "/api/v1/admin/users/8/approve", adminUser.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_VendorSeesOwnTransactions(t *testing.T) {
	f := newRouterFixture(t, vendorUser)
	ref := uuid.New()

	f.settle.EXPECT().RefreshStatus(gomock.Any(), vendorUser.Principal(), ref).Return(&ports.TransactionView{
		Transaction: &domain.Transaction{Reference: ref, VendorID: vendorUser.ID, Status: domain.TransactionStatusCompleted},
	}, nil)

	w := f.do(http.MethodPost, "/api/v1/payments/transactions/"+ref.String()+"/refresh", vendorUser.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}
