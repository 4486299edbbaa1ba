package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/internal/core/ports/mocks"
	"ebook-marketplace/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	buyer  = domain.Principal{UserID: 7, Role: domain.RoleClient, Status: domain.UserStatusApproved}
	vendor = domain.Principal{UserID: 3, Role: domain.RoleVendor, Status: domain.UserStatusApproved}
	admin  = domain.Principal{UserID: 1, Role: domain.RoleAdmin, Status: domain.UserStatusApproved}
)

func newContext(method, path string, body []byte, p *domain.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if p != nil {
		c.Set(middleware.CtxPrincipal, *p)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Payment Handler Tests ---

func TestCheckout_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	ref := uuid.New()
	mockSettle.EXPECT().Checkout(gomock.Any(), buyer, int64(12)).Return(&ports.CheckoutResult{
		Reference:  ref,
		PaymentURL: "https://pay.slickpay.dz/i/abc",
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/payments/checkout", []byte(`{"bookId":12}`), &buyer)
	h.Checkout(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, ref.String(), data["reference"])
	assert.Equal(t, "https://pay.slickpay.dz/i/abc", data["paymentUrl"])
	assert.Equal(t, ref.String(), c.GetString(middleware.CtxResourceID))
}

func TestCheckout_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPaymentHandler(mocks.NewMockSettlementService(ctrl))

	for _, body := range []string{`{}`, `{"bookId":0}`, `{"bookId":"x"}`, `not json`} {
		c, w := newContext(http.MethodPost, "/api/v1/payments/checkout", []byte(body), &buyer)
		h.Checkout(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "VAL_001", decode(t, w)["error_code"], body)
	}
}

func TestCheckout_GatewayFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	mockSettle.EXPECT().Checkout(gomock.Any(), buyer, int64(12)).
		Return(nil, apperror.ErrGatewayFailure(errors.New("503 from processor")))

	c, w := newContext(http.MethodPost, "/api/v1/payments/checkout", []byte(`{"bookId":12}`), &buyer)
	h.Checkout(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "GW_001", decode(t, w)["error_code"])
	assert.Empty(t, c.GetString(middleware.CtxResourceID))
}

func TestWebhook_PassesRawBodyAndSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	raw := []byte(`{"id":"pay_1","status":"completed","metadata":{"transaction_uuid":"x"}}`)
	mockSettle.EXPECT().HandleWebhook(gomock.Any(), raw, "deadbeef").Return(domain.SettlementApplied, nil)

	c, w := newContext(http.MethodPost, "/api/v1/payments/webhook", raw, nil)
	c.Request.Header.Set(HeaderWebhookSignature, "deadbeef")
	h.Webhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "applied", data["outcome"])
	assert.Equal(t, true, data["received"])
}

func TestWebhook_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	mockSettle.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), "").Return(domain.SettlementOutcome(""), apperror.ErrInvalidSignature())

	c, w := newContext(http.MethodPost, "/api/v1/payments/webhook", []byte(`{}`), nil)
	h.Webhook(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INT_001", decode(t, w)["error_code"])
}

func TestWebhookProbe(t *testing.T) {
	h := NewPaymentHandler(nil)
	c, w := newContext(http.MethodGet, "/api/v1/payments/webhook", nil, nil)
	h.WebhookProbe(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTransaction_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	ref := uuid.New()
	reason := "card declined"
	trx := &domain.Transaction{
		Reference: ref,
		BuyerID:   buyer.UserID,
		VendorID:  vendor.UserID,
		ItemID:    12,
		Amount:    decimal.RequireFromString("1500.00"),
		Currency:  "DZD",
		Status:    domain.TransactionStatusFailed,
		CreatedAt: time.Now(),
	}
	mockSettle.EXPECT().GetTransaction(gomock.Any(), vendor, ref).
		Return(&ports.TransactionView{Transaction: trx, FailureReason: &reason}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/payments/transactions/"+ref.String(), nil, &vendor)
	c.Params = gin.Params{{Key: "reference", Value: ref.String()}}
	h.GetTransaction(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, ref.String(), data["reference"])
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, "card declined", data["failureReason"])
}

func TestGetTransaction_MalformedReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPaymentHandler(mocks.NewMockSettlementService(ctrl))

	c, w := newContext(http.MethodGet, "/api/v1/payments/transactions/nope", nil, &buyer)
	c.Params = gin.Params{{Key: "reference", Value: "nope"}}
	h.GetTransaction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NF_001", decode(t, w)["error_code"])
}

func TestRefreshTransaction_NotAParty(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSettle)

	ref := uuid.New()
	mockSettle.EXPECT().RefreshStatus(gomock.Any(), buyer, ref).Return(nil, apperror.ErrNotFound("Transaction"))

	c, w := newContext(http.MethodPost, "/api/v1/payments/transactions/"+ref.String()+"/refresh", nil, &buyer)
	c.Params = gin.Params{{Key: "reference", Value: ref.String()}}
	h.RefreshTransaction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Merchant Handler Tests ---

func TestSaveConfig_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCred := mocks.NewMockCredentialService(ctrl)
	h := NewMerchantHandler(mockCred)

	mockCred.EXPECT().Save(gomock.Any(), vendor.UserID, domain.CredentialInput{
		APIKey:     "pk_test_123456",
		SecretKey:  "sk_test_<raw>&",
		IsTestMode: true,
	}).Return(domain.CredentialSummary{Configured: true, ID: 4, IsActive: true, IsTestMode: true}, nil)

	body := []byte(`{"apiKey":"pk_test_123456","secretKey":"sk_test_<raw>&"}`)
	c, w := newContext(http.MethodPost, "/api/v1/payments/config", body, &vendor)
	h.SaveConfig(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["configured"])
	assert.NotContains(t, w.Body.String(), "sk_test")
}

func TestSaveConfig_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewMerchantHandler(mocks.NewMockCredentialService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/payments/config", []byte(`{"apiKey":"pk_test_123456"}`), &vendor)
	h.SaveConfig(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConfig_NotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCred := mocks.NewMockCredentialService(ctrl)
	h := NewMerchantHandler(mockCred)

	mockCred.EXPECT().GetSummary(gomock.Any(), vendor.UserID).Return(domain.CredentialSummary{}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/payments/config", nil, &vendor)
	h.GetConfig(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["configured"])
}

func TestTestConfig_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCred := mocks.NewMockCredentialService(ctrl)
	h := NewMerchantHandler(mockCred)

	mockCred.EXPECT().TestConnection(gomock.Any(), vendor.UserID).
		Return(domain.CredentialSummary{}, apperror.ErrCredentialsInvalid(errors.New("401")))

	c, w := newContext(http.MethodPost, "/api/v1/payments/config/test", nil, &vendor)
	h.TestConfig(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "CRED_002", decode(t, w)["error_code"])
}

func TestDeleteConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCred := mocks.NewMockCredentialService(ctrl)
	h := NewMerchantHandler(mockCred)

	mockCred.EXPECT().Deactivate(gomock.Any(), vendor.UserID).Return(nil)

	c, w := newContext(http.MethodDelete, "/api/v1/payments/config", nil, &vendor)
	h.DeleteConfig(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- User Handler Tests ---

func TestLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewUserHandler(mockSettle, nil)

	mockSettle.EXPECT().Library(gomock.Any(), buyer.UserID).Return([]domain.Purchase{
		{ID: 1, UserID: buyer.UserID, ItemID: 12, TransactionID: 40, PurchasedAt: time.Now()},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/library", nil, &buyer)
	h.Library(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, float64(12), data[0].(map[string]interface{})["bookId"])
}

func TestLibrary_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSettle := mocks.NewMockSettlementService(ctrl)
	h := NewUserHandler(mockSettle, nil)

	mockSettle.EXPECT().Library(gomock.Any(), buyer.UserID).Return(nil, nil)

	c, w := newContext(http.MethodGet, "/api/v1/library", nil, &buyer)
	h.Library(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestProfile(t *testing.T) {
	h := NewUserHandler(nil, domain.DefaultCapabilities())

	c, w := newContext(http.MethodGet, "/api/v1/profile", nil, &vendor)
	h.Profile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "vendor", data["role"])
	perms := data["permissions"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"create", "read", "update", "delete"}, perms["payment_config"])
	assert.Nil(t, data["superuser"])

	c, w = newContext(http.MethodGet, "/api/v1/profile", nil, &admin)
	h.Profile(c)
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["superuser"])
}

// --- Admin Handler Tests ---

func TestApprove(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAdmin := mocks.NewMockUserAdminService(ctrl)
	h := NewAdminHandler(mockAdmin)

	approvedBy := admin.UserID
	mockAdmin.EXPECT().Approve(gomock.Any(), admin, int64(9)).Return(&domain.User{
		ID: 9, Email: "v@example.dz", Role: domain.RoleVendor, Status: domain.UserStatusApproved, ApprovedBy: &approvedBy,
	}, nil)

	c, w := newContext(http.MethodPatch, "/api/v1/admin/users/9/approve", nil, &admin)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.Approve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, float64(1), data["approvedBy"])
}

func TestApprove_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAdminHandler(mocks.NewMockUserAdminService(ctrl))

	for _, id := range []string{"abc", "0", "-4"} {
		c, w := newContext(http.MethodPatch, "/api/v1/admin/users/"+id+"/approve", nil, &admin)
		c.Params = gin.Params{{Key: "id", Value: id}}
		h.Approve(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAdmin := mocks.NewMockUserAdminService(ctrl)
	h := NewAdminHandler(mockAdmin)

	c, w := newContext(http.MethodPatch, "/api/v1/admin/users/9/reject", []byte(`{}`), &admin)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.Reject(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockAdmin.EXPECT().Reject(gomock.Any(), admin, int64(9), "missing documents").
		Return(&domain.User{ID: 9, Role: domain.RolePending, Status: domain.UserStatusRejected}, nil)

	c, w = newContext(http.MethodPatch, "/api/v1/admin/users/9/reject", []byte(`{"reason":" missing documents "}`), &admin)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.Reject(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSuspend_Self(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAdmin := mocks.NewMockUserAdminService(ctrl)
	h := NewAdminHandler(mockAdmin)

	mockAdmin.EXPECT().Suspend(gomock.Any(), admin, admin.UserID).Return(nil, apperror.ErrForbidden())

	c, w := newContext(http.MethodPatch, "/api/v1/admin/users/1/suspend", nil, &admin)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.Suspend(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChangeRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAdmin := mocks.NewMockUserAdminService(ctrl)
	h := NewAdminHandler(mockAdmin)

	mockAdmin.EXPECT().ChangeRole(gomock.Any(), admin, int64(9), domain.RoleVendor).
		Return(&domain.User{ID: 9, Role: domain.RoleVendor, Status: domain.UserStatusApproved}, nil)

	c, w := newContext(http.MethodPatch, "/api/v1/admin/users/9/role", []byte(`{"role":"vendor"}`), &admin)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.ChangeRole(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vendor", decode(t, w)["data"].(map[string]interface{})["role"])
}

// --- Health ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck(t *testing.T) {
	c, w := newContext(http.MethodGet, "/health", nil, nil)
	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"})(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	c, w = newContext(http.MethodGet, "/health", nil, nil)
	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis", err: errors.New("refused")})(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	deps := decode(t, w)["dependencies"].(map[string]interface{})
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]interface{})["status"])
}

func TestAPIDocs(t *testing.T) {
	c, w := newContext(http.MethodGet, "/swagger/spec", nil, nil)
	NewAPIDocs(nil, "Docs").Spec(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	docs := NewAPIDocs([]byte("openapi: 3.0.3\n"), "Ebook Marketplace Payments")
	c, w = newContext(http.MethodGet, "/swagger/spec", nil, nil)
	docs.Spec(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "openapi: 3.0.3\n", w.Body.String())

	c, w = newContext(http.MethodGet, "/swagger", nil, nil)
	docs.UI(c)
	assert.Contains(t, w.Body.String(), "<title>Ebook Marketplace Payments</title>")
}
