package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"oticagest/backend/internal/cache"
	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/service"
	"oticagest/backend/internal/stats"
	"oticagest/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	engine := stats.NewEngine(repo, cache.NoopStatsCache{}, 5*time.Second)
	svc := service.New(repo, engine, service.ReportDefaults{})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

// login obtains an access token for the given seeded account.
func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

// csrfToken fetches a fresh CSRF token for mutating requests.
func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token failed: %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	return body["csrf_token"]
}

// doJSON performs an authenticated JSON request with a CSRF token attached.
func doJSON(t *testing.T, handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", csrfToken(t, handler))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	handler := newTestAPI(t).Handler()

	// The loginLimiter allows 5 attempts per minute per client IP.
	var lastCode int
	for i := 0; i < 6; i++ {
		payload, _ := json.Marshal(map[string]string{
			"username": "admin",
			"password": "badpass",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after 6 attempts, got %d", lastCode)
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestHandleCustomers_CreateAndFetch(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "vendedor", "seller123")

	rec := doJSON(t, handler, http.MethodPost, "/api/customers", token, domain.CustomerCreateRequest{
		Name:  "Carlos Lima",
		Email: "carlos@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Customer domain.Customer `json:"customer"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.Customer.ID == "" {
		t.Fatal("expected generated customer id")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/customers/"+created.Customer.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleCustomers_UnknownIDIs404(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/customers/cus-nope", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSales_CreateDecrementsStock(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "vendedor", "seller123")

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleCreateRequest{
		CustomerID:    "cus-1",
		PaymentMethod: domain.PaymentPix,
		Items: []domain.SaleItem{
			{ProductID: "prd-5", Quantity: 3},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.Sale.TotalCents != 3*2990 {
		t.Fatalf("expected total %d, got %d", 3*2990, created.Sale.TotalCents)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/products/prd-5", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var fetched struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if fetched.Product.Stock != 37 {
		t.Fatalf("expected stock 37 after sale, got %d", fetched.Product.Stock)
	}
}

func TestHandleSales_InsufficientStockIs409(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "vendedor", "seller123")

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItem{
			{ProductID: "prd-5", Quantity: 9999},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSales_StatusUpdate(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPatch, "/api/sales/sal-2/status", token, domain.SaleStatusUpdateRequest{
		Status: domain.SaleStatusCompleted,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected status %q, got %q", domain.SaleStatusCompleted, body.Sale.Status)
	}
}

func TestHandleReportExport_StreamsPDF(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/reports/export", token, map[string]any{
		"period": map[string]string{"preset": "30days"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "relatorio_vendas_") || !strings.HasSuffix(disposition, `.pdf"`) {
		t.Fatalf("unexpected content disposition %q", disposition)
	}
	if saved := rec.Header().Get("X-Report-Saved"); saved != "true" {
		t.Fatalf("expected X-Report-Saved true, got %q", saved)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("expected PDF payload")
	}

	// The export must leave a report record behind.
	listRec := doJSON(t, handler, http.MethodGet, "/api/reports", token, nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listRec.Code)
	}
	var listing struct {
		Reports []domain.Report `json:"reports"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listing); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(listing.Reports) != 1 {
		t.Fatalf("expected 1 report record, got %d", len(listing.Reports))
	}
	if listing.Reports[0].CreatedBy != "admin" {
		t.Fatalf("expected report created by admin, got %q", listing.Reports[0].CreatedBy)
	}
}

func TestHandleReportExport_BadPeriodIs400(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/reports/export", token, map[string]any{
		"period": map[string]string{"preset": "custom"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleAuditLogs_SellerForbidden(t *testing.T) {
	handler := newTestAPI(t).Handler()
	sellerToken := login(t, handler, "vendedor", "seller123")

	rec := doJSON(t, handler, http.MethodGet, "/api/audit-logs", sellerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller, got %d", rec.Code)
	}

	adminToken := login(t, handler, "admin", "admin123")
	rec = doJSON(t, handler, http.MethodGet, "/api/audit-logs", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSellers_AdminCreatesAccount(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/users/sellers", token, domain.SellerCreateRequest{
		Username: "joana",
		Password: "segredo1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// The new account can log in right away.
	newToken := login(t, handler, "joana", "segredo1")
	if newToken == "" {
		t.Fatal("expected access token for new seller")
	}
}

// TestMustHashPassword verifies that the test helper produces valid bcrypt hashes
// (used to confirm test infrastructure is sound).
func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}
