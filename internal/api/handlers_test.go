package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/auth"
	"github.com/redpay/terminal-api/internal/config"
	"github.com/redpay/terminal-api/internal/models"
	"github.com/redpay/terminal-api/internal/notify"
	"github.com/redpay/terminal-api/internal/services"
	"github.com/redpay/terminal-api/internal/worker"
)

// ----------------- stubs -----------------

type memUsers struct {
	mu   sync.Mutex
	byID map[string]models.User
	seq  int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]models.User{}} }

func (s *memUsers) Create(ctx context.Context, username, email, hash, role string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u := models.User{
		ID: fmt.Sprintf("user-%d", s.seq), Username: username, Email: email,
		PasswordHash: hash, Role: role, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.byID[u.ID] = u
	return u, nil
}

func (s *memUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return models.User{}, errors.New("not found")
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, errors.New("not found")
}

func (s *memUsers) List(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.byID {
		out = append(out, u)
	}
	return out, nil
}

type memProfiles struct {
	mu       sync.Mutex
	byUser   map[string]models.Profile
	addCalls int
}

func newMemProfiles() *memProfiles { return &memProfiles{byUser: map[string]models.Profile{}} }

func (s *memProfiles) Create(ctx context.Context, userID, businessName string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Profile{ID: "profile-" + userID, UserID: userID, BusinessName: businessName}
	s.byUser[userID] = p
	return p, nil
}

func (s *memProfiles) GetByUserID(ctx context.Context, userID string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byUser[userID]; ok {
		return p, nil
	}
	return models.Profile{}, errors.New("not found")
}

func (s *memProfiles) AddToBalance(ctx context.Context, userID string, delta decimal.Decimal) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	p, ok := s.byUser[userID]
	if !ok {
		return models.Profile{}, errors.New("not found")
	}
	p.Balance = p.Balance.Add(delta)
	s.byUser[userID] = p
	return p, nil
}

type memTransactions struct {
	mu          sync.Mutex
	rows        []models.Transaction
	seq         int
	createCalls int
}

func (s *memTransactions) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.seq++
	tx.ID = fmt.Sprintf("tx-%d", s.seq)
	tx.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	tx.UpdatedAt = tx.CreatedAt
	s.rows = append(s.rows, tx)
	return tx, nil
}

func (s *memTransactions) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.rows {
		if tx.ID == id {
			return tx, nil
		}
	}
	return models.Transaction{}, errors.New("not found")
}

func (s *memTransactions) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *memTransactions) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Status = status
			return nil
		}
	}
	return errors.New("not found")
}

type memAuditLogs struct{}

func (memAuditLogs) Create(ctx context.Context, l models.AuditLog) error { return nil }

type silentNotifier struct{}

func (silentNotifier) Notify(severity notify.Severity, title, description string) {}

// ----------------- harness -----------------

type harness struct {
	server *httptest.Server
	trx    *memTransactions
	prof   *memProfiles
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	users := newMemUsers()
	prof := newMemProfiles()
	trx := &memTransactions{}
	wp := worker.NewPool(1)
	t.Cleanup(wp.Stop)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := auth.NewTokenManager("test-access", "test-refresh", "redpay-test", 15*time.Minute, time.Hour)
	userSvc := services.NewUserService(users, prof, tm)
	profileSvc := services.NewProfileService(prof)
	ledger := services.NewLedger(trx, prof, memAuditLogs{}, silentNotifier{}, nil, wp, log)

	r := NewRouter(config.Config{Env: "test"}, userSvc, profileSvc, ledger, tm)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{server: srv, trx: trx, prof: prof}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func (h *harness) registerAndLogin(t *testing.T) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "terminal1", "email": "ops@redpay.test", "password": "secret1", "business_name": "Red Cafe",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@redpay.test", "password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d body=%s", resp.StatusCode, body)
	}
	var pair services.TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return pair.AccessToken
}

// ----------------- tests -----------------

func TestPaymentsRequireToken(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(t, http.MethodPost, "/api/v1/payments", "", map[string]any{
		"amount": 10, "payment_method": "card",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", resp.StatusCode)
	}
	if h.trx.createCalls != 0 {
		t.Fatalf("ledger reached without identity: %d creates", h.trx.createCalls)
	}
}

func TestPaymentRejectsNonPositiveAmountUpstream(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin(t)

	for _, amount := range []any{0, -3.5} {
		resp, body := h.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{
			"amount": amount, "payment_method": "card",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("amount=%v status=%d body=%s, want 400", amount, resp.StatusCode, body)
		}
	}
	if h.trx.createCalls != 0 {
		t.Fatalf("ledger reached despite invalid amount: %d creates", h.trx.createCalls)
	}
}

func TestPaymentFlow(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{
		"amount": 42.50, "payment_method": "card", "description": "Coffee", "card_number": "4111111111114242",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("payment status=%d body=%s", resp.StatusCode, body)
	}
	var tx models.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		t.Fatal(err)
	}
	if tx.Status != models.TxnCompleted || tx.Type != models.TxnPayment {
		t.Fatalf("tx=%+v want completed payment", tx)
	}
	if tx.CardLastFour == nil || *tx.CardLastFour != "4242" {
		t.Fatalf("card_last_four=%v want 4242", tx.CardLastFour)
	}

	resp, body = h.do(t, http.MethodGet, "/api/v1/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status=%d body=%s", resp.StatusCode, body)
	}
	var p models.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatal(err)
	}
	if !p.Balance.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("balance=%s want 42.5", p.Balance)
	}

	resp, body = h.do(t, http.MethodGet, "/api/v1/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d body=%s", resp.StatusCode, body)
	}
	var txs []models.Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Fatalf("list=%+v want the created payment first", txs)
	}
}

func TestGetTransactionHidesForeignRows(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin(t)

	h.trx.rows = append(h.trx.rows, models.Transaction{
		ID: "tx-foreign", UserID: "someone-else",
		Type: models.TxnPayment, Status: models.TxnCompleted,
	})
	resp, _ := h.do(t, http.MethodGet, "/api/v1/transactions/tx-foreign", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", resp.StatusCode)
	}
}

func TestUsersEndpointNeedsAdmin(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin(t)
	resp, _ := h.do(t, http.MethodGet, "/api/v1/users", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status=%d want 403", resp.StatusCode)
	}
}
