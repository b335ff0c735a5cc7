package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/api/httpx"
	"github.com/redpay/terminal-api/internal/api/validate"
	"github.com/redpay/terminal-api/internal/middleware"
	"github.com/redpay/terminal-api/internal/models"
	"github.com/redpay/terminal-api/internal/services"
)

// ---------- auth ----------

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		BusinessName string `json:"business_name"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	u, p, err := a.users.Register(r.Context(), req.Username, req.Email, req.Password, req.BusinessName)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "registration_failed", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": u, "profile": p})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	pair, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "refresh_token required", nil)
		return
	}
	pair, err := a.users.Refresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid refresh token", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// ---------- profile ----------

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	p, err := a.profiles.Current(r.Context(), uid)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "profile not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// ---------- payments ----------

// processPayment is the payment initiation surface. The amount and card
// checks live here, upstream of the ledger.
func (a *API) processPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"payment_method"`
		Description   string          `json:"description"`
		CardNumber    string          `json:"card_number"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}

	cardLastFour := ""
	if len(req.CardNumber) >= 4 {
		cardLastFour = req.CardNumber[len(req.CardNumber)-4:]
	}

	var errs validate.Errs
	if e := validate.PositiveAmount("amount", req.Amount); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.Required("payment_method", req.PaymentMethod); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.CardLastFour("card_number", cardLastFour); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}

	uid := middleware.UserID(r.Context())
	tx, err := a.ledger.ProcessPayment(r.Context(), uid, req.Amount, models.PaymentMethod(req.PaymentMethod), req.Description, cardLastFour)
	if err != nil {
		writeLedgerError(w, tx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tx)
}

// ---------- transactions ----------

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type          string          `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency"`
		PaymentMethod string          `json:"payment_method"`
		CardLastFour  *string         `json:"card_last_four"`
		Status        string          `json:"status"`
		Description   *string         `json:"description"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	uid := middleware.UserID(r.Context())
	tx, err := a.ledger.Create(r.Context(), uid, services.CreateTransactionInput{
		Type:          models.TransactionType(req.Type),
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		CardLastFour:  req.CardLastFour,
		Status:        models.TransactionStatus(req.Status),
		Description:   req.Description,
	})
	if err != nil {
		writeLedgerError(w, tx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tx)
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid limit", nil)
			return
		}
		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			if n, err := strconv.Atoi(o); err == nil && n >= 0 {
				offset = n
			}
		}
		txs, err := a.ledger.ListByUser(r.Context(), uid, limit, offset)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to load transactions", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, txs)
		return
	}

	// full sync: refresh the cached ledger and return it
	txs, err := a.ledger.Fetch(r.Context(), uid)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to load transactions", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (a *API) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := a.ledger.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "transaction not found", nil)
		return
	}

	claims, _ := middleware.GetClaims(r.Context())
	if tx.UserID != claims.UserID && claims.Role != "admin" {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "transaction not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

// ---------- users ----------

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func writeLedgerError(w http.ResponseWriter, tx models.Transaction, err error) {
	switch {
	case errors.Is(err, services.ErrAuthRequired):
		httpx.WriteError(w, http.StatusUnauthorized, "auth_required", "please sign in to process transactions", nil)
	case tx.ID != "":
		// the row exists but settlement failed
		httpx.WriteError(w, http.StatusInternalServerError, "settlement_failed", err.Error(), tx)
	default:
		httpx.WriteError(w, http.StatusBadRequest, "transaction_failed", err.Error(), nil)
	}
}
