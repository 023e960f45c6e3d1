package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/models"
	"github.com/vertexbank/backend/internal/service"
)

// user-facing messages for the two profile-update outcomes
const (
	msgAccountCreated = "Profile updated and new bank account created successfully. " +
		"An email has been sent to you with further instructions"
	msgAccountExisted = "Profile updated successfully. No new account created as one " +
		"already exists for this currency and type."
)

// Handler is for handling api requests
type Handler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
	profileService     *service.ProfileService
	archive            *db.Archive
}

func NewHandler(accounts *service.AccountService, transactions *service.TransactionService, profiles *service.ProfileService, archive *db.Archive) *Handler {
	return &Handler{
		accountService:     accounts,
		transactionService: transactions,
		profileService:     profiles,
		archive:            archive,
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// for error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// maps core errors onto HTTP statuses
func respondCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrAccountNotFound),
		errors.Is(err, db.ErrTransactionNotFound),
		errors.Is(err, db.ErrProfileNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidBalance),
		errors.Is(err, models.ErrInvalidEnumValue),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrMissingAccount),
		errors.Is(err, models.ErrSameAccount):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handles profile update and default account provisioning
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	profile := &models.Profile{
		UserID:        userID,
		FullName:      req.FullName,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
		PhoneNumber:   req.PhoneNumber,
		DateOfBirth:   req.DateOfBirth,
	}

	result, err := h.profileService.UpdateProfile(r.Context(), profile)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	message := msgAccountExisted
	if result.AccountCreated {
		message = msgAccountCreated
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"profile": result.Profile,
		"account": models.NewAccountResponse(result.Account),
	})
}

// handles profile retrieval
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// handles administrative account opening
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, created, err := h.accountService.EnsureAccount(r.Context(), req.UserID, req.Currency, req.AccountType)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"created": created,
		"account": models.NewAccountResponse(account),
	})
}

// handles account retrieval
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	account, err := h.accountService.GetAccount(r.Context(), number)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.NewAccountResponse(account))
}

// handles listing a user's accounts
func (h *Handler) GetUserAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	accounts, err := h.accountService.GetAccountsForUser(r.Context(), userID)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	response := make([]models.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		response = append(response, models.NewAccountResponse(account))
	}
	respondJSON(w, http.StatusOK, response)
}

// handles account status toggling
func (h *Handler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	var req struct {
		Status models.AccountStatus `json:"account_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.accountService.SetStatus(r.Context(), number, req.Status); err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"account_status": string(req.Status)})
}

// handles transaction recording
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// acting user, when the auth layer forwards one
	var userID uuid.UUID
	if header := r.Header.Get("X-User-ID"); header != "" {
		parsed, err := uuid.Parse(header)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid X-User-ID header")
			return
		}
		userID = parsed
	}

	tx, err := h.transactionService.Record(r.Context(), userID, &req)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	response := map[string]interface{}{
		"transaction": models.NewTransactionResponse(tx),
	}
	if tx.Status == models.Failed {
		response["message"] = "insufficient funds: transaction recorded as failed"
		respondJSON(w, http.StatusOK, response)
		return
	}
	respondJSON(w, http.StatusCreated, response)
}

// GetTransaction handles transaction retrieval
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.NewTransactionResponse(tx))
}

// GetTransactions handles transaction list retrieval
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]
	limit, offset := parsePagination(r)

	txs, err := h.transactionService.GetTransactionsByAccount(r.Context(), number, limit, offset)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	// Convert to response objects
	response := make([]models.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, models.NewTransactionResponse(tx))
	}
	respondJSON(w, http.StatusOK, response)
}

// handles statement retrieval from the archive
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondError(w, http.StatusServiceUnavailable, "statement archive not configured")
		return
	}

	number := mux.Vars(r)["number"]
	limit, offset := parsePagination(r)

	entries, err := h.archive.Statement(r.Context(), number, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePagination reads limit/offset query parameters with defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	// default limit is set to 10
	limit = 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	// default offset is set to 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// sets up the API routes
func SetupRoutes(r *mux.Router, accounts *service.AccountService, transactions *service.TransactionService, profiles *service.ProfileService, archive *db.Archive) {
	h := NewHandler(accounts, transactions, profiles, archive)

	// Health check (check if API is working)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Profile routes
	r.HandleFunc("/profiles/{userID}", h.GetProfile).Methods("GET")
	r.HandleFunc("/profiles/{userID}", h.UpdateProfile).Methods("PATCH", "PUT")
	r.HandleFunc("/profiles/{userID}/accounts", h.GetUserAccounts).Methods("GET")

	// Account routes
	r.HandleFunc("/accounts", h.OpenAccount).Methods("POST")
	r.HandleFunc("/accounts/{number}", h.GetAccount).Methods("GET")
	r.HandleFunc("/accounts/{number}/status", h.SetAccountStatus).Methods("POST")
	r.HandleFunc("/accounts/{number}/transactions", h.GetTransactions).Methods("GET")
	r.HandleFunc("/accounts/{number}/statement", h.GetStatement).Methods("GET")

	// Transaction routes
	r.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
}
