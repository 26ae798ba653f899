package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
	"banking-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	summaryService *service.SummaryService
}

func NewAccountHandler(accountService *service.AccountService, summaryService *service.SummaryService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		summaryService: summaryService,
	}
}

type CreateAccountRequest struct {
	AccountType    string `json:"account_type"`
	Currency       string `json:"currency"`
	InitialDeposit string `json:"initial_deposit,omitempty"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	initialDeposit := decimal.Zero
	if req.InitialDeposit != "" {
		parsed, err := decimal.NewFromString(req.InitialDeposit)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_deposit format"))
			return
		}
		initialDeposit = parsed
	}

	account, err := h.accountService.CreateAccount(&service.CreateAccountRequest{
		OwnerID:        requester,
		Type:           domain.AccountType(req.AccountType),
		Currency:       req.Currency,
		InitialDeposit: initialDeposit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id"))
		return
	}

	account, err := h.accountService.GetAccount(id, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts, err := h.accountService.ListAccounts(requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id"))
		return
	}

	account, err := h.accountService.CloseAccount(id, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

type EntryListResponse struct {
	Entries    []*domain.Entry         `json:"entries"`
	Pagination *service.PaginationMeta `json:"pagination"`
}

func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, meta, err := h.accountService.ListEntries(&service.ListEntriesRequest{
		AccountID:   id,
		RequesterID: requester,
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Pagination: meta})
}

func (h *AccountHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id"))
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	summary, err := h.summaryService.Summarize(id, requester, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
