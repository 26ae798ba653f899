package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
	"banking-ledger/internal/metrics"
	"banking-ledger/internal/service"
)

type TransferHandler struct {
	transferService *service.TransferService
}

func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

type TransferRequest struct {
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Description          string `json:"description,omitempty"`
}

func (h *TransferHandler) Execute(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid source_account_id"))
		return
	}
	destID, err := uuid.Parse(req.DestinationAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid destination_account_id"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	// Opaque, passed through unmodified.
	var idempotencyKey *string
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		idempotencyKey = &key
	}

	result, err := h.transferService.Execute(&service.ExecuteRequest{
		RequesterID:          requester,
		SourceAccountID:      sourceID,
		DestinationAccountID: destID,
		Amount:               amount,
		Currency:             req.Currency,
		Description:          req.Description,
		IdempotencyKey:       idempotencyKey,
	})
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(string(errors.CodeOf(err))).Inc()
		writeServiceError(w, err)
		return
	}

	metrics.TransfersTotal.WithLabelValues("completed").Inc()
	writeJSON(w, http.StatusCreated, result)
}

func (h *TransferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["transfer_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid transfer_id"))
		return
	}

	transfer, err := h.transferService.GetByID(id, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transfer)
}

type TransferListResponse struct {
	Transfers  []*domain.Transfer      `json:"transfers"`
	Pagination *service.PaginationMeta `json:"pagination"`
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	query := r.URL.Query()

	req := &service.ListTransfersRequest{
		RequesterID: requester,
		Direction:   domain.TransferDirection(query.Get("direction")),
	}

	if raw := query.Get("status"); raw != "" {
		status := domain.TransferStatus(raw)
		req.Status = &status
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "from must be RFC 3339"))
			return
		}
		req.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "to must be RFC 3339"))
			return
		}
		req.To = &to
	}
	req.Page, _ = strconv.Atoi(query.Get("page"))
	req.Limit, _ = strconv.Atoi(query.Get("limit"))

	transfers, meta, err := h.transferService.List(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransferListResponse{Transfers: transfers, Pagination: meta})
}

func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requester, appErr := requesterID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["transfer_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid transfer_id"))
		return
	}

	transfer, err := h.transferService.Cancel(id, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transfer)
}
