package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propfolio/backend/internal/services"
)

// TransactionHandler serves the read API over what the ingestion pipeline
// wrote: transactions with their lines and linkages, and webhook receipts.
type TransactionHandler struct {
	queries   *services.TransactionQueryService
	receipts  *services.ReceiptService
	validator *services.ValidationHelper
}

func NewTransactionHandler(queries *services.TransactionQueryService, receipts *services.ReceiptService) *TransactionHandler {
	return &TransactionHandler{
		queries:   queries,
		receipts:  receipts,
		validator: services.NewValidationHelper(),
	}
}

// GetTransaction returns one ledger transaction with lines and payment links.
// @Summary Get a ledger transaction
// @Description Returns the transaction header with its double-entry lines and payment linkages
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param txId path string true "Transaction id"
// @Success 200 {object} services.TransactionView
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{txId} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txId")
	if txID == "" {
		services.SendErrorResponse(w, "Transaction id is required", http.StatusBadRequest, nil)
		return
	}

	view, err := h.queries.GetTransaction(txID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to load transaction", http.StatusInternalServerError, nil)
		return
	}
	if view == nil {
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type webhookEventsQuery struct {
	Status string `validate:"omitempty,oneof=received processed skipped error"`
	Limit  int    `validate:"gte=1,lte=200"`
}

// ListWebhookEvents lists recent webhook receipts.
// @Summary List webhook receipts
// @Description Returns recent webhook delivery receipts, optionally filtered by status
// @Tags Webhooks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Receipt status filter (received, processed, skipped, error)"
// @Param limit query int false "Maximum rows to return (default 50, max 200)"
// @Success 200 {array} models.WebhookReceipt
// @Failure 400 {object} services.ErrorResponse
// @Router /webhook-events [get]
func (h *TransactionHandler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	query := webhookEventsQuery{
		Status: r.URL.Query().Get("status"),
		Limit:  50,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		query.Limit = parsed
	}

	if err := h.validator.ValidateStruct(&query); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	receipts, err := h.receipts.ListRecent(query.Status, query.Limit)
	if err != nil {
		services.SendErrorResponse(w, "Failed to load webhook events", http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}
