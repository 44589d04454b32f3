package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/propfolio/backend/internal/models"
	"github.com/propfolio/backend/internal/services"
)

// Header names Buildium has used for the signature and timestamp across
// integration generations. Checked in order; first non-empty wins.
var signatureHeaders = []string{
	"x-buildium-signature",
	"buildium-webhook-signature",
	"x-buildium-webhook-signature",
	"x-webhook-signature",
}

var timestampHeaders = []string{
	"buildium-webhook-timestamp",
	"x-buildium-timestamp",
	"x-buildium-webhook-timestamp",
}

const maxWebhookBody = 1_048_576

type WebhookHandler struct {
	signatures *services.SignatureService
	ingestion  *services.IngestionService
}

func NewWebhookHandler(signatures *services.SignatureService, ingestion *services.IngestionService) *WebhookHandler {
	return &WebhookHandler{signatures: signatures, ingestion: ingestion}
}

func firstHeader(r *http.Request, names []string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// HandleWebhook ingests a batch of upstream events. Deterministic business
// failures answer 200 with success:false so the upstream does not retry a
// delivery that can never succeed; infrastructure failures answer 500 to
// invite redelivery.
// @Summary Ingest Buildium webhook events
// @Description Verifies the HMAC signature and posts bank deposit events to the ledger
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} object{success=bool}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} object{success=bool,error=string}
// @Router /webhooks/buildium [post]
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		services.SendErrorResponse(w, "Failed to read request body", http.StatusBadRequest, nil)
		return
	}

	signature := firstHeader(r, signatureHeaders)
	timestamp := firstHeader(r, timestampHeaders)
	if !h.signatures.Verify(rawBody, signature, timestamp) {
		log.Printf("[WEBHOOK] Rejected delivery with invalid signature from %s", r.RemoteAddr)
		services.SendErrorResponse(w, "Invalid signature", http.StatusUnauthorized, nil)
		return
	}

	payload, err := models.NormalizeWebhookPayload(rawBody)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "malformed payload"})
		return
	}
	if payload == nil || len(payload.Events) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "no events in payload"})
		return
	}

	if len(payload.Events) == 1 {
		h.respondSingle(w, r, &payload.Events[0])
		return
	}
	h.respondBatch(w, r, payload.Events)
}

// respondSingle preserves the flat response shape integrations depend on for
// one-event deliveries.
func (h *WebhookHandler) respondSingle(w http.ResponseWriter, r *http.Request, event *models.WebhookEvent) {
	result, err := h.ingestion.ProcessEvent(r.Context(), event)
	if err != nil {
		status, body := errorBody(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, singleBody(result))
}

func (h *WebhookHandler) respondBatch(w http.ResponseWriter, r *http.Request, events []models.WebhookEvent) {
	results := make([]map[string]any, 0, len(events))
	anyInfraFailure := false
	for i := range events {
		result, err := h.ingestion.ProcessEvent(r.Context(), &events[i])
		if err != nil {
			status, body := errorBody(err)
			if status == http.StatusInternalServerError {
				anyInfraFailure = true
			}
			results = append(results, body)
			continue
		}
		results = append(results, singleBody(result))
	}

	// One infrastructure failure fails the whole delivery so the upstream
	// redelivers; already-processed events short-circuit as duplicates then.
	status := http.StatusOK
	if anyInfraFailure {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{"success": !anyInfraFailure, "results": results})
}

func singleBody(result *services.IngestResult) map[string]any {
	if result.Skipped {
		return map[string]any{"success": true, "skipped": true, "reason": result.Reason}
	}
	return map[string]any{
		"success":                  true,
		"transactionId":            result.TransactionID,
		"totalAmount":              result.TotalAmount,
		"date":                     result.Date,
		"paymentTransactionsCount": result.PaymentTransactionsCount,
	}
}

func errorBody(err error) (int, map[string]any) {
	if services.IsDeterministicFailure(err) {
		return http.StatusOK, map[string]any{"success": false, "error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
