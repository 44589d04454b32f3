package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/models"
)

// ReceiptService owns the buildium_webhook_events receipt table. A receipt is
// inserted with status "received" before any processing side effects; the
// unique buildium_event_id column is what makes at-least-once delivery
// effectively exactly-once.
type ReceiptService struct {
	db *sql.DB
}

func NewReceiptService(db *sql.DB) *ReceiptService {
	return &ReceiptService{db: db}
}

// ReceiptGate is the outcome of recording a delivery. When Duplicate is true
// the event was seen before and already reached a terminal success state, so
// the caller must perform no further work.
type ReceiptGate struct {
	ReceiptID string
	Duplicate bool
}

// Record inserts the receipt for an upstream event id. If a receipt already
// exists, the previous status decides: "processed" and "skipped" short-circuit
// as duplicates, while "received" and "error" allow reprocessing so that a
// redelivery after a transient failure can converge.
func (rs *ReceiptService) Record(eventID, eventName string) (*ReceiptGate, error) {
	id := uuid.NewString()
	var insertedID string
	err := rs.db.QueryRow(`
		INSERT INTO buildium_webhook_events (id, buildium_event_id, event_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (buildium_event_id) DO NOTHING
		RETURNING id`,
		id, eventID, eventName, models.ReceiptReceived, time.Now()).Scan(&insertedID)
	if err == nil {
		return &ReceiptGate{ReceiptID: insertedID}, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	var existingID, status string
	err = rs.db.QueryRow(`
		SELECT id, status FROM buildium_webhook_events WHERE buildium_event_id = $1`,
		eventID).Scan(&existingID, &status)
	if err != nil {
		return nil, err
	}

	if status == models.ReceiptProcessed || status == models.ReceiptSkipped {
		return &ReceiptGate{ReceiptID: existingID, Duplicate: true}, nil
	}
	log.Printf("[WEBHOOK] Re-processing event %s with prior receipt status %q", eventID, status)
	return &ReceiptGate{ReceiptID: existingID}, nil
}

// MarkProcessed records terminal success for the receipt.
func (rs *ReceiptService) MarkProcessed(receiptID string) error {
	return rs.setStatus(receiptID, models.ReceiptProcessed, nil)
}

// MarkSkipped records a policy skip (e.g. non-deposit transaction type).
func (rs *ReceiptService) MarkSkipped(receiptID, reason string) error {
	return rs.setStatus(receiptID, models.ReceiptSkipped, &reason)
}

// MarkError records terminal failure with the captured message.
func (rs *ReceiptService) MarkError(receiptID, message string) error {
	return rs.setStatus(receiptID, models.ReceiptError, &message)
}

func (rs *ReceiptService) setStatus(receiptID, status string, message *string) error {
	_, err := rs.db.Exec(`
		UPDATE buildium_webhook_events
		SET status = $1, error_message = $2, processed_at = $3
		WHERE id = $4`,
		status, message, time.Now(), receiptID)
	return err
}

// ListRecent returns the most recent receipts, optionally filtered by status.
func (rs *ReceiptService) ListRecent(status string, limit int) ([]models.WebhookReceipt, error) {
	query := `
		SELECT id, buildium_event_id, event_name, status, error_message, processed_at, created_at
		FROM buildium_webhook_events`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := rs.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := []models.WebhookReceipt{}
	for rows.Next() {
		var r models.WebhookReceipt
		if err := rows.Scan(&r.ID, &r.BuildiumEventID, &r.EventName, &r.Status,
			&r.ErrorMessage, &r.ProcessedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
