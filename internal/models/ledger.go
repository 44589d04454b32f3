package models

import (
	"time"
)

// PostingType is the side of a double-entry ledger line.
type PostingType string

const (
	PostingDebit  PostingType = "Debit"
	PostingCredit PostingType = "Credit"
)

// GlAccount is a row in gl_accounts. Bank accounts are represented as
// gl_accounts rows with is_bank_account=true where buildium_gl_account_id
// stores the Buildium bank account id (not the nested GLAccount id).
type GlAccount struct {
	ID                      string    `json:"id" db:"id"`
	Name                    string    `json:"name" db:"name"`
	Description             *string   `json:"description,omitempty" db:"description"`
	Type                    string    `json:"type" db:"type"`
	SubType                 *string   `json:"sub_type,omitempty" db:"sub_type"`
	IsActive                bool      `json:"is_active" db:"is_active"`
	IsBankAccount           bool      `json:"is_bank_account" db:"is_bank_account"`
	BuildiumGlAccountID     *int64    `json:"buildium_gl_account_id,omitempty" db:"buildium_gl_account_id"`
	CashFlowClassification  *string   `json:"cash_flow_classification,omitempty" db:"cash_flow_classification"`
	ExcludeFromCashBalances bool      `json:"exclude_from_cash_balances" db:"exclude_from_cash_balances"`
	BankAccountType         *string   `json:"bank_account_type,omitempty" db:"bank_account_type"`
	BankAccountNumber       *string   `json:"bank_account_number,omitempty" db:"bank_account_number"`
	BankRoutingNumber       *string   `json:"bank_routing_number,omitempty" db:"bank_routing_number"`
	OrgID                   *string   `json:"org_id,omitempty" db:"org_id"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is the local ledger header for one upstream bank transaction.
// BuildiumTransactionID is unique and is the idempotency anchor: re-delivery
// of the same upstream transaction updates this row in place.
type Transaction struct {
	ID                      string    `json:"id" db:"id"`
	BuildiumTransactionID   int64     `json:"buildium_transaction_id" db:"buildium_transaction_id"`
	TransactionType         string    `json:"transaction_type" db:"transaction_type"`
	TotalAmount             float64   `json:"total_amount" db:"total_amount"`
	Date                    string    `json:"date" db:"date"`
	Memo                    *string   `json:"memo,omitempty" db:"memo"`
	BankGlAccountID         string    `json:"bank_gl_account_id" db:"bank_gl_account_id"`
	BankGlAccountBuildiumID *int64    `json:"bank_gl_account_buildium_id,omitempty" db:"bank_gl_account_buildium_id"`
	OrgID                   *string   `json:"org_id,omitempty" db:"org_id"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// TransactionLine is one side of a double-entry posting. Lines for a
// transaction are always fully replaced, never merged, on re-ingestion.
type TransactionLine struct {
	ID                 string      `json:"id" db:"id"`
	TransactionID      string      `json:"transaction_id" db:"transaction_id"`
	GlAccountID        string      `json:"gl_account_id" db:"gl_account_id"`
	Amount             float64     `json:"amount" db:"amount"`
	PostingType        PostingType `json:"posting_type" db:"posting_type"`
	PropertyID         *string     `json:"property_id,omitempty" db:"property_id"`
	UnitID             *string     `json:"unit_id,omitempty" db:"unit_id"`
	LeaseID            *string     `json:"lease_id,omitempty" db:"lease_id"`
	BuildiumPropertyID *int64      `json:"buildium_property_id,omitempty" db:"buildium_property_id"`
	BuildiumUnitID     *int64      `json:"buildium_unit_id,omitempty" db:"buildium_unit_id"`
	BuildiumLeaseID    *int64      `json:"buildium_lease_id,omitempty" db:"buildium_lease_id"`
	Memo               *string     `json:"memo,omitempty" db:"memo"`
	Date               string      `json:"date" db:"date"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// PaymentTransactionLink records which upstream payment transactions compose
// a local deposit transaction, with the amount attributed to each. Amount may
// be null when only bare payment ids were known at ingestion time.
type PaymentTransactionLink struct {
	ID                           string    `json:"id" db:"id"`
	TransactionID                string    `json:"transaction_id" db:"transaction_id"`
	BuildiumPaymentTransactionID int64     `json:"buildium_payment_transaction_id" db:"buildium_payment_transaction_id"`
	Amount                       *float64  `json:"amount,omitempty" db:"amount"`
	CreatedAt                    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at" db:"updated_at"`
}

// Webhook receipt statuses.
const (
	ReceiptReceived  = "received"
	ReceiptProcessed = "processed"
	ReceiptSkipped   = "skipped"
	ReceiptError     = "error"
)

// WebhookReceipt is the durable record of one webhook delivery, keyed by the
// upstream event id. Inserted before any processing side effects occur.
type WebhookReceipt struct {
	ID              string     `json:"id" db:"id"`
	BuildiumEventID string     `json:"buildium_event_id" db:"buildium_event_id"`
	EventName       string     `json:"event_name" db:"event_name"`
	Status          string     `json:"status" db:"status"`
	ErrorMessage    *string    `json:"error_message,omitempty" db:"error_message"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Split is one resolved component of an aggregate deposit: the upstream
// payment transaction it came from, the amount attributed to it, and the
// property/unit/lease context it posts against.
type Split struct {
	PaymentID          int64
	Amount             float64
	PropertyID         *string
	UnitID             *string
	LeaseID            *string
	BuildiumPropertyID *int64
	BuildiumUnitID     *int64
	BuildiumLeaseID    *int64
}
