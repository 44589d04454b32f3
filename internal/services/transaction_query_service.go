package services

import (
	"database/sql"
	"fmt"

	"github.com/propfolio/backend/internal/models"
)

// TransactionView is a ledger transaction with its lines and payment links,
// as served by the read API.
type TransactionView struct {
	models.Transaction
	Lines []models.TransactionLine        `json:"lines"`
	Links []models.PaymentTransactionLink `json:"payment_transactions"`
}

// TransactionQueryService serves read-only views over what the ingestion
// pipeline wrote.
type TransactionQueryService struct {
	db *sql.DB
}

func NewTransactionQueryService(db *sql.DB) *TransactionQueryService {
	return &TransactionQueryService{db: db}
}

// GetTransaction returns the transaction with its lines and payment links,
// or nil when no such transaction exists.
func (ts *TransactionQueryService) GetTransaction(txID string) (*TransactionView, error) {
	var view TransactionView
	err := ts.db.QueryRow(`
		SELECT id, buildium_transaction_id, transaction_type, total_amount, date, memo,
		       bank_gl_account_id, bank_gl_account_buildium_id, org_id, created_at, updated_at
		FROM transactions WHERE id = $1`, txID,
	).Scan(
		&view.ID, &view.BuildiumTransactionID, &view.TransactionType, &view.TotalAmount,
		&view.Date, &view.Memo, &view.BankGlAccountID, &view.BankGlAccountBuildiumID,
		&view.OrgID, &view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transaction lookup failed: %w", err)
	}

	if view.Lines, err = ts.loadLines(txID); err != nil {
		return nil, err
	}
	if view.Links, err = ts.loadLinks(txID); err != nil {
		return nil, err
	}
	return &view, nil
}

func (ts *TransactionQueryService) loadLines(txID string) ([]models.TransactionLine, error) {
	rows, err := ts.db.Query(`
		SELECT id, transaction_id, gl_account_id, amount, posting_type,
		       property_id, unit_id, lease_id,
		       buildium_property_id, buildium_unit_id, buildium_lease_id,
		       memo, date, created_at, updated_at
		FROM transaction_lines WHERE transaction_id = $1
		ORDER BY created_at ASC`, txID)
	if err != nil {
		return nil, fmt.Errorf("transaction lines query failed: %w", err)
	}
	defer rows.Close()

	lines := []models.TransactionLine{}
	for rows.Next() {
		var l models.TransactionLine
		if err := rows.Scan(
			&l.ID, &l.TransactionID, &l.GlAccountID, &l.Amount, &l.PostingType,
			&l.PropertyID, &l.UnitID, &l.LeaseID,
			&l.BuildiumPropertyID, &l.BuildiumUnitID, &l.BuildiumLeaseID,
			&l.Memo, &l.Date, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (ts *TransactionQueryService) loadLinks(txID string) ([]models.PaymentTransactionLink, error) {
	rows, err := ts.db.Query(`
		SELECT id, transaction_id, buildium_payment_transaction_id, amount, created_at, updated_at
		FROM transaction_payment_transactions WHERE transaction_id = $1
		ORDER BY created_at ASC`, txID)
	if err != nil {
		return nil, fmt.Errorf("payment links query failed: %w", err)
	}
	defer rows.Close()

	links := []models.PaymentTransactionLink{}
	for rows.Next() {
		var l models.PaymentTransactionLink
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.BuildiumPaymentTransactionID, &l.Amount, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
