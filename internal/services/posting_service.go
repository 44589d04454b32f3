package services

import (
	"database/sql"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/propfolio/backend/internal/models"
)

// PostingInput carries everything needed to post one deposit to the local
// ledger. BankGlAccount and UndepositedFundsGlAccountID must already be
// resolved; posting never does lookups of its own.
type PostingInput struct {
	OrgID                       *string
	BuildiumTransactionID       int64
	TransactionType             string
	Date                        string
	Memo                        *string
	HeaderAmount                float64
	BankGlAccount               *BankAccountLookup
	UndepositedFundsGlAccountID string
	Splits                      []models.Split
	Parts                       []PaymentPart
}

// PostingResult reports what was written.
type PostingResult struct {
	TransactionID string
	TotalAmount   float64
	LineCount     int
	LinkCount     int
}

// PostingService writes deposit transactions to the ledger. Each deposit is
// one header row plus balanced debit/credit line pairs, replaced wholesale on
// re-ingestion so redelivery always converges on the latest upstream state.
type PostingService struct {
	db *sql.DB
}

func NewPostingService(db *sql.DB) *PostingService {
	return &PostingService{db: db}
}

// PostDeposit upserts the transaction header keyed on the upstream
// transaction id, then replaces all lines and payment links in the same
// database transaction. Every split posts as a Debit against the bank GL
// account and a Credit against Undeposited Funds sharing one amount, so the
// ledger stays balanced by construction.
func (ps *PostingService) PostDeposit(input PostingInput) (*PostingResult, error) {
	if input.BankGlAccount == nil || input.BankGlAccount.ID == "" {
		return nil, fmt.Errorf("%w: deposit posting requires a bank gl account", ErrResolution)
	}
	if input.UndepositedFundsGlAccountID == "" {
		return nil, fmt.Errorf("%w: deposit posting requires an undeposited funds account", ErrResolution)
	}

	total := ps.resolveTotal(input)

	tx, err := ps.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txID, err := ps.upsertHeader(tx, input, total)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM transaction_lines WHERE transaction_id = $1`, txID); err != nil {
		return nil, fmt.Errorf("failed to clear transaction lines: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM transaction_payment_transactions WHERE transaction_id = $1`, txID); err != nil {
		return nil, fmt.Errorf("failed to clear payment links: %w", err)
	}

	lineCount, err := ps.insertLines(tx, txID, input, total)
	if err != nil {
		return nil, err
	}
	linkCount, err := ps.insertLinks(tx, txID, input.Parts)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit posting: %w", err)
	}

	log.Printf("[POSTING] Posted deposit %d as transaction %s: total=%.2f lines=%d links=%d",
		input.BuildiumTransactionID, txID, total, lineCount, linkCount)
	return &PostingResult{TransactionID: txID, TotalAmount: total, LineCount: lineCount, LinkCount: linkCount}, nil
}

// resolveTotal prefers the sum of resolved splits, then the deposit's own
// header amount, then the sum of known part amounts. A disagreement between
// split sum and header amount beyond half a cent is logged, not fatal; the
// split sum wins because it is what actually posts.
func (ps *PostingService) resolveTotal(input PostingInput) float64 {
	var splitSum float64
	for _, s := range input.Splits {
		splitSum += s.Amount
	}
	header := math.Abs(input.HeaderAmount)

	if splitSum > 0 {
		if header > 0 && math.Abs(splitSum-header) > 0.005 {
			log.Printf("[POSTING] WARNING: split sum %.2f disagrees with header amount %.2f for deposit %d",
				splitSum, header, input.BuildiumTransactionID)
		}
		return splitSum
	}
	if header > 0 {
		return header
	}
	var partSum float64
	for _, p := range input.Parts {
		if p.Amount != nil {
			partSum += math.Abs(*p.Amount)
		}
	}
	return partSum
}

func (ps *PostingService) upsertHeader(tx *sql.Tx, input PostingInput, total float64) (string, error) {
	transactionType := input.TransactionType
	if transactionType == "" {
		transactionType = "deposit"
	}

	var txID string
	row := tx.QueryRow(`
		INSERT INTO transactions (
			id, buildium_transaction_id, transaction_type, total_amount, date, memo,
			bank_gl_account_id, bank_gl_account_buildium_id, org_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (buildium_transaction_id) DO UPDATE SET
			transaction_type = EXCLUDED.transaction_type,
			total_amount = EXCLUDED.total_amount,
			date = EXCLUDED.date,
			memo = EXCLUDED.memo,
			bank_gl_account_id = EXCLUDED.bank_gl_account_id,
			bank_gl_account_buildium_id = EXCLUDED.bank_gl_account_buildium_id,
			org_id = COALESCE(EXCLUDED.org_id, transactions.org_id),
			updated_at = NOW()
		RETURNING id`,
		uuid.New().String(), input.BuildiumTransactionID, transactionType, total, input.Date,
		input.Memo, input.BankGlAccount.ID, input.BankGlAccount.BuildiumGlAccountID, input.OrgID,
	)
	if err := row.Scan(&txID); err != nil {
		return "", fmt.Errorf("failed to upsert transaction header: %w", err)
	}
	return txID, nil
}

func (ps *PostingService) insertLines(tx *sql.Tx, txID string, input PostingInput, total float64) (int, error) {
	splits := input.Splits
	if len(splits) == 0 {
		if total <= 0 {
			return 0, nil
		}
		// Degenerate deposit with no resolvable components still posts one
		// balanced pair for the header total.
		splits = []models.Split{{Amount: total}}
	}

	count := 0
	for _, s := range splits {
		if err := ps.insertLine(tx, txID, input, s, models.PostingDebit, input.BankGlAccount.ID); err != nil {
			return count, err
		}
		if err := ps.insertLine(tx, txID, input, s, models.PostingCredit, input.UndepositedFundsGlAccountID); err != nil {
			return count, err
		}
		count += 2
	}
	return count, nil
}

func (ps *PostingService) insertLine(tx *sql.Tx, txID string, input PostingInput, s models.Split, posting models.PostingType, glAccountID string) error {
	_, err := tx.Exec(`
		INSERT INTO transaction_lines (
			id, transaction_id, gl_account_id, amount, posting_type,
			property_id, unit_id, lease_id,
			buildium_property_id, buildium_unit_id, buildium_lease_id,
			memo, date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`,
		uuid.New().String(), txID, glAccountID, s.Amount, string(posting),
		s.PropertyID, s.UnitID, s.LeaseID,
		s.BuildiumPropertyID, s.BuildiumUnitID, s.BuildiumLeaseID,
		input.Memo, input.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s line: %w", posting, err)
	}
	return nil
}

func (ps *PostingService) insertLinks(tx *sql.Tx, txID string, parts []PaymentPart) (int, error) {
	count := 0
	for _, p := range parts {
		_, err := tx.Exec(`
			INSERT INTO transaction_payment_transactions (
				id, transaction_id, buildium_payment_transaction_id, amount, created_at, updated_at
			) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
			uuid.New().String(), txID, p.PaymentID, p.Amount,
		)
		if err != nil {
			return count, fmt.Errorf("failed to insert payment link for %d: %w", p.PaymentID, err)
		}
		count++
	}
	return count, nil
}
