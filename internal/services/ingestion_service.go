package services

import (
	"context"
	"fmt"
	"log"

	"github.com/propfolio/backend/internal/models"
)

// UpstreamClient is the slice of the Buildium API the ingestion pipeline
// needs. Satisfied by buildium.Client.
type UpstreamClient interface {
	GLTransactionFetcher
	GetBankAccount(ctx context.Context, bankAccountID int64) (*models.BuildiumBankAccount, error)
	GetBankDeposit(ctx context.Context, bankAccountID, depositID int64) (*models.BuildiumDeposit, error)
}

// ingestState tracks where an event is in its pipeline. States only ever
// advance; any failure is terminal for the delivery (the receipt keeps the
// error and redelivery starts over).
type ingestState string

const (
	stateReceived            ingestState = "received"
	stateValidated           ingestState = "validated"
	stateOrgResolved         ingestState = "org_resolved"
	stateBankAccountResolved ingestState = "bank_account_resolved"
	stateSplitsResolved      ingestState = "splits_resolved"
	statePosted              ingestState = "posted"
	stateLinked              ingestState = "linked"
	stateDone                ingestState = "done"
)

// IngestResult is the outcome of processing one webhook event.
type IngestResult struct {
	Skipped                  bool
	Duplicate                bool
	Reason                   string
	TransactionID            string
	TotalAmount              float64
	Date                     string
	PaymentTransactionsCount int
}

// IngestionService drives one webhook event through validation, resolution,
// split decomposition and posting.
type IngestionService struct {
	receipts   *ReceiptService
	resolver   *ResolverService
	glAccounts *GlAccountService
	splits     *SplitService
	poster     *PostingService
	locks      *LockService
	upstream   UpstreamClient
}

func NewIngestionService(
	receipts *ReceiptService,
	resolver *ResolverService,
	glAccounts *GlAccountService,
	splits *SplitService,
	poster *PostingService,
	locks *LockService,
	upstream UpstreamClient,
) *IngestionService {
	return &IngestionService{
		receipts:   receipts,
		resolver:   resolver,
		glAccounts: glAccounts,
		splits:     splits,
		poster:     poster,
		locks:      locks,
		upstream:   upstream,
	}
}

func (is *IngestionService) transition(eventKey string, state ingestState) {
	log.Printf("[INGEST] event %s -> %s", eventKey, state)
}

// ProcessEvent runs the full pipeline for one event. Validation happens
// before the receipt insert so a malformed event never writes anything.
// After the receipt exists, every failure lands in its error column so the
// upstream's redelivery can converge later.
func (is *IngestionService) ProcessEvent(ctx context.Context, event *models.WebhookEvent) (*IngestResult, error) {
	eventKey := event.EventKey()
	if eventKey == "" {
		return nil, fmt.Errorf("%w: event is missing an id", ErrValidation)
	}
	is.transition(eventKey, stateReceived)

	// Id validation precedes the transaction-type branch: an event missing
	// either id is terminal regardless of type, and writes no receipt.
	transactionType := event.ResolveTransactionType()
	bankAccountID, hasBankAccount := event.ResolveBankAccountID()
	transactionID, hasTransaction := event.ResolveTransactionID()
	if !hasBankAccount {
		return nil, fmt.Errorf("%w: event %s is missing BankAccountId", ErrValidation, eventKey)
	}
	if !hasTransaction {
		return nil, fmt.Errorf("%w: event %s is missing TransactionId", ErrValidation, eventKey)
	}

	gate, err := is.receipts.Record(eventKey, event.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to record webhook receipt: %w", err)
	}
	if gate.Duplicate {
		log.Printf("[INGEST] event %s already processed, short-circuiting", eventKey)
		return &IngestResult{Skipped: true, Duplicate: true, Reason: "duplicate delivery"}, nil
	}

	if transactionType != "deposit" {
		reason := fmt.Sprintf("transaction type %q is not processed", transactionType)
		if err := is.receipts.MarkSkipped(gate.ReceiptID, reason); err != nil {
			log.Printf("[INGEST] WARNING: failed to mark receipt %s skipped: %v", gate.ReceiptID, err)
		}
		return &IngestResult{Skipped: true, Reason: reason}, nil
	}
	is.transition(eventKey, stateValidated)

	result, err := is.processDeposit(ctx, eventKey, bankAccountID, transactionID, event)
	if err != nil {
		if markErr := is.receipts.MarkError(gate.ReceiptID, err.Error()); markErr != nil {
			log.Printf("[INGEST] WARNING: failed to mark receipt %s errored: %v", gate.ReceiptID, markErr)
		}
		return nil, err
	}

	if err := is.receipts.MarkProcessed(gate.ReceiptID); err != nil {
		log.Printf("[INGEST] WARNING: failed to mark receipt %s processed: %v", gate.ReceiptID, err)
	}
	is.transition(eventKey, stateDone)
	return result, nil
}

func (is *IngestionService) processDeposit(ctx context.Context, eventKey string, bankAccountID, transactionID int64, event *models.WebhookEvent) (*IngestResult, error) {
	var orgID *string
	if accountID, ok := event.ResolveAccountID(); ok {
		resolved, err := is.resolver.OrgIDFromAccountID(accountID)
		if err != nil {
			return nil, fmt.Errorf("organization lookup failed: %w", err)
		}
		if resolved == nil {
			log.Printf("[INGEST] no organization for upstream account %d, continuing unscoped", accountID)
		}
		orgID = resolved
	}
	is.transition(eventKey, stateOrgResolved)

	deposit, err := is.upstream.GetBankDeposit(ctx, bankAccountID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: deposit %d fetch failed: %v", ErrUpstreamFetch, transactionID, err)
	}

	// The deposit payload sometimes embeds a full bank account with GL detail;
	// when it does not, fetch it so provisioning can copy real fields. A failed
	// backfill is tolerated because provisioning still works off the id alone.
	account := deposit.BankAccount
	if account == nil || !account.HasGLAccountDetail() {
		fetched, err := is.upstream.GetBankAccount(ctx, bankAccountID)
		if err != nil {
			log.Printf("[INGEST] WARNING: bank account %d backfill fetch failed: %v", bankAccountID, err)
		} else {
			account = fetched
		}
	}

	bankGl, err := is.glAccounts.EnsureBankGlAccount(orgID, bankAccountID, account)
	if err != nil {
		return nil, err
	}
	is.transition(eventKey, stateBankAccountResolved)

	udfID, err := is.resolver.UndepositedFundsGlAccountID(orgID)
	if err != nil {
		return nil, fmt.Errorf("undeposited funds lookup failed: %w", err)
	}
	if udfID == nil {
		return nil, fmt.Errorf("%w: no undeposited funds account resolvable", ErrResolution)
	}

	resolution, err := is.splits.ResolveSplits(ctx, deposit, transactionID)
	if err != nil {
		return nil, fmt.Errorf("split resolution failed: %w", err)
	}
	for _, diagnostic := range resolution.Diagnostics {
		log.Printf("[INGEST] event %s: %s", eventKey, diagnostic)
	}
	is.transition(eventKey, stateSplitsResolved)

	release, err := is.locks.Acquire(ctx, fmt.Sprintf("deposit-post:%d", transactionID))
	if err != nil {
		return nil, fmt.Errorf("deposit %d is being processed concurrently: %w", transactionID, err)
	}
	defer release()

	posted, err := is.poster.PostDeposit(PostingInput{
		OrgID:                       orgID,
		BuildiumTransactionID:       transactionID,
		TransactionType:             "deposit",
		Date:                        deposit.HeaderDate(),
		Memo:                        deposit.ResolveMemo(),
		HeaderAmount:                deposit.HeaderAmount(),
		BankGlAccount:               bankGl,
		UndepositedFundsGlAccountID: *udfID,
		Splits:                      resolution.Splits,
		Parts:                       resolution.Parts,
	})
	if err != nil {
		return nil, err
	}
	is.transition(eventKey, statePosted)
	is.transition(eventKey, stateLinked)

	return &IngestResult{
		TransactionID:            posted.TransactionID,
		TotalAmount:              posted.TotalAmount,
		Date:                     deposit.HeaderDate(),
		PaymentTransactionsCount: len(resolution.Parts),
	}, nil
}
