package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"

	"github.com/propfolio/backend/internal/models"
)

// GLTransactionFetcher fetches the general ledger view of an upstream
// transaction. Satisfied by buildium.Client.
type GLTransactionFetcher interface {
	GetGeneralLedgerTransaction(ctx context.Context, transactionID int64) (*models.BuildiumGLTransaction, error)
}

// PaymentPart is one upstream payment transaction composing a deposit, as
// recorded in the linkage table. Amount is nil when only a bare payment id
// was known at ingestion time.
type PaymentPart struct {
	PaymentID int64
	Amount    *float64
}

// SplitResolution is the outcome of decomposing a deposit into postable
// components. Diagnostics carry non-fatal anomalies (unsupported accounting
// entity types, unresolvable local references) for the caller to log.
type SplitResolution struct {
	Splits      []models.Split
	Parts       []PaymentPart
	Diagnostics []string
}

// localPayment is the previously-ingested local transaction behind one
// payment component, with the context of its first line.
type localPayment struct {
	totalAmount        float64
	lineAmount         float64
	propertyID         *string
	unitID             *string
	leaseID            *string
	buildiumPropertyID *int64
	buildiumUnitID     *int64
	buildiumLeaseID    *int64
	found              bool
	hasLine            bool
}

// SplitService decomposes aggregate deposits into per-payment splits.
type SplitService struct {
	db       *sql.DB
	resolver *ResolverService
	fetcher  GLTransactionFetcher
}

func NewSplitService(db *sql.DB, resolver *ResolverService, fetcher GLTransactionFetcher) *SplitService {
	return &SplitService{db: db, resolver: resolver, fetcher: fetcher}
}

// ResolveSplits walks the ordered component sources for a deposit:
//  1. payment transactions embedded in the deposit payload
//  2. the general ledger view of the same transaction (fetched on demand;
//     a failed fetch degrades to the next source rather than aborting)
//  3. bare payment transaction id lists, de-duplicated
//
// A deposit with no discoverable components resolves to zero splits; the
// caller decides whether that is acceptable.
func (ss *SplitService) ResolveSplits(ctx context.Context, deposit *models.BuildiumDeposit, depositID int64) (*SplitResolution, error) {
	res := &SplitResolution{}

	components := deposit.EmbeddedComponents()
	if len(components) == 0 && ss.fetcher != nil && depositID > 0 {
		glTx, err := ss.fetcher.GetGeneralLedgerTransaction(ctx, depositID)
		if err != nil {
			log.Printf("[SPLITS] WARNING: GL transaction fetch for %d failed, falling back to bare ids: %v", depositID, err)
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("gl transaction fetch failed: %v", err))
		} else if glTx != nil && glTx.DepositDetails != nil {
			components = glTx.DepositDetails.PaymentTransactions
		}
	}

	if len(components) > 0 {
		for _, component := range components {
			if err := ss.resolveComponent(component, res); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	for _, paymentID := range deposit.BarePaymentIDs() {
		if err := ss.resolveBareID(paymentID, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (ss *SplitService) resolveComponent(component models.BuildiumPaymentTransaction, res *SplitResolution) error {
	paymentID, ok := component.ResolveID()
	if !ok || paymentID <= 0 {
		res.Diagnostics = append(res.Diagnostics, "payment component without a usable id skipped")
		return nil
	}

	local, err := ss.lookupLocalPayment(paymentID)
	if err != nil {
		return err
	}

	split := models.Split{PaymentID: paymentID}

	// Amount priority: the embedded component amount, then the local
	// transaction's context line, then its total. Always positive;
	// zero-amount components do not post.
	switch {
	case component.Amount != nil && usableAmount(*component.Amount):
		split.Amount = math.Abs(*component.Amount)
	case local.hasLine && usableAmount(local.lineAmount):
		split.Amount = math.Abs(local.lineAmount)
	case local.found && usableAmount(local.totalAmount):
		split.Amount = math.Abs(local.totalAmount)
	default:
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("payment %d has no resolvable amount, skipped", paymentID))
		return nil
	}

	if local.hasLine {
		split.PropertyID = local.propertyID
		split.UnitID = local.unitID
		split.LeaseID = local.leaseID
		split.BuildiumPropertyID = local.buildiumPropertyID
		split.BuildiumUnitID = local.buildiumUnitID
		split.BuildiumLeaseID = local.buildiumLeaseID
	}

	ss.applyAccountingEntity(component.AccountingEntity, &split, res)

	res.Splits = append(res.Splits, split)
	res.Parts = append(res.Parts, PaymentPart{PaymentID: paymentID, Amount: &split.Amount})
	return nil
}

// applyAccountingEntity fills property/unit context from the component's own
// accounting entity when the local payment carried none. Rental entities map
// to properties; anything else is surfaced as a diagnostic and ignored.
func (ss *SplitService) applyAccountingEntity(entity *models.BuildiumAccountingEntity, split *models.Split, res *SplitResolution) {
	if entity == nil {
		return
	}
	if entity.AccountingEntityType != "" && entity.AccountingEntityType != "Rental" {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf(
			"unsupported accounting entity type %q on payment %d", entity.AccountingEntityType, split.PaymentID))
		return
	}

	if split.BuildiumPropertyID == nil {
		if id, ok := entity.ID.Int64(); ok && id > 0 {
			split.BuildiumPropertyID = &id
		}
	}
	if split.BuildiumUnitID == nil {
		if id, ok := entity.ResolveUnitID(); ok && id > 0 {
			split.BuildiumUnitID = &id
		}
	}

	// Backfill local references from the upstream ids when the local payment
	// transaction had no line context.
	if split.PropertyID == nil && split.BuildiumPropertyID != nil {
		if id, err := ss.resolver.PropertyIDFromBuildium(*split.BuildiumPropertyID); err != nil {
			log.Printf("[SPLITS] WARNING: property lookup for %d failed: %v", *split.BuildiumPropertyID, err)
		} else {
			split.PropertyID = id
		}
	}
	if split.UnitID == nil && split.BuildiumUnitID != nil {
		if id, err := ss.resolver.UnitIDFromBuildium(*split.BuildiumUnitID); err != nil {
			log.Printf("[SPLITS] WARNING: unit lookup for %d failed: %v", *split.BuildiumUnitID, err)
		} else {
			split.UnitID = id
		}
	}
}

func (ss *SplitService) resolveBareID(paymentID int64, res *SplitResolution) error {
	local, err := ss.lookupLocalPayment(paymentID)
	if err != nil {
		return err
	}

	part := PaymentPart{PaymentID: paymentID}

	// Same cascade as embedded components, minus the embedded tier: the
	// local transaction's context line, then its total.
	var amount float64
	switch {
	case local.hasLine && usableAmount(local.lineAmount):
		amount = math.Abs(local.lineAmount)
	case local.found && usableAmount(local.totalAmount):
		amount = math.Abs(local.totalAmount)
	default:
		// Still record the linkage; the amount stays unknown.
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("payment %d has no resolvable local amount, linked without amount", paymentID))
		res.Parts = append(res.Parts, part)
		return nil
	}
	part.Amount = &amount
	res.Parts = append(res.Parts, part)

	split := models.Split{PaymentID: paymentID, Amount: amount}
	if local.hasLine {
		split.PropertyID = local.propertyID
		split.UnitID = local.unitID
		split.LeaseID = local.leaseID
		split.BuildiumPropertyID = local.buildiumPropertyID
		split.BuildiumUnitID = local.buildiumUnitID
		split.BuildiumLeaseID = local.buildiumLeaseID
	}
	res.Splits = append(res.Splits, split)
	return nil
}

// lookupLocalPayment reads the previously-ingested local transaction for a
// payment id along with the context of its first posted line.
func (ss *SplitService) lookupLocalPayment(paymentID int64) (localPayment, error) {
	var lp localPayment
	var txID string
	err := ss.db.QueryRow(
		`SELECT id, total_amount FROM transactions WHERE buildium_transaction_id = $1`,
		paymentID,
	).Scan(&txID, &lp.totalAmount)
	if err == sql.ErrNoRows {
		return lp, nil
	}
	if err != nil {
		return lp, fmt.Errorf("local payment lookup failed: %w", err)
	}
	lp.found = true

	err = ss.db.QueryRow(`
		SELECT amount, property_id, unit_id, lease_id, buildium_property_id, buildium_unit_id, buildium_lease_id
		FROM transaction_lines WHERE transaction_id = $1
		ORDER BY created_at ASC LIMIT 1`, txID,
	).Scan(&lp.lineAmount, &lp.propertyID, &lp.unitID, &lp.leaseID, &lp.buildiumPropertyID, &lp.buildiumUnitID, &lp.buildiumLeaseID)
	if err == sql.ErrNoRows {
		return lp, nil
	}
	if err != nil {
		return lp, fmt.Errorf("local payment line lookup failed: %w", err)
	}
	lp.hasLine = true
	return lp, nil
}

// usableAmount filters zero and non-finite values; sign is normalized by the
// caller via math.Abs.
func usableAmount(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
