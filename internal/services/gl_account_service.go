package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/propfolio/backend/internal/models"
)

// GlAccountService guarantees a local bank GL account exists for an upstream
// bank account, creating or refreshing one from the upstream payload when
// needed.
type GlAccountService struct {
	db       *sql.DB
	resolver *ResolverService
}

func NewGlAccountService(db *sql.DB, resolver *ResolverService) *GlAccountService {
	return &GlAccountService{db: db, resolver: resolver}
}

// EnsureBankGlAccount resolves the local GL account for the upstream bank
// account, walking two lookups before creating a row:
//  1. bank-account-id match with the bank flag set (org scoped when known)
//  2. the payload's nested GL account id, for deployments keyed on true GL ids
//
// On a primary hit the row is refreshed from the upstream payload when one
// with GL detail is available, so names and flags track upstream edits across
// redeliveries; without a detailed payload only a drifted upstream id is
// patched. The two strategies are never merged; the first hit wins.
func (gs *GlAccountService) EnsureBankGlAccount(orgID *string, bankAccountID int64, account *models.BuildiumBankAccount) (*BankAccountLookup, error) {
	effectiveBankID := bankAccountID
	if effectiveBankID <= 0 {
		if id, ok := account.ResolveBankAccountID(); ok {
			effectiveBankID = id
		}
	}

	if effectiveBankID > 0 {
		lookup, err := gs.resolver.BankGlAccountByBankAccountID(orgID, effectiveBankID)
		if err != nil {
			return nil, fmt.Errorf("bank gl account lookup failed: %w", err)
		}
		if lookup != nil {
			switch {
			case account != nil && account.HasGLAccountDetail():
				if err := gs.refreshFromPayload(lookup.ID, effectiveBankID, account); err != nil {
					log.Printf("[GL_ACCOUNT] WARNING: failed to refresh %s from payload: %v", lookup.ID, err)
				} else {
					lookup.BuildiumGlAccountID = &effectiveBankID
				}
			case lookup.BuildiumGlAccountID == nil || *lookup.BuildiumGlAccountID != effectiveBankID:
				if err := gs.patchBuildiumID(lookup.ID, effectiveBankID); err != nil {
					log.Printf("[GL_ACCOUNT] WARNING: failed to refresh upstream id on %s: %v", lookup.ID, err)
				} else {
					lookup.BuildiumGlAccountID = &effectiveBankID
				}
			}
			return lookup, nil
		}
	}

	if nestedID, ok := account.NestedGLAccountID(); ok && nestedID > 0 {
		lookup, err := gs.resolver.GlAccountByBuildiumID(orgID, nestedID)
		if err != nil {
			return nil, fmt.Errorf("nested gl account lookup failed: %w", err)
		}
		if lookup != nil {
			return lookup, nil
		}
	}

	return gs.createBankGlAccount(orgID, effectiveBankID, account)
}

func (gs *GlAccountService) patchBuildiumID(glAccountRowID string, buildiumID int64) error {
	_, err := gs.db.Exec(
		`UPDATE gl_accounts SET buildium_gl_account_id = $1, updated_at = NOW() WHERE id = $2`,
		buildiumID, glAccountRowID,
	)
	return err
}

// refreshFromPayload rewrites the payload-derived columns of an existing row
// so redeliveries pick up upstream renames and flag changes.
func (gs *GlAccountService) refreshFromPayload(glAccountRowID string, buildiumID int64, account *models.BuildiumBankAccount) error {
	fields := glAccountFieldsFrom(buildiumID, account)
	_, err := gs.db.Exec(`
		UPDATE gl_accounts SET
			buildium_gl_account_id = $1, name = $2, description = $3, type = $4,
			sub_type = $5, account_number = $6, is_active = $7,
			cash_flow_classification = $8, exclude_from_cash_balances = $9,
			updated_at = NOW()
		WHERE id = $10`,
		buildiumID, fields.name, fields.description, fields.accountType, fields.subType,
		fields.accountNumber, fields.isActive, fields.cashFlow, fields.excludeFromCash,
		glAccountRowID,
	)
	return err
}

// glAccountFields is the column set derived from an upstream bank account
// payload, shared by row creation and refresh.
type glAccountFields struct {
	name            string
	accountType     string
	description     *string
	subType         *string
	accountNumber   *string
	cashFlow        *string
	isActive        bool
	excludeFromCash bool
}

func glAccountFieldsFrom(storedID int64, account *models.BuildiumBankAccount) glAccountFields {
	fields := glAccountFields{
		name:        fmt.Sprintf("Bank Account %d", storedID),
		accountType: "asset",
		isActive:    true,
	}
	if account == nil {
		return fields
	}
	if account.Name != "" {
		fields.name = account.Name
	}
	fields.description = account.Description
	if ref := account.GLAccount; ref != nil {
		if ref.Name != "" {
			fields.name = ref.Name
		}
		if ref.Type != "" {
			fields.accountType = ref.Type
		}
		fields.subType = ref.SubType
		fields.cashFlow = ref.CashFlowClassification
		if ref.IsActive != nil {
			fields.isActive = *ref.IsActive
		}
		if ref.ExcludeFromCashBalances != nil {
			fields.excludeFromCash = *ref.ExcludeFromCashBalances
		}
	}
	// Prefer the unmasked account number when the API surfaces it.
	if account.AccountNumberUnmasked != nil && *account.AccountNumberUnmasked != "" {
		fields.accountNumber = account.AccountNumberUnmasked
	} else {
		fields.accountNumber = account.AccountNumber
	}
	return fields
}

func (gs *GlAccountService) createBankGlAccount(orgID *string, bankAccountID int64, account *models.BuildiumBankAccount) (*BankAccountLookup, error) {
	// A new row must carry a stable upstream id or future deliveries for the
	// same bank account would keep creating duplicates.
	storedID := bankAccountID
	if storedID <= 0 {
		if nested, ok := account.NestedGLAccountID(); ok {
			storedID = nested
		}
	}
	if storedID <= 0 {
		return nil, fmt.Errorf("%w: no usable upstream id to create bank gl account", ErrResolution)
	}

	fields := glAccountFieldsFrom(storedID, account)
	rowID := uuid.New().String()
	_, err := gs.db.Exec(`
		INSERT INTO gl_accounts (
			id, org_id, buildium_gl_account_id, name, description, type, sub_type,
			account_number, is_active, is_bank_account, cash_flow_classification,
			exclude_from_cash_balances, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10, $11, NOW(), NOW())`,
		rowID, orgID, storedID, fields.name, fields.description, fields.accountType,
		fields.subType, fields.accountNumber, fields.isActive, fields.cashFlow,
		fields.excludeFromCash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank gl account: %w", err)
	}

	log.Printf("[GL_ACCOUNT] Created bank GL account %s for upstream id %d", rowID, storedID)
	return &BankAccountLookup{ID: rowID, BuildiumGlAccountID: &storedID}, nil
}
