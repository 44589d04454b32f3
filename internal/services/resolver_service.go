package services

import (
	"database/sql"
	"fmt"
)

// BankAccountLookup is the typed result of a bank GL account resolution.
type BankAccountLookup struct {
	ID                  string
	BuildiumGlAccountID *int64
}

// ResolverService maps upstream Buildium identifiers to local row ids. Every
// lookup returns nil for "not found" and an error only for genuine query
// failures; absence is never an error.
type ResolverService struct {
	db *sql.DB
}

func NewResolverService(db *sql.DB) *ResolverService {
	return &ResolverService{db: db}
}

func (rs *ResolverService) scanID(query string, args ...interface{}) (*string, error) {
	var id string
	err := rs.db.QueryRow(query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// OrgIDFromAccountID resolves the local organization from the upstream
// account id. Organizations are never created by this engine.
func (rs *ResolverService) OrgIDFromAccountID(accountID int64) (*string, error) {
	if accountID <= 0 {
		return nil, nil
	}
	return rs.scanID(`SELECT id FROM organizations WHERE buildium_org_id = $1`, accountID)
}

// BankGlAccountByBankAccountID is the primary bank GL account lookup: the
// gl_accounts row whose buildium_gl_account_id stores the upstream bank
// account id and is flagged is_bank_account. Scoped by org when known.
func (rs *ResolverService) BankGlAccountByBankAccountID(orgID *string, bankAccountID int64) (*BankAccountLookup, error) {
	if bankAccountID <= 0 {
		return nil, nil
	}
	query := `
		SELECT id, buildium_gl_account_id FROM gl_accounts
		WHERE buildium_gl_account_id = $1 AND is_bank_account = true`
	args := []interface{}{bankAccountID}
	if orgID != nil {
		query += ` AND org_id = $2`
		args = append(args, *orgID)
	}
	query += ` LIMIT 1`
	return rs.scanBankAccountLookup(query, args...)
}

// GlAccountByBuildiumID is the secondary lookup for deployments that store
// true upstream GL account ids in buildium_gl_account_id. It does not require
// the bank flag. Only consulted when the primary lookup misses; results are
// never merged.
func (rs *ResolverService) GlAccountByBuildiumID(orgID *string, glAccountID int64) (*BankAccountLookup, error) {
	if glAccountID <= 0 {
		return nil, nil
	}
	query := `SELECT id, buildium_gl_account_id FROM gl_accounts WHERE buildium_gl_account_id = $1`
	args := []interface{}{glAccountID}
	if orgID != nil {
		query += ` AND org_id = $2`
		args = append(args, *orgID)
	}
	query += ` LIMIT 1`
	return rs.scanBankAccountLookup(query, args...)
}

func (rs *ResolverService) scanBankAccountLookup(query string, args ...interface{}) (*BankAccountLookup, error) {
	var lookup BankAccountLookup
	err := rs.db.QueryRow(query, args...).Scan(&lookup.ID, &lookup.BuildiumGlAccountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lookup, nil
}

// PropertyIDFromBuildium resolves a local property by its upstream id.
func (rs *ResolverService) PropertyIDFromBuildium(buildiumPropertyID int64) (*string, error) {
	if buildiumPropertyID <= 0 {
		return nil, nil
	}
	return rs.scanID(`SELECT id FROM properties WHERE buildium_property_id = $1`, buildiumPropertyID)
}

// UnitIDFromBuildium resolves a local unit by its upstream id.
func (rs *ResolverService) UnitIDFromBuildium(buildiumUnitID int64) (*string, error) {
	if buildiumUnitID <= 0 {
		return nil, nil
	}
	return rs.scanID(`SELECT id FROM units WHERE buildium_unit_id = $1`, buildiumUnitID)
}

// LeaseIDFromBuildium resolves a local lease by its upstream id.
func (rs *ResolverService) LeaseIDFromBuildium(buildiumLeaseID int64) (*string, error) {
	if buildiumLeaseID <= 0 {
		return nil, nil
	}
	return rs.scanID(`SELECT id FROM leases WHERE buildium_lease_id = $1`, buildiumLeaseID)
}

// undepositedFundsStrategy is one step in the ordered Undeposited Funds
// lookup chain. The chain is evaluated in order with early exit on the first
// hit, never merging results.
type undepositedFundsStrategy struct {
	column    string
	orgScoped bool
}

var undepositedFundsStrategies = []undepositedFundsStrategy{
	{column: "default_account_name", orgScoped: true},
	{column: "name", orgScoped: true},
	{column: "default_account_name", orgScoped: false},
	{column: "name", orgScoped: false},
}

// UndepositedFundsGlAccountID discovers the clearing account deposits credit
// against. Never created by this engine; callers treat nil as a hard failure.
func (rs *ResolverService) UndepositedFundsGlAccountID(orgID *string) (*string, error) {
	for _, strategy := range undepositedFundsStrategies {
		if strategy.orgScoped && orgID == nil {
			continue
		}
		query := fmt.Sprintf(`SELECT id FROM gl_accounts WHERE %s ILIKE '%%undeposited funds%%'`, strategy.column)
		args := []interface{}{}
		if strategy.orgScoped {
			query += ` AND org_id = $1`
			args = append(args, *orgID)
		}
		query += ` LIMIT 1`
		id, err := rs.scanID(query, args...)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}
