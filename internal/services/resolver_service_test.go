package services

import (
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newResolverMock(t *testing.T) (*ResolverService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	return NewResolverService(db), mock, func() { db.Close() }
}

func TestOrgIDFromAccountID(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM organizations WHERE buildium_org_id = $1`)).
		WithArgs(int64(4411)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("org-uuid-1"))

	id, err := rs.OrgIDFromAccountID(4411)
	assert.NoError(t, err)
	assert.NotNil(t, id)
	assert.Equal(t, "org-uuid-1", *id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrgIDFromAccountID_NotFoundIsNil(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM organizations WHERE buildium_org_id = $1`)).
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := rs.OrgIDFromAccountID(999)
	assert.NoError(t, err)
	assert.Nil(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrgIDFromAccountID_ZeroSkipsQuery(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	id, err := rs.OrgIDFromAccountID(0)
	assert.NoError(t, err)
	assert.Nil(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankGlAccountByBankAccountID_OrgScoped(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	orgID := "org-uuid-1"
	glID := int64(10407)
	mock.ExpectQuery(`SELECT id, buildium_gl_account_id FROM gl_accounts.*is_bank_account = true.*AND org_id = \$2.*LIMIT 1`).
		WithArgs(int64(10407), orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buildium_gl_account_id"}).AddRow("gl-uuid-1", glID))

	lookup, err := rs.BankGlAccountByBankAccountID(&orgID, 10407)
	assert.NoError(t, err)
	assert.NotNil(t, lookup)
	assert.Equal(t, "gl-uuid-1", lookup.ID)
	assert.Equal(t, glID, *lookup.BuildiumGlAccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankGlAccountByBankAccountID_Unscoped(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, buildium_gl_account_id FROM gl_accounts.*is_bank_account = true.*LIMIT 1`).
		WithArgs(int64(10407)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buildium_gl_account_id"}).AddRow("gl-uuid-2", nil))

	lookup, err := rs.BankGlAccountByBankAccountID(nil, 10407)
	assert.NoError(t, err)
	assert.NotNil(t, lookup)
	assert.Equal(t, "gl-uuid-2", lookup.ID)
	assert.Nil(t, lookup.BuildiumGlAccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGlAccountByBuildiumID_NoBankFlagFilter(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, buildium_gl_account_id FROM gl_accounts WHERE buildium_gl_account_id = \$1 LIMIT 1`).
		WithArgs(int64(5512)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buildium_gl_account_id"}).AddRow("gl-uuid-3", int64(5512)))

	lookup, err := rs.GlAccountByBuildiumID(nil, 5512)
	assert.NoError(t, err)
	assert.NotNil(t, lookup)
	assert.Equal(t, "gl-uuid-3", lookup.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndepositedFundsGlAccountID_OrderedFallback(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	orgID := "org-uuid-1"

	// Org-scoped default_account_name misses, org-scoped name hits.
	mock.ExpectQuery(`SELECT id FROM gl_accounts WHERE default_account_name ILIKE '%undeposited funds%' AND org_id = \$1 LIMIT 1`).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM gl_accounts WHERE name ILIKE '%undeposited funds%' AND org_id = \$1 LIMIT 1`).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("udf-uuid-1"))

	id, err := rs.UndepositedFundsGlAccountID(&orgID)
	assert.NoError(t, err)
	assert.NotNil(t, id)
	assert.Equal(t, "udf-uuid-1", *id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndepositedFundsGlAccountID_NoOrgSkipsScopedSteps(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM gl_accounts WHERE default_account_name ILIKE '%undeposited funds%' LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM gl_accounts WHERE name ILIKE '%undeposited funds%' LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("udf-uuid-2"))

	id, err := rs.UndepositedFundsGlAccountID(nil)
	assert.NoError(t, err)
	assert.NotNil(t, id)
	assert.Equal(t, "udf-uuid-2", *id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndepositedFundsGlAccountID_AllMiss(t *testing.T) {
	rs, mock, cleanup := newResolverMock(t)
	defer cleanup()

	for i := 0; i < 4; i++ {
		mock.ExpectQuery(`SELECT id FROM gl_accounts WHERE .* ILIKE '%undeposited funds%'`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	orgID := "org-uuid-1"
	id, err := rs.UndepositedFundsGlAccountID(&orgID)
	assert.NoError(t, err)
	assert.Nil(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
