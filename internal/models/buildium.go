package models

import (
	"time"
)

// Upstream (Buildium) API payloads. Only the fields this engine reads are
// modeled; decoding is case-insensitive so historical key spellings such as
// GLAccountID/GLAccountId and PaymentTransactionIDs/PaymentTransactionIds
// land in the same field.

// BuildiumGLAccountRef is the GL account object nested inside a bank account
// payload.
type BuildiumGLAccountRef struct {
	ID                      *FlexInt64 `json:"Id"`
	Name                    string     `json:"Name"`
	Type                    string     `json:"Type"`
	SubType                 *string    `json:"SubType"`
	CashFlowClassification  *string    `json:"CashFlowClassification"`
	ExcludeFromCashBalances *bool      `json:"ExcludeFromCashBalances"`
	IsActive                *bool      `json:"IsActive"`
}

// BuildiumBankAccount is the response of GET /bankaccounts/{id}.
type BuildiumBankAccount struct {
	ID                      *FlexInt64            `json:"Id"`
	BankAccountID           *FlexInt64            `json:"BankAccountId"`
	Name                    string                `json:"Name"`
	Description             *string               `json:"Description"`
	BankAccountType         *string               `json:"BankAccountType"`
	AccountNumber           *string               `json:"AccountNumber"`
	AccountNumberUnmasked   *string               `json:"AccountNumberUnmasked"`
	RoutingNumber           *string               `json:"RoutingNumber"`
	IsActive                *bool                 `json:"IsActive"`
	ExcludeFromCashBalances *bool                 `json:"ExcludeFromCashBalances"`
	GLAccount               *BuildiumGLAccountRef `json:"GLAccount"`
	GLAccountID             *FlexInt64            `json:"GLAccountId"`
}

// ResolveBankAccountID follows the fallback order Id, then BankAccountId.
func (b *BuildiumBankAccount) ResolveBankAccountID() (int64, bool) {
	if b == nil {
		return 0, false
	}
	if id, ok := b.ID.Int64(); ok {
		return id, true
	}
	return b.BankAccountID.Int64()
}

// NestedGLAccountID returns the nested GL account id from the GLAccount
// object, falling back to the flat GLAccountId field.
func (b *BuildiumBankAccount) NestedGLAccountID() (int64, bool) {
	if b == nil {
		return 0, false
	}
	if b.GLAccount != nil {
		if id, ok := b.GLAccount.ID.Int64(); ok {
			return id, true
		}
	}
	return b.GLAccountID.Int64()
}

// HasGLAccountDetail reports whether the payload carries any GL account id
// at all; when false, the caller should fetch the full bank account.
func (b *BuildiumBankAccount) HasGLAccountDetail() bool {
	_, ok := b.NestedGLAccountID()
	return ok
}

// BuildiumUnitRef is the unit pointer nested in an accounting entity.
type BuildiumUnitRef struct {
	ID   *FlexInt64 `json:"Id"`
	Href *string    `json:"Href"`
}

// BuildiumAccountingEntity is the property/unit pointer the upstream attaches
// to payment transactions and journal lines.
type BuildiumAccountingEntity struct {
	ID                   *FlexInt64       `json:"Id"`
	AccountingEntityType string           `json:"AccountingEntityType"`
	Href                 *string          `json:"Href"`
	Unit                 *BuildiumUnitRef `json:"Unit"`
	UnitID               *FlexInt64       `json:"UnitId"`
}

// ResolveUnitID follows the fallback order Unit.Id, then the flat UnitId.
func (a *BuildiumAccountingEntity) ResolveUnitID() (int64, bool) {
	if a == nil {
		return 0, false
	}
	if a.Unit != nil {
		if id, ok := a.Unit.ID.Int64(); ok {
			return id, true
		}
	}
	return a.UnitID.Int64()
}

// BuildiumPaymentTransaction is one payment component of a deposit.
type BuildiumPaymentTransaction struct {
	ID                   *FlexInt64                `json:"Id"`
	PaymentTransactionID *FlexInt64                `json:"PaymentTransactionId"`
	Amount               *float64                  `json:"Amount"`
	AccountingEntity     *BuildiumAccountingEntity `json:"AccountingEntity"`
}

// ResolveID follows the fallback order Id, then PaymentTransactionId.
func (p *BuildiumPaymentTransaction) ResolveID() (int64, bool) {
	if id, ok := p.ID.Int64(); ok {
		return id, true
	}
	return p.PaymentTransactionID.Int64()
}

// BuildiumDepositDetails is the nested container some deployments wrap the
// payment component list in.
type BuildiumDepositDetails struct {
	PaymentTransactions   []BuildiumPaymentTransaction `json:"PaymentTransactions"`
	PaymentTransactionIDs []FlexInt64                  `json:"PaymentTransactionIds"`
}

// BuildiumDeposit is the response of GET /bankaccounts/{id}/deposits/{id}.
type BuildiumDeposit struct {
	ID                    *FlexInt64                   `json:"Id"`
	AccountID             *FlexInt64                   `json:"AccountId"`
	Date                  *string                      `json:"Date"`
	TransactionDate       *string                      `json:"TransactionDate"`
	CreatedDate           *string                      `json:"CreatedDate"`
	DepositDate           *string                      `json:"DepositDate"`
	EntryDate             *string                      `json:"EntryDate"`
	Amount                *float64                     `json:"Amount"`
	TransactionAmount     *float64                     `json:"TransactionAmount"`
	TotalAmount           *float64                     `json:"TotalAmount"`
	DepositAmount         *float64                     `json:"DepositAmount"`
	Memo                  *string                      `json:"Memo"`
	Description           *string                      `json:"Description"`
	BankAccount           *BuildiumBankAccount         `json:"BankAccount"`
	PaymentTransactions   []BuildiumPaymentTransaction `json:"PaymentTransactions"`
	PaymentTransactionIDs []FlexInt64                  `json:"PaymentTransactionIds"`
	DepositDetails        *BuildiumDepositDetails      `json:"DepositDetails"`
}

// HeaderDate returns the first populated date field in documented priority
// order, defaulting to today.
func (d *BuildiumDeposit) HeaderDate() string {
	for _, v := range []*string{d.Date, d.TransactionDate, d.CreatedDate, d.DepositDate, d.EntryDate} {
		if v != nil && *v != "" {
			return *v
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}

// HeaderAmount returns the deposit's own total, trying each historical field
// name in order.
func (d *BuildiumDeposit) HeaderAmount() float64 {
	for _, v := range []*float64{d.Amount, d.TransactionAmount, d.TotalAmount, d.DepositAmount} {
		if v != nil {
			return *v
		}
	}
	return 0
}

// ResolveMemo returns Memo, falling back to Description.
func (d *BuildiumDeposit) ResolveMemo() *string {
	if d.Memo != nil && *d.Memo != "" {
		return d.Memo
	}
	if d.Description != nil && *d.Description != "" {
		return d.Description
	}
	return nil
}

// EmbeddedComponents returns the deposit's own payment component list,
// preferring the top-level list over the DepositDetails variant.
func (d *BuildiumDeposit) EmbeddedComponents() []BuildiumPaymentTransaction {
	if len(d.PaymentTransactions) > 0 {
		return d.PaymentTransactions
	}
	if d.DepositDetails != nil && len(d.DepositDetails.PaymentTransactions) > 0 {
		return d.DepositDetails.PaymentTransactions
	}
	return nil
}

// BarePaymentIDs returns the de-duplicated union of the bare payment id
// lists across their historical locations.
func (d *BuildiumDeposit) BarePaymentIDs() []int64 {
	var raw []FlexInt64
	raw = append(raw, d.PaymentTransactionIDs...)
	if d.DepositDetails != nil {
		raw = append(raw, d.DepositDetails.PaymentTransactionIDs...)
	}
	seen := make(map[int64]bool, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, f := range raw {
		id := int64(f)
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// BuildiumGLTransaction is the response of GET /generalledger/transactions/{id}
// (or the legacy /gltransactions/{id} path). Only the deposit details are
// read for the split fallback.
type BuildiumGLTransaction struct {
	ID             *FlexInt64              `json:"Id"`
	DepositDetails *BuildiumDepositDetails `json:"DepositDetails"`
}
