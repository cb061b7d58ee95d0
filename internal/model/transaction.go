// Package model defines the domain entities tracked by qbdtest: generated
// transactions, their observed lifecycle state, and verification outcomes.
package model

import "time"

// Kind is the closed set of transaction kinds the tool generates.
type Kind string

const (
	KindInvoice         Kind = "invoice"
	KindSalesReceipt    Kind = "sales_receipt"
	KindStatementCharge Kind = "statement_charge"
)

// Kinds lists all transaction kinds in a stable order.
var Kinds = []Kind{KindInvoice, KindSalesReceipt, KindStatementCharge}

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInvoice, KindSalesReceipt, KindStatementCharge:
		return true
	}
	return false
}

// Display returns the human-readable kind name.
func (k Kind) Display() string {
	switch k {
	case KindInvoice:
		return "Invoice"
	case KindSalesReceipt:
		return "Sales Receipt"
	case KindStatementCharge:
		return "Statement Charge"
	}
	return string(k)
}

// Status is the observed remote lifecycle state of a transaction.
// It is driven exclusively by external observation, never set directly.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Transaction is one generated record in the external accounting system
// together with its locally observed state.
type Transaction struct {
	// TxnID and EditSequence are opaque external identifiers assigned by
	// the accounting system. Mutated only by it.
	TxnID        string `json:"txn_id,omitempty"`
	EditSequence string `json:"edit_sequence,omitempty"`

	Kind Kind `json:"kind"`

	// RefNumber is the locally assigned unique correlation key stamped at
	// creation. Never reused.
	RefNumber string `json:"ref_number"`

	CustomerRef  string  `json:"customer_ref,omitempty"`
	CustomerName string  `json:"customer_name,omitempty"`
	Amount       float64 `json:"amount"`
	Balance      float64 `json:"balance"`
	PostedDate   string  `json:"posted_date,omitempty"` // YYYY-MM-DD
	Terms        string  `json:"terms,omitempty"`
	Class        string  `json:"class,omitempty"`
	Memo         string  `json:"memo,omitempty"`

	Status   Status `json:"status"`
	Archived bool   `json:"archived,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastChecked time.Time `json:"last_checked,omitempty"`

	// StatusObservedAt is the tick timestamp of the last applied status
	// observation. Observations older than this are stale and discarded.
	StatusObservedAt time.Time `json:"status_observed_at,omitempty"`

	// Verification is present only after a Closed observation has been
	// run through the verification engine.
	Verification *VerificationResult `json:"verification,omitempty"`
}

// Payment is a receipt/payment record linked to a generated transaction.
type Payment struct {
	TxnID          string  `json:"txn_id"`
	RefNumber      string  `json:"ref_number,omitempty"`
	AppliedToRef   string  `json:"applied_to_ref,omitempty"` // ref number of the transaction it pays
	Amount         float64 `json:"amount"`
	DepositAccount string  `json:"deposit_account,omitempty"`
	Method         string  `json:"method,omitempty"`
	Memo           string  `json:"memo,omitempty"`
	PostedDate     string  `json:"posted_date,omitempty"` // YYYY-MM-DD
}

// Customer is a customer record, queried so generators can reference it.
type Customer struct {
	ListID       string  `json:"list_id"`
	Name         string  `json:"name"`
	FullName     string  `json:"full_name,omitempty"`
	EditSequence string  `json:"edit_sequence,omitempty"`
	Balance      float64 `json:"balance,omitempty"`
}

// Account is an account record, queried to confirm the configured deposit
// account actually exists in the company file.
type Account struct {
	ListID   string `json:"list_id"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
	Type     string `json:"type,omitempty"`
}
