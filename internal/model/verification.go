package model

import "time"

// Verdict classifies the outcome of one verification pass.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// Coverage classifies how fully linked payments cover a transaction amount.
type Coverage string

const (
	CoverageNone        Coverage = "none"
	CoverageFull        Coverage = "full"
	CoveragePartial     Coverage = "partial"
	CoverageOverpayment Coverage = "overpayment"
)

// Check names. Checks run in this fixed order.
const (
	CheckPaymentExists  = "payment_exists"
	CheckDepositAccount = "deposit_account"
	CheckAmount         = "amount"
	CheckMemo           = "memo"
)

// Check is one named verification outcome with its explanation.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// VerificationResult is the outcome of one verification pass over a
// transaction that transitioned to Closed.
type VerificationResult struct {
	Verdict  Verdict  `json:"verdict"`
	Coverage Coverage `json:"coverage"`
	Checks   []Check  `json:"checks"`

	// ObservedAt is the timestamp of the transition that triggered this pass.
	ObservedAt time.Time `json:"observed_at"`
}
