// Package verify decides whether a closed transaction was paid correctly.
// It is pure: the engine sees a transaction and its linked payments and
// produces a verdict. Fetching those inputs is the monitor's job.
package verify

import (
	"fmt"
	"math"
	"regexp"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// Engine runs the verification checks with the configured expectations.
type Engine struct {
	expectedAccount string
	tolerance       float64
	memoPattern     *regexp.Regexp // nil when not configured
}

// New builds an engine from config. The memo pattern, if set, must be a
// valid regular expression.
func New(cfg config.Config) (*Engine, error) {
	e := &Engine{
		expectedAccount: cfg.ExpectedDepositAccount,
		tolerance:       cfg.AmountTolerance,
	}
	if cfg.MemoPattern != "" {
		re, err := regexp.Compile(cfg.MemoPattern)
		if err != nil {
			return nil, errors.Wrap(errors.EInvalidConfig, "memo_pattern is not a valid regular expression", err)
		}
		e.memoPattern = re
	}
	return e, nil
}

// Verify runs the checks in fixed order and classifies the outcome.
//
// Missing payments or a wrong deposit account fail the transaction outright.
// Partial payment, overpayment, and memo mismatches only warn: the books
// balance differently than expected but the payment workflow did run.
func (e *Engine) Verify(txn model.Transaction, payments []model.Payment) model.VerificationResult {
	applied := appliedTo(txn, payments)

	checks := make([]model.Check, 0, 4)
	coverage := model.CoverageNone

	exists := model.Check{Name: model.CheckPaymentExists, OK: len(applied) > 0}
	if exists.OK {
		exists.Detail = fmt.Sprintf("%d linked payment(s)", len(applied))
	} else {
		exists.Detail = "no payment is applied to this transaction"
	}
	checks = append(checks, exists)

	account := model.Check{Name: model.CheckDepositAccount, OK: true, Detail: "all payments deposit to " + e.expectedAccount}
	if !exists.OK {
		account.OK = false
		account.Detail = "no payments to inspect"
	} else {
		for _, p := range applied {
			if p.DepositAccount != e.expectedAccount {
				account.OK = false
				account.Detail = fmt.Sprintf("payment %s deposits to %q, expected %q", p.TxnID, p.DepositAccount, e.expectedAccount)
				break
			}
		}
	}
	checks = append(checks, account)

	var total float64
	for _, p := range applied {
		total += p.Amount
	}
	amount := model.Check{Name: model.CheckAmount}
	diff := total - txn.Amount
	switch {
	case !exists.OK:
		amount.Detail = "nothing applied"
	case math.Abs(diff) <= e.tolerance:
		coverage = model.CoverageFull
		amount.OK = true
		amount.Detail = fmt.Sprintf("%.2f applied against %.2f", total, txn.Amount)
	case diff < 0:
		coverage = model.CoveragePartial
		amount.Detail = fmt.Sprintf("partial payment: %.2f applied against %.2f", total, txn.Amount)
	default:
		coverage = model.CoverageOverpayment
		amount.Detail = fmt.Sprintf("overpayment: %.2f applied against %.2f", total, txn.Amount)
	}
	checks = append(checks, amount)

	memo := model.Check{Name: model.CheckMemo, OK: true}
	if e.memoPattern == nil {
		memo.Detail = "no memo pattern configured"
	} else {
		memo.Detail = "all payment memos match " + e.memoPattern.String()
		for _, p := range applied {
			if !e.memoPattern.MatchString(p.Memo) {
				memo.OK = false
				memo.Detail = fmt.Sprintf("payment %s memo %q does not match %s", p.TxnID, p.Memo, e.memoPattern)
				break
			}
		}
	}
	checks = append(checks, memo)

	verdict := model.VerdictPass
	switch {
	case !exists.OK || !account.OK:
		verdict = model.VerdictFail
	case !amount.OK || !memo.OK:
		verdict = model.VerdictWarn
	}

	return model.VerificationResult{
		Verdict:    verdict,
		Coverage:   coverage,
		Checks:     checks,
		ObservedAt: txn.StatusObservedAt,
	}
}

// appliedTo keeps only payments applied to this transaction. A payment
// record can list applications to several transactions at once.
func appliedTo(txn model.Transaction, payments []model.Payment) []model.Payment {
	out := make([]model.Payment, 0, len(payments))
	for _, p := range payments {
		if p.AppliedToRef != "" && p.AppliedToRef != txn.RefNumber {
			continue
		}
		out = append(out, p)
	}
	return out
}
