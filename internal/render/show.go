// This file implements show-specific rendering.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// WriteShowHuman writes the detail view for one transaction.
func WriteShowHuman(w io.Writer, txn model.Transaction, now time.Time) error {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format+"\n", args...)
	}

	p("ref_number:  %s", txn.RefNumber)
	p("kind:        %s", txn.Kind.Display())
	if txn.TxnID != "" {
		p("txn_id:      %s", txn.TxnID)
	}
	if txn.CustomerName != "" {
		p("customer:    %s", txn.CustomerName)
	} else if txn.CustomerRef != "" {
		p("customer:    %s", txn.CustomerRef)
	}
	p("amount:      %.2f", txn.Amount)
	p("balance:     %.2f", txn.Balance)
	p("status:      %s", formatStatus(string(txn.Status), txn.Archived))
	if txn.PostedDate != "" {
		p("posted:      %s", txn.PostedDate)
	}
	if txn.Memo != "" {
		p("memo:        %s", txn.Memo)
	}
	if !txn.CreatedAt.IsZero() {
		p("created:     %s", formatRelativeTime(txn.CreatedAt, now))
	}
	if !txn.LastChecked.IsZero() {
		p("checked:     %s", formatRelativeTime(txn.LastChecked, now))
	}

	if txn.Verification == nil {
		p("verdict:     %s", VerdictNone)
		return nil
	}

	v := txn.Verification
	p("verdict:     %s (coverage: %s)", v.Verdict, v.Coverage)
	for _, check := range v.Checks {
		mark := "ok"
		if !check.OK {
			mark = "FAIL"
		}
		p("  [%-4s] %-16s %s", mark, check.Name, check.Detail)
	}
	return nil
}
