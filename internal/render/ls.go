// Package render provides output formatting for qbdtest commands.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// VerdictNone is displayed for transactions without a recorded verdict.
const VerdictNone = "-"

// LSContext provides context for formatting empty ls output.
type LSContext struct {
	// IncludesArchived indicates whether --all was used.
	IncludesArchived bool
}

// TxnHumanRow holds the fields for a single human-output row.
type TxnHumanRow struct {
	RefNumber string
	Kind      string
	Amount    string
	Balance   string
	Status    string
	Verdict   string
	Checked   string
}

// WriteLSHuman writes the ls output in human-readable format.
// Fields are separated by whitespace columns for easy scanning.
func WriteLSHuman(w io.Writer, rows []TxnHumanRow, ctx LSContext) error {
	if len(rows) == 0 {
		msg := "no tracked transactions"
		if !ctx.IncludesArchived {
			msg += " (use --all to include archived)"
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	widths := columnWidths(rows)

	header := formatRow(
		"REF_NUMBER", widths.refNumber,
		"KIND", widths.kind,
		"AMOUNT", widths.amount,
		"BALANCE", widths.balance,
		"STATUS", widths.status,
		"VERDICT", widths.verdict,
		"CHECKED",
	)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, row := range rows {
		line := formatRow(
			row.RefNumber, widths.refNumber,
			row.Kind, widths.kind,
			row.Amount, widths.amount,
			row.Balance, widths.balance,
			row.Status, widths.status,
			row.Verdict, widths.verdict,
			row.Checked,
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// colWidths holds the calculated column widths.
type colWidths struct {
	refNumber int
	kind      int
	amount    int
	balance   int
	status    int
	verdict   int
}

// columnWidths calculates the maximum width for each column.
func columnWidths(rows []TxnHumanRow) colWidths {
	widths := colWidths{
		refNumber: len("REF_NUMBER"),
		kind:      len("KIND"),
		amount:    len("AMOUNT"),
		balance:   len("BALANCE"),
		status:    len("STATUS"),
		verdict:   len("VERDICT"),
	}

	for _, row := range rows {
		if len(row.RefNumber) > widths.refNumber {
			widths.refNumber = len(row.RefNumber)
		}
		if len(row.Kind) > widths.kind {
			widths.kind = len(row.Kind)
		}
		if len(row.Amount) > widths.amount {
			widths.amount = len(row.Amount)
		}
		if len(row.Balance) > widths.balance {
			widths.balance = len(row.Balance)
		}
		if len(row.Status) > widths.status {
			widths.status = len(row.Status)
		}
		if len(row.Verdict) > widths.verdict {
			widths.verdict = len(row.Verdict)
		}
	}

	return widths
}

// formatRow formats a row with the given column values and widths.
func formatRow(ref string, refW int, kind string, kindW int, amount string, amountW int, balance string, balanceW int, status string, statusW int, verdict string, verdictW int, checked string) string {
	return fmt.Sprintf("%-*s  %-*s  %*s  %*s  %-*s  %-*s  %s",
		refW, ref,
		kindW, kind,
		amountW, amount,
		balanceW, balance,
		statusW, status,
		verdictW, verdict,
		checked,
	)
}

// FormatHumanRow converts a Transaction to a TxnHumanRow for display.
func FormatHumanRow(txn model.Transaction, now time.Time) TxnHumanRow {
	row := TxnHumanRow{
		RefNumber: txn.RefNumber,
		Kind:      txn.Kind.Display(),
		Amount:    fmt.Sprintf("%.2f", txn.Amount),
		Balance:   fmt.Sprintf("%.2f", txn.Balance),
		Status:    formatStatus(string(txn.Status), txn.Archived),
		Verdict:   VerdictNone,
	}
	if txn.Verification != nil {
		row.Verdict = string(txn.Verification.Verdict)
	}
	if !txn.LastChecked.IsZero() {
		row.Checked = formatRelativeTime(txn.LastChecked, now)
	} else {
		row.Checked = "never"
	}
	return row
}

// formatStatus adds "(archived)" suffix if archived.
func formatStatus(status string, archived bool) string {
	if archived {
		return status + " (archived)"
	}
	return status
}

// formatRelativeTime formats a time as a human-friendly relative string.
func formatRelativeTime(t time.Time, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
