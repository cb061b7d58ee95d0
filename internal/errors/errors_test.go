package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(ENotConnected, "QuickBooks is not running")
	want := "E_NOT_CONNECTED: QuickBooks is not running"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("dial unix: connection refused")
	err := Wrap(EBrokerUnavailable, "broker endpoint unreachable", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if GetCode(err) != EBrokerUnavailable {
		t.Errorf("GetCode = %q, want %q", GetCode(err), EBrokerUnavailable)
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := New(ENotFound, "no such transaction")
	outer := fmt.Errorf("query failed: %w", inner)

	if GetCode(outer) != ENotFound {
		t.Errorf("GetCode through fmt wrapping = %q, want %q", GetCode(outer), ENotFound)
	}
	if !IsCode(outer, ENotFound) {
		t.Error("IsCode should see through fmt wrapping")
	}
}

func TestGetCodeNonTyped(t *testing.T) {
	if GetCode(stderrors.New("plain")) != "" {
		t.Error("GetCode on plain error should be empty")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", New(EUsage, "unknown flag"), 2},
		{"typed", New(ETimeout, "call timed out"), 1},
		{"plain", stderrors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewWithDetailsCopies(t *testing.T) {
	details := map[string]string{"ref_number": "INV-001"}
	err := NewWithDetails(ENotFound, "missing", details)
	details["ref_number"] = "mutated"

	qe, ok := AsError(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if qe.Details["ref_number"] != "INV-001" {
		t.Error("details map should be defensively copied")
	}
}

func TestPrintStableFormat(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, New(ECorruptState, "duplicate ref number INV-3"))

	want := "error_code: E_CORRUPT_STATE\nduplicate ref number INV-3\n"
	if buf.String() != want {
		t.Errorf("Print output = %q, want %q", buf.String(), want)
	}
}

func TestFormatWithContext(t *testing.T) {
	err := NewWithDetails(ETimeout, "call timed out", map[string]string{
		"op":             "InvoiceQuery",
		"correlation_id": "abc-123",
		"hint":           "is the broker running?",
		"raw":            "<QBXML/>",
	})

	out := Format(err, PrintOptions{})
	if !strings.Contains(out, "op: InvoiceQuery") {
		t.Errorf("default output missing op key:\n%s", out)
	}
	if strings.Contains(out, "raw:") {
		t.Errorf("raw is verbose-only, got:\n%s", out)
	}
	if !strings.Contains(out, "hint: is the broker running?") {
		t.Errorf("hint missing:\n%s", out)
	}

	verbose := Format(err, PrintOptions{Verbose: true})
	if !strings.Contains(verbose, "raw: <QBXML/>") {
		t.Errorf("verbose output missing raw key:\n%s", verbose)
	}
}

func TestSanitizeValueNewlines(t *testing.T) {
	got := sanitizeValue("line1\r\nline2\n", 64)
	if got != "line1\\nline2" {
		t.Errorf("sanitizeValue = %q", got)
	}
}
