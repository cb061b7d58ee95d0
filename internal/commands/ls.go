package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/render"
)

// LSOpts are options for the ls command.
type LSOpts struct {
	All  bool // include archived transactions
	JSON bool // stable JSON output
}

// LS lists tracked transactions.
func LS(app *App, opts LSOpts, stdout io.Writer) error {
	txns := app.Store.List()
	if !opts.All {
		kept := txns[:0]
		for _, txn := range txns {
			if !txn.Archived {
				kept = append(kept, txn)
			}
		}
		txns = kept
	}

	if opts.JSON {
		return writeJSON(stdout, txns)
	}

	now := time.Now()
	rows := make([]render.TxnHumanRow, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, render.FormatHumanRow(txn, now))
	}
	return render.WriteLSHuman(stdout, rows, render.LSContext{IncludesArchived: opts.All})
}

// ShowOpts are options for the show command.
type ShowOpts struct {
	RefNumber string
	JSON      bool
}

// Show prints the detail view for one tracked transaction.
func Show(app *App, opts ShowOpts, stdout io.Writer) error {
	txn, ok := app.Store.Get(opts.RefNumber)
	if !ok {
		return errors.Newf(errors.ENotFound, "no tracked transaction with ref number %s", opts.RefNumber)
	}
	if opts.JSON {
		return writeJSON(stdout, txn)
	}
	return render.WriteShowHuman(stdout, txn, time.Now())
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.EInternal, "failed to encode output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
