package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// DeleteOpts are options for the delete command.
type DeleteOpts struct {
	RefNumbers []string
	All        bool // delete every tracked transaction
}

// Delete removes transactions from the external system and the session.
// A record already gone remotely is still removed locally.
func Delete(ctx context.Context, app *App, opts DeleteOpts, stdout io.Writer) error {
	var targets []model.Transaction
	if opts.All {
		targets = app.Store.List()
	} else {
		if len(opts.RefNumbers) == 0 {
			return errors.New(errors.EUsage, "pass ref numbers or --all")
		}
		for _, ref := range opts.RefNumbers {
			txn, ok := app.Store.Get(ref)
			if !ok {
				return errors.Newf(errors.ENotFound, "no tracked transaction with ref number %s", ref)
			}
			targets = append(targets, txn)
		}
	}
	if len(targets) == 0 {
		_, _ = fmt.Fprintln(stdout, "nothing to delete")
		return nil
	}

	deleted := 0
	for _, txn := range targets {
		if err := app.Client.DeleteTransaction(ctx, txn); err != nil {
			_, _ = fmt.Fprintf(stdout, "failed  %s: %v\n", txn.RefNumber, err)
			continue
		}
		if err := app.Store.ApplyDeleted(txn.RefNumber); err != nil {
			return err
		}
		logJournalErr(app.Logger, app.Journal.Append(events.EventTxnDeleted, events.TxnDeletedData(txn.RefNumber)))
		_, _ = fmt.Fprintf(stdout, "deleted %s\n", txn.RefNumber)
		deleted++
	}
	_, _ = fmt.Fprintf(stdout, "%d of %d deleted\n", deleted, len(targets))

	if err := app.SaveSession(); err != nil {
		return err
	}
	if deleted < len(targets) {
		return errors.Newf(errors.ERemote, "%d deletion(s) failed", len(targets)-deleted)
	}
	return nil
}

// ArchiveOpts are options for the archive command.
type ArchiveOpts struct {
	RefNumbers []string
}

// Archive excludes transactions from polling without deleting anything.
func Archive(app *App, opts ArchiveOpts, stdout io.Writer) error {
	if len(opts.RefNumbers) == 0 {
		return errors.New(errors.EUsage, "pass at least one ref number")
	}
	for _, ref := range opts.RefNumbers {
		if err := app.Store.ApplyArchived(ref); err != nil {
			return err
		}
		logJournalErr(app.Logger, app.Journal.Append(events.EventTxnArchived, events.TxnArchivedData(ref)))
		_, _ = fmt.Fprintf(stdout, "archived %s\n", ref)
	}
	return app.SaveSession()
}
