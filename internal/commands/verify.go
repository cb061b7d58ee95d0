package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/verify"
)

// VerifyOpts are options for the verify command.
type VerifyOpts struct {
	// RefNumbers limits verification to these transactions. Empty means
	// every closed, unarchived transaction.
	RefNumbers []string

	// Force re-runs verification even where a verdict is already recorded.
	Force bool
}

// Verify runs one on-demand verification pass and prints the verdicts.
// Returns E_CHECK_FAILURE when any transaction fails.
func Verify(ctx context.Context, app *App, opts VerifyOpts, stdout io.Writer) error {
	engine, err := verify.New(app.Config)
	if err != nil {
		return err
	}

	checkDepositAccount(ctx, app, stdout)

	targets, err := verifyTargets(app, opts)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		_, _ = fmt.Fprintln(stdout, "nothing to verify (no closed transactions)")
		return nil
	}

	failed := 0
	for _, txn := range targets {
		payments, err := app.Client.QueryRelatedPayments(ctx, txn)
		if err != nil {
			_, _ = fmt.Fprintf(stdout, "%s  payment query failed: %v\n", txn.RefNumber, err)
			continue
		}
		result := engine.Verify(txn, payments)
		app.Store.ApplyVerification(txn.RefNumber, result)
		logJournalErr(app.Logger, app.Journal.Append(events.EventVerificationRecorded,
			events.VerificationRecordedData(txn.RefNumber, string(result.Verdict), string(result.Coverage))))

		_, _ = fmt.Fprintf(stdout, "%s  %s (coverage: %s)\n", txn.RefNumber, result.Verdict, result.Coverage)
		if result.Verdict == model.VerdictFail {
			failed++
		}
	}

	if err := app.SaveSession(); err != nil {
		return err
	}
	if failed > 0 {
		return errors.Newf(errors.ECheckFailure, "%d of %d transaction(s) failed verification", failed, len(targets))
	}
	return nil
}

func verifyTargets(app *App, opts VerifyOpts) ([]model.Transaction, error) {
	if len(opts.RefNumbers) > 0 {
		targets := make([]model.Transaction, 0, len(opts.RefNumbers))
		for _, ref := range opts.RefNumbers {
			txn, ok := app.Store.Get(ref)
			if !ok {
				return nil, errors.Newf(errors.ENotFound, "no tracked transaction with ref number %s", ref)
			}
			if txn.Status != model.StatusClosed {
				return nil, errors.Newf(errors.EUsage, "%s is still open; only closed transactions are verified", ref)
			}
			targets = append(targets, txn)
		}
		return targets, nil
	}

	var targets []model.Transaction
	for _, txn := range app.Store.List() {
		if txn.Archived || txn.Status != model.StatusClosed {
			continue
		}
		if txn.Verification != nil && !opts.Force {
			continue
		}
		targets = append(targets, txn)
	}
	return targets, nil
}

// checkDepositAccount warns when the configured deposit account does not
// exist in the company file; every deposit-account check would fail.
func checkDepositAccount(ctx context.Context, app *App, stdout io.Writer) {
	accounts, err := app.Client.QueryAccounts(ctx, []string{app.Config.ExpectedDepositAccount})
	if err != nil {
		app.Logger.Warn().Err(err).Msg("account lookup failed, skipping deposit account precheck")
		return
	}
	if len(accounts) == 0 {
		_, _ = fmt.Fprintf(stdout, "warning: expected deposit account %q not found in the company file\n",
			app.Config.ExpectedDepositAccount)
	}
}
