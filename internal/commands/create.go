package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/generate"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbxml"
)

// CreateOpts are options for the create command.
type CreateOpts struct {
	Kind     string
	Count    int
	Customer string // customer full name; created remotely if missing
	Item     string

	Prefix    string
	MinAmount float64
	MaxAmount float64
	Memo      string
	Terms     string
	Class     string
	Seed      int64
}

// Create generates a batch of test transactions and tracks them in the
// session.
func Create(ctx context.Context, app *App, opts CreateOpts, stdout io.Writer) error {
	kind := model.Kind(opts.Kind)
	if !kind.Valid() {
		return errors.Newf(errors.EUsage, "unknown kind %q (one of: %s)", opts.Kind, kindList())
	}
	if opts.Customer == "" {
		return errors.New(errors.EUsage, "a customer name is required (--customer)")
	}

	customerRef, err := resolveCustomer(ctx, app, opts.Customer, stdout)
	if err != nil {
		return err
	}

	g := generate.New(app.Client, app.Store, app.Journal, logging.Component(app.Logger, "generate"), opts.Seed)
	res, runErr := g.Run(ctx, generate.Params{
		Kind:        kind,
		Count:       opts.Count,
		CustomerRef: customerRef,
		ItemRef:     opts.Item,
		Prefix:      opts.Prefix,
		MinAmount:   opts.MinAmount,
		MaxAmount:   opts.MaxAmount,
		Memo:        opts.Memo,
		Terms:       opts.Terms,
		Class:       opts.Class,
	})

	for _, txn := range res.Created {
		_, _ = fmt.Fprintf(stdout, "created %s %s  %.2f\n", txn.Kind.Display(), txn.RefNumber, txn.Amount)
	}
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(stdout, "failed  %s: %v\n", f.RefNumber, f.Err)
	}
	_, _ = fmt.Fprintf(stdout, "%d created, %d failed\n", len(res.Created), len(res.Failures))

	// Persist what did get created even when the batch aborted.
	if len(res.Created) > 0 {
		if err := app.SaveSession(); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if len(res.Failures) > 0 {
		return errors.Newf(errors.ERemote, "%d of %d creations failed", len(res.Failures), opts.Count)
	}
	return nil
}

// resolveCustomer finds the customer by name, creating it when absent.
func resolveCustomer(ctx context.Context, app *App, name string, stdout io.Writer) (string, error) {
	customers, err := app.Client.QueryCustomers(ctx, []string{name})
	if err != nil {
		return "", err
	}
	if len(customers) > 0 {
		return customers[0].ListID, nil
	}

	cust, err := app.Client.AddCustomer(ctx, qbxml.CustomerFields{Name: name})
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(stdout, "created customer %q\n", cust.Name)
	return cust.ListID, nil
}

func kindList() string {
	names := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
