package commands

import (
	"fmt"
	"io"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// Save writes the session to path, or to the default session file when
// path is empty.
func Save(app *App, path string, stdout io.Writer) error {
	if path == "" {
		path = config.SessionPath(app.Config.DataDir)
	}
	if err := app.Store.Save(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "saved %d transaction(s) to %s\n", app.Store.Len(), path)
	return nil
}

// LoadOpts are options for the load command.
type LoadOpts struct {
	Path string

	// Reverify drops recorded verdicts on closed transactions so the next
	// monitor or verify pass checks them again.
	Reverify bool
}

// Load replaces the session with the contents of a session file and makes
// it the current session.
func Load(app *App, opts LoadOpts, stdout io.Writer) error {
	found, err := app.Store.Load(opts.Path)
	if err != nil {
		return err
	}
	if !found {
		return errors.Newf(errors.ENotFound, "no session file at %s", opts.Path)
	}

	reset := 0
	if opts.Reverify {
		for _, txn := range app.Store.List() {
			if txn.Status == model.StatusClosed && txn.Verification != nil {
				app.Store.ResetVerification(txn.RefNumber)
				reset++
			}
		}
	}

	if err := app.SaveSession(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "loaded %d transaction(s) from %s\n", app.Store.Len(), opts.Path)
	if reset > 0 {
		_, _ = fmt.Fprintf(stdout, "%d verdict(s) cleared for re-verification\n", reset)
	}
	return nil
}
