package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/monitor"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/verify"
)

// MonitorOpts are options for the monitor command.
type MonitorOpts struct {
	// Interval overrides the configured poll interval when > 0.
	Interval time.Duration

	// Once runs a single polling pass and exits.
	Once bool
}

// Monitor polls tracked transactions until interrupted, reporting status
// transitions and verification verdicts as they happen.
func Monitor(ctx context.Context, app *App, opts MonitorOpts, stdout io.Writer) error {
	engine, err := verify.New(app.Config)
	if err != nil {
		return err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Duration(app.Config.PollIntervalSeconds) * time.Second
	}

	app.Store.Subscribe(func(ch session.Change) {
		switch ch.Type {
		case session.ChangeStatus:
			_, _ = fmt.Fprintf(stdout, "%s  %s -> %s\n", ch.RefNumber, ch.PreviousStatus, ch.Transaction.Status)
		case session.ChangeVerification:
			v := ch.Transaction.Verification
			_, _ = fmt.Fprintf(stdout, "%s  verdict %s (coverage: %s)\n", ch.RefNumber, v.Verdict, v.Coverage)
		}
	})

	loop := monitor.New(app.Store, app.Client, engine, app.Journal,
		logging.Component(app.Logger, "monitor"), interval)

	if opts.Once {
		res := loop.Tick(ctx)
		printTick(stdout, res)
		return app.SaveSession()
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "monitoring %d transaction(s) every %s\n", app.Store.Len(), interval)

	<-ctx.Done()
	loop.Stop()
	return app.SaveSession()
}

func printTick(w io.Writer, res monitor.TickResult) {
	_, _ = fmt.Fprintf(w, "polled %d, changed %d, verified %d", res.Polled, res.Changed, res.Verified)
	if res.Missing > 0 {
		_, _ = fmt.Fprintf(w, ", missing %d", res.Missing)
	}
	if len(res.Errors) > 0 {
		_, _ = fmt.Fprintf(w, ", %d error(s)", len(res.Errors))
	}
	_, _ = fmt.Fprintln(w)
}
