package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/broker"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/ipc"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbconn"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbsim"
)

// BrokerOpts are options for the broker command.
type BrokerOpts struct {
	// IdleTimeout makes the broker exit after this long with no client
	// activity. Zero keeps it running until interrupted.
	IdleTimeout time.Duration

	// Simulate serves the in-memory company file instead of the desktop
	// automation interface.
	Simulate bool
}

// Broker runs the resource broker: it owns the single session handle and
// serializes every request arriving over the IPC socket. Returns when the
// context is cancelled, the idle timeout fires, or a client sends shutdown.
func Broker(ctx context.Context, cfg config.Config, opts BrokerOpts, logger zerolog.Logger, stdout io.Writer) error {
	var conn broker.Conn
	if opts.Simulate {
		company := qbsim.NewCompany()
		company.AddCustomer("Test Customer")
		conn = company
	} else {
		conn = qbconn.New(cfg.CompanyFile)
	}

	b := broker.New(conn, logging.Component(logger, "broker"))
	b.Start()
	defer b.Stop()

	srv := ipc.NewServer(b, logging.Component(logger, "ipc"))
	srv.IdleTimeout = opts.IdleTimeout
	if err := srv.Listen(cfg.SocketPath); err != nil {
		return err
	}

	journal := events.NewJournal(config.JournalPath(cfg.DataDir))
	logJournalErr(logger, journal.Append(events.EventBrokerStarted, events.BrokerStartedData(cfg.SocketPath)))

	_, _ = fmt.Fprintf(stdout, "broker listening on %s\n", cfg.SocketPath)
	if opts.Simulate {
		_, _ = fmt.Fprintln(stdout, "serving the simulated company file")
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.Serve()
	reason := "interrupted"
	if ctx.Err() == nil {
		reason = "idle or shutdown request"
	}
	logJournalErr(logger, journal.Append(events.EventBrokerStopped, events.BrokerStoppedData(reason)))
	_, _ = fmt.Fprintln(stdout, "broker stopped")
	return err
}

func logJournalErr(logger zerolog.Logger, err error) {
	if err != nil {
		logger.Warn().Err(err).Msg("journal append failed")
	}
}
