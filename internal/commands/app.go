// Package commands implements the qbdtest subcommands. Each command is a
// function taking parsed options and output writers; the cobra layer stays
// a thin shell over these.
package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/broker"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/ipc"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbclient"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbsim"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
)

// GlobalOpts are options shared by every subcommand.
type GlobalOpts struct {
	ConfigPath string // --config; empty means <DataDir>/config.json
	Simulate   bool   // --simulate; run against the in-memory company file
	Verbose    bool   // --verbose; detailed error context
}

// App wires the long-lived pieces a command needs: config, session store,
// journal, and the query/command client (over IPC, or over an in-process
// broker when simulating).
type App struct {
	Config       config.Config
	Logger       zerolog.Logger
	Store        *session.Store
	Client       *qbclient.Client
	Journal      *events.Journal
	SessionFound bool

	// SimCompany is set in simulate mode so callers can drive the remote
	// side (payments, reopens) directly.
	SimCompany *qbsim.Company

	ipcClient *ipc.Client
	simBroker *broker.Broker
}

// NewApp loads config and session state and connects the client side.
// The broker itself is NOT started here; see the broker command.
func NewApp(opts GlobalOpts, logger zerolog.Logger) (*App, error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.Path(config.Default().DataDir)
	}
	cfg, _, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(logging.Component(logger, "session"))
	found, err := store.Load(config.SessionPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Journal:      events.NewJournal(config.JournalPath(cfg.DataDir)),
		SessionFound: found,
	}

	if opts.Simulate {
		company := qbsim.NewCompany()
		company.AddCustomer("Test Customer")
		b := broker.New(company, logging.Component(logger, "broker"))
		b.Start()
		app.SimCompany = company
		app.simBroker = b
		app.Client = qbclient.New(&brokerCaller{b: b}, cfg.Timeouts)
	} else {
		c := ipc.NewClient(cfg.SocketPath, logging.Component(logger, "ipc"))
		app.ipcClient = c
		app.Client = qbclient.New(c, cfg.Timeouts)
	}
	return app, nil
}

// SaveSession persists the session to its default location.
func (a *App) SaveSession() error {
	return a.Store.Save(config.SessionPath(a.Config.DataDir))
}

// Close releases the client side.
func (a *App) Close() {
	if a.ipcClient != nil {
		a.ipcClient.Close()
	}
	if a.simBroker != nil {
		a.simBroker.Stop()
	}
}

// brokerCaller adapts an in-process broker to the client Caller seam,
// applying the per-call timeout the IPC client would apply.
type brokerCaller struct {
	b *broker.Broker
}

func (c *brokerCaller) Execute(ctx context.Context, operation, document string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.b.Execute(ctx, operation, document)
}
