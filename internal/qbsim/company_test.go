package qbsim

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/broker"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/ipc"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/monitor"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbclient"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbxml"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/verify"
)

func openedCompany(t *testing.T) *Company {
	t.Helper()
	c := NewCompany()
	require.NoError(t, c.Open())
	return c
}

func TestWireDialectRoundTrip(t *testing.T) {
	c := openedCompany(t)
	cust := c.AddCustomer("Acme Corp")

	doc, err := qbxml.BuildTransactionAdd(model.KindInvoice, qbxml.AddFields{
		RefNumber:   "INV-001",
		CustomerRef: cust.ListID,
		PostedDate:  "2026-01-15",
		Memo:        "generated",
		Lines:       []qbxml.Line{{ItemRef: "I-1", Quantity: 2, Rate: 50}},
	})
	require.NoError(t, err)
	resp, err := c.Send(doc)
	require.NoError(t, err)

	created, err := qbxml.ParseTransactionAdd(model.KindInvoice, resp, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, created.TxnID)
	assert.Equal(t, 100.0, created.Amount)

	doc, err = qbxml.BuildTransactionQuery(model.KindInvoice, []string{"INV-001"})
	require.NoError(t, err)
	resp, err = c.Send(doc)
	require.NoError(t, err)
	txns, err := qbxml.ParseTransactionQuery(model.KindInvoice, resp, time.Now())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.StatusOpen, txns[0].Status)
	assert.Equal(t, "Acme Corp", txns[0].CustomerName)

	_, err = c.Pay("INV-001", 100, "Undeposited Funds", "posted by integration")
	require.NoError(t, err)

	resp, err = c.Send(mustBuildQuery(t, model.KindInvoice, "INV-001"))
	require.NoError(t, err)
	txns, err = qbxml.ParseTransactionQuery(model.KindInvoice, resp, time.Now())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.StatusClosed, txns[0].Status)

	doc, err = qbxml.BuildPaymentQuery(created.TxnID, "INV-001")
	require.NoError(t, err)
	resp, err = c.Send(doc)
	require.NoError(t, err)
	payments, err := qbxml.ParsePayments(resp)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "INV-001", payments[0].AppliedToRef)
	assert.Equal(t, "Undeposited Funds", payments[0].DepositAccount)

	doc, err = qbxml.BuildTxnDel(model.KindInvoice, created.TxnID)
	require.NoError(t, err)
	resp, err = c.Send(doc)
	require.NoError(t, err)
	require.NoError(t, qbxml.ParseTxnDel(resp))

	resp, err = c.Send(doc)
	require.NoError(t, err)
	err = qbxml.ParseTxnDel(resp)
	require.Error(t, err)
	assert.Equal(t, errors.ENotFound, errors.GetCode(err), "second delete reports the record gone")
}

func mustBuildQuery(t *testing.T, kind model.Kind, refs ...string) string {
	t.Helper()
	doc, err := qbxml.BuildTransactionQuery(kind, refs)
	require.NoError(t, err)
	return doc
}

func TestDuplicateRefNumberRejected(t *testing.T) {
	c := openedCompany(t)
	cust := c.AddCustomer("Acme Corp")

	fields := qbxml.AddFields{
		RefNumber:   "INV-001",
		CustomerRef: cust.ListID,
		Lines:       []qbxml.Line{{ItemRef: "I-1", Quantity: 1, Rate: 10}},
	}
	doc, err := qbxml.BuildTransactionAdd(model.KindInvoice, fields)
	require.NoError(t, err)

	resp, err := c.Send(doc)
	require.NoError(t, err)
	_, err = qbxml.ParseTransactionAdd(model.KindInvoice, resp, time.Now())
	require.NoError(t, err)

	resp, err = c.Send(doc)
	require.NoError(t, err)
	_, err = qbxml.ParseTransactionAdd(model.KindInvoice, resp, time.Now())
	require.Error(t, err)
	assert.Equal(t, errors.ERemote, errors.GetCode(err))
}

func TestSendWithoutOpenSession(t *testing.T) {
	c := NewCompany()
	_, err := c.Send("<QBXML/>")
	require.Error(t, err)
	assert.Equal(t, errors.ENotConnected, errors.GetCode(err))
}

func TestAccountQuery(t *testing.T) {
	c := openedCompany(t)
	doc, err := qbxml.BuildAccountQuery([]string{"Undeposited Funds"})
	require.NoError(t, err)
	resp, err := c.Send(doc)
	require.NoError(t, err)
	accounts, err := qbxml.ParseAccountQuery(resp)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Undeposited Funds", accounts[0].FullName)
}

// TestFullStack runs the entire pipeline against the simulator: broker over
// the simulated handle, IPC server and client over a real socket, the
// query/command layer, the session store, the monitor, and verification.
func TestFullStack(t *testing.T) {
	logger := logging.NewWithWriter(io.Discard)

	company := NewCompany()
	cust := company.AddCustomer("Acme Corp")

	b := broker.New(company, logger)
	b.Start()
	defer b.Stop()

	dir, err := os.MkdirTemp("", "qbd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "b.sock")

	server := ipc.NewServer(b, logger)
	require.NoError(t, server.Listen(socket))
	go func() { _ = server.Serve() }()
	defer server.Close()

	client := ipc.NewClient(socket, logger)
	defer client.Close()

	cfg := config.Default()
	qc := qbclient.New(client, cfg.Timeouts)
	store := session.NewStore(logger)
	engine, err := verify.New(cfg)
	require.NoError(t, err)
	loop := monitor.New(store, qc, engine, nil, logger, time.Hour)

	ctx := context.Background()

	txn, err := qc.CreateTransaction(ctx, model.KindInvoice, qbxml.AddFields{
		RefNumber:   "INV-100",
		CustomerRef: cust.ListID,
		Lines:       []qbxml.Line{{ItemRef: "I-1", Quantity: 1, Rate: 250}},
	})
	require.NoError(t, err)
	require.NoError(t, store.ApplyCreated(txn))

	res := loop.Tick(ctx)
	assert.Equal(t, 1, res.Polled)
	assert.Zero(t, res.Changed)

	_, err = company.Pay("INV-100", 250, "Undeposited Funds", "posted by integration")
	require.NoError(t, err)

	res = loop.Tick(ctx)
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, 1, res.Verified)

	got, ok := store.Get("INV-100")
	require.True(t, ok)
	assert.Equal(t, model.StatusClosed, got.Status)
	require.NotNil(t, got.Verification)
	assert.Equal(t, model.VerdictPass, got.Verification.Verdict)
	assert.Equal(t, model.CoverageFull, got.Verification.Coverage)

	// Void the payment remotely; the next tick reopens and drops the verdict.
	require.NoError(t, company.Reopen("INV-100", 250))
	res = loop.Tick(ctx)
	assert.Equal(t, 1, res.Changed)
	got, _ = store.Get("INV-100")
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.Nil(t, got.Verification)
}
