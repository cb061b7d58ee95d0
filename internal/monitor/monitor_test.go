package monitor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbclient"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/verify"
)

// fakeQuerier serves remote state from in-memory maps.
type fakeQuerier struct {
	mu       sync.Mutex
	statuses map[string]model.Transaction // by ref number; absent means no remote record
	payments map[string][]model.Payment   // by ref number

	queryErr   map[model.Kind]error
	paymentErr error

	txnQueries     int
	paymentQueries int
}

func (f *fakeQuerier) QueryTransactions(_ context.Context, kind model.Kind, refs []string) ([]qbclient.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txnQueries++
	if err := f.queryErr[kind]; err != nil {
		return nil, err
	}
	results := make([]qbclient.QueryResult, 0, len(refs))
	for _, ref := range refs {
		txn, found := f.statuses[ref]
		results = append(results, qbclient.QueryResult{RefNumber: ref, Found: found, Transaction: txn})
	}
	return results, nil
}

func (f *fakeQuerier) QueryRelatedPayments(_ context.Context, txn model.Transaction) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentQueries++
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return f.payments[txn.RefNumber], nil
}

func (f *fakeQuerier) setStatus(ref string, txn model.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[ref] = txn
}

func (f *fakeQuerier) setPaymentErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentErr = err
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		statuses: make(map[string]model.Transaction),
		payments: make(map[string][]model.Payment),
		queryErr: make(map[model.Kind]error),
	}
}

type fixture struct {
	store   *session.Store
	querier *fakeQuerier
	loop    *Loop
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	logger := logging.NewWithWriter(io.Discard)
	store := session.NewStore(logger)
	querier := newFakeQuerier()
	engine, err := verify.New(config.Default())
	require.NoError(t, err)
	return &fixture{
		store:   store,
		querier: querier,
		loop:    New(store, querier, engine, nil, logger, interval),
	}
}

func (fx *fixture) track(t *testing.T, kind model.Kind, ref string, amount float64) {
	t.Helper()
	require.NoError(t, fx.store.ApplyCreated(model.Transaction{
		Kind:      kind,
		RefNumber: ref,
		Amount:    amount,
		Balance:   amount,
		Status:    model.StatusOpen,
	}))
	fx.querier.setStatus(ref, model.Transaction{
		Kind: kind, RefNumber: ref, Status: model.StatusOpen, Balance: amount,
	})
}

func TestTickAppliesStatusChangeAndVerifiesOnce(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)

	res := fx.loop.Tick(context.Background())
	assert.Equal(t, 1, res.Polled)
	assert.Zero(t, res.Changed, "status unchanged on first tick")

	fx.querier.setStatus("INV-001", model.Transaction{
		Kind: model.KindInvoice, RefNumber: "INV-001", Status: model.StatusClosed,
	})
	fx.querier.payments["INV-001"] = []model.Payment{{
		TxnID: "PAY-1", AppliedToRef: "INV-001", Amount: 100, DepositAccount: "Undeposited Funds",
	}}

	res = fx.loop.Tick(context.Background())
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, 1, res.Verified)

	txn, _ := fx.store.Get("INV-001")
	require.NotNil(t, txn.Verification)
	assert.Equal(t, model.VerdictPass, txn.Verification.Verdict)

	res = fx.loop.Tick(context.Background())
	assert.Zero(t, res.Verified, "a recorded verdict is not recomputed")
	assert.Equal(t, 1, fx.querier.paymentQueries)
}

func TestTickKindFailureIsolation(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)
	fx.track(t, model.KindStatementCharge, "CHG-001", 50)
	fx.querier.queryErr[model.KindInvoice] = errors.New(errors.ETimeout, "query timed out")
	fx.querier.setStatus("CHG-001", model.Transaction{
		Kind: model.KindStatementCharge, RefNumber: "CHG-001", Status: model.StatusClosed,
	})
	fx.querier.payments["CHG-001"] = []model.Payment{{
		TxnID: "PAY-2", AppliedToRef: "CHG-001", Amount: 50, DepositAccount: "Undeposited Funds",
	}}

	res := fx.loop.Tick(context.Background())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Changed, "the failing kind does not block the others")

	txn, _ := fx.store.Get("CHG-001")
	assert.Equal(t, model.StatusClosed, txn.Status)

	inv, _ := fx.store.Get("INV-001")
	assert.Equal(t, model.StatusOpen, inv.Status, "no observation applied for the failed kind")
}

func TestVerificationRetriedAfterPaymentQueryFailure(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)
	fx.querier.setStatus("INV-001", model.Transaction{
		Kind: model.KindInvoice, RefNumber: "INV-001", Status: model.StatusClosed,
	})
	fx.querier.setPaymentErr(errors.New(errors.EConnectionLost, "handle went away"))

	res := fx.loop.Tick(context.Background())
	assert.Zero(t, res.Verified)
	txn, _ := fx.store.Get("INV-001")
	assert.Nil(t, txn.Verification, "no verdict recorded on a failed payment query")

	fx.querier.setPaymentErr(nil)
	fx.querier.payments["INV-001"] = []model.Payment{{
		TxnID: "PAY-1", AppliedToRef: "INV-001", Amount: 100, DepositAccount: "Undeposited Funds",
	}}

	res = fx.loop.Tick(context.Background())
	assert.Equal(t, 1, res.Verified)
	txn, _ = fx.store.Get("INV-001")
	require.NotNil(t, txn.Verification)
	assert.Equal(t, model.VerdictPass, txn.Verification.Verdict)
}

func TestTickSkipsArchivedTransactions(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)
	require.NoError(t, fx.store.ApplyArchived("INV-001"))

	res := fx.loop.Tick(context.Background())
	assert.Zero(t, res.Polled)
	assert.Zero(t, fx.querier.txnQueries)
}

func TestTickCountsMissingRemoteRecords(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)
	fx.querier.mu.Lock()
	delete(fx.querier.statuses, "INV-001")
	fx.querier.mu.Unlock()

	res := fx.loop.Tick(context.Background())
	assert.Equal(t, 1, res.Missing)
	txn, _ := fx.store.Get("INV-001")
	assert.Equal(t, model.StatusOpen, txn.Status, "a missing record is not an observation")
}

func TestStartRunsImmediateFirstTick(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)

	require.NoError(t, fx.loop.Start(context.Background()))
	defer fx.loop.Stop()

	deadline := time.After(2 * time.Second)
	for {
		fx.querier.mu.Lock()
		n := fx.querier.txnQueries
		fx.querier.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first tick did not run promptly after Start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Equal(t, StateRunning, fx.loop.State())
}

func TestLifecycleStates(t *testing.T) {
	fx := newFixture(t, 10*time.Millisecond)
	assert.Equal(t, StateIdle, fx.loop.State())

	require.NoError(t, fx.loop.Start(context.Background()))
	assert.Equal(t, StateRunning, fx.loop.State())

	err := fx.loop.Start(context.Background())
	require.Error(t, err, "a running monitor cannot be started again")

	fx.loop.Stop()
	assert.Equal(t, StateStopped, fx.loop.State())

	fx.loop.Stop() // no-op
	assert.Equal(t, StateStopped, fx.loop.State())
}

func TestRestartAfterStop(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.track(t, model.KindInvoice, "INV-001", 100)

	require.NoError(t, fx.loop.Start(context.Background()))
	fx.loop.Stop()
	require.Equal(t, StateStopped, fx.loop.State())
	fx.querier.mu.Lock()
	before := fx.querier.txnQueries
	fx.querier.mu.Unlock()

	require.NoError(t, fx.loop.Start(context.Background()), "a stopped monitor can be started again")
	assert.Equal(t, StateRunning, fx.loop.State())

	// The restarted loop polls again, starting with an immediate tick.
	deadline := time.After(2 * time.Second)
	for {
		fx.querier.mu.Lock()
		n := fx.querier.txnQueries
		fx.querier.mu.Unlock()
		if n > before {
			break
		}
		select {
		case <-deadline:
			t.Fatal("restarted monitor never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}

	fx.loop.Stop()
	assert.Equal(t, StateStopped, fx.loop.State())
}
