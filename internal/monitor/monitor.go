// Package monitor polls the external system for the current state of every
// tracked transaction and feeds observations into the session store. When a
// transaction is seen closed it runs verification and records the verdict.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbclient"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/verify"
)

// State is the monitor lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Querier is the slice of the query/command layer the monitor needs.
// *qbclient.Client satisfies this; tests substitute a fake.
type Querier interface {
	QueryTransactions(ctx context.Context, kind model.Kind, refNumbers []string) ([]qbclient.QueryResult, error)
	QueryRelatedPayments(ctx context.Context, txn model.Transaction) ([]model.Payment, error)
}

// TickResult summarizes one polling pass.
type TickResult struct {
	Polled   int // transactions queried
	Changed  int // status transitions applied
	Verified int // verification verdicts recorded
	Missing  int // tracked refs with no remote record
	Errors   []error
}

// Loop drives periodic polling. One tick queries all active transactions
// kind by kind; a failing kind never blocks the others.
type Loop struct {
	store    *session.Store
	querier  Querier
	engine   *verify.Engine
	journal  *events.Journal // optional
	logger   zerolog.Logger
	interval time.Duration

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// New creates an idle monitor loop.
func New(store *session.Store, querier Querier, engine *verify.Engine, journal *events.Journal, logger zerolog.Logger, interval time.Duration) *Loop {
	return &Loop{
		store:    store,
		querier:  querier,
		engine:   engine,
		journal:  journal,
		logger:   logger,
		interval: interval,
		state:    StateIdle,
		Now:      time.Now,
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start begins polling. The first tick runs immediately, subsequent ticks
// at the configured interval. A stopped loop can be started again; only a
// running loop rejects Start.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateRunning {
		l.mu.Unlock()
		return errors.New(errors.EInternal, "monitor is already running")
	}
	l.state = StateRunning
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.run(ctx)
	return nil
}

// Stop halts polling. An in-flight tick finishes before Stop returns.
// Stopping an idle or already stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state != StateRunning {
		l.mu.Unlock()
		return
	}
	close(l.stop)
	done := l.done
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	l.state = StateStopped
	l.mu.Unlock()
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	l.Tick(ctx)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one polling pass: query every active transaction, fold the
// observations into the store, then verify any closed transaction that
// has no verdict yet. Exported so a single pass can be run on demand.
func (l *Loop) Tick(ctx context.Context) TickResult {
	started := l.Now()
	var res TickResult

	refsByKind := l.store.ActiveRefsByKind()
	for _, kind := range model.Kinds {
		refs := refsByKind[kind]
		if len(refs) == 0 {
			continue
		}
		res.Polled += len(refs)

		results, err := l.querier.QueryTransactions(ctx, kind, refs)
		if err != nil {
			l.logger.Warn().Err(err).Str("kind", string(kind)).Msg("status query failed, kind skipped this tick")
			res.Errors = append(res.Errors, err)
			continue
		}
		observedAt := l.Now()
		for _, r := range results {
			if !r.Found {
				res.Missing++
				l.logger.Warn().Str("ref_number", r.RefNumber).Msg("tracked transaction has no remote record")
				continue
			}
			prev, _ := l.store.Get(r.RefNumber)
			l.store.ApplyStatusObserved(session.Observation{
				RefNumber:    r.RefNumber,
				Status:       r.Transaction.Status,
				Balance:      r.Transaction.Balance,
				EditSequence: r.Transaction.EditSequence,
				ObservedAt:   observedAt,
			})
			if prev.Status != r.Transaction.Status {
				res.Changed++
				l.journalAppend(events.EventStatusObserved,
					events.StatusObservedData(r.RefNumber, string(prev.Status), string(r.Transaction.Status)))
			}
		}
	}

	res.Verified = l.verifyPending(ctx, &res)

	if l.journal != nil {
		var code string
		if len(res.Errors) > 0 {
			code = string(errors.GetCode(res.Errors[0]))
		}
		l.journalAppend(events.EventTickCompleted,
			events.TickCompletedData(res.Polled, res.Changed, l.Now().Sub(started).Milliseconds(), code))
	}
	return res
}

// verifyPending runs verification for every closed, active transaction
// without a verdict. A failed payment query leaves the transaction
// unverified; the next tick picks it up again.
func (l *Loop) verifyPending(ctx context.Context, res *TickResult) int {
	verified := 0
	for _, txn := range l.store.List() {
		if txn.Archived || txn.Status != model.StatusClosed || txn.Verification != nil {
			continue
		}
		payments, err := l.querier.QueryRelatedPayments(ctx, txn)
		if err != nil {
			l.logger.Warn().Err(err).Str("ref_number", txn.RefNumber).Msg("payment query failed, verification deferred")
			res.Errors = append(res.Errors, err)
			continue
		}
		result := l.engine.Verify(txn, payments)
		l.store.ApplyVerification(txn.RefNumber, result)
		verified++
		l.logger.Info().
			Str("ref_number", txn.RefNumber).
			Str("verdict", string(result.Verdict)).
			Str("coverage", string(result.Coverage)).
			Msg("verification recorded")
		l.journalAppend(events.EventVerificationRecorded,
			events.VerificationRecordedData(txn.RefNumber, string(result.Verdict), string(result.Coverage)))
	}
	return verified
}

func (l *Loop) journalAppend(event string, data map[string]any) {
	if l.journal == nil {
		return
	}
	if err := l.journal.Append(event, data); err != nil {
		l.logger.Warn().Err(err).Str("event", event).Msg("journal append failed")
	}
}
