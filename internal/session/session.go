// Package session holds the in-memory state of one test run: every generated
// transaction, its observed status, and its verification outcome. All state
// transitions go through reducer methods on Store; nothing else mutates a
// tracked transaction.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// ChangeType identifies which reducer produced a change notification.
type ChangeType string

const (
	ChangeCreated      ChangeType = "created"
	ChangeStatus       ChangeType = "status_changed"
	ChangeVerification ChangeType = "verification_recorded"
	ChangeArchived     ChangeType = "archived"
	ChangeDeleted      ChangeType = "deleted"
)

// Change is delivered to subscribers after a reducer mutates the store.
// Transaction is a copy of the post-change state (zero value for deletes).
type Change struct {
	Type        ChangeType
	RefNumber   string
	Transaction model.Transaction

	// PreviousStatus is set on status changes so subscribers can react to
	// specific transitions without keeping their own shadow state.
	PreviousStatus model.Status
}

// Subscriber receives change notifications synchronously, in registration
// order, while the store lock is held. Keep handlers fast.
type Subscriber func(Change)

// Observation is one remote status reading for a tracked transaction.
type Observation struct {
	RefNumber    string
	Status       model.Status
	Balance      float64
	EditSequence string
	ObservedAt   time.Time
}

// Store is the single authority over session state. Reads return copies.
type Store struct {
	mu     sync.Mutex
	txns   map[string]*model.Transaction // keyed by ref number
	order  []string                      // insertion order
	subs   []Subscriber
	logger zerolog.Logger

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// NewStore creates an empty session store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		txns:   make(map[string]*model.Transaction),
		logger: logger,
		Now:    time.Now,
	}
}

// Subscribe registers a change handler. Handlers run synchronously in
// registration order. A panicking handler is logged and does not prevent
// later handlers from running.
func (s *Store) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

// notifyLocked runs with s.mu held.
func (s *Store) notifyLocked(ch Change) {
	for _, sub := range s.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Interface("panic", r).
						Str("change", string(ch.Type)).
						Str("ref_number", ch.RefNumber).
						Msg("subscriber panicked")
				}
			}()
			sub(ch)
		}()
	}
}

// ApplyCreated registers a freshly created transaction. Ref numbers are
// never reused, so a duplicate means the caller lost track of state.
func (s *Store) ApplyCreated(txn model.Transaction) error {
	if txn.RefNumber == "" {
		return errors.New(errors.EInternal, "transaction has no ref number")
	}
	if !txn.Kind.Valid() {
		return errors.Newf(errors.EInternal, "unknown transaction kind %q", txn.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txns[txn.RefNumber]; exists {
		return errors.Newf(errors.EInternal, "ref number %s already tracked", txn.RefNumber)
	}
	if txn.Status == "" {
		txn.Status = model.StatusOpen
	}
	cp := txn
	s.txns[txn.RefNumber] = &cp
	s.order = append(s.order, txn.RefNumber)
	s.notifyLocked(Change{Type: ChangeCreated, RefNumber: txn.RefNumber, Transaction: txn})
	return nil
}

// ApplyStatusObserved folds one remote status reading into the store.
// It is idempotent: observing the already-known status refreshes timestamps
// without emitting a change. Observations older than the last applied one
// are discarded. A closed transaction reopening clears its verification
// outcome so the next close is verified fresh.
func (s *Store) ApplyStatusObserved(obs Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[obs.RefNumber]
	if !ok {
		s.logger.Debug().Str("ref_number", obs.RefNumber).Msg("observation for untracked transaction ignored")
		return
	}
	if !txn.StatusObservedAt.IsZero() && obs.ObservedAt.Before(txn.StatusObservedAt) {
		s.logger.Debug().
			Str("ref_number", obs.RefNumber).
			Time("observed_at", obs.ObservedAt).
			Time("last_applied", txn.StatusObservedAt).
			Msg("stale observation discarded")
		return
	}

	txn.LastChecked = obs.ObservedAt
	txn.StatusObservedAt = obs.ObservedAt
	txn.Balance = obs.Balance
	if obs.EditSequence != "" {
		txn.EditSequence = obs.EditSequence
	}

	if obs.Status == txn.Status {
		return
	}

	prev := txn.Status
	txn.Status = obs.Status
	if prev == model.StatusClosed && obs.Status == model.StatusOpen {
		txn.Verification = nil
	}
	s.notifyLocked(Change{
		Type:           ChangeStatus,
		RefNumber:      obs.RefNumber,
		Transaction:    *txn,
		PreviousStatus: prev,
	})
}

// ApplyVerification records a verification outcome for a transaction.
func (s *Store) ApplyVerification(refNumber string, result model.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[refNumber]
	if !ok {
		s.logger.Debug().Str("ref_number", refNumber).Msg("verification for untracked transaction ignored")
		return
	}
	cp := result
	txn.Verification = &cp
	s.notifyLocked(Change{Type: ChangeVerification, RefNumber: refNumber, Transaction: *txn})
}

// ResetVerification drops the recorded verdict so the transaction is
// verified again on the next pass. Used by load --reverify.
func (s *Store) ResetVerification(refNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.txns[refNumber]; ok {
		txn.Verification = nil
	}
}

// ApplyArchived marks a transaction archived. Archived transactions are
// excluded from polling but remain in the session.
func (s *Store) ApplyArchived(refNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[refNumber]
	if !ok {
		return errors.Newf(errors.ENotFound, "no tracked transaction with ref number %s", refNumber)
	}
	if txn.Archived {
		return nil
	}
	txn.Archived = true
	s.notifyLocked(Change{Type: ChangeArchived, RefNumber: refNumber, Transaction: *txn})
	return nil
}

// ApplyDeleted removes a transaction from the session entirely.
func (s *Store) ApplyDeleted(refNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txns[refNumber]; !ok {
		return errors.Newf(errors.ENotFound, "no tracked transaction with ref number %s", refNumber)
	}
	delete(s.txns, refNumber)
	for i, ref := range s.order {
		if ref == refNumber {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.notifyLocked(Change{Type: ChangeDeleted, RefNumber: refNumber})
	return nil
}

// Get returns a copy of one tracked transaction.
func (s *Store) Get(refNumber string) (model.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[refNumber]
	if !ok {
		return model.Transaction{}, false
	}
	return *txn, true
}

// List returns copies of all tracked transactions in insertion order.
func (s *Store) List() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Transaction, 0, len(s.order))
	for _, ref := range s.order {
		out = append(out, *s.txns[ref])
	}
	return out
}

// ActiveRefsByKind returns the ref numbers the monitor should poll,
// partitioned by kind. Archived transactions are excluded. Ref numbers
// within a kind are sorted for deterministic query documents.
func (s *Store) ActiveRefsByKind() map[model.Kind][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.Kind][]string)
	for _, ref := range s.order {
		txn := s.txns[ref]
		if txn.Archived {
			continue
		}
		out[txn.Kind] = append(out[txn.Kind], ref)
	}
	for _, refs := range out {
		sort.Strings(refs)
	}
	return out
}

// Len returns the number of tracked transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}
