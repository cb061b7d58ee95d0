// Package generate produces batches of test transactions. Each batch stamps
// unique ref numbers, randomizes amounts and line items within configured
// bounds, and registers every created transaction in the session store.
package generate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/events"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbxml"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/session"
)

// Creator is the slice of the query/command layer the generator needs.
type Creator interface {
	CreateTransaction(ctx context.Context, kind model.Kind, fields qbxml.AddFields) (model.Transaction, error)
}

// Params describes one batch.
type Params struct {
	Kind        model.Kind
	Count       int
	CustomerRef string // customer ListID the transactions bill to
	ItemRef     string // item the lines reference

	Prefix     string  // ref number prefix; defaults per kind
	MinAmount  float64 // line rate bounds; defaults 10..500
	MaxAmount  float64
	Memo       string
	PostedDate string // YYYY-MM-DD; defaults to today
	Terms      string
	Class      string
}

// Failure records one transaction the batch could not create.
type Failure struct {
	RefNumber string
	Err       error
}

// Result summarizes a finished batch.
type Result struct {
	Created  []model.Transaction
	Failures []Failure
}

// Generator creates batches through the query/command layer.
type Generator struct {
	creator Creator
	store   *session.Store
	journal *events.Journal // optional
	logger  zerolog.Logger
	rand    *rand.Rand
	seq     int

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// New creates a generator. Seed fixes the randomized amounts for tests;
// pass 0 for a time-based seed.
func New(creator Creator, store *session.Store, journal *events.Journal, logger zerolog.Logger, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		creator: creator,
		store:   store,
		journal: journal,
		logger:  logger,
		rand:    rand.New(rand.NewSource(seed)),
		Now:     time.Now,
	}
}

// DefaultPrefix returns the ref number prefix used for a kind when the
// batch does not set one.
func DefaultPrefix(kind model.Kind) string {
	switch kind {
	case model.KindInvoice:
		return "INV"
	case model.KindSalesReceipt:
		return "SR"
	case model.KindStatementCharge:
		return "CHG"
	}
	return "TXN"
}

// Run creates one batch. Individual creation failures are recorded and the
// batch continues; connection-class failures abort it, since every later
// request would fail the same way.
func (g *Generator) Run(ctx context.Context, p Params) (Result, error) {
	if err := validate(p); err != nil {
		return Result{}, err
	}
	if p.Prefix == "" {
		p.Prefix = DefaultPrefix(p.Kind)
	}
	if p.MinAmount == 0 && p.MaxAmount == 0 {
		p.MinAmount, p.MaxAmount = 10, 500
	}
	if p.PostedDate == "" {
		p.PostedDate = g.Now().Format("2006-01-02")
	}

	var res Result
	for i := 0; i < p.Count; i++ {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(errors.ETimeout, "batch interrupted", err)
		}

		g.seq++
		refNumber := fmt.Sprintf("%s-%03d-%s", p.Prefix, g.seq, shortID())
		fields := g.buildFields(p, refNumber)

		txn, err := g.creator.CreateTransaction(ctx, p.Kind, fields)
		if err != nil {
			res.Failures = append(res.Failures, Failure{RefNumber: refNumber, Err: err})
			g.logger.Warn().Err(err).Str("ref_number", refNumber).Msg("create failed")
			if fatal(err) {
				return res, err
			}
			continue
		}

		if err := g.store.ApplyCreated(txn); err != nil {
			res.Failures = append(res.Failures, Failure{RefNumber: refNumber, Err: err})
			continue
		}
		res.Created = append(res.Created, txn)
		g.logger.Info().
			Str("kind", string(p.Kind)).
			Str("ref_number", txn.RefNumber).
			Str("txn_id", txn.TxnID).
			Float64("amount", txn.Amount).
			Msg("transaction created")
		if g.journal != nil {
			if jerr := g.journal.Append(events.EventTxnCreated,
				events.TxnCreatedData(string(p.Kind), txn.RefNumber, txn.TxnID, txn.Amount)); jerr != nil {
				g.logger.Warn().Err(jerr).Msg("journal append failed")
			}
		}
	}
	return res, nil
}

func (g *Generator) buildFields(p Params, refNumber string) qbxml.AddFields {
	fields := qbxml.AddFields{
		RefNumber:   refNumber,
		CustomerRef: p.CustomerRef,
		PostedDate:  p.PostedDate,
		Memo:        p.Memo,
		TermsRef:    p.Terms,
		ClassRef:    p.Class,
	}
	switch p.Kind {
	case model.KindStatementCharge:
		fields.ItemRef = p.ItemRef
		fields.Quantity = 1
		fields.Rate = g.amount(p)
	default:
		n := 1 + g.rand.Intn(3)
		for j := 0; j < n; j++ {
			fields.Lines = append(fields.Lines, qbxml.Line{
				ItemRef:  p.ItemRef,
				Desc:     fmt.Sprintf("Test line %d", j+1),
				Quantity: 1,
				Rate:     g.amount(p),
			})
		}
	}
	return fields
}

// amount picks a rate in [MinAmount, MaxAmount] rounded to cents.
func (g *Generator) amount(p Params) float64 {
	v := p.MinAmount + g.rand.Float64()*(p.MaxAmount-p.MinAmount)
	return math.Round(v*100) / 100
}

func validate(p Params) error {
	if !p.Kind.Valid() {
		return errors.Newf(errors.EUsage, "unknown transaction kind %q", p.Kind)
	}
	if p.Count <= 0 {
		return errors.New(errors.EUsage, "batch count must be positive")
	}
	if p.CustomerRef == "" {
		return errors.New(errors.EUsage, "batch requires a customer")
	}
	if p.MinAmount < 0 || p.MaxAmount < p.MinAmount {
		return errors.New(errors.EUsage, "amount bounds must satisfy 0 <= min <= max")
	}
	return nil
}

// fatal reports whether a create failure dooms the rest of the batch.
func fatal(err error) bool {
	switch errors.GetCode(err) {
	case errors.ENotConnected, errors.ENotAuthorized, errors.EBrokerUnavailable, errors.EBrokerStopped:
		return true
	}
	return false
}

func shortID() string {
	return uuid.NewString()[:8]
}
