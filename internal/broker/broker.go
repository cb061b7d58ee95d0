// Package broker owns the sole handle to the external accounting system and
// serializes all access to it.
//
// The accounting application accepts only one in-flight automation call at a
// time. The broker runs a single worker goroutine that owns the handle and
// executes queued requests strictly one at a time, FIFO by arrival. Callers
// reach it only through Submit (in-process) or the IPC server (cross-process).
package broker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

// Conn is the external system boundary: one exclusive handle speaking the
// structured request/response document protocol.
//
// Open must return E_NOT_CONNECTED when the application is not running and
// E_NOT_AUTHORIZED when integration access is denied. Send must return
// E_CONNECTION_LOST when a previously live handle has gone away.
type Conn interface {
	Open() error
	Send(request string) (string, error)
	Close() error
}

// Request is one structured operation submitted to the broker.
type Request struct {
	Operation string // operation name, for logging only
	Document  string // request document (QBXML)
}

// Response carries the response document for a completed request.
type Response struct {
	Document string
}

type result struct {
	resp Response
	err  error
}

type pending struct {
	req   Request
	reply chan result // buffered(1): the worker never blocks on an abandoned caller
}

// Broker executes requests against the external handle, one at a time.
type Broker struct {
	conn   Conn
	logger zerolog.Logger

	queue chan pending
	done  chan struct{}
	ended chan struct{}

	stopOnce sync.Once

	// opened is touched only by the worker goroutine.
	opened bool
}

// queueDepth bounds how many requests may wait behind the in-flight one.
const queueDepth = 64

// New creates a broker for the given connection. Call Start before Submit.
func New(conn Conn, logger zerolog.Logger) *Broker {
	return &Broker{
		conn:   conn,
		logger: logger,
		queue:  make(chan pending, queueDepth),
		done:   make(chan struct{}),
		ended:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. The external handle is acquired
// lazily on the first request, not here.
func (b *Broker) Start() {
	go b.run()
}

// Submit enqueues a request and blocks until it completes, fails, or ctx is
// done. A request already handed to the worker is executed to completion even
// if the caller gives up; the late result is discarded.
func (b *Broker) Submit(ctx context.Context, req Request) (Response, error) {
	p := pending{req: req, reply: make(chan result, 1)}

	select {
	case b.queue <- p:
	case <-b.done:
		return Response{}, errors.New(errors.EBrokerStopped, "broker is shutting down")
	case <-ctx.Done():
		return Response{}, errors.Wrap(errors.ETimeout, "request not submitted: "+ctx.Err().Error(), ctx.Err())
	}

	select {
	case r := <-p.reply:
		return r.resp, r.err
	case <-ctx.Done():
		// The worker will still finish this request; nobody reads the result.
		return Response{}, errors.Wrap(errors.ETimeout, "gave up waiting for response", ctx.Err())
	}
}

// Execute adapts Submit to the IPC listener's executor seam.
func (b *Broker) Execute(ctx context.Context, operation, document string) (string, error) {
	resp, err := b.Submit(ctx, Request{Operation: operation, Document: document})
	if err != nil {
		return "", err
	}
	return resp.Document, nil
}

// Stop shuts the worker down. Requests already queued fail explicitly with
// E_BROKER_STOPPED; the in-flight request (if any) finishes first.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
	<-b.ended
}

func (b *Broker) run() {
	defer close(b.ended)
	for {
		select {
		case p := <-b.queue:
			// Stop takes priority over work that was already waiting: once
			// done is closed no queued request may execute.
			select {
			case <-b.done:
				p.reply <- result{err: errors.New(errors.EBrokerStopped, "broker stopped before request executed")}
				continue
			default:
			}
			p.reply <- b.execute(p.req)
		case <-b.done:
			b.drain()
			if b.opened {
				if err := b.conn.Close(); err != nil {
					b.logger.Warn().Err(err).Msg("closing external handle")
				}
				b.opened = false
			}
			return
		}
	}
}

// drain fails every still-queued request explicitly. Nothing is dropped
// silently.
func (b *Broker) drain() {
	for {
		select {
		case p := <-b.queue:
			p.reply <- result{err: errors.New(errors.EBrokerStopped, "broker stopped before request executed")}
		default:
			return
		}
	}
}

// execute runs one request against the handle. Runs only on the worker
// goroutine, so access to the handle is serialized by construction.
func (b *Broker) execute(req Request) result {
	if !b.opened {
		if err := b.conn.Open(); err != nil {
			// NotConnected / NotAuthorized pass through untouched; the
			// caller decides whether to retry.
			return result{err: err}
		}
		b.opened = true
		b.logger.Info().Msg("external handle acquired")
	}

	resp, err := b.conn.Send(req.Document)
	if err == nil {
		return result{resp: Response{Document: resp}}
	}
	if !errors.IsCode(err, errors.EConnectionLost) {
		return result{err: err}
	}

	// Broken handle: one re-acquisition attempt, then give up with
	// E_CONNECTION_LOST.
	b.logger.Warn().Str("op", req.Operation).Msg("handle lost, attempting re-acquisition")
	_ = b.conn.Close()
	b.opened = false

	if oerr := b.conn.Open(); oerr != nil {
		return result{err: errors.Wrap(errors.EConnectionLost, "handle lost and re-acquisition failed", oerr)}
	}
	b.opened = true

	resp, err = b.conn.Send(req.Document)
	if err != nil {
		_ = b.conn.Close()
		b.opened = false
		return result{err: errors.Wrap(errors.EConnectionLost, "request failed after reconnect", err)}
	}
	return result{resp: Response{Document: resp}}
}
