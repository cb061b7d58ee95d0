package ipc

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

// Client is the stub through which callers reach the broker. Safe for
// concurrent use; all calls multiplex over one connection, matched by
// correlation ID.
type Client struct {
	socketPath string
	logger     zerolog.Logger

	// redialAttempts bounds transparent re-dials before E_BROKER_UNAVAILABLE.
	redialAttempts int
	redialDelay    time.Duration

	mu      sync.Mutex
	conn    net.Conn
	enc     *json.Encoder
	pending map[string]chan Response
}

// NewClient creates a client for the broker at socketPath. The connection is
// established lazily on the first call.
func NewClient(socketPath string, logger zerolog.Logger) *Client {
	return &Client{
		socketPath:     socketPath,
		logger:         logger,
		redialAttempts: 3,
		redialDelay:    200 * time.Millisecond,
		pending:        make(map[string]chan Response),
	}
}

// Call sends one request and blocks until its response arrives or timeout
// elapses. On timeout the request may still complete broker-side; the late
// response is discarded when it shows up.
func (c *Client) Call(ctx context.Context, operation string, payload json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan Response, 1)

	if err := c.send(Request{CorrelationID: id, Operation: operation, Payload: payload}, ch); err != nil {
		return nil, err
	}
	defer c.forget(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, errors.New(errors.EBrokerUnavailable, "connection to broker lost mid-call")
		}
		if !resp.OK {
			code := errors.Code(resp.ErrorCode)
			if code == "" {
				code = errors.EInternal
			}
			return nil, errors.NewWithDetails(code, resp.ErrorMessage, map[string]string{
				"op":             operation,
				"correlation_id": id,
			})
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, errors.NewWithDetails(errors.ETimeout, "no response within "+timeout.String(), map[string]string{
			"op":             operation,
			"correlation_id": id,
		})
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ETimeout, "call cancelled: "+ctx.Err().Error(), ctx.Err())
	}
}

// Execute runs a request document via the broker and returns the response
// document. This is the call every query/command operation goes through.
func (c *Client) Execute(ctx context.Context, operation, document string, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(ExecutePayload{Operation: operation, Document: document})
	if err != nil {
		return "", errors.Wrap(errors.EInternal, "failed to encode payload", err)
	}
	raw, err := c.Call(ctx, OpExecute, payload, timeout)
	if err != nil {
		return "", err
	}
	var result ExecuteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", errors.Wrap(errors.EParse, "malformed execute result", err)
	}
	return result.Document, nil
}

// Heartbeat sends a liveness signal so a detached broker does not idle out.
func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.Call(ctx, OpHeartbeat, nil, 5*time.Second)
	return err
}

// Shutdown asks the broker process to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, OpShutdown, nil, 5*time.Second)
	return err
}

// Close drops the connection. In-flight calls fail with E_BROKER_UNAVAILABLE.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

// send registers the pending call and writes the envelope, dialing first if
// needed.
func (c *Client) send(req Request, ch chan Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(); err != nil {
			return err
		}
	}

	c.pending[req.CorrelationID] = ch
	if err := c.enc.Encode(req); err != nil {
		delete(c.pending, req.CorrelationID)
		// Broken pipe: drop the connection and re-dial once for this call.
		c.dropLocked()
		if derr := c.dialLocked(); derr != nil {
			return derr
		}
		c.pending[req.CorrelationID] = ch
		if err := c.enc.Encode(req); err != nil {
			delete(c.pending, req.CorrelationID)
			c.dropLocked()
			return errors.Wrap(errors.EBrokerUnavailable, "failed to send request", err)
		}
	}
	return nil
}

// dialLocked re-dials the socket up to redialAttempts times.
// Caller holds c.mu.
func (c *Client) dialLocked() error {
	var lastErr error
	for attempt := 0; attempt < c.redialAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.redialDelay)
		}
		conn, err := net.DialTimeout("unix", c.socketPath, 2*time.Second)
		if err != nil {
			lastErr = err
			continue
		}
		c.conn = conn
		c.enc = json.NewEncoder(conn)
		go c.readLoop(conn)
		return nil
	}
	return errors.NewWithDetails(errors.EBrokerUnavailable,
		"broker endpoint unreachable: "+lastErr.Error(),
		map[string]string{"socket": c.socketPath, "hint": "start it with: qbdtest broker"})
}

// readLoop routes responses to pending calls. A response whose correlation
// ID has no pending call belongs to a timed-out caller and is discarded.
func (c *Client) readLoop(conn net.Conn) {
	dec := json.NewDecoder(conn)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.dropLocked()
			}
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.CorrelationID]
		if ok {
			delete(c.pending, resp.CorrelationID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug().Str("correlation_id", resp.CorrelationID).
				Msg("discarding late response for timed-out call")
			continue
		}
		ch <- resp
	}
}

// forget removes a pending entry left behind by a timeout or cancellation.
func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// dropLocked closes the connection and fails all pending calls.
// Caller holds c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.enc = nil
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
