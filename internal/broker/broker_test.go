package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
)

// fakeConn records every call so tests can assert serialization and ordering.
type fakeConn struct {
	mu       sync.Mutex
	inFlight int32
	overlap  bool
	sent     []string

	openErr  error
	openErrs []error // consumed one per Open call, then openErr
	sendFn   func(req string) (string, error)
	opens    int
	closes   int
}

func (c *fakeConn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if len(c.openErrs) > 0 {
		err := c.openErrs[0]
		c.openErrs = c.openErrs[1:]
		return err
	}
	return c.openErr
}

func (c *fakeConn) Send(req string) (string, error) {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		c.overlap = true
	}
	defer atomic.AddInt32(&c.inFlight, -1)

	// Hold the handle long enough for overlapping executions to collide.
	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.sent = append(c.sent, req)
	fn := c.sendFn
	c.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return "<ok/>", nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func newTestBroker(t *testing.T, conn Conn) *Broker {
	t.Helper()
	b := New(conn, logging.NewWithWriter(testWriter{t}))
	b.Start()
	t.Cleanup(b.Stop)
	return b
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSubmitSerializesConcurrentCallers(t *testing.T) {
	conn := &fakeConn{}
	b := newTestBroker(t, conn)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Submit(context.Background(), Request{
				Operation: "Test",
				Document:  fmt.Sprintf("req-%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.False(t, conn.overlap, "no two executions may interleave on the handle")
	assert.Len(t, conn.sent, 20)
	assert.Equal(t, 1, conn.opens, "handle acquired once, not per request")
}

func TestSubmitFIFOByArrival(t *testing.T) {
	conn := &fakeConn{}
	b := newTestBroker(t, conn)

	// Enqueue strictly in order from one goroutine; the worker must execute
	// in the same order.
	type call struct {
		doc   string
		reply chan error
	}
	var calls []call
	for i := 0; i < 10; i++ {
		calls = append(calls, call{doc: fmt.Sprintf("ordered-%d", i), reply: make(chan error, 1)})
	}
	for _, c := range calls {
		c := c
		go func() {
			_, err := b.Submit(context.Background(), Request{Document: c.doc})
			c.reply <- err
		}()
		// Give each goroutine time to enqueue before the next starts.
		time.Sleep(5 * time.Millisecond)
	}
	for _, c := range calls {
		require.NoError(t, <-c.reply)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for i, doc := range conn.sent {
		assert.Equal(t, fmt.Sprintf("ordered-%d", i), doc)
	}
}

func TestLazyOpenFailurePassesThrough(t *testing.T) {
	conn := &fakeConn{openErr: errors.New(errors.ENotConnected, "QuickBooks is not running")}
	b := newTestBroker(t, conn)

	_, err := b.Submit(context.Background(), Request{Document: "<q/>"})
	require.Error(t, err)
	assert.Equal(t, errors.ENotConnected, errors.GetCode(err))

	// No internal retry: one Open per Submit, and the next Submit tries again.
	_, err = b.Submit(context.Background(), Request{Document: "<q/>"})
	require.Error(t, err)
	assert.Equal(t, 2, conn.opens)
}

func TestNotAuthorizedPassesThrough(t *testing.T) {
	conn := &fakeConn{openErr: errors.New(errors.ENotAuthorized, "access denied by company file")}
	b := newTestBroker(t, conn)

	_, err := b.Submit(context.Background(), Request{Document: "<q/>"})
	assert.Equal(t, errors.ENotAuthorized, errors.GetCode(err))
}

func TestBrokenHandleReacquiredOnce(t *testing.T) {
	conn := &fakeConn{}
	failed := false
	conn.sendFn = func(req string) (string, error) {
		if !failed {
			failed = true
			return "", errors.New(errors.EConnectionLost, "handle invalid")
		}
		return "<ok/>", nil
	}
	b := newTestBroker(t, conn)

	resp, err := b.Submit(context.Background(), Request{Document: "<q/>"})
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", resp.Document)
	assert.Equal(t, 2, conn.opens, "initial open plus one re-acquisition")
}

func TestBrokenHandleReacquisitionFails(t *testing.T) {
	conn := &fakeConn{
		openErrs: []error{nil, errors.New(errors.ENotConnected, "application closed")},
	}
	conn.sendFn = func(req string) (string, error) {
		return "", errors.New(errors.EConnectionLost, "handle invalid")
	}
	b := newTestBroker(t, conn)

	_, err := b.Submit(context.Background(), Request{Document: "<q/>"})
	require.Error(t, err)
	assert.Equal(t, errors.EConnectionLost, errors.GetCode(err))
}

func TestCallerTimeoutDoesNotCancelExecution(t *testing.T) {
	executed := make(chan struct{})
	conn := &fakeConn{}
	conn.sendFn = func(req string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		close(executed)
		return "<ok/>", nil
	}
	b := newTestBroker(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := b.Submit(ctx, Request{Document: "<slow/>"})
	require.Error(t, err)
	assert.Equal(t, errors.ETimeout, errors.GetCode(err))

	select {
	case <-executed:
		// The worker finished the request the caller abandoned.
	case <-time.After(time.Second):
		t.Fatal("abandoned request was never executed")
	}
}

func TestStopFailsQueuedRequestsExplicitly(t *testing.T) {
	release := make(chan struct{})
	conn := &fakeConn{}
	conn.sendFn = func(req string) (string, error) {
		<-release
		return "<ok/>", nil
	}
	b := New(conn, logging.NewWithWriter(testWriter{t}))
	b.Start()

	first := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), Request{Document: "in-flight"})
		first <- err
	}()
	time.Sleep(10 * time.Millisecond) // let it reach the worker

	queued := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), Request{Document: "queued"})
		queued <- err
	}()
	time.Sleep(10 * time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	b.Stop()

	require.NoError(t, <-first, "in-flight request finishes")
	err := <-queued
	require.Error(t, err)
	assert.Equal(t, errors.EBrokerStopped, errors.GetCode(err), "queued request fails explicitly, not silently")
}

func TestStopNeverExecutesQueuedRequests(t *testing.T) {
	release := make(chan struct{})
	conn := &fakeConn{}
	conn.sendFn = func(req string) (string, error) {
		<-release
		return "<ok/>", nil
	}
	b := New(conn, logging.NewWithWriter(testWriter{t}))
	b.Start()

	first := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), Request{Document: "in-flight"})
		first <- err
	}()
	time.Sleep(10 * time.Millisecond) // let it reach the worker

	const queuedCount = 5
	queued := make(chan error, queuedCount)
	for i := 0; i < queuedCount; i++ {
		doc := fmt.Sprintf("<queued-%d/>", i)
		go func() {
			_, err := b.Submit(context.Background(), Request{Document: doc})
			queued <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	b.Stop()

	require.NoError(t, <-first)
	for i := 0; i < queuedCount; i++ {
		err := <-queued
		require.Error(t, err)
		assert.Equal(t, errors.EBrokerStopped, errors.GetCode(err))
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, []string{"in-flight"}, conn.sent, "only the in-flight request reached the handle")
}
