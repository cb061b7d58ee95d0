// Package ipc implements the request/response channel between client
// processes and the single resource broker instance.
//
// Transport is newline-delimited JSON envelopes over a unix-domain socket.
// Every request yields exactly one response or a caller-local timeout; a late
// response to a timed-out call is matched by correlation ID and discarded.
package ipc

import "encoding/json"

// Operations understood by the broker listener.
const (
	OpExecute   = "execute"   // run a request document against the external system
	OpHeartbeat = "heartbeat" // client liveness signal, resets the idle clock
	OpShutdown  = "shutdown"  // ask the broker process to exit gracefully
)

// Request is the client-to-broker envelope.
type Request struct {
	CorrelationID string          `json:"correlation_id"`
	Operation     string          `json:"operation"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Response is the broker-to-client envelope.
type Response struct {
	CorrelationID string          `json:"correlation_id"`
	OK            bool            `json:"ok"`
	Result        json.RawMessage `json:"result,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}

// ExecutePayload is the payload for OpExecute requests.
type ExecutePayload struct {
	Operation string `json:"operation"` // external operation name, for logging
	Document  string `json:"document"`  // request document (QBXML)
}

// ExecuteResult is the result for successful OpExecute responses.
type ExecuteResult struct {
	Document string `json:"document"` // response document (QBXML)
}
