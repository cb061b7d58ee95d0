// Package events provides the run journal for qbdtest.
// Events are stored in an append-only JSONL file under the data directory.
package events

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// SchemaVersion is the journal line format version.
const SchemaVersion = "1"

// Event names written to the journal.
const (
	EventBrokerStarted        = "broker_started"
	EventBrokerStopped        = "broker_stopped"
	EventTxnCreated           = "txn_created"
	EventTxnDeleted           = "txn_deleted"
	EventTxnArchived          = "txn_archived"
	EventStatusObserved       = "status_observed"
	EventVerificationRecorded = "verification_recorded"
	EventTickCompleted        = "tick_completed"
)

// Event represents a single journal line.
// This is the public contract for the journal file format.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	Timestamp     string         `json:"timestamp"` // RFC3339
	Event         string         `json:"event"`
	Data          map[string]any `json:"data,omitempty"`
}

// Journal appends domain events to one JSONL file.
type Journal struct {
	Path string
	Now  func() time.Time
}

// NewJournal creates a journal writing to path.
func NewJournal(path string) *Journal {
	return &Journal{Path: path, Now: time.Now}
}

// Append writes one event line. The file is created lazily.
//
// Best-effort: errors are returned but callers should typically log and
// continue with the main operation.
func (j *Journal) Append(event string, data map[string]any) (err error) {
	if err := os.MkdirAll(filepath.Dir(j.Path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	line, err := json.Marshal(Event{
		SchemaVersion: SchemaVersion,
		Timestamp:     j.Now().UTC().Format(time.RFC3339),
		Event:         event,
		Data:          data,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}

// TxnCreatedData returns the data map for a txn_created event.
func TxnCreatedData(kind, refNumber, txnID string, amount float64) map[string]any {
	return map[string]any{
		"kind":       kind,
		"ref_number": refNumber,
		"txn_id":     txnID,
		"amount":     amount,
	}
}

// TxnDeletedData returns the data map for a txn_deleted event.
func TxnDeletedData(refNumber string) map[string]any {
	return map[string]any{
		"ref_number": refNumber,
	}
}

// TxnArchivedData returns the data map for a txn_archived event.
func TxnArchivedData(refNumber string) map[string]any {
	return map[string]any{
		"ref_number": refNumber,
	}
}

// StatusObservedData returns the data map for a status_observed event.
func StatusObservedData(refNumber, from, to string) map[string]any {
	return map[string]any{
		"ref_number": refNumber,
		"from":       from,
		"to":         to,
	}
}

// VerificationRecordedData returns the data map for a verification_recorded event.
func VerificationRecordedData(refNumber, verdict, coverage string) map[string]any {
	return map[string]any{
		"ref_number": refNumber,
		"verdict":    verdict,
		"coverage":   coverage,
	}
}

// TickCompletedData returns the data map for a tick_completed event.
// errorCode should be empty or an E_* string.
func TickCompletedData(polled, changed int, durationMs int64, errorCode string) map[string]any {
	data := map[string]any{
		"polled":      polled,
		"changed":     changed,
		"duration_ms": durationMs,
	}
	if errorCode != "" {
		data["error_code"] = errorCode
	}
	return data
}

// BrokerStartedData returns the data map for a broker_started event.
func BrokerStartedData(socket string) map[string]any {
	return map[string]any{
		"socket": socket,
	}
}

// BrokerStoppedData returns the data map for a broker_stopped event.
func BrokerStoppedData(reason string) map[string]any {
	return map[string]any{
		"reason": reason,
	}
}
