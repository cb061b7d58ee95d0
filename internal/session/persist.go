package session

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/fs"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// documentVersion is the on-disk session format version.
const documentVersion = 1

type document struct {
	Version      int                 `json:"version"`
	SavedAt      time.Time           `json:"saved_at"`
	Transactions []model.Transaction `json:"transactions"`
}

// Serialize renders the session as a versioned JSON document.
func (s *Store) Serialize() ([]byte, error) {
	doc := document{
		Version:      documentVersion,
		SavedAt:      s.Now(),
		Transactions: s.List(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.EInternal, "failed to serialize session", err)
	}
	return append(data, '\n'), nil
}

// Restore replaces the session contents from a serialized document.
// The document is validated in full before any state is touched, so a
// corrupt file never leaves the store half-loaded.
func (s *Store) Restore(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(errors.ECorruptState, "session document is not valid JSON", err)
	}
	if doc.Version != documentVersion {
		return errors.Newf(errors.ECorruptState, "unsupported session version %d", doc.Version)
	}

	seen := make(map[string]bool, len(doc.Transactions))
	for _, txn := range doc.Transactions {
		if txn.RefNumber == "" {
			return errors.New(errors.ECorruptState, "session contains a transaction without a ref number")
		}
		if seen[txn.RefNumber] {
			return errors.Newf(errors.ECorruptState, "duplicate ref number %s in session", txn.RefNumber)
		}
		seen[txn.RefNumber] = true
		if !txn.Kind.Valid() {
			return errors.Newf(errors.ECorruptState, "transaction %s has unknown kind %q", txn.RefNumber, txn.Kind)
		}
		if txn.Status != model.StatusOpen && txn.Status != model.StatusClosed {
			return errors.Newf(errors.ECorruptState, "transaction %s has unknown status %q", txn.RefNumber, txn.Status)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = make(map[string]*model.Transaction, len(doc.Transactions))
	s.order = s.order[:0]
	for _, txn := range doc.Transactions {
		cp := txn
		s.txns[txn.RefNumber] = &cp
		s.order = append(s.order, txn.RefNumber)
	}
	return nil
}

// Save writes the session atomically via temp file + rename.
func (s *Store) Save(path string) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrap(errors.EPersistFailed, "failed to write session file", err)
	}
	return nil
}

// Load restores the session from a file. A missing file is not an error;
// it reports found=false and leaves the store untouched.
func (s *Store) Load(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.EPersistFailed, "failed to read session file", err)
	}
	if err := s.Restore(data); err != nil {
		return false, err
	}
	return true, nil
}
