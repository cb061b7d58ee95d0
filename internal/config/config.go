// Package config handles loading and validation of the qbdtest configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/fs"
)

// Config is the parsed and validated tool configuration.
type Config struct {
	Version int `json:"version"`

	// DataDir holds the broker socket, session files and event journal.
	DataDir string `json:"data_dir,omitempty"`

	// SocketPath is the broker IPC endpoint. Defaults to <DataDir>/broker.sock.
	SocketPath string `json:"socket_path,omitempty"`

	// CompanyFile is the accounting company file the broker opens.
	// Empty means "whatever file is currently open in the application".
	CompanyFile string `json:"company_file,omitempty"`

	// PollIntervalSeconds is the monitor tick interval. Must be > 0.
	PollIntervalSeconds int `json:"poll_interval_seconds"`

	// ExpectedDepositAccount is the account the downstream integration is
	// expected to post payments against.
	ExpectedDepositAccount string `json:"expected_deposit_account"`

	// AmountTolerance is the epsilon for full-payment classification. Must be >= 0.
	AmountTolerance float64 `json:"amount_tolerance"`

	// MemoPattern is a regular expression payment memos are expected to
	// match after the integration has touched them. Empty disables the check.
	MemoPattern string `json:"memo_pattern,omitempty"`

	Timeouts Timeouts `json:"timeouts"`
}

// Timeouts are the per-operation-class IPC call timeouts.
type Timeouts struct {
	QuerySeconds  int `json:"query_seconds"`
	CreateSeconds int `json:"create_seconds"`
	DeleteSeconds int `json:"delete_seconds"`
}

// Query returns the query-class timeout as a duration.
func (t Timeouts) Query() time.Duration { return time.Duration(t.QuerySeconds) * time.Second }

// Create returns the create-class timeout as a duration.
func (t Timeouts) Create() time.Duration { return time.Duration(t.CreateSeconds) * time.Second }

// Delete returns the delete-class timeout as a duration.
func (t Timeouts) Delete() time.Duration { return time.Duration(t.DeleteSeconds) * time.Second }

// Default returns built-in defaults used when the config file is missing.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".qbdtest")
	return Config{
		Version:                1,
		DataDir:                dataDir,
		SocketPath:             filepath.Join(dataDir, "broker.sock"),
		PollIntervalSeconds:    30,
		ExpectedDepositAccount: "Undeposited Funds",
		AmountTolerance:        0.01,
		Timeouts: Timeouts{
			QuerySeconds:  15,
			CreateSeconds: 60,
			DeleteSeconds: 15,
		},
	}
}

// Path returns the config file path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}

// SessionPath returns the default session file path inside dataDir.
func SessionPath(dataDir string) string {
	return filepath.Join(dataDir, "session.json")
}

// JournalPath returns the event journal path inside dataDir.
func JournalPath(dataDir string) string {
	return filepath.Join(dataDir, "events.jsonl")
}

// Load reads and validates the config file at path.
// If the file is missing, returns defaults with found=false.
// If the file exists but is invalid, returns E_INVALID_CONFIG.
func Load(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Config{}, false, errors.Wrap(errors.EInvalidConfig, "failed to read config", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, false, errors.New(errors.EInvalidConfig, "invalid json: "+err.Error())
	}

	if err := Validate(cfg); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

// Validate checks config invariants and returns E_INVALID_CONFIG on failure.
func Validate(cfg Config) error {
	if cfg.Version != 1 {
		return errors.New(errors.EInvalidConfig, "version must be 1")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return errors.New(errors.EInvalidConfig, "poll_interval_seconds must be > 0")
	}
	if cfg.AmountTolerance < 0 {
		return errors.New(errors.EInvalidConfig, "amount_tolerance must be >= 0")
	}
	if cfg.ExpectedDepositAccount == "" {
		return errors.New(errors.EInvalidConfig, "missing required field expected_deposit_account")
	}
	if cfg.SocketPath == "" {
		return errors.New(errors.EInvalidConfig, "missing required field socket_path")
	}
	if cfg.Timeouts.QuerySeconds <= 0 || cfg.Timeouts.CreateSeconds <= 0 || cfg.Timeouts.DeleteSeconds <= 0 {
		return errors.New(errors.EInvalidConfig, "timeouts must be > 0")
	}
	return nil
}

// Save writes cfg to path, creating the parent directory if needed.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(errors.EPersistFailed, "failed to encode config", err)
	}
	data = append(data, '\n')
	if err := fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrap(errors.EPersistFailed, "failed to write config", err)
	}
	return nil
}
