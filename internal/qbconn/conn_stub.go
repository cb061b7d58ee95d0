//go:build !windows

// Package qbconn binds the broker's Conn boundary to the desktop
// application's COM automation interface.
package qbconn

import (
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

// Desktop is unavailable off Windows; every Open reports NotConnected so
// callers get the same typed error they would see with the application
// not running. Use the simulator on these platforms.
type Desktop struct {
	companyFile string
}

// New creates an unopenable connection.
func New(companyFile string) *Desktop {
	return &Desktop{companyFile: companyFile}
}

// Open always fails on this platform.
func (d *Desktop) Open() error {
	return errors.New(errors.ENotConnected,
		"the desktop automation interface requires Windows; run the broker with --simulate")
}

// Send always fails on this platform.
func (d *Desktop) Send(string) (string, error) {
	return "", errors.New(errors.ENotConnected, "no open session")
}

// Close is a no-op.
func (d *Desktop) Close() error {
	return nil
}
