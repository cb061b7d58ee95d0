//go:build windows

// Package qbconn binds the broker's Conn boundary to the desktop
// application's COM automation interface.
package qbconn

import (
	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

const appName = "qbdtest"

// Desktop talks to a running QuickBooks Desktop instance through the
// QBXML request processor. Open/Send/Close must all be called from the
// same goroutine; the broker guarantees that.
type Desktop struct {
	companyFile string

	rp     *ole.IDispatch
	ticket string
}

// New creates an unopened connection. companyFile may be empty, meaning
// whichever company file is already open in the application.
func New(companyFile string) *Desktop {
	return &Desktop{companyFile: companyFile}
}

// Open acquires a session against the company file.
func (d *Desktop) Open() error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 0x00000001 { // S_FALSE: already initialized
			return errors.Wrap(errors.ENotConnected, "COM initialization failed", err)
		}
	}

	unknown, err := oleutil.CreateObject("QBXMLRP2.RequestProcessor")
	if err != nil {
		return errors.Wrap(errors.ENotConnected, "request processor is not installed", err)
	}
	rp, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return errors.Wrap(errors.ENotConnected, "request processor interface unavailable", err)
	}

	if _, err := oleutil.CallMethod(rp, "OpenConnection2", "", appName, 1); err != nil {
		rp.Release()
		return errors.Wrap(errors.ENotConnected, "application is not running or refused the connection", err)
	}

	// 2 = do-not-care file mode
	ticket, err := oleutil.CallMethod(rp, "BeginSession", d.companyFile, 2)
	if err != nil {
		_, _ = oleutil.CallMethod(rp, "CloseConnection")
		rp.Release()
		return errors.Wrap(errors.ENotAuthorized, "company file session denied", err)
	}

	d.rp = rp
	d.ticket = ticket.ToString()
	return nil
}

// Send executes one request document over the open session.
func (d *Desktop) Send(request string) (string, error) {
	if d.rp == nil {
		return "", errors.New(errors.ENotConnected, "no open session")
	}
	resp, err := oleutil.CallMethod(d.rp, "ProcessRequest", d.ticket, request)
	if err != nil {
		return "", errors.Wrap(errors.EConnectionLost, "request processing failed", err)
	}
	return resp.ToString(), nil
}

// Close ends the session and releases the COM object.
func (d *Desktop) Close() error {
	if d.rp == nil {
		return nil
	}
	if d.ticket != "" {
		_, _ = oleutil.CallMethod(d.rp, "EndSession", d.ticket)
		d.ticket = ""
	}
	_, _ = oleutil.CallMethod(d.rp, "CloseConnection")
	d.rp.Release()
	d.rp = nil
	return nil
}
