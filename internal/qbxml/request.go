// Package qbxml builds request documents for the accounting application's
// QBXML-dialect automation interface and parses its responses. No other
// package touches the wire format.
package qbxml

import (
	"encoding/xml"
	"fmt"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// Version is the QBXML dialect version stamped on every request.
const Version = "13.0"

const header = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<?qbxml version=\"" + Version + "\"?>\n"

// Line is one line item on an invoice or sales receipt.
type Line struct {
	ItemRef  string
	Desc     string
	Quantity int
	Rate     float64
}

// AddFields is the input for building a transaction add request.
// StatementCharge carries no line items; it uses ItemRef/Quantity/Rate directly.
type AddFields struct {
	RefNumber   string
	CustomerRef string // customer ListID
	PostedDate  string // YYYY-MM-DD
	Memo        string
	TermsRef    string
	ClassRef    string

	Lines []Line // invoice, sales receipt

	ItemRef  string // statement charge
	Quantity int
	Rate     float64
}

// CustomerFields is the input for building a customer add request.
type CustomerFields struct {
	Name    string
	Company string
	Email   string
	Phone   string
}

type rqEnvelope struct {
	XMLName xml.Name `xml:"QBXML"`
	MsgsRq  msgsRq   `xml:"QBXMLMsgsRq"`
}

type msgsRq struct {
	OnError string `xml:"onError,attr"`

	InvoiceAddRq      *invoiceAddRq      `xml:",omitempty"`
	SalesReceiptAddRq *salesReceiptAddRq `xml:",omitempty"`
	ChargeAddRq       *chargeAddRq       `xml:",omitempty"`

	InvoiceQueryRq      *txnQueryRq `xml:",omitempty"`
	SalesReceiptQueryRq *txnQueryRq `xml:",omitempty"`
	ChargeQueryRq       *txnQueryRq `xml:",omitempty"`

	ReceivePaymentQueryRq *paymentQueryRq `xml:",omitempty"`
	TxnDelRq              *txnDelRq       `xml:",omitempty"`

	CustomerAddRq   *customerAddRq   `xml:",omitempty"`
	CustomerQueryRq *customerQueryRq `xml:",omitempty"`
	AccountQueryRq  *accountQueryRq  `xml:",omitempty"`
}

type ref struct {
	ListID   string `xml:"ListID,omitempty"`
	FullName string `xml:"FullName,omitempty"`
}

type lineAdd struct {
	ItemRef  ref    `xml:"ItemRef"`
	Desc     string `xml:"Desc,omitempty"`
	Quantity int    `xml:"Quantity,omitempty"`
	Rate     string `xml:"Rate,omitempty"`
}

type invoiceAddRq struct {
	XMLName   xml.Name `xml:"InvoiceAddRq"`
	RequestID string   `xml:"requestID,attr"`
	Add       invoiceAdd
}

type invoiceAdd struct {
	XMLName     xml.Name  `xml:"InvoiceAdd"`
	CustomerRef ref       `xml:"CustomerRef"`
	ClassRef    *ref      `xml:"ClassRef,omitempty"`
	TermsRef    *ref      `xml:"TermsRef,omitempty"`
	TxnDate     string    `xml:"TxnDate,omitempty"`
	RefNumber   string    `xml:"RefNumber"`
	Memo        string    `xml:"Memo,omitempty"`
	Lines       []lineAdd `xml:"InvoiceLineAdd"`
}

type salesReceiptAddRq struct {
	XMLName   xml.Name `xml:"SalesReceiptAddRq"`
	RequestID string   `xml:"requestID,attr"`
	Add       salesReceiptAdd
}

type salesReceiptAdd struct {
	XMLName     xml.Name  `xml:"SalesReceiptAdd"`
	CustomerRef ref       `xml:"CustomerRef"`
	ClassRef    *ref      `xml:"ClassRef,omitempty"`
	TxnDate     string    `xml:"TxnDate,omitempty"`
	RefNumber   string    `xml:"RefNumber"`
	Memo        string    `xml:"Memo,omitempty"`
	Lines       []lineAdd `xml:"SalesReceiptLineAdd"`
}

type chargeAddRq struct {
	XMLName   xml.Name `xml:"ChargeAddRq"`
	RequestID string   `xml:"requestID,attr"`
	Add       chargeAdd
}

type chargeAdd struct {
	XMLName     xml.Name `xml:"ChargeAdd"`
	CustomerRef ref      `xml:"CustomerRef"`
	TxnDate     string   `xml:"TxnDate,omitempty"`
	RefNumber   string   `xml:"RefNumber"`
	ItemRef     ref      `xml:"ItemRef"`
	Quantity    int      `xml:"Quantity,omitempty"`
	Rate        string   `xml:"Rate,omitempty"`
	Memo        string   `xml:"Memo,omitempty"`
}

type txnQueryRq struct {
	XMLName    xml.Name // set per kind when the query is built
	RequestID  string   `xml:"requestID,attr"`
	TxnIDs     []string `xml:"TxnID,omitempty"`
	RefNumbers []string `xml:"RefNumber,omitempty"`
}

type paymentQueryRq struct {
	XMLName        xml.Name `xml:"ReceivePaymentQueryRq"`
	RequestID      string   `xml:"requestID,attr"`
	AppliedToTxnID string   `xml:"AppliedToTxnID,omitempty"`
	AppliedToRef   string   `xml:"AppliedToRefNumber,omitempty"`
}

type txnDelRq struct {
	XMLName    xml.Name `xml:"TxnDelRq"`
	RequestID  string   `xml:"requestID,attr"`
	TxnDelType string   `xml:"TxnDelType"`
	TxnID      string   `xml:"TxnID"`
}

type customerAddRq struct {
	XMLName   xml.Name `xml:"CustomerAddRq"`
	RequestID string   `xml:"requestID,attr"`
	Add       customerAdd
}

type customerAdd struct {
	XMLName xml.Name `xml:"CustomerAdd"`
	Name    string   `xml:"Name"`
	Company string   `xml:"CompanyName,omitempty"`
	Phone   string   `xml:"Phone,omitempty"`
	Email   string   `xml:"Email,omitempty"`
}

type customerQueryRq struct {
	XMLName   xml.Name `xml:"CustomerQueryRq"`
	RequestID string   `xml:"requestID,attr"`
	FullNames []string `xml:"FullName,omitempty"`
}

type accountQueryRq struct {
	XMLName   xml.Name `xml:"AccountQueryRq"`
	RequestID string   `xml:"requestID,attr"`
	FullNames []string `xml:"FullName,omitempty"`
}

func marshalRequest(msgs msgsRq) (string, error) {
	msgs.OnError = "stopOnError"
	out, err := xml.MarshalIndent(rqEnvelope{MsgsRq: msgs}, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.EInternal, "failed to build request document", err)
	}
	return header + string(out), nil
}

// BuildTransactionAdd builds the add request for one generated transaction.
func BuildTransactionAdd(kind model.Kind, f AddFields) (string, error) {
	switch kind {
	case model.KindInvoice:
		var lines []lineAdd
		for _, l := range f.Lines {
			lines = append(lines, lineAdd{
				ItemRef:  ref{ListID: l.ItemRef},
				Desc:     l.Desc,
				Quantity: l.Quantity,
				Rate:     formatAmount(l.Rate),
			})
		}
		add := invoiceAdd{
			CustomerRef: ref{ListID: f.CustomerRef},
			TxnDate:     f.PostedDate,
			RefNumber:   f.RefNumber,
			Memo:        f.Memo,
			Lines:       lines,
		}
		if f.ClassRef != "" {
			add.ClassRef = &ref{ListID: f.ClassRef}
		}
		if f.TermsRef != "" {
			add.TermsRef = &ref{ListID: f.TermsRef}
		}
		return marshalRequest(msgsRq{InvoiceAddRq: &invoiceAddRq{RequestID: "1", Add: add}})

	case model.KindSalesReceipt:
		var lines []lineAdd
		for _, l := range f.Lines {
			lines = append(lines, lineAdd{
				ItemRef:  ref{ListID: l.ItemRef},
				Desc:     l.Desc,
				Quantity: l.Quantity,
				Rate:     formatAmount(l.Rate),
			})
		}
		add := salesReceiptAdd{
			CustomerRef: ref{ListID: f.CustomerRef},
			TxnDate:     f.PostedDate,
			RefNumber:   f.RefNumber,
			Memo:        f.Memo,
			Lines:       lines,
		}
		if f.ClassRef != "" {
			add.ClassRef = &ref{ListID: f.ClassRef}
		}
		return marshalRequest(msgsRq{SalesReceiptAddRq: &salesReceiptAddRq{RequestID: "1", Add: add}})

	case model.KindStatementCharge:
		add := chargeAdd{
			CustomerRef: ref{ListID: f.CustomerRef},
			TxnDate:     f.PostedDate,
			RefNumber:   f.RefNumber,
			ItemRef:     ref{ListID: f.ItemRef},
			Quantity:    f.Quantity,
			Rate:        formatAmount(f.Rate),
			Memo:        f.Memo,
		}
		return marshalRequest(msgsRq{ChargeAddRq: &chargeAddRq{RequestID: "1", Add: add}})
	}
	return "", errors.Newf(errors.EInternal, "unknown transaction kind %q", kind)
}

// BuildTransactionQuery builds a query filtered by ref numbers for one kind.
func BuildTransactionQuery(kind model.Kind, refNumbers []string) (string, error) {
	q := &txnQueryRq{RequestID: "1", RefNumbers: refNumbers}
	switch kind {
	case model.KindInvoice:
		q.XMLName = xml.Name{Local: "InvoiceQueryRq"}
		return marshalRequest(msgsRq{InvoiceQueryRq: q})
	case model.KindSalesReceipt:
		q.XMLName = xml.Name{Local: "SalesReceiptQueryRq"}
		return marshalRequest(msgsRq{SalesReceiptQueryRq: q})
	case model.KindStatementCharge:
		q.XMLName = xml.Name{Local: "ChargeQueryRq"}
		return marshalRequest(msgsRq{ChargeQueryRq: q})
	}
	return "", errors.Newf(errors.EInternal, "unknown transaction kind %q", kind)
}

// BuildPaymentQuery builds a query for payments applied to a transaction.
func BuildPaymentQuery(txnID, refNumber string) (string, error) {
	return marshalRequest(msgsRq{ReceivePaymentQueryRq: &paymentQueryRq{
		RequestID:      "1",
		AppliedToTxnID: txnID,
		AppliedToRef:   refNumber,
	}})
}

// BuildTxnDel builds a delete request for one transaction.
func BuildTxnDel(kind model.Kind, txnID string) (string, error) {
	var delType string
	switch kind {
	case model.KindInvoice:
		delType = "Invoice"
	case model.KindSalesReceipt:
		delType = "SalesReceipt"
	case model.KindStatementCharge:
		delType = "Charge"
	default:
		return "", errors.Newf(errors.EInternal, "unknown transaction kind %q", kind)
	}
	return marshalRequest(msgsRq{TxnDelRq: &txnDelRq{RequestID: "1", TxnDelType: delType, TxnID: txnID}})
}

// BuildCustomerAdd builds a customer add request.
func BuildCustomerAdd(f CustomerFields) (string, error) {
	return marshalRequest(msgsRq{CustomerAddRq: &customerAddRq{
		RequestID: "1",
		Add: customerAdd{
			Name:    f.Name,
			Company: f.Company,
			Phone:   f.Phone,
			Email:   f.Email,
		},
	}})
}

// BuildCustomerQuery builds a customer query; empty names means all customers.
func BuildCustomerQuery(fullNames []string) (string, error) {
	return marshalRequest(msgsRq{CustomerQueryRq: &customerQueryRq{RequestID: "1", FullNames: fullNames}})
}

// BuildAccountQuery builds an account query; empty names means all accounts.
func BuildAccountQuery(fullNames []string) (string, error) {
	return marshalRequest(msgsRq{AccountQueryRq: &accountQueryRq{RequestID: "1", FullNames: fullNames}})
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}
