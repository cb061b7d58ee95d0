package qbxml

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

// Response status codes the parser gives meaning to. Everything else
// non-zero is surfaced as a remote error.
const (
	statusOK      = "0"
	statusNoMatch = "1"    // query matched nothing; an empty result, not an error
	statusDeleted = "3120" // object not found (deleted or never existed)
	statusBadID   = "500"  // invalid object id
)

type rsEnvelope struct {
	XMLName xml.Name `xml:"QBXML"`
	MsgsRs  msgsRs   `xml:"QBXMLMsgsRs"`
}

type msgsRs struct {
	InvoiceAddRs        *txnRs      `xml:"InvoiceAddRs"`
	InvoiceQueryRs      *txnRs      `xml:"InvoiceQueryRs"`
	SalesReceiptAddRs   *txnRs      `xml:"SalesReceiptAddRs"`
	SalesReceiptQueryRs *txnRs      `xml:"SalesReceiptQueryRs"`
	ChargeAddRs         *txnRs      `xml:"ChargeAddRs"`
	ChargeQueryRs       *txnRs      `xml:"ChargeQueryRs"`
	ReceivePaymentRs    *paymentRs  `xml:"ReceivePaymentQueryRs"`
	TxnDelRs            *statusOnly `xml:"TxnDelRs"`
	CustomerAddRs       *customerRs `xml:"CustomerAddRs"`
	CustomerQueryRs     *customerRs `xml:"CustomerQueryRs"`
	AccountQueryRs      *accountRs  `xml:"AccountQueryRs"`
}

type rsStatus struct {
	StatusCode     string `xml:"statusCode,attr"`
	StatusMessage  string `xml:"statusMessage,attr"`
	StatusSeverity string `xml:"statusSeverity,attr"`
}

type statusOnly struct {
	rsStatus
}

type txnRs struct {
	rsStatus
	InvoiceRet      []txnRet `xml:"InvoiceRet"`
	SalesReceiptRet []txnRet `xml:"SalesReceiptRet"`
	ChargeRet       []txnRet `xml:"ChargeRet"`
}

type txnRet struct {
	TxnID            string  `xml:"TxnID"`
	EditSequence     string  `xml:"EditSequence"`
	RefNumber        string  `xml:"RefNumber"`
	TxnDate          string  `xml:"TxnDate"`
	CustomerRef      ref     `xml:"CustomerRef"`
	TermsRef         ref     `xml:"TermsRef"`
	ClassRef         ref     `xml:"ClassRef"`
	DepositAccount   ref     `xml:"DepositToAccountRef"`
	Memo             string  `xml:"Memo"`
	Subtotal         float64 `xml:"Subtotal"`
	TotalAmount      float64 `xml:"TotalAmount"`
	Amount           float64 `xml:"Amount"`
	BalanceRemaining string  `xml:"BalanceRemaining"`
	IsPaid           string  `xml:"IsPaid"`
}

type paymentRs struct {
	rsStatus
	PaymentRet []paymentRet `xml:"ReceivePaymentRet"`
}

type paymentRet struct {
	TxnID         string       `xml:"TxnID"`
	RefNumber     string       `xml:"RefNumber"`
	TxnDate       string       `xml:"TxnDate"`
	TotalAmount   float64      `xml:"TotalAmount"`
	DepositTo     ref          `xml:"DepositToAccountRef"`
	PaymentMethod ref          `xml:"PaymentMethodRef"`
	Memo          string       `xml:"Memo"`
	AppliedToTxn  appliedToTxn `xml:"AppliedToTxn"`
}

type appliedToTxn struct {
	TxnID     string  `xml:"TxnID"`
	RefNumber string  `xml:"RefNumber"`
	Amount    float64 `xml:"Amount"`
}

type customerRs struct {
	rsStatus
	CustomerRet []customerRet `xml:"CustomerRet"`
}

type customerRet struct {
	ListID       string  `xml:"ListID"`
	Name         string  `xml:"Name"`
	FullName     string  `xml:"FullName"`
	EditSequence string  `xml:"EditSequence"`
	Balance      float64 `xml:"Balance"`
}

type accountRs struct {
	rsStatus
	AccountRet []accountRet `xml:"AccountRet"`
}

type accountRet struct {
	ListID      string `xml:"ListID"`
	Name        string `xml:"Name"`
	FullName    string `xml:"FullName"`
	AccountType string `xml:"AccountType"`
}

func unmarshalResponse(doc string) (*msgsRs, error) {
	var env rsEnvelope
	if err := xml.Unmarshal([]byte(doc), &env); err != nil {
		return nil, errors.NewWithDetails(errors.EParse,
			"malformed response document: "+err.Error(),
			map[string]string{"raw": doc})
	}
	return &env.MsgsRs, nil
}

// checkStatus maps a response status to a typed error, or nil when the
// response carries usable data (including an empty query match).
func checkStatus(s rsStatus, doc string) error {
	switch s.StatusCode {
	case statusOK, statusNoMatch, "":
		return nil
	case statusDeleted, statusBadID:
		return errors.NewWithDetails(errors.ENotFound, s.StatusMessage, map[string]string{
			"status_code": s.StatusCode,
		})
	default:
		return errors.NewWithDetails(errors.ERemote, s.StatusMessage, map[string]string{
			"status_code": s.StatusCode,
			"raw":         doc,
		})
	}
}

// ParseTransactionAdd parses an add response into the new Transaction.
func ParseTransactionAdd(kind model.Kind, doc string, now time.Time) (model.Transaction, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return model.Transaction{}, err
	}

	rs, rets := addResult(kind, msgs)
	if rs == nil {
		return model.Transaction{}, errors.NewWithDetails(errors.EParse,
			"response is missing the expected add result", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return model.Transaction{}, err
	}
	if len(rets) == 0 {
		return model.Transaction{}, errors.NewWithDetails(errors.EParse,
			"add response carries no transaction record", map[string]string{"raw": doc})
	}
	txn := toTransaction(kind, rets[0], now)
	txn.CreatedAt = now
	return txn, nil
}

// ParseTransactionQuery parses a query response into zero or more
// transactions. An empty result is not an error.
func ParseTransactionQuery(kind model.Kind, doc string, now time.Time) ([]model.Transaction, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return nil, err
	}

	rs, rets := queryResult(kind, msgs)
	if rs == nil {
		return nil, errors.NewWithDetails(errors.EParse,
			"response is missing the expected query result", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return nil, err
	}

	txns := make([]model.Transaction, 0, len(rets))
	for _, ret := range rets {
		txns = append(txns, toTransaction(kind, ret, now))
	}
	return txns, nil
}

// ParsePayments parses a payment query response.
func ParsePayments(doc string) ([]model.Payment, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return nil, err
	}
	rs := msgs.ReceivePaymentRs
	if rs == nil {
		return nil, errors.NewWithDetails(errors.EParse,
			"response is missing ReceivePaymentQueryRs", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return nil, err
	}

	payments := make([]model.Payment, 0, len(rs.PaymentRet))
	for _, ret := range rs.PaymentRet {
		amount := ret.AppliedToTxn.Amount
		if amount == 0 {
			amount = ret.TotalAmount
		}
		payments = append(payments, model.Payment{
			TxnID:          ret.TxnID,
			RefNumber:      ret.RefNumber,
			AppliedToRef:   ret.AppliedToTxn.RefNumber,
			Amount:         amount,
			DepositAccount: ret.DepositTo.FullName,
			Method:         ret.PaymentMethod.FullName,
			Memo:           ret.Memo,
			PostedDate:     ret.TxnDate,
		})
	}
	return payments, nil
}

// ParseTxnDel parses a delete response. ENotFound means the record was
// already gone, which callers generally treat as success.
func ParseTxnDel(doc string) error {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return err
	}
	if msgs.TxnDelRs == nil {
		return errors.NewWithDetails(errors.EParse,
			"response is missing TxnDelRs", map[string]string{"raw": doc})
	}
	return checkStatus(msgs.TxnDelRs.rsStatus, doc)
}

// ParseCustomerAdd parses a customer add response.
func ParseCustomerAdd(doc string) (model.Customer, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return model.Customer{}, err
	}
	rs := msgs.CustomerAddRs
	if rs == nil {
		return model.Customer{}, errors.NewWithDetails(errors.EParse,
			"response is missing CustomerAddRs", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return model.Customer{}, err
	}
	if len(rs.CustomerRet) == 0 {
		return model.Customer{}, errors.NewWithDetails(errors.EParse,
			"add response carries no customer record", map[string]string{"raw": doc})
	}
	return toCustomer(rs.CustomerRet[0]), nil
}

// ParseCustomerQuery parses a customer query response.
func ParseCustomerQuery(doc string) ([]model.Customer, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return nil, err
	}
	rs := msgs.CustomerQueryRs
	if rs == nil {
		return nil, errors.NewWithDetails(errors.EParse,
			"response is missing CustomerQueryRs", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return nil, err
	}
	customers := make([]model.Customer, 0, len(rs.CustomerRet))
	for _, ret := range rs.CustomerRet {
		customers = append(customers, toCustomer(ret))
	}
	return customers, nil
}

// ParseAccountQuery parses an account query response.
func ParseAccountQuery(doc string) ([]model.Account, error) {
	msgs, err := unmarshalResponse(doc)
	if err != nil {
		return nil, err
	}
	rs := msgs.AccountQueryRs
	if rs == nil {
		return nil, errors.NewWithDetails(errors.EParse,
			"response is missing AccountQueryRs", map[string]string{"raw": doc})
	}
	if err := checkStatus(rs.rsStatus, doc); err != nil {
		return nil, err
	}
	accounts := make([]model.Account, 0, len(rs.AccountRet))
	for _, ret := range rs.AccountRet {
		accounts = append(accounts, model.Account{
			ListID:   ret.ListID,
			Name:     ret.Name,
			FullName: ret.FullName,
			Type:     ret.AccountType,
		})
	}
	return accounts, nil
}

func addResult(kind model.Kind, msgs *msgsRs) (*txnRs, []txnRet) {
	switch kind {
	case model.KindInvoice:
		if msgs.InvoiceAddRs != nil {
			return msgs.InvoiceAddRs, msgs.InvoiceAddRs.InvoiceRet
		}
	case model.KindSalesReceipt:
		if msgs.SalesReceiptAddRs != nil {
			return msgs.SalesReceiptAddRs, msgs.SalesReceiptAddRs.SalesReceiptRet
		}
	case model.KindStatementCharge:
		if msgs.ChargeAddRs != nil {
			return msgs.ChargeAddRs, msgs.ChargeAddRs.ChargeRet
		}
	}
	return nil, nil
}

func queryResult(kind model.Kind, msgs *msgsRs) (*txnRs, []txnRet) {
	switch kind {
	case model.KindInvoice:
		if msgs.InvoiceQueryRs != nil {
			return msgs.InvoiceQueryRs, msgs.InvoiceQueryRs.InvoiceRet
		}
	case model.KindSalesReceipt:
		if msgs.SalesReceiptQueryRs != nil {
			return msgs.SalesReceiptQueryRs, msgs.SalesReceiptQueryRs.SalesReceiptRet
		}
	case model.KindStatementCharge:
		if msgs.ChargeQueryRs != nil {
			return msgs.ChargeQueryRs, msgs.ChargeQueryRs.ChargeRet
		}
	}
	return nil, nil
}

func toTransaction(kind model.Kind, ret txnRet, now time.Time) model.Transaction {
	amount := ret.TotalAmount
	if amount == 0 {
		amount = ret.Subtotal
	}
	if amount == 0 {
		amount = ret.Amount
	}

	balance, hasBalance := parseBalance(ret.BalanceRemaining)

	return model.Transaction{
		TxnID:        ret.TxnID,
		EditSequence: ret.EditSequence,
		Kind:         kind,
		RefNumber:    ret.RefNumber,
		CustomerRef:  ret.CustomerRef.ListID,
		CustomerName: ret.CustomerRef.FullName,
		Amount:       amount,
		Balance:      balance,
		PostedDate:   ret.TxnDate,
		Terms:        ret.TermsRef.FullName,
		Class:        ret.ClassRef.FullName,
		Memo:         ret.Memo,
		Status:       statusFrom(ret.IsPaid, balance, hasBalance),
		LastChecked:  now,
	}
}

// statusFrom derives the lifecycle status from the remote record. IsPaid
// wins when present; otherwise a zero remaining balance means closed.
func statusFrom(isPaid string, balance float64, hasBalance bool) model.Status {
	switch isPaid {
	case "true":
		return model.StatusClosed
	case "false":
		return model.StatusOpen
	}
	if hasBalance && balance == 0 {
		return model.StatusClosed
	}
	return model.StatusOpen
}

func parseBalance(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func toCustomer(ret customerRet) model.Customer {
	return model.Customer{
		ListID:       ret.ListID,
		Name:         ret.Name,
		FullName:     ret.FullName,
		EditSequence: ret.EditSequence,
		Balance:      ret.Balance,
	}
}
