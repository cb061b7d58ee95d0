// Package qbsim is an in-memory stand-in for the external accounting
// application. It implements broker.Conn and answers the same request
// dialect the real automation interface speaks, which lets the full stack
// run end to end without a desktop installation.
package qbsim

import (
	"fmt"
	"sync"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

type txnRecord struct {
	id           string
	editSequence int
	kind         model.Kind
	refNumber    string
	customerID   string
	customerName string
	txnDate      string
	memo         string
	terms        string
	class        string
	amount       float64
	balance      float64
}

type paymentRecord struct {
	id             string
	refNumber      string
	txnDate        string
	amount         float64
	depositAccount string
	method         string
	memo           string
	appliedToID    string
	appliedToRef   string
}

type customerRecord struct {
	listID   string
	name     string
	company  string
	editHint int
}

// Company is one in-memory company file. Safe for concurrent use, though
// the broker serializes all traffic anyway.
type Company struct {
	mu        sync.Mutex
	open      bool
	nextID    int
	txns      map[string]*txnRecord // by TxnID
	payments  []*paymentRecord
	customers map[string]*customerRecord // by ListID
	accounts  []model.Account

	// Failure injection for tests.
	OpenErr      error // returned by every Open
	SendErr      error // returned by every Send
	FailNextSend error // returned by the next Send, then cleared

	opens  int
	closes int
}

// NewCompany creates a company file seeded with the standard accounts.
func NewCompany() *Company {
	return &Company{
		txns:      make(map[string]*txnRecord),
		customers: make(map[string]*customerRecord),
		accounts: []model.Account{
			{ListID: "A-1", Name: "Undeposited Funds", FullName: "Undeposited Funds", Type: "OtherCurrentAsset"},
			{ListID: "A-2", Name: "Checking", FullName: "Checking", Type: "Bank"},
			{ListID: "A-3", Name: "Accounts Receivable", FullName: "Accounts Receivable", Type: "AccountsReceivable"},
		},
	}
}

// Open acquires the simulated session handle.
func (c *Company) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.open = true
	c.opens++
	return nil
}

// Close releases the handle.
func (c *Company) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	return nil
}

// Send executes one request document and returns the response document.
func (c *Company) Send(request string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailNextSend != nil {
		err := c.FailNextSend
		c.FailNextSend = nil
		return "", err
	}
	if c.SendErr != nil {
		return "", c.SendErr
	}
	if !c.open {
		return "", errors.New(errors.ENotConnected, "no open session")
	}

	rq, err := parseRequest(request)
	if err != nil {
		return "", err
	}
	return c.dispatch(rq)
}

// Opens reports how many times the handle was opened.
func (c *Company) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// AddCustomer seeds a customer directly, bypassing the wire dialect.
func (c *Company) AddCustomer(name string) model.Customer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addCustomerLocked(name, "")
}

func (c *Company) addCustomerLocked(name, company string) model.Customer {
	c.nextID++
	cust := &customerRecord{
		listID:  fmt.Sprintf("8000%04d-%d", c.nextID, c.nextID),
		name:    name,
		company: company,
	}
	c.customers[cust.listID] = cust
	return model.Customer{ListID: cust.listID, Name: cust.name, FullName: cust.name}
}

// Pay applies a payment against the transaction with the given ref number.
// The transaction's balance drops by amount; at zero or below it reads as
// paid. Returns the payment's TxnID.
func (c *Company) Pay(refNumber string, amount float64, depositAccount, memo string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var target *txnRecord
	for _, t := range c.txns {
		if t.refNumber == refNumber {
			target = t
			break
		}
	}
	if target == nil {
		return "", errors.Newf(errors.ENotFound, "no transaction with ref number %s", refNumber)
	}

	c.nextID++
	p := &paymentRecord{
		id:             fmt.Sprintf("PAY-%d", c.nextID),
		refNumber:      fmt.Sprintf("%d", 1000+c.nextID),
		amount:         amount,
		depositAccount: depositAccount,
		method:         "Check",
		memo:           memo,
		appliedToID:    target.id,
		appliedToRef:   target.refNumber,
	}
	c.payments = append(c.payments, p)

	target.balance -= amount
	if target.balance < 0 {
		target.balance = 0
	}
	target.editSequence++
	return p.id, nil
}

// Reopen restores balance on a transaction, simulating a voided payment.
func (c *Company) Reopen(refNumber string, balance float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.txns {
		if t.refNumber == refNumber {
			t.balance = balance
			t.editSequence++
			kept := c.payments[:0]
			for _, p := range c.payments {
				if p.appliedToRef != refNumber {
					kept = append(kept, p)
				}
			}
			c.payments = kept
			return nil
		}
	}
	return errors.Newf(errors.ENotFound, "no transaction with ref number %s", refNumber)
}

func (c *Company) dispatch(rq *requestEnvelope) (string, error) {
	msgs := rq.Msgs
	switch {
	case msgs.InvoiceAdd != nil:
		return c.addTxn(model.KindInvoice, msgs.InvoiceAdd.Add)
	case msgs.SalesReceiptAdd != nil:
		return c.addTxn(model.KindSalesReceipt, msgs.SalesReceiptAdd.Add)
	case msgs.ChargeAdd != nil:
		return c.addTxn(model.KindStatementCharge, msgs.ChargeAdd.Add)
	case msgs.InvoiceQuery != nil:
		return c.queryTxns(model.KindInvoice, msgs.InvoiceQuery.RefNumbers)
	case msgs.SalesReceiptQuery != nil:
		return c.queryTxns(model.KindSalesReceipt, msgs.SalesReceiptQuery.RefNumbers)
	case msgs.ChargeQuery != nil:
		return c.queryTxns(model.KindStatementCharge, msgs.ChargeQuery.RefNumbers)
	case msgs.PaymentQuery != nil:
		return c.queryPayments(msgs.PaymentQuery)
	case msgs.TxnDel != nil:
		return c.deleteTxn(msgs.TxnDel)
	case msgs.CustomerAdd != nil:
		return c.addCustomer(msgs.CustomerAdd.Add)
	case msgs.CustomerQuery != nil:
		return c.queryCustomers(msgs.CustomerQuery.FullNames)
	case msgs.AccountQuery != nil:
		return c.queryAccounts(msgs.AccountQuery.FullNames)
	}
	return "", errors.New(errors.EParse, "request carries no recognized operation")
}

func (c *Company) addTxn(kind model.Kind, add txnAdd) (string, error) {
	if add.RefNumber == "" {
		return renderError(kind, "Add", "3000", "RefNumber is required"), nil
	}
	for _, t := range c.txns {
		if t.kind == kind && t.refNumber == add.RefNumber {
			return renderError(kind, "Add", "3100", "duplicate RefNumber "+add.RefNumber), nil
		}
	}

	var amount float64
	for _, l := range add.Lines {
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		amount += l.Rate * float64(qty)
	}
	if len(add.Lines) == 0 {
		qty := add.Quantity
		if qty == 0 {
			qty = 1
		}
		amount = add.Rate * float64(qty)
	}

	var customerName string
	if cust, ok := c.customers[add.CustomerRef.ListID]; ok {
		customerName = cust.name
	}

	c.nextID++
	t := &txnRecord{
		id:           fmt.Sprintf("%X-%d", 0x5D0+c.nextID, 1700000+c.nextID),
		editSequence: 1,
		kind:         kind,
		refNumber:    add.RefNumber,
		customerID:   add.CustomerRef.ListID,
		customerName: customerName,
		txnDate:      add.TxnDate,
		memo:         add.Memo,
		terms:        add.TermsRef.FullName,
		class:        add.ClassRef.FullName,
		amount:       amount,
		balance:      amount,
	}
	c.txns[t.id] = t
	return renderTxns(kind, "Add", []*txnRecord{t}), nil
}

func (c *Company) queryTxns(kind model.Kind, refNumbers []string) (string, error) {
	want := make(map[string]bool, len(refNumbers))
	for _, ref := range refNumbers {
		want[ref] = true
	}
	var matched []*txnRecord
	for _, t := range c.txns {
		if t.kind != kind {
			continue
		}
		if len(want) > 0 && !want[t.refNumber] {
			continue
		}
		matched = append(matched, t)
	}
	if len(matched) == 0 {
		return renderError(kind, "Query", "1", "A query request did not find a matching object"), nil
	}
	return renderTxns(kind, "Query", matched), nil
}

func (c *Company) queryPayments(q *paymentQueryRq) (string, error) {
	var matched []*paymentRecord
	for _, p := range c.payments {
		if q.AppliedToTxnID != "" && p.appliedToID != q.AppliedToTxnID {
			continue
		}
		if q.AppliedToTxnID == "" && q.AppliedToRef != "" && p.appliedToRef != q.AppliedToRef {
			continue
		}
		matched = append(matched, p)
	}
	return renderPayments(matched), nil
}

func (c *Company) deleteTxn(del *txnDelRq) (string, error) {
	if _, ok := c.txns[del.TxnID]; !ok {
		return `<QBXML><QBXMLMsgsRs><TxnDelRs statusCode="3120" statusMessage="Object not found" statusSeverity="Error"/></QBXMLMsgsRs></QBXML>`, nil
	}
	delete(c.txns, del.TxnID)
	kept := c.payments[:0]
	for _, p := range c.payments {
		if p.appliedToID != del.TxnID {
			kept = append(kept, p)
		}
	}
	c.payments = kept
	return `<QBXML><QBXMLMsgsRs><TxnDelRs statusCode="0" statusMessage="Status OK" statusSeverity="Info"/></QBXMLMsgsRs></QBXML>`, nil
}

func (c *Company) addCustomer(add customerAdd) (string, error) {
	if add.Name == "" {
		return `<QBXML><QBXMLMsgsRs><CustomerAddRs statusCode="3000" statusMessage="Name is required" statusSeverity="Error"/></QBXMLMsgsRs></QBXML>`, nil
	}
	cust := c.addCustomerLocked(add.Name, add.Company)
	return renderCustomers("Add", []model.Customer{cust}), nil
}

func (c *Company) queryCustomers(fullNames []string) (string, error) {
	want := make(map[string]bool, len(fullNames))
	for _, n := range fullNames {
		want[n] = true
	}
	var matched []model.Customer
	for _, cust := range c.customers {
		if len(want) > 0 && !want[cust.name] {
			continue
		}
		matched = append(matched, model.Customer{ListID: cust.listID, Name: cust.name, FullName: cust.name})
	}
	if len(matched) == 0 {
		return `<QBXML><QBXMLMsgsRs><CustomerQueryRs statusCode="1" statusMessage="No match" statusSeverity="Warn"/></QBXMLMsgsRs></QBXML>`, nil
	}
	return renderCustomers("Query", matched), nil
}

func (c *Company) queryAccounts(fullNames []string) (string, error) {
	want := make(map[string]bool, len(fullNames))
	for _, n := range fullNames {
		want[n] = true
	}
	var matched []model.Account
	for _, a := range c.accounts {
		if len(want) > 0 && !want[a.FullName] {
			continue
		}
		matched = append(matched, a)
	}
	if len(matched) == 0 {
		return `<QBXML><QBXMLMsgsRs><AccountQueryRs statusCode="1" statusMessage="No match" statusSeverity="Warn"/></QBXMLMsgsRs></QBXML>`, nil
	}
	return renderAccounts(matched), nil
}
