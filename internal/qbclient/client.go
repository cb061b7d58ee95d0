// Package qbclient translates domain operations into request documents and
// parses the responses back into model types. It sits above the IPC channel;
// retry policy belongs to its callers.
package qbclient

import (
	"context"
	"time"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/qbxml"
)

// Caller is the IPC seam the query/command layer talks through.
// *ipc.Client satisfies this; tests substitute a fake.
type Caller interface {
	Execute(ctx context.Context, operation, document string, timeout time.Duration) (string, error)
}

// Client is the query/command layer over one broker connection.
type Client struct {
	caller   Caller
	timeouts config.Timeouts

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// New creates a query/command client.
func New(caller Caller, timeouts config.Timeouts) *Client {
	return &Client{caller: caller, timeouts: timeouts, Now: time.Now}
}

// QueryResult pairs a requested ref number with what the external system
// returned for it. Found=false is a marker, not an error: the caller decides
// whether a missing record means deleted or never-created.
type QueryResult struct {
	RefNumber   string
	Found       bool
	Transaction model.Transaction
}

// CreateTransaction creates one transaction remotely and returns it with the
// external identifiers the system assigned.
func (c *Client) CreateTransaction(ctx context.Context, kind model.Kind, fields qbxml.AddFields) (model.Transaction, error) {
	doc, err := qbxml.BuildTransactionAdd(kind, fields)
	if err != nil {
		return model.Transaction{}, err
	}
	resp, err := c.caller.Execute(ctx, addOperation(kind), doc, c.timeouts.Create())
	if err != nil {
		return model.Transaction{}, err
	}
	txn, err := qbxml.ParseTransactionAdd(kind, resp, c.Now())
	if err != nil {
		return model.Transaction{}, err
	}
	txn.Status = model.StatusOpen
	return txn, nil
}

// QueryTransactions fetches current remote state for the given ref numbers.
// Every requested ref number appears in the result exactly once.
func (c *Client) QueryTransactions(ctx context.Context, kind model.Kind, refNumbers []string) ([]QueryResult, error) {
	if len(refNumbers) == 0 {
		return nil, nil
	}
	doc, err := qbxml.BuildTransactionQuery(kind, refNumbers)
	if err != nil {
		return nil, err
	}
	resp, err := c.caller.Execute(ctx, queryOperation(kind), doc, c.timeouts.Query())
	if err != nil {
		return nil, err
	}
	txns, err := qbxml.ParseTransactionQuery(kind, resp, c.Now())
	if err != nil {
		return nil, err
	}

	byRef := make(map[string]model.Transaction, len(txns))
	for _, txn := range txns {
		byRef[txn.RefNumber] = txn
	}
	results := make([]QueryResult, 0, len(refNumbers))
	for _, ref := range refNumbers {
		txn, found := byRef[ref]
		results = append(results, QueryResult{RefNumber: ref, Found: found, Transaction: txn})
	}
	return results, nil
}

// QueryRelatedPayments looks up payment records applied to a transaction.
func (c *Client) QueryRelatedPayments(ctx context.Context, txn model.Transaction) ([]model.Payment, error) {
	doc, err := qbxml.BuildPaymentQuery(txn.TxnID, txn.RefNumber)
	if err != nil {
		return nil, err
	}
	resp, err := c.caller.Execute(ctx, "ReceivePaymentQuery", doc, c.timeouts.Query())
	if err != nil {
		return nil, err
	}
	return qbxml.ParsePayments(resp)
}

// DeleteTransaction removes the remote record. Deleting a record that is
// already gone reports E_NOT_FOUND remotely and is treated as success here:
// the caller just wants it gone.
func (c *Client) DeleteTransaction(ctx context.Context, txn model.Transaction) error {
	doc, err := qbxml.BuildTxnDel(txn.Kind, txn.TxnID)
	if err != nil {
		return err
	}
	resp, err := c.caller.Execute(ctx, "TxnDel", doc, c.timeouts.Delete())
	if err != nil {
		if errors.IsCode(err, errors.ENotFound) {
			return nil
		}
		return err
	}
	if err := qbxml.ParseTxnDel(resp); err != nil {
		if errors.IsCode(err, errors.ENotFound) {
			return nil
		}
		return err
	}
	return nil
}

// AddCustomer creates a customer record for generators to reference.
func (c *Client) AddCustomer(ctx context.Context, fields qbxml.CustomerFields) (model.Customer, error) {
	doc, err := qbxml.BuildCustomerAdd(fields)
	if err != nil {
		return model.Customer{}, err
	}
	resp, err := c.caller.Execute(ctx, "CustomerAdd", doc, c.timeouts.Create())
	if err != nil {
		return model.Customer{}, err
	}
	return qbxml.ParseCustomerAdd(resp)
}

// QueryCustomers lists customers, optionally filtered by full name.
func (c *Client) QueryCustomers(ctx context.Context, fullNames []string) ([]model.Customer, error) {
	doc, err := qbxml.BuildCustomerQuery(fullNames)
	if err != nil {
		return nil, err
	}
	resp, err := c.caller.Execute(ctx, "CustomerQuery", doc, c.timeouts.Query())
	if err != nil {
		return nil, err
	}
	return qbxml.ParseCustomerQuery(resp)
}

// QueryAccounts lists accounts, optionally filtered by full name. Used to
// confirm the configured deposit account exists before a run.
func (c *Client) QueryAccounts(ctx context.Context, fullNames []string) ([]model.Account, error) {
	doc, err := qbxml.BuildAccountQuery(fullNames)
	if err != nil {
		return nil, err
	}
	resp, err := c.caller.Execute(ctx, "AccountQuery", doc, c.timeouts.Query())
	if err != nil {
		return nil, err
	}
	return qbxml.ParseAccountQuery(resp)
}

func addOperation(kind model.Kind) string {
	switch kind {
	case model.KindInvoice:
		return "InvoiceAdd"
	case model.KindSalesReceipt:
		return "SalesReceiptAdd"
	case model.KindStatementCharge:
		return "ChargeAdd"
	}
	return "Add"
}

func queryOperation(kind model.Kind) string {
	switch kind {
	case model.KindInvoice:
		return "InvoiceQuery"
	case model.KindSalesReceipt:
		return "SalesReceiptQuery"
	case model.KindStatementCharge:
		return "ChargeQuery"
	}
	return "Query"
}
