package qbxml

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

func TestBuildInvoiceAdd(t *testing.T) {
	doc, err := BuildTransactionAdd(model.KindInvoice, AddFields{
		RefNumber:   "INV-001",
		CustomerRef: "80000001-123",
		PostedDate:  "2026-01-15",
		Memo:        "generated by qbdtest",
		TermsRef:    "T-1",
		Lines: []Line{
			{ItemRef: "I-1", Desc: "Consulting", Quantity: 2, Rate: 50},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<?xml version=\"1.0\""), "document starts with xml declaration")
	assert.Contains(t, doc, `<?qbxml version="13.0"?>`)
	assert.Contains(t, doc, `<QBXMLMsgsRq onError="stopOnError">`)
	assert.Contains(t, doc, `<InvoiceAddRq requestID="1">`)
	assert.Contains(t, doc, "<RefNumber>INV-001</RefNumber>")
	assert.Contains(t, doc, "<ListID>80000001-123</ListID>")
	assert.Contains(t, doc, "<InvoiceLineAdd>")
	assert.Contains(t, doc, "<Rate>50.00</Rate>")
	assert.Contains(t, doc, "<TermsRef>")
	assert.NotContains(t, doc, "ClassRef", "unset optional refs are omitted")
}

func TestBuildChargeAddHasNoLineItems(t *testing.T) {
	doc, err := BuildTransactionAdd(model.KindStatementCharge, AddFields{
		RefNumber:   "CHG-001",
		CustomerRef: "80000002-456",
		ItemRef:     "I-9",
		Quantity:    1,
		Rate:        75.50,
	})
	require.NoError(t, err)

	assert.Contains(t, doc, "<ChargeAddRq")
	assert.Contains(t, doc, "<Rate>75.50</Rate>")
	assert.NotContains(t, doc, "LineAdd", "statement charges carry no line items")
}

func TestBuildTransactionQueryPerKind(t *testing.T) {
	for kind, element := range map[model.Kind]string{
		model.KindInvoice:         "InvoiceQueryRq",
		model.KindSalesReceipt:    "SalesReceiptQueryRq",
		model.KindStatementCharge: "ChargeQueryRq",
	} {
		doc, err := BuildTransactionQuery(kind, []string{"R-1", "R-2"})
		require.NoError(t, err)
		assert.Contains(t, doc, "<"+element, "kind %s", kind)
		assert.Contains(t, doc, "<RefNumber>R-1</RefNumber>")
		assert.Contains(t, doc, "<RefNumber>R-2</RefNumber>")
	}
}

func TestBuildTxnDel(t *testing.T) {
	doc, err := BuildTxnDel(model.KindSalesReceipt, "TXN-42")
	require.NoError(t, err)
	assert.Contains(t, doc, "<TxnDelType>SalesReceipt</TxnDelType>")
	assert.Contains(t, doc, "<TxnID>TXN-42</TxnID>")
}

const invoiceQueryResponse = `<?xml version="1.0"?>
<QBXML>
  <QBXMLMsgsRs>
    <InvoiceQueryRs statusCode="0" statusMessage="Status OK" statusSeverity="Info">
      <InvoiceRet>
        <TxnID>5D2-1711</TxnID>
        <EditSequence>1709155</EditSequence>
        <RefNumber>INV-001</RefNumber>
        <TxnDate>2026-01-15</TxnDate>
        <CustomerRef><ListID>80000001-123</ListID><FullName>Acme Corp</FullName></CustomerRef>
        <TermsRef><FullName>Net 30</FullName></TermsRef>
        <Memo>generated by qbdtest</Memo>
        <Subtotal>100.00</Subtotal>
        <BalanceRemaining>0.00</BalanceRemaining>
        <IsPaid>true</IsPaid>
      </InvoiceRet>
      <InvoiceRet>
        <TxnID>5D2-1712</TxnID>
        <RefNumber>INV-002</RefNumber>
        <Subtotal>250.00</Subtotal>
        <BalanceRemaining>250.00</BalanceRemaining>
        <IsPaid>false</IsPaid>
      </InvoiceRet>
    </InvoiceQueryRs>
  </QBXMLMsgsRs>
</QBXML>`

func TestParseTransactionQuery(t *testing.T) {
	now := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	txns, err := ParseTransactionQuery(model.KindInvoice, invoiceQueryResponse, now)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	paid := txns[0]
	assert.Equal(t, "5D2-1711", paid.TxnID)
	assert.Equal(t, "INV-001", paid.RefNumber)
	assert.Equal(t, "Acme Corp", paid.CustomerName)
	assert.Equal(t, "Net 30", paid.Terms)
	assert.Equal(t, 100.00, paid.Amount)
	assert.Equal(t, model.StatusClosed, paid.Status)
	assert.Equal(t, now, paid.LastChecked)

	open := txns[1]
	assert.Equal(t, model.StatusOpen, open.Status)
	assert.Equal(t, 250.00, open.Balance)
}

func TestParseQueryNoMatchIsEmptyNotError(t *testing.T) {
	doc := `<QBXML><QBXMLMsgsRs>
		<InvoiceQueryRs statusCode="1" statusMessage="No match" statusSeverity="Warn"/>
	</QBXMLMsgsRs></QBXML>`
	txns, err := ParseTransactionQuery(model.KindInvoice, doc, time.Now())
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := ParseTransactionQuery(model.KindInvoice, "<QBXML><unclosed", time.Now())
	require.Error(t, err)
	assert.Equal(t, errors.EParse, errors.GetCode(err))

	qe, ok := errors.AsError(err)
	require.True(t, ok)
	assert.Contains(t, qe.Details["raw"], "<unclosed", "parse errors carry the raw payload")
}

func TestParseWrongResponseTypeIsParseError(t *testing.T) {
	doc := `<QBXML><QBXMLMsgsRs>
		<CustomerQueryRs statusCode="0"/>
	</QBXMLMsgsRs></QBXML>`
	_, err := ParseTransactionQuery(model.KindInvoice, doc, time.Now())
	require.Error(t, err)
	assert.Equal(t, errors.EParse, errors.GetCode(err), "never coerced into a partial transaction")
}

func TestParseStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want errors.Code
	}{
		{"3120", errors.ENotFound},
		{"500", errors.ENotFound},
		{"3200", errors.ERemote},
	}
	for _, tt := range tests {
		doc := `<QBXML><QBXMLMsgsRs>
			<TxnDelRs statusCode="` + tt.code + `" statusMessage="boom" statusSeverity="Error"/>
		</QBXMLMsgsRs></QBXML>`
		err := ParseTxnDel(doc)
		require.Error(t, err, "status %s", tt.code)
		assert.Equal(t, tt.want, errors.GetCode(err), "status %s", tt.code)
	}
}

func TestParseTxnDelOK(t *testing.T) {
	doc := `<QBXML><QBXMLMsgsRs>
		<TxnDelRs statusCode="0" statusMessage="Status OK"/>
	</QBXMLMsgsRs></QBXML>`
	assert.NoError(t, ParseTxnDel(doc))
}

const paymentQueryResponse = `<QBXML><QBXMLMsgsRs>
  <ReceivePaymentQueryRs statusCode="0">
    <ReceivePaymentRet>
      <TxnID>PAY-77</TxnID>
      <RefNumber>1044</RefNumber>
      <TxnDate>2026-01-16</TxnDate>
      <TotalAmount>100.00</TotalAmount>
      <DepositToAccountRef><FullName>Undeposited Funds</FullName></DepositToAccountRef>
      <PaymentMethodRef><FullName>Check</FullName></PaymentMethodRef>
      <Memo>posted by integration</Memo>
      <AppliedToTxn>
        <TxnID>5D2-1711</TxnID>
        <RefNumber>INV-001</RefNumber>
        <Amount>100.00</Amount>
      </AppliedToTxn>
    </ReceivePaymentRet>
  </ReceivePaymentQueryRs>
</QBXMLMsgsRs></QBXML>`

func TestParsePayments(t *testing.T) {
	payments, err := ParsePayments(paymentQueryResponse)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	p := payments[0]
	assert.Equal(t, "PAY-77", p.TxnID)
	assert.Equal(t, "INV-001", p.AppliedToRef)
	assert.Equal(t, 100.00, p.Amount)
	assert.Equal(t, "Undeposited Funds", p.DepositAccount)
	assert.Equal(t, "Check", p.Method)
	assert.Equal(t, "posted by integration", p.Memo)
}

func TestParseTransactionAdd(t *testing.T) {
	doc := `<QBXML><QBXMLMsgsRs>
		<ChargeAddRs statusCode="0">
			<ChargeRet>
				<TxnID>CH-9</TxnID>
				<EditSequence>7</EditSequence>
				<RefNumber>CHG-001</RefNumber>
				<TxnDate>2026-01-15</TxnDate>
				<Amount>75.50</Amount>
				<BalanceRemaining>75.50</BalanceRemaining>
			</ChargeRet>
		</ChargeAddRs>
	</QBXMLMsgsRs></QBXML>`
	now := time.Now()
	txn, err := ParseTransactionAdd(model.KindStatementCharge, doc, now)
	require.NoError(t, err)
	assert.Equal(t, "CH-9", txn.TxnID)
	assert.Equal(t, model.KindStatementCharge, txn.Kind)
	assert.Equal(t, 75.50, txn.Amount)
	assert.Equal(t, model.StatusOpen, txn.Status)
	assert.Equal(t, now, txn.CreatedAt)
}
