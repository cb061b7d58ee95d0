package qbsim

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/model"
)

type requestEnvelope struct {
	XMLName xml.Name `xml:"QBXML"`
	Msgs    msgsRq   `xml:"QBXMLMsgsRq"`
}

type msgsRq struct {
	InvoiceAdd      *invoiceAddRq      `xml:"InvoiceAddRq"`
	SalesReceiptAdd *salesReceiptAddRq `xml:"SalesReceiptAddRq"`
	ChargeAdd       *chargeAddRq       `xml:"ChargeAddRq"`

	InvoiceQuery      *txnQueryRq `xml:"InvoiceQueryRq"`
	SalesReceiptQuery *txnQueryRq `xml:"SalesReceiptQueryRq"`
	ChargeQuery       *txnQueryRq `xml:"ChargeQueryRq"`

	PaymentQuery *paymentQueryRq `xml:"ReceivePaymentQueryRq"`
	TxnDel       *txnDelRq       `xml:"TxnDelRq"`

	CustomerAdd   *customerAddRq   `xml:"CustomerAddRq"`
	CustomerQuery *customerQueryRq `xml:"CustomerQueryRq"`
	AccountQuery  *accountQueryRq  `xml:"AccountQueryRq"`
}

type refEl struct {
	ListID   string `xml:"ListID"`
	FullName string `xml:"FullName"`
}

type lineAdd struct {
	ItemRef  refEl   `xml:"ItemRef"`
	Desc     string  `xml:"Desc"`
	Quantity int     `xml:"Quantity"`
	Rate     float64 `xml:"Rate"`
}

type txnAdd struct {
	CustomerRef refEl   `xml:"CustomerRef"`
	ClassRef    refEl   `xml:"ClassRef"`
	TermsRef    refEl   `xml:"TermsRef"`
	TxnDate     string  `xml:"TxnDate"`
	RefNumber   string  `xml:"RefNumber"`
	Memo        string  `xml:"Memo"`
	ItemRef     refEl   `xml:"ItemRef"`
	Quantity    int     `xml:"Quantity"`
	Rate        float64 `xml:"Rate"`

	InvoiceLines []lineAdd `xml:"InvoiceLineAdd"`
	ReceiptLines []lineAdd `xml:"SalesReceiptLineAdd"`

	Lines []lineAdd `xml:"-"` // merged after decode
}

type invoiceAddRq struct {
	Add txnAdd `xml:"InvoiceAdd"`
}

type salesReceiptAddRq struct {
	Add txnAdd `xml:"SalesReceiptAdd"`
}

type chargeAddRq struct {
	Add txnAdd `xml:"ChargeAdd"`
}

type txnQueryRq struct {
	TxnIDs     []string `xml:"TxnID"`
	RefNumbers []string `xml:"RefNumber"`
}

type paymentQueryRq struct {
	AppliedToTxnID string `xml:"AppliedToTxnID"`
	AppliedToRef   string `xml:"AppliedToRefNumber"`
}

type txnDelRq struct {
	TxnDelType string `xml:"TxnDelType"`
	TxnID      string `xml:"TxnID"`
}

type customerAdd struct {
	Name    string `xml:"Name"`
	Company string `xml:"CompanyName"`
}

type customerAddRq struct {
	Add customerAdd `xml:"CustomerAdd"`
}

type customerQueryRq struct {
	FullNames []string `xml:"FullName"`
}

type accountQueryRq struct {
	FullNames []string `xml:"FullName"`
}

func parseRequest(doc string) (*requestEnvelope, error) {
	var env requestEnvelope
	if err := xml.Unmarshal([]byte(doc), &env); err != nil {
		return nil, errors.Wrap(errors.EParse, "malformed request document", err)
	}
	var adds []*txnAdd
	if env.Msgs.InvoiceAdd != nil {
		adds = append(adds, &env.Msgs.InvoiceAdd.Add)
	}
	if env.Msgs.SalesReceiptAdd != nil {
		adds = append(adds, &env.Msgs.SalesReceiptAdd.Add)
	}
	if env.Msgs.ChargeAdd != nil {
		adds = append(adds, &env.Msgs.ChargeAdd.Add)
	}
	for _, a := range adds {
		a.Lines = append(a.Lines, a.InvoiceLines...)
		a.Lines = append(a.Lines, a.ReceiptLines...)
	}
	return &env, nil
}

// ----- response rendering -----

func retPrefix(kind model.Kind) string {
	switch kind {
	case model.KindInvoice:
		return "Invoice"
	case model.KindSalesReceipt:
		return "SalesReceipt"
	default:
		return "Charge"
	}
}

func esc(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func renderError(kind model.Kind, verb, code, msg string) string {
	return fmt.Sprintf(
		`<QBXML><QBXMLMsgsRs><%s%sRs statusCode=%q statusMessage=%q statusSeverity="Error"/></QBXMLMsgsRs></QBXML>`,
		retPrefix(kind), verb, code, esc(msg))
}

func renderTxns(kind model.Kind, verb string, txns []*txnRecord) string {
	prefix := retPrefix(kind)
	var b strings.Builder
	b.WriteString("<QBXML><QBXMLMsgsRs>")
	fmt.Fprintf(&b, `<%s%sRs statusCode="0" statusMessage="Status OK" statusSeverity="Info">`, prefix, verb)
	for _, t := range txns {
		fmt.Fprintf(&b, "<%sRet>", prefix)
		fmt.Fprintf(&b, "<TxnID>%s</TxnID>", esc(t.id))
		fmt.Fprintf(&b, "<EditSequence>%d</EditSequence>", t.editSequence)
		fmt.Fprintf(&b, "<RefNumber>%s</RefNumber>", esc(t.refNumber))
		if t.txnDate != "" {
			fmt.Fprintf(&b, "<TxnDate>%s</TxnDate>", esc(t.txnDate))
		}
		fmt.Fprintf(&b, "<CustomerRef><ListID>%s</ListID><FullName>%s</FullName></CustomerRef>",
			esc(t.customerID), esc(t.customerName))
		if t.terms != "" {
			fmt.Fprintf(&b, "<TermsRef><FullName>%s</FullName></TermsRef>", esc(t.terms))
		}
		if t.class != "" {
			fmt.Fprintf(&b, "<ClassRef><FullName>%s</FullName></ClassRef>", esc(t.class))
		}
		if t.memo != "" {
			fmt.Fprintf(&b, "<Memo>%s</Memo>", esc(t.memo))
		}
		if kind == model.KindStatementCharge {
			fmt.Fprintf(&b, "<Amount>%.2f</Amount>", t.amount)
		} else {
			fmt.Fprintf(&b, "<Subtotal>%.2f</Subtotal>", t.amount)
		}
		fmt.Fprintf(&b, "<BalanceRemaining>%.2f</BalanceRemaining>", t.balance)
		if kind == model.KindInvoice {
			fmt.Fprintf(&b, "<IsPaid>%t</IsPaid>", t.balance == 0)
		}
		fmt.Fprintf(&b, "</%sRet>", prefix)
	}
	fmt.Fprintf(&b, "</%s%sRs>", prefix, verb)
	b.WriteString("</QBXMLMsgsRs></QBXML>")
	return b.String()
}

func renderPayments(payments []*paymentRecord) string {
	var b strings.Builder
	b.WriteString("<QBXML><QBXMLMsgsRs>")
	b.WriteString(`<ReceivePaymentQueryRs statusCode="0" statusMessage="Status OK" statusSeverity="Info">`)
	for _, p := range payments {
		b.WriteString("<ReceivePaymentRet>")
		fmt.Fprintf(&b, "<TxnID>%s</TxnID>", esc(p.id))
		fmt.Fprintf(&b, "<RefNumber>%s</RefNumber>", esc(p.refNumber))
		if p.txnDate != "" {
			fmt.Fprintf(&b, "<TxnDate>%s</TxnDate>", esc(p.txnDate))
		}
		fmt.Fprintf(&b, "<TotalAmount>%.2f</TotalAmount>", p.amount)
		fmt.Fprintf(&b, "<DepositToAccountRef><FullName>%s</FullName></DepositToAccountRef>", esc(p.depositAccount))
		fmt.Fprintf(&b, "<PaymentMethodRef><FullName>%s</FullName></PaymentMethodRef>", esc(p.method))
		if p.memo != "" {
			fmt.Fprintf(&b, "<Memo>%s</Memo>", esc(p.memo))
		}
		fmt.Fprintf(&b, "<AppliedToTxn><TxnID>%s</TxnID><RefNumber>%s</RefNumber><Amount>%.2f</Amount></AppliedToTxn>",
			esc(p.appliedToID), esc(p.appliedToRef), p.amount)
		b.WriteString("</ReceivePaymentRet>")
	}
	b.WriteString("</ReceivePaymentQueryRs>")
	b.WriteString("</QBXMLMsgsRs></QBXML>")
	return b.String()
}

func renderCustomers(verb string, customers []model.Customer) string {
	var b strings.Builder
	b.WriteString("<QBXML><QBXMLMsgsRs>")
	fmt.Fprintf(&b, `<Customer%sRs statusCode="0" statusMessage="Status OK" statusSeverity="Info">`, verb)
	for _, c := range customers {
		b.WriteString("<CustomerRet>")
		fmt.Fprintf(&b, "<ListID>%s</ListID>", esc(c.ListID))
		fmt.Fprintf(&b, "<Name>%s</Name>", esc(c.Name))
		fmt.Fprintf(&b, "<FullName>%s</FullName>", esc(c.FullName))
		b.WriteString("</CustomerRet>")
	}
	fmt.Fprintf(&b, "</Customer%sRs>", verb)
	b.WriteString("</QBXMLMsgsRs></QBXML>")
	return b.String()
}

func renderAccounts(accounts []model.Account) string {
	var b strings.Builder
	b.WriteString("<QBXML><QBXMLMsgsRs>")
	b.WriteString(`<AccountQueryRs statusCode="0" statusMessage="Status OK" statusSeverity="Info">`)
	for _, a := range accounts {
		b.WriteString("<AccountRet>")
		fmt.Fprintf(&b, "<ListID>%s</ListID>", esc(a.ListID))
		fmt.Fprintf(&b, "<Name>%s</Name>", esc(a.Name))
		fmt.Fprintf(&b, "<FullName>%s</FullName>", esc(a.FullName))
		fmt.Fprintf(&b, "<AccountType>%s</AccountType>", esc(a.Type))
		b.WriteString("</AccountRet>")
	}
	b.WriteString("</AccountQueryRs>")
	b.WriteString("</QBXMLMsgsRs></QBXML>")
	return b.String()
}
