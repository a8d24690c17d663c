package tally

import "encoding/xml"

const (
	requestImport    = "Import Data"
	reportAllMasters = "All Masters"
	reportVouchers   = "Vouchers"
	udfNamespace     = "TallyUDF"
	voucherReceipt   = "Receipt"
	accountingView   = "Accounting Voucher View"
	ledgerParent     = "Sundry Debtors"
)

type envelope struct {
	XMLName xml.Name `xml:"ENVELOPE"`
	Header  header   `xml:"HEADER"`
	Body    body     `xml:"BODY"`
}

type header struct {
	TallyRequest string `xml:"TALLYREQUEST"`
}

type body struct {
	ImportData importData `xml:"IMPORTDATA"`
}

type importData struct {
	RequestDesc requestDesc `xml:"REQUESTDESC"`
	RequestData requestData `xml:"REQUESTDATA"`
}

type requestDesc struct {
	ReportName      string          `xml:"REPORTNAME"`
	StaticVariables staticVariables `xml:"STATICVARIABLES"`
}

type staticVariables struct {
	CurrentCompany string `xml:"SVCURRENTCOMPANY"`
}

type requestData struct {
	Messages []tallyMessage `xml:"TALLYMESSAGE"`
}

type tallyMessage struct {
	UDF     string   `xml:"xmlns:UDF,attr"`
	Ledger  *ledger  `xml:"LEDGER,omitempty"`
	Voucher *voucher `xml:"VOUCHER,omitempty"`
}

type ledger struct {
	NameAttr       string `xml:"NAME,attr"`
	ReservedName   string `xml:"RESERVEDNAME,attr"`
	Name           string `xml:"NAME"`
	Parent         string `xml:"PARENT"`
	AffectsStock   string `xml:"AFFECTSSTOCK"`
	IsBillWiseOn   string `xml:"ISBILLWISEON"`
	IsRevenue      string `xml:"ISREVENUE"`
	OpeningBalance string `xml:"OPENINGBALANCE"`
}

type voucher struct {
	VoucherType     string        `xml:"VCHTYPE,attr"`
	Action          string        `xml:"ACTION,attr"`
	GUID            string        `xml:"GUID,attr"`
	Date            string        `xml:"DATE"`
	EffectiveDate   string        `xml:"EFFECTIVEDATE"`
	Number          string        `xml:"VOUCHERNUMBER"`
	TypeName        string        `xml:"VOUCHERTYPENAME"`
	PersistedView   string        `xml:"PERSISTEDVIEW"`
	Narration       string        `xml:"NARRATION"`
	PartyLedgerName string        `xml:"PARTYLEDGERNAME"`
	Entries         []ledgerEntry `xml:"ALLLEDGERENTRIES.LIST"`
}

type ledgerEntry struct {
	LedgerName       string `xml:"LEDGERNAME"`
	IsDeemedPositive string `xml:"ISDEEMEDPOSITIVE"`
	Amount           string `xml:"AMOUNT"`
}

// importResponse accepts both the legacy RESPONSE root and the envelope form.
type importResponse struct {
	Created   int           `xml:"CREATED"`
	Altered   int           `xml:"ALTERED"`
	Errors    int           `xml:"ERRORS"`
	LineError string        `xml:"LINEERROR"`
	Nested    *importResult `xml:"BODY>DATA>IMPORTRESULT"`
}

type importResult struct {
	Created   int    `xml:"CREATED"`
	Altered   int    `xml:"ALTERED"`
	Errors    int    `xml:"ERRORS"`
	LineError string `xml:"LINEERROR"`
}

func (r importResponse) result() importResult {
	if r.Nested != nil {
		return *r.Nested
	}
	return importResult{Created: r.Created, Altered: r.Altered, Errors: r.Errors, LineError: r.LineError}
}

func newEnvelope(report, company string, messages ...tallyMessage) envelope {
	return envelope{
		Header: header{TallyRequest: requestImport},
		Body: body{ImportData: importData{
			RequestDesc: requestDesc{
				ReportName:      report,
				StaticVariables: staticVariables{CurrentCompany: company},
			},
			RequestData: requestData{Messages: messages},
		}},
	}
}
