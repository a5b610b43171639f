package edgar

import (
	"encoding/xml"
	"fmt"

	"insiderAlpha/internal/ports"
)

// ownershipDocument mirrors the subset of the Form 4 XML schema the engine
// consumes. A single filing can report several non-derivative transactions.
type ownershipDocument struct {
	XMLName        xml.Name `xml:"ownershipDocument"`
	PeriodOfReport string   `xml:"periodOfReport"`
	Issuer         struct {
		CIK    string `xml:"issuerCik"`
		Symbol string `xml:"issuerTradingSymbol"`
	} `xml:"issuer"`
	ReportingOwner struct {
		ID struct {
			CIK  string `xml:"rptOwnerCik"`
			Name string `xml:"rptOwnerName"`
		} `xml:"reportingOwnerId"`
	} `xml:"reportingOwner"`
	Transactions []nonDerivativeTransaction `xml:"nonDerivativeTable>nonDerivativeTransaction"`
}

type nonDerivativeTransaction struct {
	Date          valueNode `xml:"transactionDate"`
	Code          string    `xml:"transactionCoding>transactionCode"`
	Shares        valueNode `xml:"transactionAmounts>transactionShares"`
	PricePerShare valueNode `xml:"transactionAmounts>transactionPricePerShare"`
}

// valueNode covers the Form 4 convention of wrapping scalars in a <value>
// child element.
type valueNode struct {
	Value string `xml:"value"`
}

// parseForm4 extracts the raw transaction rows from one ownershipDocument.
// Rows are delivered untyped; validation and code filtering belong to the
// ingest normalizer. Falls back to periodOfReport when the index supplied
// no filing date.
func parseForm4(data []byte, accession, filingDate string) ([]ports.RawDisclosure, error) {
	doc := &ownershipDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse ownershipDocument %s: %w", accession, err)
	}
	if doc.ReportingOwner.ID.CIK == "" {
		return nil, fmt.Errorf("ownershipDocument %s has no reporting owner: %w", accession, ports.ErrMalformedRecord)
	}
	if filingDate == "" {
		filingDate = doc.PeriodOfReport
	}

	rows := make([]ports.RawDisclosure, 0, len(doc.Transactions))
	for _, trans := range doc.Transactions {
		rows = append(rows, ports.RawDisclosure{
			InsiderID:       doc.ReportingOwner.ID.CIK,
			InsiderName:     doc.ReportingOwner.ID.Name,
			Symbol:          doc.Issuer.Symbol,
			TransactionCode: trans.Code,
			Shares:          trans.Shares.Value,
			PricePerShare:   trans.PricePerShare.Value,
			TransactionDate: trans.Date.Value,
			FilingDate:      filingDate,
			AccessionNumber: accession,
		})
	}
	return rows, nil
}
