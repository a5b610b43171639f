package edgar

import (
	"testing"

	"insiderAlpha/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const form4Fixture = `<?xml version="1.0"?>
<ownershipDocument>
    <schemaVersion>X0407</schemaVersion>
    <documentType>4</documentType>
    <periodOfReport>2024-10-02</periodOfReport>
    <issuer>
        <issuerCik>0000320193</issuerCik>
        <issuerName>Apple Inc.</issuerName>
        <issuerTradingSymbol>AAPL</issuerTradingSymbol>
    </issuer>
    <reportingOwner>
        <reportingOwnerId>
            <rptOwnerCik>0001214156</rptOwnerCik>
            <rptOwnerName>COOK TIMOTHY D</rptOwnerName>
        </reportingOwnerId>
        <reportingOwnerRelationship>
            <isOfficer>1</isOfficer>
            <officerTitle>Chief Executive Officer</officerTitle>
        </reportingOwnerRelationship>
    </reportingOwner>
    <nonDerivativeTable>
        <nonDerivativeTransaction>
            <securityTitle>
                <value>Common Stock</value>
            </securityTitle>
            <transactionDate>
                <value>2024-10-02</value>
            </transactionDate>
            <transactionCoding>
                <transactionFormType>4</transactionFormType>
                <transactionCode>S</transactionCode>
                <equitySwapInvolved>0</equitySwapInvolved>
            </transactionCoding>
            <transactionAmounts>
                <transactionShares>
                    <value>50000</value>
                </transactionShares>
                <transactionPricePerShare>
                    <value>191.30</value>
                </transactionPricePerShare>
                <transactionAcquiredDisposedCode>
                    <value>D</value>
                </transactionAcquiredDisposedCode>
            </transactionAmounts>
        </nonDerivativeTransaction>
        <nonDerivativeTransaction>
            <securityTitle>
                <value>Common Stock</value>
            </securityTitle>
            <transactionDate>
                <value>2024-10-03</value>
            </transactionDate>
            <transactionCoding>
                <transactionFormType>4</transactionFormType>
                <transactionCode>P</transactionCode>
                <equitySwapInvolved>0</equitySwapInvolved>
            </transactionCoding>
            <transactionAmounts>
                <transactionShares>
                    <value>1200</value>
                </transactionShares>
                <transactionPricePerShare>
                    <value>190.10</value>
                </transactionPricePerShare>
                <transactionAcquiredDisposedCode>
                    <value>A</value>
                </transactionAcquiredDisposedCode>
            </transactionAmounts>
        </nonDerivativeTransaction>
    </nonDerivativeTable>
</ownershipDocument>`

func TestParseForm4(t *testing.T) {
	rows, err := parseForm4([]byte(form4Fixture), "0000320193-24-000102", "2024-10-03")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "0001214156", first.InsiderID)
	assert.Equal(t, "COOK TIMOTHY D", first.InsiderName)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, "S", first.TransactionCode)
	assert.Equal(t, "50000", first.Shares)
	assert.Equal(t, "191.30", first.PricePerShare)
	assert.Equal(t, "2024-10-02", first.TransactionDate)
	assert.Equal(t, "2024-10-03", first.FilingDate)
	assert.Equal(t, "0000320193-24-000102", first.AccessionNumber)

	second := rows[1]
	assert.Equal(t, "P", second.TransactionCode)
	assert.Equal(t, "1200", second.Shares)
	assert.Equal(t, "2024-10-03", second.TransactionDate)
}

func TestParseForm4_FilingDateFallback(t *testing.T) {
	rows, err := parseForm4([]byte(form4Fixture), "0000320193-24-000102", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Missing index date falls back to the document's periodOfReport.
	assert.Equal(t, "2024-10-02", rows[0].FilingDate)
}

func TestParseForm4_NoTransactions(t *testing.T) {
	const holdingsOnly = `<?xml version="1.0"?>
<ownershipDocument>
    <periodOfReport>2024-10-02</periodOfReport>
    <issuer>
        <issuerCik>0000320193</issuerCik>
        <issuerTradingSymbol>AAPL</issuerTradingSymbol>
    </issuer>
    <reportingOwner>
        <reportingOwnerId>
            <rptOwnerCik>0001214156</rptOwnerCik>
            <rptOwnerName>COOK TIMOTHY D</rptOwnerName>
        </reportingOwnerId>
    </reportingOwner>
</ownershipDocument>`

	rows, err := parseForm4([]byte(holdingsOnly), "acc", "2024-10-03")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseForm4_Malformed(t *testing.T) {
	_, err := parseForm4([]byte("<html>Not Found</html>"), "acc", "2024-10-03")
	assert.Error(t, err)

	const noOwner = `<?xml version="1.0"?>
<ownershipDocument>
    <issuer>
        <issuerTradingSymbol>AAPL</issuerTradingSymbol>
    </issuer>
</ownershipDocument>`
	_, err = parseForm4([]byte(noOwner), "acc", "2024-10-03")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrMalformedRecord)
}
