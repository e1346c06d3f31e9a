// Package extraction defines the data extracted from SEC 10-K filings and the
// fixed configuration sent to the extraction service with every file.
//
// Every field is optional. Extraction can fail per field, so a nil value means
// "not determined" and nothing else.
package extraction

import (
	"encoding/json"
	"fmt"
)

// CollectionName is the agent data collection all 10-K records are stored under.
const CollectionName = "sec-10k-filings"

// RiskFactor is a single risk disclosed in the filing.
type RiskFactor struct {
	Category    *string `json:"category,omitempty" jsonschema_description:"Risk category (e.g., 'Market Risk', 'Operational Risk', 'Regulatory Risk', 'Financial Risk', 'Cybersecurity Risk', 'Competition Risk')"`
	Title       *string `json:"title,omitempty" jsonschema_description:"Brief title or headline of the risk factor"`
	Description *string `json:"description,omitempty" jsonschema_description:"Detailed description of the risk and its potential impact on the business"`
}

// FinancialMetrics holds key figures from the consolidated financial statements.
// Values are human-readable strings with currency and units ("$50.5 billion").
type FinancialMetrics struct {
	TotalRevenue       *string `json:"total_revenue,omitempty" jsonschema_description:"Total revenue/net sales for the fiscal year (include currency and units, e.g., '$50.5 billion')"`
	NetIncome          *string `json:"net_income,omitempty" jsonschema_description:"Net income/net earnings for the fiscal year (include currency and units)"`
	TotalAssets        *string `json:"total_assets,omitempty" jsonschema_description:"Total assets as of fiscal year end (include currency and units)"`
	TotalLiabilities   *string `json:"total_liabilities,omitempty" jsonschema_description:"Total liabilities as of fiscal year end (include currency and units)"`
	ShareholdersEquity *string `json:"shareholders_equity,omitempty" jsonschema_description:"Total stockholders'/shareholders' equity (include currency and units)"`
	EarningsPerShare   *string `json:"earnings_per_share,omitempty" jsonschema_description:"Basic earnings per share for the fiscal year"`
	OperatingIncome    *string `json:"operating_income,omitempty" jsonschema_description:"Operating income/income from operations (include currency and units)"`
	CashAndEquivalents *string `json:"cash_and_equivalents,omitempty" jsonschema_description:"Cash and cash equivalents as of fiscal year end (include currency and units)"`
}

// ExtractionSchema is the shape requested from the extraction service and the
// shape of every stored record.
//
// RiskFactors is described to the extractor as the 10 most significant risks.
// The limit is not enforced here: an 11th entry is still a valid record.
type ExtractionSchema struct {
	CompanyName         *string           `json:"company_name,omitempty" jsonschema_description:"Full legal name of the company"`
	TickerSymbol        *string           `json:"ticker_symbol,omitempty" jsonschema_description:"Stock ticker symbol (e.g., 'AAPL', 'MSFT')"`
	CIKNumber           *string           `json:"cik_number,omitempty" jsonschema_description:"SEC Central Index Key (CIK) number"`
	FiscalYearEnd       *string           `json:"fiscal_year_end,omitempty" jsonschema_description:"Fiscal year end date covered by this 10-K (e.g., 'December 31, 2024')"`
	Industry            *string           `json:"industry,omitempty" jsonschema_description:"Primary industry or business sector"`
	BusinessDescription *string           `json:"business_description,omitempty" jsonschema_description:"Brief 2-3 sentence summary of the company's primary business operations"`
	FinancialMetrics    *FinancialMetrics `json:"financial_metrics,omitempty" jsonschema_description:"Key financial metrics from the consolidated financial statements"`
	RiskFactors         []RiskFactor      `json:"risk_factors,omitempty" jsonschema_description:"Top risk factors disclosed in Item 1A of the 10-K, limited to the 10 most significant risks"`
	KeyDevelopments     []string          `json:"key_developments,omitempty" jsonschema_description:"Notable business developments, acquisitions, or strategic changes mentioned in the filing"`
}

// Decode parses a raw extraction result into an ExtractionSchema.
func Decode(raw json.RawMessage) (*ExtractionSchema, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty extraction result")
	}
	var out ExtractionSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	return &out, nil
}

// String returns a pointer to s. Handy for building records in code and tests.
func String(s string) *string {
	return &s
}
