package provider

// ModelType represents a standard data model type served by providers.
// Each ModelType maps to a specific data structure in pkg/models/.
type ModelType string

// --- Reference data ---
const (
	ModelDirectory ModelType = "Directory" // []models.DirectoryEntry
)

// --- Disclosures ---
const (
	ModelDisclosureList ModelType = "DisclosureList" // []models.Disclosure
	ModelDisclosureFeed ModelType = "DisclosureFeed" // []models.FeedItem
)

// --- Fundamentals ---
const (
	ModelFinancialStatement ModelType = "FinancialStatement" // []models.StatementLine
	ModelIncomeStatement    ModelType = "IncomeStatement"    // []models.USStatement
	ModelBalanceSheet       ModelType = "BalanceSheet"       // []models.USStatement
	ModelCashFlowStatement  ModelType = "CashFlowStatement"  // []models.USStatement
)

// --- Market data ---
const (
	ModelMarketCap        ModelType = "MarketCap"        // []models.MarketCap
	ModelEquityHistorical ModelType = "EquityHistorical" // []models.OHLCV
	ModelIndexHistorical  ModelType = "IndexHistorical"  // []models.OHLCV
)

// AllModels returns every model type in display order.
func AllModels() []ModelType {
	return []ModelType{
		ModelDirectory,
		ModelDisclosureList, ModelDisclosureFeed,
		ModelFinancialStatement, ModelIncomeStatement, ModelBalanceSheet, ModelCashFlowStatement,
		ModelMarketCap, ModelEquityHistorical, ModelIndexHistorical,
	}
}

// ModelCategory returns the display category of a model type.
func ModelCategory(m ModelType) string {
	switch m {
	case ModelDirectory:
		return "Reference"
	case ModelDisclosureList, ModelDisclosureFeed:
		return "Disclosures"
	case ModelFinancialStatement, ModelIncomeStatement, ModelBalanceSheet, ModelCashFlowStatement:
		return "Fundamentals"
	case ModelMarketCap, ModelEquityHistorical, ModelIndexHistorical:
		return "Market Data"
	}
	return "Other"
}
