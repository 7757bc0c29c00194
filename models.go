package main

import "encoding/json"

// Result rows for the canned analytics reports. Each struct matches one
// report's SQL select list; set-valued metrics (distinct cities, departments,
// masked accounts) arrive from Postgres as ready-made JSON arrays and pass
// through as json.RawMessage.

// SpendingPatternRow summarizes receipts by receipt type.
type SpendingPatternRow struct {
	ReceiptType        string  `json:"receiptType"`
	TotalSpent         float64 `json:"totalSpent"`
	AverageTransaction float64 `json:"averageTransaction"`
	TransactionCount   int     `json:"transactionCount"`
	MaxTransaction     float64 `json:"maxTransaction"`
	MinTransaction     float64 `json:"minTransaction"`
}

// GasAnalysisRow summarizes fuel purchases by grade and warehouse city.
type GasAnalysisRow struct {
	FuelGrade             string  `json:"fuelGrade"`
	Location              string  `json:"location"`
	TotalGallons          float64 `json:"totalGallons"`
	TotalSpent            float64 `json:"totalSpent"`
	AveragePricePerGallon float64 `json:"averagePricePerGallon"`
	FillUps               int     `json:"fillUps"`
	AverageFillAmount     float64 `json:"averageFillAmount"`
}

// TopCategoryRow summarizes line-item spend by department number.
type TopCategoryRow struct {
	Department       int             `json:"department"`
	TotalSpent       float64         `json:"totalSpent"`
	ItemCount        int             `json:"itemCount"`
	AverageItemPrice float64         `json:"averageItemPrice"`
	Items            json.RawMessage `json:"items"`
}

// MonthlyTrendRow summarizes spend per calendar month and receipt type.
type MonthlyTrendRow struct {
	Month            string          `json:"month"`
	ReceiptType      string          `json:"receiptType"`
	MonthlySpent     float64         `json:"monthlySpent"`
	TransactionCount int             `json:"transactionCount"`
	Locations        json.RawMessage `json:"locations"`
}

// WarehouseTaxRow summarizes spend and tax burden per warehouse location.
// AverageTaxRate is a fraction in [0,1]; receipts with a non-positive
// subtotal contribute 0.
type WarehouseTaxRow struct {
	City             string  `json:"city"`
	State            string  `json:"state"`
	TotalSpent       float64 `json:"totalSpent"`
	TotalTaxes       float64 `json:"totalTaxes"`
	TransactionCount int     `json:"transactionCount"`
	AverageTaxRate   float64 `json:"averageTaxRate"`
}

// SavingsSummary is the global instant-savings singleton.
type SavingsSummary struct {
	TotalSavings                 float64 `json:"totalSavings"`
	SavingsTransactions          int     `json:"savingsTransactions"`
	AverageSavingsPerTransaction float64 `json:"averageSavingsPerTransaction"`
	MaxSingleSavings             float64 `json:"maxSingleSavings"`
}

// ShoppingTimeBucketRow summarizes spend per six-hour bucket. HourBucket is
// the bucket's lower bound: 0, 6, 12 or 18.
type ShoppingTimeBucketRow struct {
	HourBucket       int     `json:"hourBucket"`
	TotalSpent       float64 `json:"totalSpent"`
	TransactionCount int     `json:"transactionCount"`
	AverageSpend     float64 `json:"averageSpend"`
}

// TopItemRow summarizes the most frequently purchased items by description.
type TopItemRow struct {
	Description    string          `json:"description"`
	TotalSpent     float64         `json:"totalSpent"`
	TimesPurchased int             `json:"timesPurchased"`
	AveragePrice   float64         `json:"averagePrice"`
	Departments    json.RawMessage `json:"departments"`
	Locations      json.RawMessage `json:"locations"`
}

// PaymentMethodRow summarizes tender entries by payment method.
type PaymentMethodRow struct {
	TenderType       string          `json:"tenderType"`
	TotalTendered    float64         `json:"totalTendered"`
	TransactionCount int             `json:"transactionCount"`
	Accounts         json.RawMessage `json:"accounts"`
}

// MonthlySpendingTrendRow summarizes overall spend per calendar month.
// TotalItems sums the receipt-level item_count field carried over from the
// source feed.
type MonthlySpendingTrendRow struct {
	Month              string          `json:"month"`
	TotalSpent         float64         `json:"totalSpent"`
	TransactionCount   int             `json:"transactionCount"`
	AverageTransaction float64         `json:"averageTransaction"`
	TotalSavings       float64         `json:"totalSavings"`
	TotalItems         int             `json:"totalItems"`
	States             json.RawMessage `json:"states"`
}

// ProductCategoryRow summarizes line-item spend re-grouped through the fixed
// department-to-category table.
type ProductCategoryRow struct {
	Category            string  `json:"category"`
	TotalSpent          float64 `json:"totalSpent"`
	ItemCount           int     `json:"itemCount"`
	DistinctProducts    int     `json:"distinctProducts"`
	DistinctDepartments int     `json:"distinctDepartments"`
}

// FavoriteProductRow summarizes items bought at least twice.
type FavoriteProductRow struct {
	ItemNumber    string          `json:"itemNumber"`
	ItemName      string          `json:"itemName"`
	PurchaseCount int             `json:"purchaseCount"`
	TotalSpent    float64         `json:"totalSpent"`
	AveragePrice  float64         `json:"averagePrice"`
	FirstPurchase string          `json:"firstPurchase"`
	LastPurchase  string          `json:"lastPurchase"`
	Departments   json.RawMessage `json:"departments"`
	Locations     json.RawMessage `json:"locations"`
}

// SavingsCouponSummary is the global savings-and-coupon singleton.
// EffectiveSavingsRate and AverageSavingsRate are fractions in [0,1].
type SavingsCouponSummary struct {
	TotalSavings            float64 `json:"totalSavings"`
	TotalSpent              float64 `json:"totalSpent"`
	EffectiveSavingsRate    float64 `json:"effectiveSavingsRate"`
	TransactionsWithSavings int     `json:"transactionsWithSavings"`
	TransactionsWithCoupons int     `json:"transactionsWithCoupons"`
	AverageSavings          float64 `json:"averageSavings"`
	AverageSavingsRate      float64 `json:"averageSavingsRate"`
	MaxSingleSavings        float64 `json:"maxSingleSavings"`
}

// LocationPatternRow summarizes visits per warehouse location.
type LocationPatternRow struct {
	City               string  `json:"city"`
	State              string  `json:"state"`
	TotalSpent         float64 `json:"totalSpent"`
	TransactionCount   int     `json:"transactionCount"`
	AverageTransaction float64 `json:"averageTransaction"`
	TotalSavings       float64 `json:"totalSavings"`
	FirstVisit         string  `json:"firstVisit"`
	LastVisit          string  `json:"lastVisit"`
}

// BigTicketItemRow is one line item of at least $100, ungrouped.
type BigTicketItemRow struct {
	ItemName   string  `json:"itemName"`
	Amount     float64 `json:"amount"`
	Department int     `json:"department"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Date       string  `json:"date"`
	Refunded   bool    `json:"refunded"`
}

// ShoppingTimePatternRow summarizes receipts per named day part.
type ShoppingTimePatternRow struct {
	TimeOfDay        string  `json:"timeOfDay"`
	TransactionCount int     `json:"transactionCount"`
	TotalSpent       float64 `json:"totalSpent"`
	AverageSpend     float64 `json:"averageSpend"`
	AverageItems     float64 `json:"averageItems"`
}

// RefundRow summarizes refunded line items. TotalRefunded is negative.
type RefundRow struct {
	ItemName      string          `json:"itemName"`
	Department    int             `json:"department"`
	TotalRefunded float64         `json:"totalRefunded"`
	RefundCount   int             `json:"refundCount"`
	Locations     json.RawMessage `json:"locations"`
	Dates         json.RawMessage `json:"dates"`
}

// ItemSearchResult is one matching line item with its parent receipt context.
type ItemSearchResult struct {
	Date         string  `json:"date"`
	DateTime     string  `json:"dateTime"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ReceiptType  string  `json:"receiptType"`
	ItemNumber   string  `json:"itemNumber"`
	ItemName     string  `json:"itemName"`
	Description1 string  `json:"description1"`
	Description2 string  `json:"description2"`
	Amount       float64 `json:"amount"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
	Department   int     `json:"department"`
	ImageURL     *string `json:"imageUrl"`
}

// User represents a dashboard user
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	CreatedAt string `json:"created_at"`
}
