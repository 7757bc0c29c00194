package main

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// departmentCategories maps Costco department numbers to display categories.
// This is a versioned business rule, not derived data; unmapped departments
// fall through to defaultCategory.
var departmentCategories = map[int]string{
	65: "Fresh Food",
	18: "Fresh Food",
	17: "Fresh Food",
	19: "Fresh Food",
	12: "Pantry",
	13: "Pantry",
	61: "Meat",
	20: "Health & Clothing",
	39: "Health & Clothing",
	23: "Electronics & Home",
	24: "Electronics & Home",
	27: "Electronics & Home",
	14: "Pet Supplies",
}

const defaultCategory = "Other"

// categoryForDepartment resolves a department number to its display category.
func categoryForDepartment(dept int) string {
	if cat, ok := departmentCategories[dept]; ok {
		return cat
	}
	return defaultCategory
}

// departmentCategoryCase renders departmentCategories as a SQL CASE over the
// given column, so the mapping has a single source of truth. Keys are sorted
// to keep the generated SQL stable.
func departmentCategoryCase(column string) string {
	depts := make([]int, 0, len(departmentCategories))
	for d := range departmentCategories {
		depts = append(depts, d)
	}
	sort.Ints(depts)

	var b strings.Builder
	b.WriteString("CASE " + column)
	for _, d := range depts {
		fmt.Fprintf(&b, " WHEN %d THEN '%s'", d, departmentCategories[d])
	}
	fmt.Fprintf(&b, " ELSE '%s' END", defaultCategory)
	return b.String()
}

// reportDef is one canned report: a kebab-case slug, the aggregation SQL, and
// a scanner turning one result row into its typed row struct. Reports are
// pure functions of store state; every query carries a deterministic ORDER BY
// so repeated calls against an unchanged store return identical bodies.
type reportDef struct {
	Slug  string
	Query string
	Scan  func(rows *sql.Rows) (any, error)
}

// runReport executes one report against the shared read-only pool.
func runReport(db *sql.DB, def reportDef) ([]any, error) {
	rows, err := db.Query(def.Query)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", def.Slug, err)
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	results := make([]any, 0)

	for rows.Next() {
		row, err := def.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", def.Slug, err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report %s: %w", def.Slug, err)
	}
	return results, nil
}

// reportBySlug indexes reportDefs for dispatch and tests.
var reportBySlug = func() map[string]reportDef {
	m := make(map[string]reportDef, len(reportDefs))
	for _, def := range reportDefs {
		m[def.Slug] = def
	}
	return m
}()

var reportDefs = []reportDef{
	{
		Slug: "spending-patterns",
		Query: `
			SELECT receipt_type,
			       ROUND(SUM(total), 2),
			       ROUND(AVG(total), 2),
			       COUNT(*),
			       ROUND(MAX(total), 2),
			       ROUND(MIN(total), 2)
			FROM receipts
			GROUP BY receipt_type
			ORDER BY receipt_type`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r SpendingPatternRow
			err := rows.Scan(&r.ReceiptType, &r.TotalSpent, &r.AverageTransaction,
				&r.TransactionCount, &r.MaxTransaction, &r.MinTransaction)
			return r, err
		},
	},
	{
		Slug: "gas-analysis",
		Query: `
			SELECT i.fuel_grade,
			       COALESCE(r.warehouse_city, ''),
			       ROUND(SUM(i.fuel_gallons), 3),
			       ROUND(SUM(r.total), 2),
			       ROUND(AVG(i.unit_price), 2),
			       COUNT(*),
			       ROUND(AVG(i.fuel_gallons), 3)
			FROM receipt_items i
			JOIN receipts r ON r.id = i.receipt_id
			WHERE r.receipt_type = 'Gas Station'
			  AND i.fuel_grade IS NOT NULL
			GROUP BY i.fuel_grade, r.warehouse_city
			ORDER BY i.fuel_grade, r.warehouse_city`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r GasAnalysisRow
			err := rows.Scan(&r.FuelGrade, &r.Location, &r.TotalGallons, &r.TotalSpent,
				&r.AveragePricePerGallon, &r.FillUps, &r.AverageFillAmount)
			return r, err
		},
	},
	{
		Slug: "top-categories",
		Query: `
			SELECT i.department,
			       ROUND(SUM(i.amount), 2) AS total_spent,
			       COUNT(*),
			       ROUND(AVG(i.amount), 2),
			       jsonb_agg(DISTINCT jsonb_build_object('description', i.description1, 'price', i.amount))
			FROM receipt_items i
			WHERE i.amount > 0
			GROUP BY i.department
			ORDER BY total_spent DESC, i.department
			LIMIT 10`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r TopCategoryRow
			err := rows.Scan(&r.Department, &r.TotalSpent, &r.ItemCount,
				&r.AverageItemPrice, &r.Items)
			return r, err
		},
	},
	{
		Slug: "monthly-trends",
		Query: `
			SELECT COALESCE(to_char(r.transaction_datetime, 'YYYY-MM'), '') AS month,
			       r.receipt_type,
			       ROUND(SUM(r.total), 2),
			       COUNT(*),
			       COALESCE(jsonb_agg(DISTINCT r.warehouse_city)
			           FILTER (WHERE r.warehouse_city IS NOT NULL), '[]'::jsonb)
			FROM receipts r
			GROUP BY 1, r.receipt_type
			ORDER BY 1, r.receipt_type`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r MonthlyTrendRow
			err := rows.Scan(&r.Month, &r.ReceiptType, &r.MonthlySpent,
				&r.TransactionCount, &r.Locations)
			return r, err
		},
	},
	{
		Slug: "warehouse-tax",
		Query: `
			SELECT COALESCE(r.warehouse_city, ''),
			       COALESCE(r.warehouse_state, ''),
			       ROUND(SUM(r.total), 2) AS total_spent,
			       ROUND(SUM(r.taxes), 2),
			       COUNT(*),
			       ROUND(AVG(CASE WHEN r.subtotal > 0 THEN r.taxes / r.subtotal ELSE 0 END), 4)
			FROM receipts r
			GROUP BY r.warehouse_city, r.warehouse_state
			ORDER BY total_spent DESC, 1, 2`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r WarehouseTaxRow
			err := rows.Scan(&r.City, &r.State, &r.TotalSpent, &r.TotalTaxes,
				&r.TransactionCount, &r.AverageTaxRate)
			return r, err
		},
	},
	{
		Slug: "savings",
		// HAVING keeps the singleton out of the response entirely when no
		// receipt has instant savings.
		Query: `
			SELECT ROUND(SUM(instant_savings), 2),
			       COUNT(*),
			       ROUND(AVG(instant_savings), 2),
			       ROUND(MAX(instant_savings), 2)
			FROM receipts
			WHERE instant_savings > 0
			HAVING COUNT(*) > 0`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r SavingsSummary
			err := rows.Scan(&r.TotalSavings, &r.SavingsTransactions,
				&r.AverageSavingsPerTransaction, &r.MaxSingleSavings)
			return r, err
		},
	},
	{
		Slug: "shopping-times",
		// Bucket boundaries [0,6,12,18,24); the key is the lower bound.
		Query: `
			SELECT (EXTRACT(HOUR FROM transaction_datetime)::int / 6) * 6 AS hour_bucket,
			       ROUND(SUM(total), 2),
			       COUNT(*),
			       ROUND(AVG(total), 2)
			FROM receipts
			WHERE transaction_datetime IS NOT NULL
			GROUP BY 1
			ORDER BY 1`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r ShoppingTimeBucketRow
			err := rows.Scan(&r.HourBucket, &r.TotalSpent, &r.TransactionCount, &r.AverageSpend)
			return r, err
		},
	},
	{
		Slug: "top-items",
		Query: `
			SELECT COALESCE(i.description1, ''),
			       ROUND(SUM(i.amount), 2),
			       COUNT(*) AS times_purchased,
			       ROUND(AVG(i.amount), 2),
			       jsonb_agg(DISTINCT i.department),
			       COALESCE(jsonb_agg(DISTINCT r.warehouse_city)
			           FILTER (WHERE r.warehouse_city IS NOT NULL), '[]'::jsonb)
			FROM receipt_items i
			JOIN receipts r ON r.id = i.receipt_id
			WHERE i.amount > 0
			  AND (i.description1 IS NULL OR i.description1 NOT LIKE '/%')
			GROUP BY i.description1
			ORDER BY times_purchased DESC, 1
			LIMIT 15`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r TopItemRow
			err := rows.Scan(&r.Description, &r.TotalSpent, &r.TimesPurchased,
				&r.AveragePrice, &r.Departments, &r.Locations)
			return r, err
		},
	},
	{
		Slug: "payment-methods",
		Query: `
			SELECT t.tender_type,
			       ROUND(SUM(t.amount), 2),
			       COUNT(*),
			       COALESCE(jsonb_agg(DISTINCT t.account_display)
			           FILTER (WHERE t.account_display IS NOT NULL), '[]'::jsonb)
			FROM receipt_tenders t
			GROUP BY t.tender_type
			ORDER BY t.tender_type`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r PaymentMethodRow
			err := rows.Scan(&r.TenderType, &r.TotalTendered, &r.TransactionCount, &r.Accounts)
			return r, err
		},
	},
	{
		Slug: "monthly-spending-trends",
		Query: `
			SELECT to_char(r.transaction_date, 'YYYY-MM') AS month,
			       ROUND(SUM(r.total), 2),
			       COUNT(*),
			       ROUND(AVG(r.total), 2),
			       ROUND(SUM(r.instant_savings), 2),
			       SUM(r.item_count),
			       COALESCE(jsonb_agg(DISTINCT r.warehouse_state)
			           FILTER (WHERE r.warehouse_state IS NOT NULL), '[]'::jsonb)
			FROM receipts r
			WHERE r.transaction_date IS NOT NULL
			  AND r.total > 0
			GROUP BY 1
			ORDER BY 1`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r MonthlySpendingTrendRow
			err := rows.Scan(&r.Month, &r.TotalSpent, &r.TransactionCount,
				&r.AverageTransaction, &r.TotalSavings, &r.TotalItems, &r.States)
			return r, err
		},
	},
	{
		Slug: "product-category-deep-dive",
		Query: `
			SELECT ` + departmentCategoryCase("i.department") + ` AS category,
			       ROUND(SUM(i.amount), 2) AS total_spent,
			       COUNT(*),
			       COUNT(DISTINCT i.description1),
			       COUNT(DISTINCT i.department)
			FROM receipt_items i
			WHERE i.amount > 0
			  AND (i.description1 IS NULL OR i.description1 NOT LIKE '/%')
			GROUP BY 1
			ORDER BY total_spent DESC, 1`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r ProductCategoryRow
			err := rows.Scan(&r.Category, &r.TotalSpent, &r.ItemCount,
				&r.DistinctProducts, &r.DistinctDepartments)
			return r, err
		},
	},
	{
		Slug: "favorite-products",
		// The >= 2 threshold is strict: a single purchase never qualifies.
		Query: `
			SELECT COALESCE(i.item_number, ''),
			       i.item_name,
			       COUNT(*) AS purchase_count,
			       ROUND(SUM(i.amount), 2) AS total_spent,
			       ROUND(AVG(i.amount), 2),
			       COALESCE(to_char(MIN(r.transaction_date), 'YYYY-MM-DD'), ''),
			       COALESCE(to_char(MAX(r.transaction_date), 'YYYY-MM-DD'), ''),
			       jsonb_agg(DISTINCT i.department),
			       COALESCE(jsonb_agg(DISTINCT r.warehouse_city)
			           FILTER (WHERE r.warehouse_city IS NOT NULL), '[]'::jsonb)
			FROM receipt_items i
			JOIN receipts r ON r.id = i.receipt_id
			WHERE i.amount > 0
			  AND i.item_name IS NOT NULL AND i.item_name <> ''
			  AND (i.description1 IS NULL OR i.description1 NOT LIKE '/%')
			GROUP BY i.item_number, i.item_name
			HAVING COUNT(*) >= 2
			ORDER BY purchase_count DESC, total_spent DESC, i.item_name
			LIMIT 20`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r FavoriteProductRow
			err := rows.Scan(&r.ItemNumber, &r.ItemName, &r.PurchaseCount,
				&r.TotalSpent, &r.AveragePrice, &r.FirstPurchase, &r.LastPurchase,
				&r.Departments, &r.Locations)
			return r, err
		},
	},
	{
		Slug: "savings-coupon-analysis",
		Query: `
			SELECT ROUND(SUM(r.instant_savings), 2),
			       ROUND(SUM(r.total), 2),
			       ROUND(CASE WHEN SUM(r.total) > 0
			             THEN SUM(r.instant_savings) / SUM(r.total) ELSE 0 END, 4),
			       COUNT(*) FILTER (WHERE r.instant_savings > 0),
			       COUNT(*) FILTER (WHERE COALESCE(c.coupon_count, 0) > 0),
			       ROUND(AVG(r.instant_savings), 2),
			       ROUND(AVG(CASE WHEN r.total > 0
			             THEN r.instant_savings / r.total ELSE 0 END), 4),
			       ROUND(MAX(r.instant_savings), 2)
			FROM receipts r
			LEFT JOIN (
				SELECT receipt_id, COUNT(*) AS coupon_count
				FROM receipt_coupons
				GROUP BY receipt_id
			) c ON c.receipt_id = r.id
			WHERE r.total > 0
			HAVING COUNT(*) > 0`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r SavingsCouponSummary
			err := rows.Scan(&r.TotalSavings, &r.TotalSpent, &r.EffectiveSavingsRate,
				&r.TransactionsWithSavings, &r.TransactionsWithCoupons,
				&r.AverageSavings, &r.AverageSavingsRate, &r.MaxSingleSavings)
			return r, err
		},
	},
	{
		Slug: "shopping-location-patterns",
		Query: `
			SELECT COALESCE(r.warehouse_city, ''),
			       COALESCE(r.warehouse_state, ''),
			       ROUND(SUM(r.total), 2) AS total_spent,
			       COUNT(*),
			       ROUND(AVG(r.total), 2),
			       ROUND(SUM(r.instant_savings), 2),
			       COALESCE(to_char(MIN(r.transaction_date), 'YYYY-MM-DD'), ''),
			       COALESCE(to_char(MAX(r.transaction_date), 'YYYY-MM-DD'), '')
			FROM receipts r
			WHERE r.total > 0
			GROUP BY r.warehouse_city, r.warehouse_state
			ORDER BY total_spent DESC, 1, 2`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r LocationPatternRow
			err := rows.Scan(&r.City, &r.State, &r.TotalSpent, &r.TransactionCount,
				&r.AverageTransaction, &r.TotalSavings, &r.FirstVisit, &r.LastVisit)
			return r, err
		},
	},
	{
		Slug: "big-ticket-items",
		Query: `
			SELECT COALESCE(i.item_name, i.description1, ''),
			       ROUND(i.amount, 2),
			       i.department,
			       COALESCE(r.warehouse_city, ''),
			       COALESCE(r.warehouse_state, ''),
			       COALESCE(to_char(r.transaction_date, 'YYYY-MM-DD'), ''),
			       (r.transaction_type = 'Refund')
			FROM receipt_items i
			JOIN receipts r ON r.id = i.receipt_id
			WHERE i.amount >= 100
			  AND (i.description1 IS NULL OR i.description1 NOT LIKE '/%')
			ORDER BY i.amount DESC, i.id`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r BigTicketItemRow
			err := rows.Scan(&r.ItemName, &r.Amount, &r.Department, &r.City,
				&r.State, &r.Date, &r.Refunded)
			return r, err
		},
	},
	{
		Slug: "shopping-time-patterns",
		Query: `
			SELECT CASE WHEN t.h < 12 THEN 'Morning'
			            WHEN t.h < 17 THEN 'Afternoon'
			            WHEN t.h < 20 THEN 'Evening'
			            ELSE 'Night' END AS time_of_day,
			       COUNT(*) AS transaction_count,
			       ROUND(SUM(t.total), 2),
			       ROUND(AVG(t.total), 2),
			       ROUND(AVG(t.item_count), 1)
			FROM (
				SELECT EXTRACT(HOUR FROM transaction_datetime)::int AS h, total, item_count
				FROM receipts
				WHERE transaction_datetime IS NOT NULL
			) t
			GROUP BY 1
			ORDER BY transaction_count DESC, 1`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r ShoppingTimePatternRow
			err := rows.Scan(&r.TimeOfDay, &r.TransactionCount, &r.TotalSpent,
				&r.AverageSpend, &r.AverageItems)
			return r, err
		},
	},
	{
		Slug: "refund-analysis",
		// Most negative (largest refund) first.
		Query: `
			SELECT COALESCE(i.item_name, i.description1, ''),
			       i.department,
			       ROUND(SUM(i.amount), 2) AS total_refunded,
			       COUNT(*),
			       COALESCE(jsonb_agg(DISTINCT r.warehouse_city)
			           FILTER (WHERE r.warehouse_city IS NOT NULL), '[]'::jsonb),
			       COALESCE(jsonb_agg(DISTINCT to_char(r.transaction_date, 'YYYY-MM-DD'))
			           FILTER (WHERE r.transaction_date IS NOT NULL), '[]'::jsonb)
			FROM receipt_items i
			JOIN receipts r ON r.id = i.receipt_id
			WHERE r.transaction_type = 'Refund'
			  AND i.amount < 0
			GROUP BY 1, i.department
			ORDER BY total_refunded ASC, 1`,
		Scan: func(rows *sql.Rows) (any, error) {
			var r RefundRow
			err := rows.Scan(&r.ItemName, &r.Department, &r.TotalRefunded,
				&r.RefundCount, &r.Locations, &r.Dates)
			return r, err
		},
	},
}
