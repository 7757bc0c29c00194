package main

import (
	"database/sql"
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

func jsonString(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling row: %v", err)
	}
	return string(data)
}

func TestCategoryForDepartment(t *testing.T) {
	tests := []struct {
		name string
		dept int
		want string
	}{
		{"fresh food produce", 65, "Fresh Food"},
		{"fresh food deli", 18, "Fresh Food"},
		{"fresh food bakery", 17, "Fresh Food"},
		{"fresh food dairy", 19, "Fresh Food"},
		{"pantry dry goods", 12, "Pantry"},
		{"pantry snacks", 13, "Pantry"},
		{"meat", 61, "Meat"},
		{"health", 39, "Health & Clothing"},
		{"clothing", 20, "Health & Clothing"},
		{"electronics", 23, "Electronics & Home"},
		{"home", 24, "Electronics & Home"},
		{"furniture", 27, "Electronics & Home"},
		{"pet supplies", 14, "Pet Supplies"},
		{"unmapped department", 99, "Other"},
		{"zero department", 0, "Other"},
		{"negative department", -1, "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categoryForDepartment(tt.dept); got != tt.want {
				t.Errorf("categoryForDepartment(%d) = %q, want %q", tt.dept, got, tt.want)
			}
		})
	}
}

func TestCategoryMappingIsTotal(t *testing.T) {
	valid := map[string]bool{
		"Fresh Food":         true,
		"Pantry":             true,
		"Meat":               true,
		"Health & Clothing":  true,
		"Electronics & Home": true,
		"Pet Supplies":       true,
		"Other":              true,
	}
	// Sweep a wide range of department numbers: every one must land in
	// exactly one of the seven buckets.
	for d := -10; d <= 200; d++ {
		if !valid[categoryForDepartment(d)] {
			t.Errorf("department %d mapped to unknown category %q", d, categoryForDepartment(d))
		}
	}
}

func TestDepartmentCategoryCase(t *testing.T) {
	sqlCase := departmentCategoryCase("i.department")

	if !strings.HasPrefix(sqlCase, "CASE i.department") {
		t.Errorf("expected CASE over column, got %q", sqlCase)
	}
	if !strings.HasSuffix(sqlCase, "ELSE 'Other' END") {
		t.Errorf("expected ELSE 'Other' END suffix, got %q", sqlCase)
	}
	for dept, cat := range departmentCategories {
		if !strings.Contains(sqlCase, "WHEN "+strconv.Itoa(dept)+" THEN '"+cat+"'") {
			t.Errorf("generated CASE missing department %d -> %q", dept, cat)
		}
	}
	// Stable output: map iteration order must not leak into the SQL text.
	if again := departmentCategoryCase("i.department"); again != sqlCase {
		t.Error("departmentCategoryCase is not deterministic")
	}
}

// The client requests these slugs; the registry must serve exactly this set.
var expectedReportSlugs = []string{
	"spending-patterns",
	"gas-analysis",
	"top-categories",
	"monthly-trends",
	"warehouse-tax",
	"savings",
	"shopping-times",
	"top-items",
	"payment-methods",
	"monthly-spending-trends",
	"product-category-deep-dive",
	"favorite-products",
	"savings-coupon-analysis",
	"shopping-location-patterns",
	"big-ticket-items",
	"shopping-time-patterns",
	"refund-analysis",
}

func TestReportRegistry(t *testing.T) {
	if len(reportDefs) != len(expectedReportSlugs) {
		t.Fatalf("expected %d reports, registry has %d", len(expectedReportSlugs), len(reportDefs))
	}

	seen := make(map[string]bool)
	for _, def := range reportDefs {
		if seen[def.Slug] {
			t.Errorf("duplicate report slug %q", def.Slug)
		}
		seen[def.Slug] = true

		if strings.TrimSpace(def.Query) == "" {
			t.Errorf("report %q has empty query", def.Slug)
		}
		if def.Scan == nil {
			t.Errorf("report %q has no scanner", def.Slug)
		}
		// Repeated calls must return identical bodies, so every report
		// needs a deterministic row order.
		if !strings.Contains(def.Query, "ORDER BY") {
			t.Errorf("report %q has no ORDER BY", def.Slug)
		}
	}

	for _, slug := range expectedReportSlugs {
		if _, ok := reportBySlug[slug]; !ok {
			t.Errorf("registry missing report %q", slug)
		}
	}
}

// --- storage-backed tests, gated on TEST_DATABASE_URL ---

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping storage-backed test")
	}

	config, err := pgx.ParseConfig(normalizeDatabaseURL(databaseURL))
	if err != nil {
		t.Fatalf("parsing TEST_DATABASE_URL: %v", err)
	}
	db := stdlib.OpenDB(*config)
	if err := db.Ping(); err != nil {
		t.Fatalf("pinging test database: %v", err)
	}
	if err := ensureSchema(db); err != nil {
		t.Fatalf("bootstrapping schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE receipts, receipt_items, receipt_tenders, receipt_coupons, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixtureReceipt struct {
	date     string
	datetime string
	rType    string
	txType   string
	total    float64
	subtotal float64
	taxes    float64
	savings  float64
	city     string
	state    string
	items    []fixtureItem
	coupons  int
}

type fixtureItem struct {
	number    string
	name      string
	desc1     string
	unitPrice float64
	amount    float64
	dept      int
}

func insertFixture(t *testing.T, db *sql.DB, r fixtureReceipt) {
	t.Helper()
	if r.rType == "" {
		r.rType = "In-Warehouse"
	}
	if r.txType == "" {
		r.txType = "Sale"
	}
	if r.datetime == "" && r.date != "" {
		r.datetime = r.date + " 12:00:00"
	}

	var receiptID int64
	err := db.QueryRow(`
		INSERT INTO receipts (barcode, transaction_date, transaction_datetime,
			receipt_type, transaction_type, total, subtotal, taxes,
			instant_savings, warehouse_city, warehouse_state, item_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		uuid.NewString(), r.date, r.datetime, r.rType, r.txType,
		r.total, r.subtotal, r.taxes, r.savings, r.city, r.state, len(r.items),
	).Scan(&receiptID)
	if err != nil {
		t.Fatalf("inserting fixture receipt: %v", err)
	}

	for i, it := range r.items {
		_, err := db.Exec(`
			INSERT INTO receipt_items (receipt_id, seq, item_number, item_name,
				description1, quantity, unit_price, amount, department)
			VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8)`,
			receiptID, i, it.number, it.name, it.desc1, it.unitPrice, it.amount, it.dept)
		if err != nil {
			t.Fatalf("inserting fixture item: %v", err)
		}
	}

	for i := 0; i < r.coupons; i++ {
		if _, err := db.Exec(`INSERT INTO receipt_coupons (receipt_id, seq) VALUES ($1, $2)`, receiptID, i); err != nil {
			t.Fatalf("inserting fixture coupon: %v", err)
		}
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestWarehouseTaxReport(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{
		date: "2024-01-10", total: 50.00, subtotal: 45.00, taxes: 5.00,
		city: "Seattle", state: "WA",
	})
	insertFixture(t, db, fixtureReceipt{
		date: "2024-01-20", total: 30.00, subtotal: 30.00, taxes: 0,
		city: "Seattle", state: "WA",
	})

	results, err := runReport(db, reportBySlug["warehouse-tax"])
	if err != nil {
		t.Fatalf("warehouse-tax: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 group, got %d", len(results))
	}

	row, ok := results[0].(WarehouseTaxRow)
	if !ok {
		t.Fatalf("unexpected row type %T", results[0])
	}
	if row.City != "Seattle" || row.State != "WA" {
		t.Errorf("unexpected group key %q/%q", row.City, row.State)
	}
	if !approxEqual(row.TotalSpent, 80.00) {
		t.Errorf("totalSpent = %v, want 80.00", row.TotalSpent)
	}
	if !approxEqual(row.TotalTaxes, 5.00) {
		t.Errorf("totalTaxes = %v, want 5.00", row.TotalTaxes)
	}
	if row.TransactionCount != 2 {
		t.Errorf("transactionCount = %d, want 2", row.TransactionCount)
	}
	// (5/45 + 0) / 2, rounded to four places. The zero-subtotal receipt
	// contributes 0 instead of dividing by zero.
	if !approxEqual(row.AverageTaxRate, 0.0556) {
		t.Errorf("averageTaxRate = %v, want 0.0556", row.AverageTaxRate)
	}
}

func TestSpendingPatternsPartitionsReceipts(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{date: "2024-01-01", rType: "In-Warehouse", total: 100.00, subtotal: 100.00})
	insertFixture(t, db, fixtureReceipt{date: "2024-01-02", rType: "In-Warehouse", total: 40.00, subtotal: 40.00})
	insertFixture(t, db, fixtureReceipt{date: "2024-01-03", rType: "Gas Station", total: 55.50, subtotal: 55.50})

	results, err := runReport(db, reportBySlug["spending-patterns"])
	if err != nil {
		t.Fatalf("spending-patterns: %v", err)
	}

	var totalSpent float64
	var totalCount int
	for _, res := range results {
		row := res.(SpendingPatternRow)
		totalSpent += row.TotalSpent
		totalCount += row.TransactionCount
	}
	// Grouping partitions: no receipt lost or double-counted.
	if !approxEqual(totalSpent, 195.50) {
		t.Errorf("sum of group totals = %v, want 195.50", totalSpent)
	}
	if totalCount != 3 {
		t.Errorf("sum of group counts = %d, want 3", totalCount)
	}
}

func TestFavoriteProductsThreshold(t *testing.T) {
	db := openTestDB(t)

	// Eggs purchased twice, chicken once.
	insertFixture(t, db, fixtureReceipt{date: "2024-02-01", total: 13.00, subtotal: 13.00, city: "Seattle", state: "WA",
		items: []fixtureItem{
			{number: "100", name: "KS ORGANIC EGGS", desc1: "EGGS", unitPrice: 7.99, amount: 7.99, dept: 65},
			{number: "200", name: "ROTISSERIE CHICKEN", desc1: "CHICKEN", unitPrice: 4.99, amount: 4.99, dept: 61},
		}})
	insertFixture(t, db, fixtureReceipt{date: "2024-02-15", total: 7.99, subtotal: 7.99, city: "Tacoma", state: "WA",
		items: []fixtureItem{
			{number: "100", name: "KS ORGANIC EGGS", desc1: "EGGS", unitPrice: 7.99, amount: 7.99, dept: 65},
		}})

	results, err := runReport(db, reportBySlug["favorite-products"])
	if err != nil {
		t.Fatalf("favorite-products: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(results))
	}

	row := results[0].(FavoriteProductRow)
	if row.ItemName != "KS ORGANIC EGGS" {
		t.Errorf("favorite = %q, want KS ORGANIC EGGS", row.ItemName)
	}
	if row.PurchaseCount != 2 {
		t.Errorf("purchaseCount = %d, want 2", row.PurchaseCount)
	}
	if row.FirstPurchase != "2024-02-01" || row.LastPurchase != "2024-02-15" {
		t.Errorf("purchase window = %q..%q, want 2024-02-01..2024-02-15", row.FirstPurchase, row.LastPurchase)
	}
}

func TestRefundAnalysisOnlyNegativeRefundLines(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{date: "2024-03-01", txType: "Refund", total: -129.87, subtotal: -129.87,
		city: "Seattle", state: "WA",
		items: []fixtureItem{
			{number: "300", name: "LG 55 INCH TV", desc1: "TV", unitPrice: 129.87, amount: -129.87, dept: 23},
			// Exchange line on the same refund receipt: positive, excluded.
			{number: "400", name: "HDMI CABLE", desc1: "CABLE", unitPrice: 15.00, amount: 15.00, dept: 23},
		}})
	insertFixture(t, db, fixtureReceipt{date: "2024-03-02", total: 20.00, subtotal: 20.00,
		items: []fixtureItem{
			{number: "500", name: "BANANAS", desc1: "BANANAS", unitPrice: 20.00, amount: 20.00, dept: 65},
		}})

	results, err := runReport(db, reportBySlug["refund-analysis"])
	if err != nil {
		t.Fatalf("refund-analysis: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 refund group, got %d", len(results))
	}

	row := results[0].(RefundRow)
	if row.ItemName != "LG 55 INCH TV" {
		t.Errorf("refunded item = %q, want LG 55 INCH TV", row.ItemName)
	}
	if !approxEqual(row.TotalRefunded, -129.87) {
		t.Errorf("totalRefunded = %v, want -129.87", row.TotalRefunded)
	}
	if row.RefundCount != 1 {
		t.Errorf("refundCount = %d, want 1", row.RefundCount)
	}
}

func TestTopItemsExcludesRefundsAndVoidedLines(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{date: "2024-04-01", total: 30.00, subtotal: 30.00,
		items: []fixtureItem{
			{number: "600", name: "PAPER TOWELS", desc1: "PAPER TOWELS 12PK", unitPrice: 21.99, amount: 21.99, dept: 12},
			{number: "601", name: "VOIDED", desc1: "/VOIDED ITEM", unitPrice: 9.99, amount: 9.99, dept: 12},
			{number: "602", name: "RETURNED", desc1: "RETURNED ITEM", unitPrice: 5.00, amount: -5.00, dept: 12},
		}})

	results, err := runReport(db, reportBySlug["top-items"])
	if err != nil {
		t.Fatalf("top-items: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 item row, got %d", len(results))
	}
	row := results[0].(TopItemRow)
	if row.Description != "PAPER TOWELS 12PK" {
		t.Errorf("description = %q, want PAPER TOWELS 12PK", row.Description)
	}
}

func TestSingletonReportsOnEmptyStore(t *testing.T) {
	db := openTestDB(t)

	for _, slug := range []string{"savings", "savings-coupon-analysis"} {
		results, err := runReport(db, reportBySlug[slug])
		if err != nil {
			t.Fatalf("%s on empty store: %v", slug, err)
		}
		if len(results) != 0 {
			t.Errorf("%s on empty store returned %d rows, want 0", slug, len(results))
		}
	}
}

func TestSavingsCouponAnalysis(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{date: "2024-05-01", total: 100.00, subtotal: 100.00, savings: 10.00, coupons: 1})
	insertFixture(t, db, fixtureReceipt{date: "2024-05-02", total: 100.00, subtotal: 100.00})

	results, err := runReport(db, reportBySlug["savings-coupon-analysis"])
	if err != nil {
		t.Fatalf("savings-coupon-analysis: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected singleton, got %d rows", len(results))
	}

	row := results[0].(SavingsCouponSummary)
	if !approxEqual(row.TotalSpent, 200.00) {
		t.Errorf("totalSpent = %v, want 200.00", row.TotalSpent)
	}
	if !approxEqual(row.EffectiveSavingsRate, 0.05) {
		t.Errorf("effectiveSavingsRate = %v, want 0.05", row.EffectiveSavingsRate)
	}
	if row.TransactionsWithSavings != 1 {
		t.Errorf("transactionsWithSavings = %d, want 1", row.TransactionsWithSavings)
	}
	if row.TransactionsWithCoupons != 1 {
		t.Errorf("transactionsWithCoupons = %d, want 1", row.TransactionsWithCoupons)
	}
}

func TestShoppingTimePatternBuckets(t *testing.T) {
	db := openTestDB(t)

	insertFixture(t, db, fixtureReceipt{date: "2024-06-01", datetime: "2024-06-01 09:30:00", total: 10.00, subtotal: 10.00})
	insertFixture(t, db, fixtureReceipt{date: "2024-06-02", datetime: "2024-06-02 13:00:00", total: 20.00, subtotal: 20.00})
	insertFixture(t, db, fixtureReceipt{date: "2024-06-03", datetime: "2024-06-03 19:59:00", total: 30.00, subtotal: 30.00})
	insertFixture(t, db, fixtureReceipt{date: "2024-06-04", datetime: "2024-06-04 22:00:00", total: 40.00, subtotal: 40.00})

	results, err := runReport(db, reportBySlug["shopping-time-patterns"])
	if err != nil {
		t.Fatalf("shopping-time-patterns: %v", err)
	}

	got := make(map[string]float64)
	for _, res := range results {
		row := res.(ShoppingTimePatternRow)
		got[row.TimeOfDay] = row.TotalSpent
	}
	want := map[string]float64{"Morning": 10.00, "Afternoon": 20.00, "Evening": 30.00, "Night": 40.00}
	for part, spend := range want {
		if !approxEqual(got[part], spend) {
			t.Errorf("%s spend = %v, want %v", part, got[part], spend)
		}
	}
}

func TestReportsAreIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := seedDemoData(db); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	for _, def := range reportDefs {
		first, err := runReport(db, def)
		if err != nil {
			t.Fatalf("%s first run: %v", def.Slug, err)
		}
		second, err := runReport(db, def)
		if err != nil {
			t.Fatalf("%s second run: %v", def.Slug, err)
		}
		if len(first) != len(second) {
			t.Errorf("%s returned %d then %d rows against an unmodified store", def.Slug, len(first), len(second))
			continue
		}
		for i := range first {
			a, b := jsonString(t, first[i]), jsonString(t, second[i])
			if a != b {
				t.Errorf("%s row %d differs between runs:\n%s\n%s", def.Slug, i, a, b)
			}
		}
	}
}
