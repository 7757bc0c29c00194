package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Receipt data lands here from an external ingestion job and is never mutated
// by this service. Line items, tender entries and coupons are explicit
// one-to-many relations so per-item reports keep their parent receipt fields
// through a plain JOIN.
const schemaSQL = `
	CREATE TABLE IF NOT EXISTS receipts (
		id BIGSERIAL PRIMARY KEY,
		barcode TEXT NOT NULL UNIQUE,
		transaction_date DATE,
		transaction_datetime TIMESTAMP,
		receipt_type TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		total NUMERIC(12,2) NOT NULL DEFAULT 0,
		subtotal NUMERIC(12,2) NOT NULL DEFAULT 0,
		taxes NUMERIC(12,2) NOT NULL DEFAULT 0,
		instant_savings NUMERIC(12,2) NOT NULL DEFAULT 0,
		warehouse_city TEXT,
		warehouse_state TEXT,
		item_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS receipt_items (
		id BIGSERIAL PRIMARY KEY,
		receipt_id BIGINT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL DEFAULT 0,
		item_number TEXT,
		item_name TEXT,
		description1 TEXT,
		description2 TEXT,
		quantity INTEGER NOT NULL DEFAULT 1,
		unit_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		department INTEGER NOT NULL DEFAULT 0,
		fuel_grade TEXT,
		fuel_gallons NUMERIC(10,3),
		image_url TEXT
	);

	CREATE TABLE IF NOT EXISTS receipt_tenders (
		id BIGSERIAL PRIMARY KEY,
		receipt_id BIGINT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL DEFAULT 0,
		tender_type TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		account_display TEXT
	);

	CREATE TABLE IF NOT EXISTS receipt_coupons (
		id BIGSERIAL PRIMARY KEY,
		receipt_id BIGINT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt_id ON receipt_items(receipt_id);
	CREATE INDEX IF NOT EXISTS idx_receipt_tenders_receipt_id ON receipt_tenders(receipt_id);
	CREATE INDEX IF NOT EXISTS idx_receipt_coupons_receipt_id ON receipt_coupons(receipt_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_type ON receipts(receipt_type);
	CREATE INDEX IF NOT EXISTS idx_receipts_date ON receipts(transaction_date);

	-- Relevance search over item name + both descriptions.
	ALTER TABLE receipt_items ADD COLUMN IF NOT EXISTS search_vector tsvector
		GENERATED ALWAYS AS (
			to_tsvector('english',
				coalesce(item_name, '') || ' ' ||
				coalesce(description1, '') || ' ' ||
				coalesce(description2, ''))
		) STORED;
	CREATE INDEX IF NOT EXISTS idx_receipt_items_search ON receipt_items USING GIN (search_vector);
`

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// demoReceipt mirrors one ingested receipt for seeding purposes only.
type demoReceipt struct {
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
	items    []demoItem
	tenders  []demoTender
	coupons  int
}

type demoItem struct {
	number      string
	name        string
	desc1       string
	desc2       string
	quantity    int
	unitPrice   float64
	amount      float64
	department  int
	fuelGrade   string
	fuelGallons float64
}

type demoTender struct {
	tType   string
	amount  float64
	account string
}

// Seed a small receipt corpus for local development and demos. Idempotent:
// will only run if there are zero receipts present. The corpus deliberately
// touches every report's edge: fuel lines, a refund with negative amounts,
// voided leading-slash descriptions, instant savings, coupons, repeat
// purchases, and a big-ticket line.
func seedDemoData(db *sql.DB) error {
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM receipts`).Scan(&cnt); err != nil {
		return fmt.Errorf("checking receipts count: %w", err)
	}
	if cnt > 0 {
		return nil
	}

	receipts := []demoReceipt{
		{
			date: "2024-05-04", datetime: "2024-05-04 10:42:00",
			rType: "In-Warehouse", txType: "Sale",
			total: 187.43, subtotal: 172.80, taxes: 17.63, savings: 3.00,
			city: "Seattle", state: "WA",
			items: []demoItem{
				{number: "1234567", name: "KS ORGANIC EGGS", desc1: "ORGANIC EGGS 24CT", quantity: 2, unitPrice: 7.99, amount: 15.98, department: 65},
				{number: "222333", name: "ROTISSERIE CHICKEN", desc1: "ROTISSERIE CHICKEN", quantity: 1, unitPrice: 4.99, amount: 4.99, department: 61},
				{number: "445566", name: "KS PAPER TOWELS", desc1: "PAPER TOWELS 12PK", desc2: "KIRKLAND SIGNATURE", quantity: 1, unitPrice: 21.99, amount: 21.99, department: 12},
				{number: "990011", name: "LG 55 INCH TV", desc1: "LG 55 UHD TV", quantity: 1, unitPrice: 129.87, amount: 129.87, department: 23},
				{number: "777001", name: "VOID LINE", desc1: "/VOIDED ITEM", quantity: 1, unitPrice: 14.60, amount: 14.60, department: 12},
			},
			tenders: []demoTender{{tType: "Visa", amount: 187.43, account: "************4321"}},
			coupons: 1,
		},
		{
			date: "2024-05-18", datetime: "2024-05-18 18:25:00",
			rType: "In-Warehouse", txType: "Sale",
			total: 64.12, subtotal: 59.37, taxes: 4.75, savings: 0,
			city: "Seattle", state: "WA",
			items: []demoItem{
				{number: "1234567", name: "KS ORGANIC EGGS", desc1: "ORGANIC EGGS 24CT", quantity: 1, unitPrice: 7.99, amount: 7.99, department: 65},
				{number: "334455", name: "DOG FOOD 40LB", desc1: "KS DOG FOOD 40LB", quantity: 1, unitPrice: 38.99, amount: 38.99, department: 14},
				{number: "556677", name: "MENS SOCKS 6PK", desc1: "MENS CREW SOCKS", quantity: 1, unitPrice: 12.39, amount: 12.39, department: 20},
			},
			tenders: []demoTender{{tType: "Costco Anywhere Visa", amount: 64.12, account: "************9876"}},
		},
		{
			date: "2024-06-02", datetime: "2024-06-02 07:55:00",
			rType: "Gas Station", txType: "Sale",
			total: 52.60, subtotal: 52.60, taxes: 0, savings: 0,
			city: "Tukwila", state: "WA",
			items: []demoItem{
				{number: "9", name: "REGULAR", desc1: "REGULAR GASOLINE", quantity: 1, unitPrice: 4.05, amount: 52.60, department: 91, fuelGrade: "Regular", fuelGallons: 12.988},
			},
			tenders: []demoTender{{tType: "Visa", amount: 52.60, account: "************4321"}},
		},
		{
			date: "2024-06-15", datetime: "2024-06-15 13:05:00",
			rType: "In-Warehouse", txType: "Refund",
			total: -129.87, subtotal: -129.87, taxes: 0, savings: 0,
			city: "Seattle", state: "WA",
			items: []demoItem{
				{number: "990011", name: "LG 55 INCH TV", desc1: "LG 55 UHD TV", quantity: 1, unitPrice: 129.87, amount: -129.87, department: 23},
			},
			tenders: []demoTender{{tType: "Visa", amount: -129.87, account: "************4321"}},
		},
		{
			date: "2024-06-29", datetime: "2024-06-29 20:40:00",
			rType: "In-Warehouse", txType: "Sale",
			total: 96.20, subtotal: 89.12, taxes: 10.08, savings: 3.00,
			city: "Tacoma", state: "WA",
			items: []demoItem{
				{number: "445566", name: "KS PAPER TOWELS", desc1: "PAPER TOWELS 12PK", desc2: "KIRKLAND SIGNATURE", quantity: 1, unitPrice: 21.99, amount: 21.99, department: 12},
				{number: "667788", name: "ALMOND BUTTER", desc1: "KS ALMOND BUTTER 27OZ", quantity: 2, unitPrice: 9.49, amount: 18.98, department: 13},
				{number: "889900", name: "VITAMIN D3", desc1: "VITAMIN D3 600CT", quantity: 1, unitPrice: 13.15, amount: 13.15, department: 39},
				{number: "112233", name: "LED DESK LAMP", desc1: "LED DESK LAMP", quantity: 1, unitPrice: 35.00, amount: 35.00, department: 27},
			},
			tenders: []demoTender{
				{tType: "Cash", amount: 40.00},
				{tType: "Visa", amount: 56.20, account: "************4321"},
			},
			coupons: 2,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, r := range receipts {
		var receiptID int64
		err := tx.QueryRow(`
			INSERT INTO receipts (barcode, transaction_date, transaction_datetime,
				receipt_type, transaction_type, total, subtotal, taxes,
				instant_savings, warehouse_city, warehouse_state, item_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			uuid.NewString(), r.date, r.datetime, r.rType, r.txType,
			r.total, r.subtotal, r.taxes, r.savings, r.city, r.state, len(r.items),
		).Scan(&receiptID)
		if err != nil {
			return fmt.Errorf("seeding demo receipt: %w", err)
		}

		for i, it := range r.items {
			var fuelGrade, desc2 any
			var fuelGallons any
			if it.fuelGrade != "" {
				fuelGrade = it.fuelGrade
				fuelGallons = it.fuelGallons
			}
			if it.desc2 != "" {
				desc2 = it.desc2
			}
			_, err := tx.Exec(`
				INSERT INTO receipt_items (receipt_id, seq, item_number, item_name,
					description1, description2, quantity, unit_price, amount,
					department, fuel_grade, fuel_gallons)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				receiptID, i, it.number, it.name, it.desc1, desc2,
				it.quantity, it.unitPrice, it.amount, it.department, fuelGrade, fuelGallons)
			if err != nil {
				return fmt.Errorf("seeding demo items: %w", err)
			}
		}

		for i, td := range r.tenders {
			var account any
			if td.account != "" {
				account = td.account
			}
			_, err := tx.Exec(`
				INSERT INTO receipt_tenders (receipt_id, seq, tender_type, amount, account_display)
				VALUES ($1, $2, $3, $4, $5)`,
				receiptID, i, td.tType, td.amount, account)
			if err != nil {
				return fmt.Errorf("seeding demo tenders: %w", err)
			}
		}

		for i := 0; i < r.coupons; i++ {
			if _, err := tx.Exec(`
				INSERT INTO receipt_coupons (receipt_id, seq) VALUES ($1, $2)`,
				receiptID, i); err != nil {
				return fmt.Errorf("seeding demo coupons: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
