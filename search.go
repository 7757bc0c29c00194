package main

import (
	"database/sql"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// minSearchLength is the minimum number of non-whitespace characters a query
// must contain before any storage is touched.
const minSearchLength = 2

const searchSelect = `
	SELECT COALESCE(to_char(r.transaction_date, 'YYYY-MM-DD'), ''),
	       COALESCE(to_char(r.transaction_datetime, 'YYYY-MM-DD"T"HH24:MI:SS'), ''),
	       COALESCE(r.warehouse_city, ''),
	       COALESCE(r.warehouse_state, ''),
	       r.receipt_type,
	       COALESCE(i.item_number, ''),
	       COALESCE(i.item_name, ''),
	       COALESCE(i.description1, ''),
	       COALESCE(i.description2, ''),
	       ROUND(i.amount, 2),
	       ROUND(i.unit_price, 2),
	       i.quantity,
	       i.department,
	       i.image_url
	FROM receipt_items i
	JOIN receipts r ON r.id = i.receipt_id
	WHERE i.amount > 0`

const fullTextSearchQuery = searchSelect + `
	  AND i.search_vector @@ plainto_tsquery('english', $1)
	ORDER BY ts_rank(i.search_vector, plainto_tsquery('english', $1)) DESC,
	         r.transaction_datetime DESC NULLS LAST,
	         i.id`

const substringSearchQuery = searchSelect + `
	  AND (i.item_name ILIKE $1 ESCAPE '\'
	    OR i.description1 ILIKE $1 ESCAPE '\'
	    OR i.description2 ILIKE $1 ESCAPE '\')
	ORDER BY r.transaction_datetime DESC NULLS LAST,
	         i.id`

// searchReceiptItems resolves a free-text query to purchased line items.
// Tier 1 is relevance-ranked full-text search; if it fails to execute, tier 2
// retries with a plain case-insensitive substring match. A tier-1 result that
// is merely empty is a valid zero-hit answer and does not trigger tier 2.
// Queries shorter than minSearchLength resolve to an empty list without
// touching the store.
func searchReceiptItems(db *sql.DB, log zerolog.Logger, query string) ([]ItemSearchResult, error) {
	query = strings.TrimSpace(query)
	if nonSpaceLen(query) < minSearchLength {
		return []ItemSearchResult{}, nil
	}

	results, err := runSearch(db, fullTextSearchQuery, query)
	if err == nil {
		return results, nil
	}
	log.Warn().Err(err).Str("query", query).Msg("full-text search failed, falling back to substring match")

	pattern := "%" + escapeLikePattern(query) + "%"
	return runSearch(db, substringSearchQuery, pattern)
}

func runSearch(db *sql.DB, sqlText, arg string) ([]ItemSearchResult, error) {
	rows, err := db.Query(sqlText, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	results := make([]ItemSearchResult, 0)

	for rows.Next() {
		var r ItemSearchResult
		err := rows.Scan(&r.Date, &r.DateTime, &r.City, &r.State, &r.ReceiptType,
			&r.ItemNumber, &r.ItemName, &r.Description1, &r.Description2,
			&r.Amount, &r.UnitPrice, &r.Quantity, &r.Department, &r.ImageURL)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// escapeLikePattern makes a user-supplied string safe to embed in a LIKE
// pattern: metacharacters match themselves, never act as wildcards.
func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
