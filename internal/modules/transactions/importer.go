package transactions

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
)

// expected CSV header, matching the broker export format:
// id,securityId,brokerId,accountId,date,orderId,quantity,unitPrice
const csvFieldCount = 8

// Importer loads transaction rows from a CSV export into the store.
type Importer struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewImporter creates a CSV importer.
func NewImporter(db *sql.DB, log zerolog.Logger) *Importer {
	return &Importer{
		db:  db,
		log: log.With().Str("component", "csv_import").Logger(),
	}
}

// Import reads CSV records and inserts them into the transactions
// table inside a single SQL transaction, so a malformed row rolls the
// whole import back. The first record is treated as a header and
// skipped. Returns the number of imported rows.
func (im *Importer) Import(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = csvFieldCount

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) <= 1 {
		return 0, nil
	}

	tx, err := im.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO transactions
		(id, security_id, broker_id, account_id, transaction_date, order_id, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for i, record := range records[1:] {
		row, err := parseRecord(record)
		if err != nil {
			return 0, fmt.Errorf("CSV row %d: %w", i+2, err)
		}
		if _, err := stmt.Exec(
			row.id, row.securityID, row.brokerID, row.accountID,
			row.date, row.orderID, row.quantity, row.unitPrice,
		); err != nil {
			return 0, fmt.Errorf("failed to insert CSV row %d: %w", i+2, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	im.log.Info().Int("rows", count).Msg("Imported transactions from CSV")
	return count, nil
}

type csvRow struct {
	id         int64
	securityID int64
	brokerID   int64
	accountID  int64
	date       string
	orderID    int64
	quantity   float64
	unitPrice  float64
}

func parseRecord(record []string) (csvRow, error) {
	var row csvRow
	var err error

	ints := []struct {
		field string
		value string
		dst   *int64
	}{
		{"id", record[0], &row.id},
		{"securityId", record[1], &row.securityID},
		{"brokerId", record[2], &row.brokerID},
		{"accountId", record[3], &row.accountID},
		{"orderId", record[5], &row.orderID},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.ParseInt(f.value, 10, 64); err != nil {
			return csvRow{}, fmt.Errorf("invalid %s %q", f.field, f.value)
		}
	}

	row.date = record[4]
	if row.quantity, err = strconv.ParseFloat(record[6], 64); err != nil {
		return csvRow{}, fmt.Errorf("invalid quantity %q", record[6])
	}
	if row.unitPrice, err = strconv.ParseFloat(record[7], 64); err != nil {
		return csvRow{}, fmt.Errorf("invalid unitPrice %q", record[7])
	}
	if row.unitPrice <= 0 {
		return csvRow{}, fmt.Errorf("unit price must be positive, got %v", row.unitPrice)
	}
	return row, nil
}
