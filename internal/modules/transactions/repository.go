// Package transactions implements the transaction repository over
// SQLite. It is the only place that knows the relational shape of the
// data; everything downstream consumes columnar datasets.
package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
)

const dateLayout = "2006-01-02"

// extraction describes one attribute join: the SQL to run and the
// dataset columns it produces, in order.
type extraction struct {
	query   string
	columns []dataset.ColumnSpec
}

func col(name string, kind dataset.Kind) dataset.ColumnSpec {
	return dataset.ColumnSpec{Name: name, Kind: kind}
}

// extractions mirrors the reference joins: each attribute pulls the
// transaction facts plus its reference table's descriptive columns,
// with totalPrice computed in SQL as quantity * unit_price.
var extractions = map[domain.Attribute]extraction{
	domain.AttributeSecurity: {
		query: `SELECT t.transaction_date, s.isin, s.name, s.type,
			t.quantity, t.unit_price, (t.quantity * t.unit_price) AS total_price
			FROM transactions t
			JOIN security s ON t.security_id = s.id
			ORDER BY t.id`,
		columns: []dataset.ColumnSpec{
			col("date", dataset.KindTime),
			col("isin", dataset.KindString),
			col("securityName", dataset.KindString),
			col("securityType", dataset.KindString),
			col("quantity", dataset.KindNumeric),
			col("unitPrice", dataset.KindNumeric),
			col("totalPrice", dataset.KindNumeric),
		},
	},
	domain.AttributeBroker: {
		query: `SELECT t.transaction_date, b.name, b.country,
			t.quantity, t.unit_price, (t.quantity * t.unit_price) AS total_price
			FROM transactions t
			JOIN broker b ON t.broker_id = b.id
			ORDER BY t.id`,
		columns: []dataset.ColumnSpec{
			col("date", dataset.KindTime),
			col("brokerName", dataset.KindString),
			col("brokerCountry", dataset.KindString),
			col("quantity", dataset.KindNumeric),
			col("unitPrice", dataset.KindNumeric),
			col("totalPrice", dataset.KindNumeric),
		},
	},
	domain.AttributeAccount: {
		query: `SELECT t.transaction_date, a.number, a.name,
			t.quantity, t.unit_price, (t.quantity * t.unit_price) AS total_price
			FROM transactions t
			JOIN account a ON t.account_id = a.id
			ORDER BY t.id`,
		columns: []dataset.ColumnSpec{
			col("date", dataset.KindTime),
			col("accountNumber", dataset.KindString),
			col("accountName", dataset.KindString),
			col("quantity", dataset.KindNumeric),
			col("unitPrice", dataset.KindNumeric),
			col("totalPrice", dataset.KindNumeric),
		},
	},
	domain.AttributeOrder: {
		query: `SELECT t.transaction_date, o.type,
			t.quantity, t.unit_price, (t.quantity * t.unit_price) AS total_price
			FROM transactions t
			JOIN order_type o ON t.order_id = o.id
			ORDER BY t.id`,
		columns: []dataset.ColumnSpec{
			col("date", dataset.KindTime),
			col("orderType", dataset.KindString),
			col("quantity", dataset.KindNumeric),
			col("unitPrice", dataset.KindNumeric),
			col("totalPrice", dataset.KindNumeric),
		},
	},
}

const fetchAllQuery = `SELECT t.transaction_date,
	s.isin, s.name, s.type,
	b.name, b.country,
	a.number, a.name,
	o.type,
	t.quantity, t.unit_price, (t.quantity * t.unit_price) AS total_price
	FROM transactions t
	JOIN security s ON t.security_id = s.id
	JOIN broker b ON t.broker_id = b.id
	JOIN account a ON t.account_id = a.id
	JOIN order_type o ON t.order_id = o.id
	ORDER BY t.id`

var fetchAllColumns = []dataset.ColumnSpec{
	col("date", dataset.KindTime),
	col("isin", dataset.KindString),
	col("securityName", dataset.KindString),
	col("securityType", dataset.KindString),
	col("brokerName", dataset.KindString),
	col("brokerCountry", dataset.KindString),
	col("accountNumber", dataset.KindString),
	col("accountName", dataset.KindString),
	col("orderType", dataset.KindString),
	col("quantity", dataset.KindNumeric),
	col("unitPrice", dataset.KindNumeric),
	col("totalPrice", dataset.KindNumeric),
}

// GroupColumn returns the dataset column an overview groups (and is
// enriched) by for the given attribute.
func GroupColumn(attribute domain.Attribute) string {
	switch attribute {
	case domain.AttributeSecurity:
		return "isin"
	case domain.AttributeBroker:
		return "brokerName"
	case domain.AttributeAccount:
		return "accountName"
	case domain.AttributeOrder:
		return "orderType"
	default:
		return ""
	}
}

// Repository implements domain.TransactionSource over SQLite.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a transaction repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// FetchByAttribute returns transactions joined with the reference
// table selected by attribute, as a columnar dataset. Unknown
// attributes fail with domain.ErrUnsupportedAttribute instead of
// silently returning an empty dataset.
func (r *Repository) FetchByAttribute(ctx context.Context, attribute domain.Attribute) (*dataset.Dataset, error) {
	ext, ok := extractions[attribute]
	if !ok {
		return nil, fmt.Errorf("attribute %q: %w", attribute, domain.ErrUnsupportedAttribute)
	}
	return r.extract(ctx, ext.query, ext.columns)
}

// FetchAll returns the fully joined transaction universe.
func (r *Repository) FetchAll(ctx context.Context) (*dataset.Dataset, error) {
	return r.extract(ctx, fetchAllQuery, fetchAllColumns)
}

// extract runs a query and pivots its rows into the given column
// layout.
func (r *Repository) extract(ctx context.Context, query string, layout []dataset.ColumnSpec) (*dataset.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	specs := make([]dataset.ColumnSpec, len(layout))
	for i, c := range layout {
		specs[i] = dataset.ColumnSpec{Name: c.Name, Kind: c.Kind, Values: []any{}}
	}

	count := 0
	for rows.Next() {
		holders := make([]any, len(layout))
		for i, c := range layout {
			switch c.Kind {
			case dataset.KindNumeric:
				holders[i] = new(sql.NullFloat64)
			default:
				// Dates are stored as ISO-8601 text and parsed below.
				holders[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		for i, c := range layout {
			specs[i].Values = append(specs[i].Values, r.cell(c, holders[i]))
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	r.log.Debug().Int("rows", count).Msg("Extracted transaction dataset")
	return dataset.New(specs...)
}

// cell converts one scanned value into its dataset representation;
// NULLs and unparseable dates become missing values.
func (r *Repository) cell(c dataset.ColumnSpec, holder any) any {
	switch c.Kind {
	case dataset.KindNumeric:
		v := holder.(*sql.NullFloat64)
		if !v.Valid {
			return nil
		}
		return v.Float64
	case dataset.KindTime:
		v := holder.(*sql.NullString)
		if !v.Valid {
			return nil
		}
		parsed, err := time.Parse(dateLayout, v.String)
		if err != nil {
			r.log.Warn().Str("column", c.Name).Str("value", v.String).
				Msg("Unparseable date, treating as missing")
			return nil
		}
		return parsed
	default:
		v := holder.(*sql.NullString)
		if !v.Valid {
			return nil
		}
		return v.String
	}
}
