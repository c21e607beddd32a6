package transactions

import (
	"database/sql"
	"fmt"
)

// Schema for the transaction store: one fact table plus the reference
// tables the extraction queries join against. "order_type" avoids the
// ORDER reserved word.
const schema = `
CREATE TABLE IF NOT EXISTS account (
	id INTEGER PRIMARY KEY,
	number TEXT NOT NULL,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS broker (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	country TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_type (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS security (
	id INTEGER PRIMARY KEY,
	isin TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY,
	security_id INTEGER NOT NULL,
	broker_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	order_id INTEGER NOT NULL,
	transaction_date TEXT NOT NULL,
	quantity REAL NOT NULL,
	unit_price REAL NOT NULL,
	FOREIGN KEY (security_id) REFERENCES security (id),
	FOREIGN KEY (broker_id) REFERENCES broker (id),
	FOREIGN KEY (account_id) REFERENCES account (id),
	FOREIGN KEY (order_id) REFERENCES order_type (id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_security ON transactions (security_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date);
`

// seed holds the reference rows. INSERT OR IGNORE keeps the migration
// idempotent across restarts.
const seed = `
INSERT OR IGNORE INTO account (id, number, name) VALUES
	(1, '508TI00083440250EUR', 'PEA'),
	(2, '508TI00084026141EUR', 'PEA-PME'),
	(3, '0422720001', 'CTO');

INSERT OR IGNORE INTO broker (id, name, country) VALUES
	(1, 'BourseDirect', 'FRANCE'),
	(2, 'TradeRepublic', 'GERMANY');

INSERT OR IGNORE INTO order_type (id, type) VALUES
	(1, 'BUY'),
	(2, 'SELL');

INSERT OR IGNORE INTO security (id, isin, name, type) VALUES
	(1, 'LU0131510165', 'Independance et Expansion France Small A', 'OPCVM'),
	(2, 'LU1964632324', 'Independance et Expansion France Small I', 'OPCVM'),
	(3, 'LU1832174962', 'Independance et Expansion Europe Small A', 'OPCVM'),
	(4, 'LU1832175001', 'Independance et Expansion Europe Small I', 'OPCVM'),
	(5, 'US0846707026', 'Berkshire Hathaway Inc.', 'STOCK'),
	(6, 'US5705351048', 'Markel Group Inc.', 'STOCK');
`

// Migrate creates the schema and seeds the reference tables.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create transactions schema: %w", err)
	}
	if _, err := db.Exec(seed); err != nil {
		return fmt.Errorf("failed to seed reference tables: %w", err)
	}
	return nil
}
