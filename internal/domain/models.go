// Package domain provides core domain models and the interfaces the
// analytics pipeline consumes. External collaborators (the transaction
// store, the market-data provider) are only ever seen through the
// interfaces defined here.
package domain

import "time"

// Attribute selects which reference table transactions are joined with
// when extracting a dataset.
type Attribute string

const (
	// AttributeSecurity joins transactions with their security (ISIN) record.
	AttributeSecurity Attribute = "security"
	// AttributeBroker joins transactions with their broker record.
	AttributeBroker Attribute = "broker"
	// AttributeAccount joins transactions with their account record.
	AttributeAccount Attribute = "account"
	// AttributeOrder joins transactions with their order-type record.
	AttributeOrder Attribute = "order"
)

// SecurityType represents the type of financial instrument.
type SecurityType string

const (
	SecurityTypeStock SecurityType = "STOCK"
	SecurityTypeFund  SecurityType = "OPCVM"
	SecurityTypeETF   SecurityType = "ETF"
)

// Security identifies a tradable instrument. ISIN is the external
// identifier used as the lookup key against the price oracle.
type Security struct {
	ID   int64        `json:"id"`
	ISIN string       `json:"isin"`
	Name string       `json:"name"`
	Type SecurityType `json:"type"`
}

// Transaction is one immutable buy or sell record. Quantity is
// negative for sells; UnitPrice is always positive.
type Transaction struct {
	ID         int64     `json:"id"`
	SecurityID int64     `json:"security_id"`
	BrokerID   int64     `json:"broker_id"`
	AccountID  int64     `json:"account_id"`
	OrderID    int64     `json:"order_id"`
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
}

// Quote is a point-in-time price observation from the price oracle.
type Quote struct {
	Price float64   `json:"price"`
	AsOf  time.Time `json:"as_of"`
}

// QuoteResult pairs a quote with its per-identifier outcome, used by
// batch oracle lookups where one failing identifier must not sink the
// rest of the batch.
type QuoteResult struct {
	Quote Quote
	Err   error
}

// PriceResult is the previous-close analogue of QuoteResult.
type PriceResult struct {
	Price float64
	Err   error
}
