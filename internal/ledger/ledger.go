// Package ledger defines the identifiers for the supported ledger networks.
// All ledger-specific identity values are hardcoded here - adapters and
// configuration key off these IDs.
package ledger

import "errors"

// ErrUnsupported is returned when an unknown ledger ID is requested.
var ErrUnsupported = errors.New("unsupported ledger")

// ID identifies a supported ledger network.
type ID string

const (
	Bitcoin  ID = "bitcoin"
	Ethereum ID = "ethereum"
	Dogecoin ID = "dogecoin"
)

// All lists the supported ledgers in a stable order.
var All = []ID{Bitcoin, Ethereum, Dogecoin}

// params holds display and quote identity for a ledger.
type params struct {
	name     string
	symbol   string
	priceKey string // identifier used by the shared price-quote endpoint
}

var table = map[ID]params{
	Bitcoin:  {name: "Bitcoin", symbol: "BTC", priceKey: "bitcoin"},
	Ethereum: {name: "Ethereum", symbol: "ETH", priceKey: "ethereum"},
	Dogecoin: {name: "Dogecoin", symbol: "DOGE", priceKey: "dogecoin"},
}

// Valid reports whether the ID names a supported ledger.
func (id ID) Valid() bool {
	_, ok := table[id]
	return ok
}

// Name returns the human-readable network name.
func (id ID) Name() string {
	return table[id].name
}

// Symbol returns the ticker symbol (BTC, ETH, DOGE).
func (id ID) Symbol() string {
	return table[id].symbol
}

// PriceKey returns the identifier the price-quote endpoint uses for
// this ledger.
func (id ID) PriceKey() string {
	return table[id].priceKey
}

// Parse converts a raw string into a ledger ID.
func Parse(s string) (ID, error) {
	id := ID(s)
	if !id.Valid() {
		return "", ErrUnsupported
	}
	return id, nil
}
