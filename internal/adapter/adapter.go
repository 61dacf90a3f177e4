// Package adapter implements the per-ledger query adapters behind one
// capability contract, the search router that classifies raw input,
// and the registry that owns one adapter instance per ledger.
package adapter

import (
	"context"
	"errors"

	"github.com/chainlens/chainlens/internal/ledger"
)

// Common errors.
var (
	// ErrInvalidInput means the search string is malformed for the
	// target ledger (bad numeric height, pattern mismatch).
	ErrInvalidInput = errors.New("invalid input")

	// ErrHashNotFound means a hash-shaped query matched no block and
	// no transaction.
	ErrHashNotFound = errors.New("hash matched no block or transaction")

	// ErrNotFound means the backend reported the record does not
	// exist.
	ErrNotFound = errors.New("not found")
)

// Unknown is the sentinel for network-stats fields the backend cannot
// supply. It is reported explicitly rather than inventing numbers.
const Unknown = "unknown"

// Enrichment bounds.
const (
	relatedLimit  = 10 // related tx summaries attached to a record
	activityLimit = 5  // summaries returned by AddressActivity
)

// RecordType discriminates the normalized record variants.
type RecordType string

const (
	RecordBlock       RecordType = "block"
	RecordTransaction RecordType = "transaction"
	RecordAddress     RecordType = "address"
)

// TxSummary is a compact view of one transaction, newest first in any
// sequence that carries it.
type TxSummary struct {
	Hash  string `json:"hash"`
	Time  int64  `json:"time,omitempty"`
	Value string `json:"value,omitempty"`
}

// Record is the normalized result shape returned uniformly regardless
// of backend. Fields preserves the backend-specific payload as an open
// mapping; Related carries up to ten enrichment summaries.
type Record struct {
	Type    RecordType     `json:"type"`
	Ledger  ledger.ID      `json:"ledger"`
	Fields  map[string]any `json:"fields"`
	Related []TxSummary    `json:"related,omitempty"`
}

// NetworkStats is a best-effort snapshot of the backend network.
// Fields the backend cannot supply hold the Unknown sentinel.
type NetworkStats struct {
	BlockHeight string `json:"blockHeight"`
	HashRate    string `json:"hashRate"`
	Difficulty  string `json:"difficulty"`
	GasPrice    string `json:"gasPrice,omitempty"`
}

// Rules describes the input patterns of one ledger for the router.
type Rules struct {
	// IsHash reports whether s is shaped like a block or transaction
	// hash on this ledger.
	IsHash func(s string) bool

	// IsAddress reports whether s is shaped like an address. A nil
	// IsAddress means any input not matched earlier is treated as an
	// address.
	IsAddress func(s string) bool
}

// Adapter is the shared capability set of every ledger backend.
//
// Block, Transaction, and Address propagate primary-lookup failures;
// NetworkStats, Price, and AddressActivity never fail and degrade to
// sentinel, absent, or empty results instead.
type Adapter interface {
	// Ledger returns the ledger this adapter serves.
	Ledger() ledger.ID

	// NetworkStats returns a best-effort network snapshot.
	NetworkStats(ctx context.Context) *NetworkStats

	// Price returns the spot price in USD, or ok=false when the
	// quote endpoint fails or is not configured.
	Price(ctx context.Context) (float64, bool)

	// Block resolves "latest", a decimal height, or a block hash.
	Block(ctx context.Context, ref string) (*Record, error)

	// Transaction resolves a transaction id.
	Transaction(ctx context.Context, id string) (*Record, error)

	// Address resolves an address.
	Address(ctx context.Context, addr string) (*Record, error)

	// AddressActivity returns up to five recent transaction
	// summaries for addr, newest first. Failures yield an empty
	// slice.
	AddressActivity(ctx context.Context, addr string) []TxSummary

	// Search classifies raw input and resolves it.
	Search(ctx context.Context, raw string) (*Record, error)

	// Rules returns the classification patterns for this ledger.
	Rules() Rules
}
