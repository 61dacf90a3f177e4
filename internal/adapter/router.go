package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/chainlens/chainlens/pkg/logging"
)

// Search classifies raw input and resolves it through a, in strict
// priority order: the "latest" literal, a ledger-shaped hash, an
// all-digits height, and finally an address.
//
// Hash-shaped input is ambiguous between the block and transaction
// namespaces, so it is resolved block-first: the block lookup is
// attempted, and only on its failure is the transaction lookup tried
// with the identical string. Both failing yields ErrHashNotFound. The
// block miss is an expected branch, not an error condition.
func Search(ctx context.Context, log *logging.Logger, a Adapter, raw string) (*Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}

	qid := uuid.NewString()
	log = log.With("query", qid, "ledger", a.Ledger())

	if raw == "latest" {
		log.Debug("classified as latest block")
		return a.Block(ctx, "latest")
	}

	rules := a.Rules()

	if rules.IsHash != nil && rules.IsHash(raw) {
		log.Debug("classified as hash, trying block namespace first")
		rec, err := a.Block(ctx, raw)
		if err == nil {
			return rec, nil
		}

		log.Debug("no block for hash, trying transaction namespace")
		rec, err = a.Transaction(ctx, raw)
		if err == nil {
			return rec, nil
		}

		return nil, fmt.Errorf("%w: %s", ErrHashNotFound, raw)
	}

	if isAllDigits(raw) {
		if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: height %q out of range", ErrInvalidInput, raw)
		}
		log.Debug("classified as block height")
		return a.Block(ctx, raw)
	}

	if rules.IsAddress != nil && !rules.IsAddress(raw) {
		return nil, fmt.Errorf("%w: %q is not a hash, height, or address", ErrInvalidInput, raw)
	}

	log.Debug("classified as address")
	return a.Address(ctx, raw)
}

// isAllDigits reports whether s consists only of decimal digits.
// A leading sign disqualifies the numeric path.
func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
