package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainlens/chainlens/internal/httpx"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/pkg/helpers"
	"github.com/chainlens/chainlens/pkg/logging"
)

// DogecoinAdapter queries a Trezor Blockbook-style backend. All
// endpoints return structured JSON, and the block path accepts a hash
// or a height interchangeably.
type DogecoinAdapter struct {
	baseURL string
	client  *httpx.Client
	price   *priceClient
	log     *logging.Logger
}

// NewDogecoin creates the dogecoin adapter.
func NewDogecoin(baseURL string, client *httpx.Client, price *priceClient, log *logging.Logger) *DogecoinAdapter {
	return &DogecoinAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		price:   price,
		log:     log.Component("dogecoin"),
	}
}

// Ledger returns ledger.Dogecoin.
func (d *DogecoinAdapter) Ledger() ledger.ID {
	return ledger.Dogecoin
}

// Rules matches 64-hex-character hashes; anything else unclassified is
// an address.
func (d *DogecoinAdapter) Rules() Rules {
	return Rules{IsHash: isSha256Hex}
}

// NetworkStats reads the backend status document. The hash rate is not
// exposed by every instance and degrades to the Unknown sentinel.
func (d *DogecoinAdapter) NetworkStats(ctx context.Context) *NetworkStats {
	stats := &NetworkStats{
		BlockHeight: Unknown,
		HashRate:    Unknown,
		Difficulty:  Unknown,
	}

	body, err := d.get(ctx, "")
	if err != nil {
		d.log.Warn("status unavailable", "error", err)
		return stats
	}

	var status struct {
		Backend struct {
			Blocks     int64  `json:"blocks"`
			Difficulty string `json:"difficulty"`
			HashRate   string `json:"hashrate"`
		} `json:"backend"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		d.log.Warn("status malformed", "error", err)
		return stats
	}

	if status.Backend.Blocks > 0 {
		stats.BlockHeight = strconv.FormatInt(status.Backend.Blocks, 10)
	}
	if status.Backend.Difficulty != "" {
		stats.Difficulty = status.Backend.Difficulty
	}
	if status.Backend.HashRate != "" {
		stats.HashRate = status.Backend.HashRate
	}
	return stats
}

// Price returns the USD spot price, or ok=false.
func (d *DogecoinAdapter) Price(ctx context.Context) (float64, bool) {
	return d.price.Spot(ctx, ledger.Dogecoin)
}

// Block resolves "latest", a decimal height, or a block hash. The
// single /block path accepts hash or height; "latest" resolves the tip
// height through the status document first.
func (d *DogecoinAdapter) Block(ctx context.Context, ref string) (*Record, error) {
	if ref == "latest" {
		stats := d.NetworkStats(ctx)
		if stats.BlockHeight == Unknown {
			return nil, fmt.Errorf("%w: tip height unavailable", ErrNotFound)
		}
		ref = stats.BlockHeight
	}
	if isAllDigits(ref) {
		if _, err := strconv.ParseUint(ref, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: height %q", ErrInvalidInput, ref)
		}
	}

	body, err := d.get(ctx, "/block/"+ref)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}

	related := capSummaries(d.summaries(fieldObjects(fields, "txs")), relatedLimit)
	delete(fields, "txs")

	return &Record{
		Type:    RecordBlock,
		Ledger:  ledger.Dogecoin,
		Fields:  fields,
		Related: related,
	}, nil
}

// Transaction resolves a transaction id and enriches it with up to ten
// summaries from its containing block. A failed enrichment leaves the
// primary record with an empty list.
func (d *DogecoinAdapter) Transaction(ctx context.Context, id string) (*Record, error) {
	body, err := d.get(ctx, "/tx/"+id)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	rec := &Record{
		Type:   RecordTransaction,
		Ledger: ledger.Dogecoin,
		Fields: fields,
	}

	if blockHash := fieldString(fields, "blockHash"); blockHash != "" {
		rec.Related = d.blockTxs(ctx, blockHash)
	}
	return rec, nil
}

// blockTxs fetches summaries of the transactions in blockHash.
// Failures degrade to nil.
func (d *DogecoinAdapter) blockTxs(ctx context.Context, blockHash string) []TxSummary {
	body, err := d.get(ctx, "/block/"+blockHash)
	if err != nil {
		d.log.Warn("block enrichment failed", "block", blockHash, "error", err)
		return nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		d.log.Warn("block enrichment malformed", "block", blockHash, "error", err)
		return nil
	}
	return capSummaries(d.summaries(fieldObjects(fields, "txs")), relatedLimit)
}

// Address resolves an address. The basic document is the primary
// lookup; the transaction page is a secondary call that degrades to an
// empty list on failure.
func (d *DogecoinAdapter) Address(ctx context.Context, addr string) (*Record, error) {
	body, err := d.get(ctx, "/address/"+addr+"?details=basic")
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}

	rec := &Record{
		Type:   RecordAddress,
		Ledger: ledger.Dogecoin,
		Fields: fields,
	}

	rec.Related = d.addressTxs(ctx, addr, relatedLimit)
	return rec, nil
}

// AddressActivity returns up to five recent summaries for addr.
func (d *DogecoinAdapter) AddressActivity(ctx context.Context, addr string) []TxSummary {
	return d.addressTxs(ctx, addr, activityLimit)
}

// Search classifies raw input and resolves it through this adapter.
func (d *DogecoinAdapter) Search(ctx context.Context, raw string) (*Record, error) {
	return Search(ctx, d.log, d, raw)
}

// addressTxs fetches up to limit summaries for addr, newest first.
// Failures degrade to nil.
func (d *DogecoinAdapter) addressTxs(ctx context.Context, addr string, limit int) []TxSummary {
	body, err := d.get(ctx, fmt.Sprintf("/address/%s?details=txs&pageSize=%d", addr, limit))
	if err != nil {
		d.log.Warn("address activity unavailable", "address", addr, "error", err)
		return nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		d.log.Warn("address activity malformed", "address", addr, "error", err)
		return nil
	}
	return capSummaries(d.summaries(fieldObjects(fields, "transactions")), limit)
}

// summaries converts Blockbook tx objects to summaries. Values are
// decimal strings in the smallest unit.
func (d *DogecoinAdapter) summaries(txs []map[string]any) []TxSummary {
	out := make([]TxSummary, 0, len(txs))
	for _, tx := range txs {
		value := fieldString(tx, "value")
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			value = helpers.FormatAmount(v, 8)
		}
		out = append(out, TxSummary{
			Hash:  fieldString(tx, "txid"),
			Time:  fieldInt64(tx, "blockTime"),
			Value: value,
		})
	}
	return out
}

// get fetches path through the cached transport, translating an
// upstream 404 into ErrNotFound.
func (d *DogecoinAdapter) get(ctx context.Context, path string) ([]byte, error) {
	url := d.baseURL + path
	body, err := d.client.FetchCached(ctx, url, url)
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return body, nil
}

// Ensure DogecoinAdapter implements Adapter
var _ Adapter = (*DogecoinAdapter)(nil)
