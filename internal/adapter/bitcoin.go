package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chainlens/chainlens/internal/httpx"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/pkg/helpers"
	"github.com/chainlens/chainlens/pkg/logging"
)

// BitcoinAdapter queries a blockchain.info-style backend. The /q/
// endpoints return raw text (a height, a hash, a difficulty) rather
// than structured payloads; the /rawblock, /rawtx, and /rawaddr
// endpoints return JSON.
type BitcoinAdapter struct {
	baseURL string
	client  *httpx.Client
	price   *priceClient
	log     *logging.Logger
}

// NewBitcoin creates the bitcoin adapter. The transport client owns
// this adapter's cache and rate-limiter state.
func NewBitcoin(baseURL string, client *httpx.Client, price *priceClient, log *logging.Logger) *BitcoinAdapter {
	return &BitcoinAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		price:   price,
		log:     log.Component("bitcoin"),
	}
}

// Ledger returns ledger.Bitcoin.
func (b *BitcoinAdapter) Ledger() ledger.ID {
	return ledger.Bitcoin
}

// Rules matches 64-hex-character hashes; anything else unclassified is
// an address.
func (b *BitcoinAdapter) Rules() Rules {
	return Rules{IsHash: isSha256Hex}
}

// NetworkStats fetches height, difficulty, and hash rate as three
// joined raw-text lookups. A failed lookup degrades its field to the
// Unknown sentinel.
func (b *BitcoinAdapter) NetworkStats(ctx context.Context) *NetworkStats {
	stats := &NetworkStats{
		BlockHeight: Unknown,
		HashRate:    Unknown,
		Difficulty:  Unknown,
	}

	fetch := func(path string, dst *string) {
		body, err := b.get(ctx, path)
		if err != nil {
			b.log.Warn("network stat unavailable", "path", path, "error", err)
			return
		}
		*dst = strings.TrimSpace(string(body))
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); fetch("/q/getblockcount", &stats.BlockHeight) }()
	go func() { defer wg.Done(); fetch("/q/getdifficulty", &stats.Difficulty) }()
	go func() { defer wg.Done(); fetch("/q/hashrate", &stats.HashRate) }()
	wg.Wait()

	return stats
}

// Price returns the USD spot price, or ok=false.
func (b *BitcoinAdapter) Price(ctx context.Context) (float64, bool) {
	return b.price.Spot(ctx, ledger.Bitcoin)
}

// Block resolves "latest", a decimal height, or a block hash. The
// block payload embeds its transactions; up to ten become enrichment
// summaries and the bulk array is dropped from the open field mapping.
func (b *BitcoinAdapter) Block(ctx context.Context, ref string) (*Record, error) {
	var fields map[string]any

	switch {
	case ref == "latest":
		// The latest-hash endpoint returns the tip hash as raw text.
		body, err := b.get(ctx, "/q/latesthash")
		if err != nil {
			return nil, err
		}
		return b.Block(ctx, strings.TrimSpace(string(body)))

	case isAllDigits(ref):
		if _, err := strconv.ParseUint(ref, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: height %q", ErrInvalidInput, ref)
		}
		body, err := b.get(ctx, "/block-height/"+ref+"?format=json")
		if err != nil {
			return nil, err
		}
		page, err := decodeFields(body)
		if err != nil {
			return nil, fmt.Errorf("decode block page: %w", err)
		}
		blocks := fieldObjects(page, "blocks")
		if len(blocks) == 0 {
			return nil, fmt.Errorf("%w: block height %s", ErrNotFound, ref)
		}
		fields = blocks[0]

	default:
		body, err := b.get(ctx, "/rawblock/"+ref)
		if err != nil {
			return nil, err
		}
		var derr error
		fields, derr = decodeFields(body)
		if derr != nil {
			return nil, fmt.Errorf("decode block: %w", derr)
		}
	}

	related := capSummaries(b.summaries(fieldObjects(fields, "tx")), relatedLimit)
	delete(fields, "tx")

	return &Record{
		Type:    RecordBlock,
		Ledger:  ledger.Bitcoin,
		Fields:  fields,
		Related: related,
	}, nil
}

// Transaction resolves a transaction id and enriches it with up to ten
// summaries from its containing block. A failed enrichment leaves the
// primary record with an empty list.
func (b *BitcoinAdapter) Transaction(ctx context.Context, id string) (*Record, error) {
	body, err := b.get(ctx, "/rawtx/"+id)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	rec := &Record{
		Type:   RecordTransaction,
		Ledger: ledger.Bitcoin,
		Fields: fields,
	}

	if height := fieldInt64(fields, "block_height"); height > 0 {
		rec.Related = b.blockSummaries(ctx, height)
	}
	return rec, nil
}

// blockSummaries fetches summaries of the transactions in the block at
// height. Failures degrade to nil.
func (b *BitcoinAdapter) blockSummaries(ctx context.Context, height int64) []TxSummary {
	body, err := b.get(ctx, fmt.Sprintf("/block-height/%d?format=json", height))
	if err != nil {
		b.log.Warn("block enrichment failed", "height", height, "error", err)
		return nil
	}
	page, err := decodeFields(body)
	if err != nil {
		b.log.Warn("block enrichment malformed", "height", height, "error", err)
		return nil
	}
	blocks := fieldObjects(page, "blocks")
	if len(blocks) == 0 {
		return nil
	}
	return capSummaries(b.summaries(fieldObjects(blocks[0], "tx")), relatedLimit)
}

// Address resolves an address. The balance fields are the primary
// lookup; the transaction list is a secondary call that degrades to an
// empty list on failure.
func (b *BitcoinAdapter) Address(ctx context.Context, addr string) (*Record, error) {
	body, err := b.get(ctx, "/rawaddr/"+addr+"?limit=0")
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	delete(fields, "txs")

	rec := &Record{
		Type:   RecordAddress,
		Ledger: ledger.Bitcoin,
		Fields: fields,
	}

	rec.Related = b.addressTxs(ctx, addr, relatedLimit)
	return rec, nil
}

// AddressActivity returns up to five recent summaries for addr.
func (b *BitcoinAdapter) AddressActivity(ctx context.Context, addr string) []TxSummary {
	return b.addressTxs(ctx, addr, activityLimit)
}

// Search classifies raw input and resolves it through this adapter.
func (b *BitcoinAdapter) Search(ctx context.Context, raw string) (*Record, error) {
	return Search(ctx, b.log, b, raw)
}

// addressTxs fetches up to limit transaction summaries for addr,
// newest first. Failures degrade to nil.
func (b *BitcoinAdapter) addressTxs(ctx context.Context, addr string, limit int) []TxSummary {
	body, err := b.get(ctx, fmt.Sprintf("/rawaddr/%s?limit=%d", addr, limit))
	if err != nil {
		b.log.Warn("address activity unavailable", "address", addr, "error", err)
		return nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		b.log.Warn("address activity malformed", "address", addr, "error", err)
		return nil
	}
	return capSummaries(b.summaries(fieldObjects(fields, "txs")), limit)
}

// summaries converts blockchain.info tx objects to summaries. The
// value is the sum of the outputs in satoshis, formatted as BTC.
func (b *BitcoinAdapter) summaries(txs []map[string]any) []TxSummary {
	out := make([]TxSummary, 0, len(txs))
	for _, tx := range txs {
		var total uint64
		for _, o := range fieldObjects(tx, "out") {
			total += uint64(fieldInt64(o, "value"))
		}
		out = append(out, TxSummary{
			Hash:  fieldString(tx, "hash"),
			Time:  fieldInt64(tx, "time"),
			Value: helpers.FormatAmount(total, 8),
		})
	}
	return out
}

// get fetches path through the cached transport, translating an
// upstream 404 into ErrNotFound.
func (b *BitcoinAdapter) get(ctx context.Context, path string) ([]byte, error) {
	url := b.baseURL + path
	body, err := b.client.FetchCached(ctx, url, url)
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return body, nil
}

// isSha256Hex reports whether s is a 64-character hex hash.
func isSha256Hex(s string) bool {
	if len(s) != chainhash.MaxHashStringSize {
		return false
	}
	_, err := chainhash.NewHashFromStr(s)
	return err == nil
}

// Ensure BitcoinAdapter implements Adapter
var _ Adapter = (*BitcoinAdapter)(nil)
