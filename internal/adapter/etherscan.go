package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainlens/chainlens/internal/httpx"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/pkg/helpers"
	"github.com/chainlens/chainlens/pkg/logging"
)

// ErrMissingAPIKey is returned at construction when the metered
// backend has no API key configured. Failing fast here beats failing
// on the first query.
var ErrMissingAPIKey = errors.New("ethereum backend requires an api key")

// EtherscanAdapter queries an Etherscan-style metered backend. Every
// request carries the API key, and every response arrives in a
// {status, message, result} envelope; a non-success status is an
// upstream error regardless of the HTTP status code.
type EtherscanAdapter struct {
	baseURL string
	apiKey  string
	client  *httpx.Client
	price   *priceClient
	log     *logging.Logger
}

// NewEtherscan creates the ethereum adapter. apiKey must be non-empty.
func NewEtherscan(baseURL, apiKey string, client *httpx.Client, price *priceClient, log *logging.Logger) (*EtherscanAdapter, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &EtherscanAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		price:   price,
		log:     log.Component("ethereum"),
	}, nil
}

// Ledger returns ledger.Ethereum.
func (e *EtherscanAdapter) Ledger() ledger.ID {
	return ledger.Ethereum
}

// Rules matches 66-character 0x-prefixed hashes and 42-character
// 0x-prefixed addresses.
func (e *EtherscanAdapter) Rules() Rules {
	return Rules{
		IsHash:    isEthHash,
		IsAddress: common.IsHexAddress,
	}
}

// NetworkStats joins a block-number lookup and a gas-oracle lookup.
// Hash rate and difficulty have no source on this backend and always
// carry the Unknown sentinel.
func (e *EtherscanAdapter) NetworkStats(ctx context.Context) *NetworkStats {
	stats := &NetworkStats{
		BlockHeight: Unknown,
		HashRate:    Unknown,
		Difficulty:  Unknown,
		GasPrice:    Unknown,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result, err := e.call(ctx, url.Values{"module": {"proxy"}, "action": {"eth_blockNumber"}})
		if err != nil {
			e.log.Warn("block number unavailable", "error", err)
			return
		}
		var hexHeight string
		if json.Unmarshal(result, &hexHeight) == nil {
			stats.BlockHeight = strconv.FormatUint(helpers.HexToUint64(hexHeight), 10)
		}
	}()

	go func() {
		defer wg.Done()
		result, err := e.call(ctx, url.Values{"module": {"gastracker"}, "action": {"gasoracle"}})
		if err != nil {
			e.log.Warn("gas oracle unavailable", "error", err)
			return
		}
		var oracle struct {
			ProposeGasPrice string `json:"ProposeGasPrice"`
		}
		if json.Unmarshal(result, &oracle) == nil && oracle.ProposeGasPrice != "" {
			stats.GasPrice = oracle.ProposeGasPrice
		}
	}()

	wg.Wait()
	return stats
}

// Price returns the USD spot price, or ok=false.
func (e *EtherscanAdapter) Price(ctx context.Context) (float64, bool) {
	return e.price.Spot(ctx, ledger.Ethereum)
}

// Block resolves "latest", a decimal height, or a 0x block hash. The
// payload embeds its transactions; up to ten become enrichment
// summaries and the bulk array is dropped from the field mapping.
func (e *EtherscanAdapter) Block(ctx context.Context, ref string) (*Record, error) {
	params := url.Values{"module": {"proxy"}, "boolean": {"true"}}

	switch {
	case ref == "latest":
		params.Set("action", "eth_getBlockByNumber")
		params.Set("tag", "latest")
	case isAllDigits(ref):
		height, err := strconv.ParseUint(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: height %q", ErrInvalidInput, ref)
		}
		params.Set("action", "eth_getBlockByNumber")
		params.Set("tag", helpers.Uint64ToHex(height))
	default:
		params.Set("action", "eth_getBlockByHash")
		params.Set("hash", ref)
	}

	fields, err := e.object(ctx, params)
	if err != nil {
		return nil, err
	}

	related := capSummaries(e.summaries(fieldObjects(fields, "transactions")), relatedLimit)
	delete(fields, "transactions")

	return &Record{
		Type:    RecordBlock,
		Ledger:  ledger.Ethereum,
		Fields:  fields,
		Related: related,
	}, nil
}

// Transaction resolves a transaction hash and enriches it with the
// sender's recent transaction list. A failed enrichment leaves the
// primary record with an empty list.
func (e *EtherscanAdapter) Transaction(ctx context.Context, id string) (*Record, error) {
	fields, err := e.object(ctx, url.Values{
		"module": {"proxy"},
		"action": {"eth_getTransactionByHash"},
		"txhash": {id},
	})
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Type:   RecordTransaction,
		Ledger: ledger.Ethereum,
		Fields: fields,
	}

	if from := fieldString(fields, "from"); from != "" {
		rec.Related = e.accountTxs(ctx, from, relatedLimit)
	}
	return rec, nil
}

// Address resolves an address: the balance is the primary lookup, the
// transaction list a secondary one. Both are issued together; a
// balance failure fails the call, a list failure degrades to empty.
func (e *EtherscanAdapter) Address(ctx context.Context, addr string) (*Record, error) {
	var (
		wg      sync.WaitGroup
		balance string
		balErr  error
		related []TxSummary
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result, err := e.call(ctx, url.Values{
			"module":  {"account"},
			"action":  {"balance"},
			"address": {addr},
			"tag":     {"latest"},
		})
		if err != nil {
			balErr = err
			return
		}
		if json.Unmarshal(result, &balance) != nil {
			// Some envelopes carry the balance unquoted.
			balance = strings.TrimSpace(string(result))
		}
	}()
	go func() {
		defer wg.Done()
		related = e.accountTxs(ctx, addr, relatedLimit)
	}()
	wg.Wait()

	if balErr != nil {
		return nil, balErr
	}

	// Normalize to the EIP-55 checksum form for display.
	checksummed := common.HexToAddress(addr).Hex()

	return &Record{
		Type:   RecordAddress,
		Ledger: ledger.Ethereum,
		Fields: map[string]any{
			"address":    checksummed,
			"balanceWei": balance,
			"balance":    helpers.FormatBigAmount(decimalBig(balance), 18),
		},
		Related: related,
	}, nil
}

// AddressActivity returns up to five recent summaries for addr.
func (e *EtherscanAdapter) AddressActivity(ctx context.Context, addr string) []TxSummary {
	return e.accountTxs(ctx, addr, activityLimit)
}

// Search classifies raw input and resolves it through this adapter.
func (e *EtherscanAdapter) Search(ctx context.Context, raw string) (*Record, error) {
	return Search(ctx, e.log, e, raw)
}

// accountTxs fetches up to limit summaries for addr, newest first.
// Failures degrade to nil; the backend reports an empty history as a
// non-success envelope, which is treated as empty rather than failure.
func (e *EtherscanAdapter) accountTxs(ctx context.Context, addr string, limit int) []TxSummary {
	result, err := e.call(ctx, url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {addr},
		"page":    {"1"},
		"offset":  {strconv.Itoa(limit)},
		"sort":    {"desc"},
	})
	if err != nil {
		if !isEmptyHistory(err) {
			e.log.Warn("transaction list unavailable", "address", addr, "error", err)
		}
		return nil
	}

	var txs []map[string]any
	if err := json.Unmarshal(result, &txs); err != nil {
		e.log.Warn("transaction list malformed", "address", addr, "error", err)
		return nil
	}
	return capSummaries(e.summaries(txs), limit)
}

// summaries converts envelope tx objects to summaries. Values arrive
// either as decimal wei strings (account module) or hex quantities
// (proxy module).
func (e *EtherscanAdapter) summaries(txs []map[string]any) []TxSummary {
	out := make([]TxSummary, 0, len(txs))
	for _, tx := range txs {
		value := fieldString(tx, "value")
		if strings.HasPrefix(value, "0x") {
			value = helpers.FormatBigAmount(helpers.HexToBigInt(value), 18)
		} else {
			value = helpers.FormatBigAmount(decimalBig(value), 18)
		}

		var ts int64
		if s := fieldString(tx, "timeStamp"); s != "" {
			ts, _ = strconv.ParseInt(s, 10, 64)
		}

		out = append(out, TxSummary{
			Hash:  fieldString(tx, "hash"),
			Time:  ts,
			Value: value,
		})
	}
	return out
}

// object runs a call whose result is a single JSON object. A JSON null
// result means the record does not exist.
func (e *EtherscanAdapter) object(ctx context.Context, params url.Values) (map[string]any, error) {
	result, err := e.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if isJSONNull(result) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, params.Get("action"))
	}
	fields, err := decodeFields(result)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", params.Get("action"), err)
	}
	return fields, nil
}

// call performs one enveloped request. The API key is attached to
// every call; a non-success envelope status maps to an upstream error
// carrying the envelope message.
func (e *EtherscanAdapter) call(ctx context.Context, params url.Values) (json.RawMessage, error) {
	params.Set("apikey", e.apiKey)
	full := e.baseURL + "?" + params.Encode()

	// Cache key excludes the API key so rotating it keeps entries.
	params.Del("apikey")
	key := e.baseURL + "?" + params.Encode()

	body, err := e.client.FetchCached(ctx, key, full)
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, params.Get("action"))
		}
		return nil, err
	}

	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	if envelope.Status != "1" {
		return nil, &httpx.UpstreamError{Message: envelope.Message}
	}
	return envelope.Result, nil
}

// isEmptyHistory recognizes the envelope the backend uses for an
// address with no transactions.
func isEmptyHistory(err error) bool {
	var ue *httpx.UpstreamError
	return errors.As(err, &ue) && strings.Contains(strings.ToLower(ue.Message), "no transactions found")
}

// isEthHash reports whether s is a 0x-prefixed 32-byte hex hash.
func isEthHash(s string) bool {
	return len(s) == 66 && strings.HasPrefix(s, "0x") && helpers.IsHex(s[2:])
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decimalBig parses a decimal string into a big.Int, returning zero on
// malformed input.
func decimalBig(s string) *big.Int {
	v := new(big.Int)
	if _, ok := v.SetString(strings.TrimSpace(s), 10); !ok {
		return new(big.Int)
	}
	return v
}

// Ensure EtherscanAdapter implements Adapter
var _ Adapter = (*EtherscanAdapter)(nil)
