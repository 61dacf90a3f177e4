package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chainlens/chainlens/internal/httpx"
)

const (
	testEthHash = "0x" + "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	testEthAddr = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
)

func newTestEtherscan(t *testing.T, handler http.Handler) *EtherscanAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := httpx.NewClient(nil, nil, time.Second, testLogger())
	price := &priceClient{client: client, log: testLogger()}
	a, err := NewEtherscan(server.URL, "testkey", client, price, testLogger())
	if err != nil {
		t.Fatalf("NewEtherscan: %v", err)
	}
	return a
}

// envelope writes a success envelope around result.
func envelope(w http.ResponseWriter, result string) {
	fmt.Fprintf(w, `{"status":"1","message":"OK","result":%s}`, result)
}

func TestNewEtherscanRequiresAPIKey(t *testing.T) {
	_, err := NewEtherscan("https://example.org", "", nil, nil, testLogger())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestEtherscanAttachesAPIKey(t *testing.T) {
	var gotKey string
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		envelope(w, `"0xcf929"`)
	}))

	a.NetworkStats(context.Background())
	if gotKey != "testkey" {
		t.Errorf("apikey = %q, want testkey", gotKey)
	}
}

func TestEtherscanNetworkStats(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "eth_blockNumber":
			envelope(w, `"0xcf929"`) // 850217
		case "gasoracle":
			envelope(w, `{"ProposeGasPrice":"12"}`)
		default:
			http.NotFound(w, r)
		}
	}))

	stats := a.NetworkStats(context.Background())
	if stats.BlockHeight != "850217" {
		t.Errorf("BlockHeight = %s, want 850217", stats.BlockHeight)
	}
	if stats.GasPrice != "12" {
		t.Errorf("GasPrice = %s, want 12", stats.GasPrice)
	}
	// This backend has no hash-rate or difficulty source.
	if stats.HashRate != Unknown || stats.Difficulty != Unknown {
		t.Errorf("HashRate/Difficulty = %s/%s, want sentinels", stats.HashRate, stats.Difficulty)
	}
}

func TestEtherscanBlockByHeightUsesHexTag(t *testing.T) {
	var gotTag string
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTag = r.URL.Query().Get("tag")
		envelope(w, fmt.Sprintf(`{"hash":%q,"number":"0xcf929","transactions":[{"hash":"0xt1","value":"0xde0b6b3a7640000"}]}`, testEthHash))
	}))

	rec, err := a.Block(context.Background(), "850217")
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if gotTag != "0xcf929" {
		t.Errorf("tag = %s, want 0xcf929", gotTag)
	}
	if rec.Type != RecordBlock {
		t.Errorf("type = %s", rec.Type)
	}
	if _, ok := rec.Fields["transactions"]; ok {
		t.Error("bulk transactions array should not be preserved in fields")
	}
	if len(rec.Related) != 1 || rec.Related[0].Value != "1" {
		t.Errorf("related = %+v, want one 1-ETH summary", rec.Related)
	}
}

func TestEtherscanBlockNotFound(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, "null")
	}))

	_, err := a.Block(context.Background(), testEthHash)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEtherscanAddress(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "balance":
			envelope(w, `"2000000000000000000"`)
		case "txlist":
			envelope(w, `[{"hash":"0xt1","timeStamp":"1719000000","value":"1000000000000000000"}]`)
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := a.Address(context.Background(), testEthAddr)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if rec.Fields["balance"] != "2" {
		t.Errorf("balance = %v, want 2", rec.Fields["balance"])
	}
	if len(rec.Related) != 1 || rec.Related[0].Hash != "0xt1" || rec.Related[0].Time != 1719000000 {
		t.Errorf("related = %+v", rec.Related)
	}
}

func TestEtherscanAddressUpstreamErrorFailsWholeCall(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK: invalid API key","result":null}`)
	}))

	rec, err := a.Search(context.Background(), testEthAddr)
	var ue *httpx.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want no partial record", rec)
	}
}

func TestEtherscanEmptyHistoryIsNotAnError(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "balance":
			envelope(w, `"0"`)
		case "txlist":
			fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := a.Address(context.Background(), testEthAddr)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if len(rec.Related) != 0 {
		t.Errorf("related = %+v, want empty", rec.Related)
	}
}

func TestEtherscanTransactionEnrichmentFailureIsNotFatal(t *testing.T) {
	a := newTestEtherscan(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "eth_getTransactionByHash":
			envelope(w, fmt.Sprintf(`{"hash":%q,"from":%q,"value":"0x0"}`, testEthHash, testEthAddr))
		case "txlist":
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := a.Transaction(context.Background(), testEthHash)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if rec.Type != RecordTransaction {
		t.Errorf("type = %s", rec.Type)
	}
	if len(rec.Related) != 0 {
		t.Errorf("related = %+v, want empty", rec.Related)
	}
}

func TestIsEthHash(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{testEthHash, true},
		{strings.TrimPrefix(testEthHash, "0x"), false},
		{testEthHash[:64], false},
		{"0x" + strings.Repeat("zz", 32), false},
	}
	for _, tc := range tests {
		if got := isEthHash(tc.in); got != tc.want {
			t.Errorf("isEthHash(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
