package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chainlens/chainlens/internal/httpx"
)

func newTestBitcoin(t *testing.T, handler http.Handler) *BitcoinAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := httpx.NewClient(nil, nil, time.Second, testLogger())
	price := &priceClient{client: client, log: testLogger()}
	return NewBitcoin(server.URL, client, price, testLogger())
}

func TestBitcoinNetworkStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/q/getblockcount", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "850123")
	})
	mux.HandleFunc("/q/getdifficulty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "83148355189239.77")
	})
	// No /q/hashrate handler: that field degrades to the sentinel.

	b := newTestBitcoin(t, mux)
	stats := b.NetworkStats(context.Background())

	if stats.BlockHeight != "850123" {
		t.Errorf("BlockHeight = %s", stats.BlockHeight)
	}
	if stats.Difficulty != "83148355189239.77" {
		t.Errorf("Difficulty = %s", stats.Difficulty)
	}
	if stats.HashRate != Unknown {
		t.Errorf("HashRate = %s, want sentinel", stats.HashRate)
	}
}

func TestBitcoinBlockByHash(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rawblock/"+testHash, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"hash":%q,"height":850000,"time":1719000000,"tx":[`, testHash)
		for i := 0; i < 12; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"hash":"tx%02d","time":1719000000,"out":[{"value":150000000}]}`, i)
		}
		fmt.Fprint(w, `]}`)
	})

	b := newTestBitcoin(t, mux)
	rec, err := b.Block(context.Background(), testHash)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}

	if rec.Type != RecordBlock {
		t.Errorf("type = %s, want block", rec.Type)
	}
	if got := rec.Fields["hash"]; got != testHash {
		t.Errorf("hash field = %v", got)
	}
	if _, ok := rec.Fields["tx"]; ok {
		t.Error("bulk tx array should not be preserved in fields")
	}
	if len(rec.Related) != 10 {
		t.Fatalf("related = %d, want 10", len(rec.Related))
	}
	if rec.Related[0].Hash != "tx00" || rec.Related[0].Value != "1.5" {
		t.Errorf("first summary = %+v", rec.Related[0])
	}
}

func TestBitcoinBlockLatest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/q/latesthash", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testHash)
	})
	mux.HandleFunc("/rawblock/"+testHash, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"hash":%q,"height":850000}`, testHash)
	})

	b := newTestBitcoin(t, mux)
	rec, err := b.Block(context.Background(), "latest")
	if err != nil {
		t.Fatalf("Block(latest): %v", err)
	}
	if rec.Type != RecordBlock || rec.Fields["hash"] != testHash {
		t.Errorf("record = %+v", rec)
	}
}

func TestBitcoinBlockByHeight(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/block-height/850000", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"blocks":[{"hash":%q,"height":850000}]}`, testHash)
	})

	b := newTestBitcoin(t, mux)
	rec, err := b.Block(context.Background(), "850000")
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if rec.Fields["hash"] != testHash {
		t.Errorf("hash field = %v", rec.Fields["hash"])
	}
}

func TestBitcoinTransactionEnrichmentFailureIsNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rawtx/sometx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hash":"sometx","block_height":700000}`)
	})
	mux.HandleFunc("/block-height/700000", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	b := newTestBitcoin(t, mux)
	rec, err := b.Transaction(context.Background(), "sometx")
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if rec.Type != RecordTransaction {
		t.Errorf("type = %s", rec.Type)
	}
	if len(rec.Related) != 0 {
		t.Errorf("related = %v, want empty after failed enrichment", rec.Related)
	}
}

func TestBitcoinAddressListFailureIsNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rawaddr/1BoatSLRHtKNngkdXEeobR76b53LETtpyT", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "0" {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"address":"1BoatSLRHtKNngkdXEeobR76b53LETtpyT","final_balance":12345,"n_tx":7}`)
	})

	b := newTestBitcoin(t, mux)
	rec, err := b.Address(context.Background(), "1BoatSLRHtKNngkdXEeobR76b53LETtpyT")
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if rec.Type != RecordAddress {
		t.Errorf("type = %s", rec.Type)
	}
	if got := rec.Fields["n_tx"]; got != float64(7) {
		t.Errorf("n_tx = %v", got)
	}
	if len(rec.Related) != 0 {
		t.Errorf("related = %v, want empty after failed list fetch", rec.Related)
	}
}

func TestBitcoinAddressActivity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rawaddr/addr1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"address":"addr1","txs":[
			{"hash":"t1","time":300,"out":[{"value":100000000}]},
			{"hash":"t2","time":200,"out":[{"value":50000000}]}
		]}`)
	})

	b := newTestBitcoin(t, mux)
	acts := b.AddressActivity(context.Background(), "addr1")
	if len(acts) != 2 {
		t.Fatalf("activity = %d entries, want 2", len(acts))
	}
	if acts[0].Hash != "t1" || acts[0].Value != "1" {
		t.Errorf("first activity = %+v", acts[0])
	}
}

func TestBitcoinAddressActivityDegradesOnFailure(t *testing.T) {
	b := newTestBitcoin(t, http.NotFoundHandler())
	if acts := b.AddressActivity(context.Background(), "addr1"); len(acts) != 0 {
		t.Errorf("activity = %v, want empty", acts)
	}
}

func TestBitcoinTransactionNotFound(t *testing.T) {
	b := newTestBitcoin(t, http.NotFoundHandler())
	_, err := b.Transaction(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIsSha256Hex(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{testHash, true},
		{testHash[:63], false},
		{testHash + "0", false},
		{"x" + testHash[1:], false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isSha256Hex(tc.in); got != tc.want {
			t.Errorf("isSha256Hex(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
