package adapter

import (
	"errors"
	"testing"

	"github.com/chainlens/chainlens/internal/config"
	"github.com/chainlens/chainlens/internal/ledger"
)

func testConfig() *config.Config {
	cfg := config.Default()
	lc := cfg.Ledgers[ledger.Ethereum]
	lc.APIKey = "testkey"
	cfg.Ledgers[ledger.Ethereum] = lc
	return cfg
}

func TestRegistryGetUnsupportedLedger(t *testing.T) {
	r := NewRegistry(testConfig(), testLogger())
	_, err := r.Get("ripple")
	if !errors.Is(err, ledger.ErrUnsupported) {
		t.Errorf("err = %v, want ledger.ErrUnsupported", err)
	}
}

func TestRegistryReusesInstances(t *testing.T) {
	r := NewRegistry(testConfig(), testLogger())

	a, err := r.Get(ledger.Bitcoin)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := r.Get(ledger.Bitcoin)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if a != b {
		t.Error("registry should return the same instance per ledger")
	}
}

func TestRegistryBuildsEveryConfiguredLedger(t *testing.T) {
	r := NewRegistry(testConfig(), testLogger())
	for _, id := range ledger.All {
		a, err := r.Get(id)
		if err != nil {
			t.Errorf("Get(%s): %v", id, err)
			continue
		}
		if a.Ledger() != id {
			t.Errorf("Ledger() = %s, want %s", a.Ledger(), id)
		}
	}
}

func TestRegistryMissingAPIKeyFailsFast(t *testing.T) {
	cfg := config.Default() // no ethereum API key
	r := NewRegistry(cfg, testLogger())

	_, err := r.Get(ledger.Ethereum)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestRegistryUnconfiguredLedger(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Ledgers, ledger.Dogecoin)
	r := NewRegistry(cfg, testLogger())

	_, err := r.Get(ledger.Dogecoin)
	if !errors.Is(err, ledger.ErrUnsupported) {
		t.Errorf("err = %v, want ledger.ErrUnsupported", err)
	}
}
