package adapter

import (
	"fmt"
	"sync"

	"github.com/chainlens/chainlens/internal/config"
	"github.com/chainlens/chainlens/internal/httpx"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/internal/ratelimit"
	"github.com/chainlens/chainlens/pkg/logging"
)

// Registry owns one adapter instance per ledger for the life of the
// process. Adapters are created lazily on first request, each with its
// own cache and rate-limiter state; nothing is shared across ledgers.
type Registry struct {
	mu       sync.Mutex
	cfg      *config.Config
	log      *logging.Logger
	adapters map[ledger.ID]Adapter
}

// NewRegistry creates a registry over cfg.
func NewRegistry(cfg *config.Config, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Registry{
		cfg:      cfg,
		log:      log,
		adapters: make(map[ledger.ID]Adapter),
	}
}

// Get returns the adapter for id, constructing it on first use.
// Unknown or unconfigured ledgers fail with ledger.ErrUnsupported;
// construction errors (such as a missing API key) surface immediately
// rather than on first query.
func (r *Registry) Get(id ledger.ID) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[id]; ok {
		return a, nil
	}

	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnsupported, id)
	}
	lc, ok := r.cfg.Ledger(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no configuration", ledger.ErrUnsupported, id)
	}

	a, err := r.build(id, lc)
	if err != nil {
		return nil, err
	}

	r.adapters[id] = a
	r.log.Debug("adapter created", "ledger", id)
	return a, nil
}

// build assembles an adapter with instance-owned limiter, cache, and
// transport state.
func (r *Registry) build(id ledger.ID, lc config.LedgerConfig) (Adapter, error) {
	limiter := ratelimit.NewLimiter(lc.MinDelay)
	cache := httpx.NewCache(r.cfg.CacheTTL)
	client := httpx.NewClient(limiter, cache, r.cfg.RequestTimeout, r.log)
	price := &priceClient{client: client, baseURL: r.cfg.PriceURL, log: r.log.Component("price")}

	switch id {
	case ledger.Bitcoin:
		return NewBitcoin(lc.BaseURL, client, price, r.log), nil
	case ledger.Ethereum:
		return NewEtherscan(lc.BaseURL, lc.APIKey, client, price, r.log)
	case ledger.Dogecoin:
		return NewDogecoin(lc.BaseURL, client, price, r.log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnsupported, id)
	}
}
