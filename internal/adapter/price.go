package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainlens/chainlens/internal/httpx"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/pkg/logging"
)

// priceClient fetches spot quotes from the shared price endpoint.
// Price is decorative: every failure degrades to absent with a warn
// log, never an error.
type priceClient struct {
	client  *httpx.Client
	baseURL string
	log     *logging.Logger
}

// Spot returns the USD spot price for id, or ok=false.
func (p *priceClient) Spot(ctx context.Context, id ledger.ID) (float64, bool) {
	if p.baseURL == "" {
		return 0, false
	}

	key := id.PriceKey()
	url := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", p.baseURL, key)

	body, err := p.client.FetchCached(ctx, "price:"+key, url)
	if err != nil {
		p.log.Warn("price lookup failed", "ledger", id, "error", err)
		return 0, false
	}

	// Payload shape: {"<key>": {"usd": <price>}}
	var quotes map[string]map[string]float64
	if err := json.Unmarshal(body, &quotes); err != nil {
		p.log.Warn("price payload malformed", "ledger", id, "error", err)
		return 0, false
	}

	price, ok := quotes[key]["usd"]
	if !ok {
		p.log.Warn("price quote missing", "ledger", id)
		return 0, false
	}
	return price, true
}
