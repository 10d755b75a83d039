package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingMarketPrice is reported when the market chart has no current
// price to fill in.
var ErrMissingMarketPrice = errors.New("market chart has no current price")

// Explorer resources.
var (
	Stats = Define(ResourceDescriptor{
		Name: "stats",
		Path: "/api/v2/stats",
	}, WithInterceptor(coinPriceFallback))

	MarketChartResource = Define[MarketChart](ResourceDescriptor{
		Name: "market:chart",
		Path: "/api/v2/stats/charts/market",
	})

	TxsChartResource = Define[TxsChart](ResourceDescriptor{
		Name:       "stats:charts_txs",
		Path:       "/api/v2/stats/charts/transactions{/:resolution}",
		PathParams: []string{"resolution"},
	})

	Blocks = Define[ListResponse[Block]](ResourceDescriptor{
		Name:         "blocks",
		Path:         "/api/v2/blocks",
		FilterFields: []string{"type"},
		Paginated:    true,
	})

	BlockResource = Define[Block](ResourceDescriptor{
		Name:       "block",
		Path:       "/api/v2/blocks/:height_or_hash",
		PathParams: []string{"height_or_hash"},
	})

	BlockTxs = Define[ListResponse[Transaction]](ResourceDescriptor{
		Name:         "block_txs",
		Path:         "/api/v2/blocks/:height_or_hash/transactions",
		PathParams:   []string{"height_or_hash"},
		FilterFields: []string{"type"},
		Paginated:    true,
	})

	TxsValidated = Define[ListResponse[Transaction]](ResourceDescriptor{
		Name:         "txs_validated",
		Path:         "/api/v2/transactions",
		FilterFields: []string{"filter", "type", "method"},
		Paginated:    true,
	})

	TxResource = Define[Transaction](ResourceDescriptor{
		Name:       "tx",
		Path:       "/api/v2/transactions/:hash",
		PathParams: []string{"hash"},
	})

	TxTokenTransfers = Define[ListResponse[TokenTransfer]](ResourceDescriptor{
		Name:         "tx_token_transfers",
		Path:         "/api/v2/transactions/:hash/token-transfers",
		PathParams:   []string{"hash"},
		FilterFields: []string{"type"},
		Paginated:    true,
	})

	AddressResource = Define[Address](ResourceDescriptor{
		Name:       "address",
		Path:       "/api/v2/addresses/:hash",
		PathParams: []string{"hash"},
	})

	AddressCountersResource = Define(ResourceDescriptor{
		Name:       "address_counters",
		Path:       "/api/v2/addresses/:hash/counters",
		PathParams: []string{"hash"},
	}, WithTransform(parseAddressCounters))

	AddressTxs = Define[ListResponse[Transaction]](ResourceDescriptor{
		Name:         "address_txs",
		Path:         "/api/v2/addresses/:hash/transactions",
		PathParams:   []string{"hash"},
		FilterFields: []string{"filter"},
		Paginated:    true,
	})

	Tokens = Define[ListResponse[Token]](ResourceDescriptor{
		Name:         "tokens",
		Path:         "/api/v2/tokens",
		FilterFields: []string{"q", "type"},
		Paginated:    true,
	})

	TokenResource = Define[Token](ResourceDescriptor{
		Name:       "token",
		Path:       "/api/v2/tokens/:hash",
		PathParams: []string{"hash"},
	})

	TokenHolders = Define[ListResponse[TokenHolder]](ResourceDescriptor{
		Name:       "token_holders",
		Path:       "/api/v2/tokens/:hash/holders",
		PathParams: []string{"hash"},
		Paginated:  true,
	})

	TokenInstanceResource = Define[TokenInstance](ResourceDescriptor{
		Name:       "token_instance",
		Path:       "/api/v2/tokens/:hash/instances/:id",
		PathParams: []string{"hash", "id"},
	})

	Pools = Define[ListResponse[Pool]](ResourceDescriptor{
		Name:         "pools",
		Path:         "/api/v1/chains/:chain_id/pools",
		PathParams:   []string{"chain_id"},
		FilterFields: []string{"query"},
		Paginated:    true,
		Headers:      map[string]string{"X-Explorer-Service": "contracts-info"},
	})

	PoolResource = Define[Pool](ResourceDescriptor{
		Name:       "pool",
		Path:       "/api/v1/chains/:chain_id/pools/:hash",
		PathParams: []string{"chain_id", "hash"},
		Headers:    map[string]string{"X-Explorer-Service": "contracts-info"},
	})

	Attestations = Define(ResourceDescriptor{
		Name:         "attestations",
		Path:         "/api/v1/attestations",
		FilterFields: []string{"schema", "attester", "recipient"},
		Paginated:    true,
		Headers:      map[string]string{"X-Explorer-Service": "attestations"},
	}, WithTransform(parseAttestationPage))

	AttestationResource = Define[Attestation](ResourceDescriptor{
		Name:       "attestation",
		Path:       "/api/v1/attestations/:uid",
		PathParams: []string{"uid"},
		Headers:    map[string]string{"X-Explorer-Service": "attestations"},
	})

	Search = Define[ListResponse[SearchResult]](ResourceDescriptor{
		Name:         "search",
		Path:         "/api/v2/search",
		FilterFields: []string{"q"},
		Paginated:    true,
	})
)

// DefaultDescriptors lists every explorer resource.
func DefaultDescriptors() []*ResourceDescriptor {
	return []*ResourceDescriptor{
		Stats.ResourceDescriptor,
		MarketChartResource.ResourceDescriptor,
		TxsChartResource.ResourceDescriptor,
		Blocks.ResourceDescriptor,
		BlockResource.ResourceDescriptor,
		BlockTxs.ResourceDescriptor,
		TxsValidated.ResourceDescriptor,
		TxResource.ResourceDescriptor,
		TxTokenTransfers.ResourceDescriptor,
		AddressResource.ResourceDescriptor,
		AddressCountersResource.ResourceDescriptor,
		AddressTxs.ResourceDescriptor,
		Tokens.ResourceDescriptor,
		TokenResource.ResourceDescriptor,
		TokenHolders.ResourceDescriptor,
		TokenInstanceResource.ResourceDescriptor,
		Pools.ResourceDescriptor,
		PoolResource.ResourceDescriptor,
		Attestations.ResourceDescriptor,
		AttestationResource.ResourceDescriptor,
		Search.ResourceDescriptor,
	}
}

// DefaultRegistry returns a new registry holding the explorer resources.
// It panics if a built-in descriptor is invalid.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDescriptors()...)
	if err != nil {
		panic(fmt.Sprintf("explorer: invalid built-in resource: %v", err))
	}

	return r
}

// coinPriceFallback fills the coin price from the market chart when the
// stats payload has none.
var coinPriceFallback = Interceptor[HomeStats]{
	Name: "coin_price_fallback",
	Trigger: func(stats *HomeStats) bool {
		return stats.CoinPrice == nil || strings.TrimSpace(*stats.CoinPrice) == ""
	},
	Enrich: func(ctx context.Context, fetch Fetcher, stats *HomeStats) error {
		chart, err := FetchAs(ctx, fetch, MarketChartResource, nil, nil)
		if err != nil {
			return err
		}

		price := chart.Data.CurrentPrice.String()
		if price == "" {
			return ErrMissingMarketPrice
		}

		stats.CoinPrice = &price

		if chart.Data.PriceFluctuation != "" {
			fluctuation, err := chart.Data.PriceFluctuation.Float64()
			if err != nil {
				return fmt.Errorf("parsing price fluctuation: %w", err)
			}

			rounded := roundTo(fluctuation, 2)
			stats.CoinPriceChangePercentage = &rounded
		}

		return nil
	},
	Fields: []string{"coin_price", "coin_price_change_percentage"},
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)

	return math.Round(v*scale) / scale
}

// addressCountersWire is the API shape of address_counters.
type addressCountersWire struct {
	TransactionsCount   string `json:"transactions_count"`
	TokenTransfersCount string `json:"token_transfers_count"`
	GasUsageCount       string `json:"gas_usage_count"`
	ValidationsCount    string `json:"validations_count"`
}

func parseAddressCounters(raw []byte) (*AddressCounters, error) {
	var wire addressCountersWire

	err := json.Unmarshal(raw, &wire)
	if err != nil {
		return nil, fmt.Errorf("decoding address counters: %w", err)
	}

	counters := &AddressCounters{}

	fields := []struct {
		name  string
		value string
		dst   *int64
	}{
		{"transactions_count", wire.TransactionsCount, &counters.TransactionsCount},
		{"token_transfers_count", wire.TokenTransfersCount, &counters.TokenTransfersCount},
		{"gas_usage_count", wire.GasUsageCount, &counters.GasUsageCount},
		{"validations_count", wire.ValidationsCount, &counters.ValidationsCount},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		n, err := strconv.ParseInt(f.value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}

		*f.dst = n
	}

	return counters, nil
}

// attestationPageWire is the API shape of the attestations listing.
type attestationPageWire struct {
	Data       []Attestation `json:"data"`
	Pagination struct {
		NextCursor *string `json:"next_cursor"`
	} `json:"pagination"`
}

func parseAttestationPage(raw []byte) (*ListResponse[Attestation], error) {
	var wire attestationPageWire

	err := json.Unmarshal(raw, &wire)
	if err != nil {
		return nil, fmt.Errorf("decoding attestations: %w", err)
	}

	page := &ListResponse[Attestation]{
		Items: wire.Data,
	}

	if page.Items == nil {
		page.Items = []Attestation{}
	}

	if wire.Pagination.NextCursor != nil && *wire.Pagination.NextCursor != "" {
		page.NextPageParams = Cursor{"cursor": *wire.Pagination.NextCursor}
	}

	return page, nil
}
