package explorer

import "encoding/json"

// ListResponse is the canonical shape of every paginated resource.
type ListResponse[T any] struct {
	Items          []T    `json:"items"            yaml:"items"`
	NextPageParams Cursor `json:"next_page_params" yaml:"next_page_params"`
}

// AddressParam is the compact address representation embedded in other
// payloads.
type AddressParam struct {
	Hash       string  `json:"hash"                  yaml:"hash"`
	Name       *string `json:"name,omitempty"        yaml:"name,omitempty"`
	IsContract bool    `json:"is_contract"           yaml:"is_contract"`
	IsVerified *bool   `json:"is_verified,omitempty" yaml:"is_verified,omitempty"`
}

// GasPrices holds the gas price tiers shown on the home page.
type GasPrices struct {
	Slow    json.Number `json:"slow"    yaml:"slow"`
	Average json.Number `json:"average" yaml:"average"`
	Fast    json.Number `json:"fast"    yaml:"fast"`
}

// HomeStats is the canonical payload of the stats resource.
type HomeStats struct {
	TotalBlocks                  string     `json:"total_blocks"                   yaml:"total_blocks"`
	TotalAddresses               string     `json:"total_addresses"                yaml:"total_addresses"`
	TotalTransactions            string     `json:"total_transactions"             yaml:"total_transactions"`
	AverageBlockTime             float64    `json:"average_block_time"             yaml:"average_block_time"`
	CoinPrice                    *string    `json:"coin_price"                     yaml:"coin_price"`
	CoinPriceChangePercentage    *float64   `json:"coin_price_change_percentage,omitempty" yaml:"coin_price_change_percentage,omitempty"`
	TotalGasUsed                 string     `json:"total_gas_used"                 yaml:"total_gas_used"`
	TransactionsToday            string     `json:"transactions_today"             yaml:"transactions_today"`
	GasUsedToday                 string     `json:"gas_used_today"                 yaml:"gas_used_today"`
	GasPrices                    *GasPrices `json:"gas_prices,omitempty"           yaml:"gas_prices,omitempty"`
	MarketCap                    *string    `json:"market_cap"                     yaml:"market_cap"`
	NetworkUtilizationPercentage float64    `json:"network_utilization_percentage" yaml:"network_utilization_percentage"`
}

// MarketChart is the payload of the market:chart resource.
type MarketChart struct {
	Data MarketChartData `json:"data" yaml:"data"`
}

// MarketChartData holds the current market figures and their history.
// Prices may arrive as JSON numbers or strings.
type MarketChartData struct {
	CurrentPrice     json.Number       `json:"current_price"     yaml:"current_price"`
	PriceFluctuation json.Number       `json:"price_fluctuation" yaml:"price_fluctuation"`
	ChartData        []MarketChartItem `json:"chart_data"        yaml:"chart_data"`
}

// MarketChartItem is one day of market history.
type MarketChartItem struct {
	Date         string      `json:"date"          yaml:"date"`
	ClosingPrice json.Number `json:"closing_price" yaml:"closing_price"`
	MarketCap    json.Number `json:"market_cap"    yaml:"market_cap"`
}

// TxsChart is the payload of the stats:charts_txs resource.
type TxsChart struct {
	ChartData []TxsChartItem `json:"chart_data" yaml:"chart_data"`
}

// TxsChartItem is the transaction count of one period.
type TxsChartItem struct {
	Date    string `json:"date"     yaml:"date"`
	TxCount int64  `json:"tx_count" yaml:"tx_count"`
}

// Block is a chain block.
type Block struct {
	Height        int64         `json:"height"                     yaml:"height"`
	Hash          string        `json:"hash"                       yaml:"hash"`
	ParentHash    string        `json:"parent_hash"                yaml:"parent_hash"`
	Timestamp     string        `json:"timestamp"                  yaml:"timestamp"`
	Miner         *AddressParam `json:"miner,omitempty"            yaml:"miner,omitempty"`
	TxCount       int64         `json:"tx_count"                   yaml:"tx_count"`
	GasUsed       string        `json:"gas_used"                   yaml:"gas_used"`
	GasLimit      string        `json:"gas_limit"                  yaml:"gas_limit"`
	Size          int64         `json:"size"                       yaml:"size"`
	BaseFeePerGas *string       `json:"base_fee_per_gas,omitempty" yaml:"base_fee_per_gas,omitempty"`
	Type          string        `json:"type"                       yaml:"type"`
}

// Fee is a transaction fee.
type Fee struct {
	Type  string `json:"type"  yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Transaction is a chain transaction.
type Transaction struct {
	Hash          string        `json:"hash"                   yaml:"hash"`
	BlockNumber   *int64        `json:"block_number"           yaml:"block_number"`
	Timestamp     *string       `json:"timestamp"              yaml:"timestamp"`
	From          AddressParam  `json:"from"                   yaml:"from"`
	To            *AddressParam `json:"to"                     yaml:"to"`
	Value         string        `json:"value"                  yaml:"value"`
	Fee           Fee           `json:"fee"                    yaml:"fee"`
	GasUsed       *string       `json:"gas_used"               yaml:"gas_used"`
	Status        *string       `json:"status"                 yaml:"status"`
	Method        *string       `json:"method"                 yaml:"method"`
	Confirmations int64         `json:"confirmations"          yaml:"confirmations"`
	Type          int           `json:"type"                   yaml:"type"`
	Result        string        `json:"result,omitempty"       yaml:"result,omitempty"`
}

// TokenInfo describes a token contract.
type TokenInfo struct {
	Address      string  `json:"address"       yaml:"address"`
	Name         *string `json:"name"          yaml:"name"`
	Symbol       *string `json:"symbol"        yaml:"symbol"`
	Decimals     *string `json:"decimals"      yaml:"decimals"`
	Type         string  `json:"type"          yaml:"type"`
	HoldersCount *string `json:"holders_count" yaml:"holders_count"`
	TotalSupply  *string `json:"total_supply"  yaml:"total_supply"`
	ExchangeRate *string `json:"exchange_rate" yaml:"exchange_rate"`
	IconURL      *string `json:"icon_url"      yaml:"icon_url"`
}

// Token is the payload of the token resource and the items of tokens.
type Token = TokenInfo

// TokenTransfer is a token movement inside a transaction.
type TokenTransfer struct {
	TxHash   string          `json:"transaction_hash" yaml:"transaction_hash"`
	LogIndex int64           `json:"log_index"        yaml:"log_index"`
	From     AddressParam    `json:"from"             yaml:"from"`
	To       AddressParam    `json:"to"               yaml:"to"`
	Token    TokenInfo       `json:"token"            yaml:"token"`
	Total    json.RawMessage `json:"total"            yaml:"-"`
	Type     string          `json:"type"             yaml:"type"`
}

// Address is the payload of the address resource.
type Address struct {
	Hash               string     `json:"hash"                 yaml:"hash"`
	Name               *string    `json:"name"                 yaml:"name"`
	IsContract         bool       `json:"is_contract"          yaml:"is_contract"`
	IsVerified         *bool      `json:"is_verified"          yaml:"is_verified"`
	CoinBalance        *string    `json:"coin_balance"         yaml:"coin_balance"`
	ExchangeRate       *string    `json:"exchange_rate"        yaml:"exchange_rate"`
	CreatorAddressHash *string    `json:"creator_address_hash" yaml:"creator_address_hash"`
	CreationTxHash     *string    `json:"creation_tx_hash"     yaml:"creation_tx_hash"`
	Token              *TokenInfo `json:"token"                yaml:"token"`
}

// AddressCounters is the canonical payload of address_counters. The API
// reports the counters as decimal strings.
type AddressCounters struct {
	TransactionsCount   int64 `json:"transactions_count"    yaml:"transactions_count"`
	TokenTransfersCount int64 `json:"token_transfers_count" yaml:"token_transfers_count"`
	GasUsageCount       int64 `json:"gas_usage_count"       yaml:"gas_usage_count"`
	ValidationsCount    int64 `json:"validations_count"     yaml:"validations_count"`
}

// TokenHolder is one holder of a token.
type TokenHolder struct {
	Address AddressParam `json:"address"  yaml:"address"`
	Value   string       `json:"value"    yaml:"value"`
	TokenID *string      `json:"token_id" yaml:"token_id"`
}

// TokenInstance is a single NFT instance.
type TokenInstance struct {
	ID       string         `json:"id"        yaml:"id"`
	Owner    *AddressParam  `json:"owner"     yaml:"owner"`
	ImageURL *string        `json:"image_url" yaml:"image_url"`
	Metadata map[string]any `json:"metadata"  yaml:"metadata"`
	Token    *TokenInfo     `json:"token"     yaml:"token"`
}

// Dex identifies the exchange of a pool.
type Dex struct {
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Pool is a DEX liquidity pool.
type Pool struct {
	PoolID            string      `json:"pool_id"             yaml:"pool_id"`
	IsContract        bool        `json:"is_contract"         yaml:"is_contract"`
	ChainID           string      `json:"chain_id"            yaml:"chain_id"`
	Dex               Dex         `json:"dex"                 yaml:"dex"`
	BaseTokenAddress  string      `json:"base_token_address"  yaml:"base_token_address"`
	BaseTokenSymbol   string      `json:"base_token_symbol"   yaml:"base_token_symbol"`
	QuoteTokenAddress string      `json:"quote_token_address" yaml:"quote_token_address"`
	QuoteTokenSymbol  string      `json:"quote_token_symbol"  yaml:"quote_token_symbol"`
	Liquidity         json.Number `json:"liquidity"           yaml:"liquidity"`
}

// Attestation is a signed on-chain attestation.
type Attestation struct {
	UID       string `json:"uid"       yaml:"uid"`
	Schema    string `json:"schema"    yaml:"schema"`
	Attester  string `json:"attester"  yaml:"attester"`
	Recipient string `json:"recipient" yaml:"recipient"`
	Time      int64  `json:"time"      yaml:"time"`
	Revoked   bool   `json:"revoked"   yaml:"revoked"`
	Data      string `json:"data"      yaml:"data"`
}

// SearchResult is one hit of the search resource.
type SearchResult struct {
	Type        string  `json:"type"                   yaml:"type"`
	Name        *string `json:"name,omitempty"         yaml:"name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"       yaml:"symbol,omitempty"`
	Address     *string `json:"address,omitempty"      yaml:"address,omitempty"`
	TxHash      *string `json:"tx_hash,omitempty"      yaml:"tx_hash,omitempty"`
	BlockNumber *int64  `json:"block_number,omitempty" yaml:"block_number,omitempty"`
	BlockHash   *string `json:"block_hash,omitempty"   yaml:"block_hash,omitempty"`
	URL         *string `json:"url,omitempty"          yaml:"url,omitempty"`
}
