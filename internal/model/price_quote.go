package model

// PriceQuote is the derived output for one accepted swap event. Prices are
// decimal strings with 18 fractional digits; Price0PerToken1 is how much
// token0 one token1 buys, Price1PerToken0 the inverse.
type PriceQuote struct {
	Pool            string `json:"pool"`
	Symbol0         string `json:"symbol0"`
	Symbol1         string `json:"symbol1"`
	Price0PerToken1 string `json:"price0_per_token1"`
	Price1PerToken0 string `json:"price1_per_token0"`
	BlockNumber     uint64 `json:"block_number"`
	TxHash          string `json:"tx_hash"`
}
