package model

// PoolMeta captures immutable pool metadata: token addresses plus the
// per-token fields needed to turn sqrtPriceX96 into a human price.
type PoolMeta struct {
	Token0    string `json:"token0"`
	Token1    string `json:"token1"`
	Symbol0   string `json:"symbol0"`
	Symbol1   string `json:"symbol1"`
	Decimals0 uint8  `json:"decimals0"`
	Decimals1 uint8  `json:"decimals1"`
}
