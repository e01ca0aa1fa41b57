package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapEvent is a decoded V3 pool Swap log. Values are kept as big integers
// because sqrtPriceX96 occupies up to 160 bits and the amounts are int256.
type SwapEvent struct {
	Pool         common.Address
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
	BlockNumber  uint64
	TxHash       string
	LogIndex     uint64
}
