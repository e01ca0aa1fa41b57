// Package pricing converts the fixed-point sqrtPriceX96 value carried by V3
// Swap events into decimals-adjusted price ratios.
package pricing

import (
	"fmt"
	"math/big"
)

// FractionDigits is the number of fractional digits rendered into quote
// strings.
const FractionDigits = 18

// ComputationError marks an input the price formula cannot evaluate.
type ComputationError struct {
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute price: %s", e.Reason)
}

// Prices holds both directions of a pool price.
type Prices struct {
	// Price1PerToken0 is how much token1 one token0 buys.
	Price1PerToken0 *big.Rat
	// Price0PerToken1 is the inverse.
	Price0PerToken1 *big.Rat
}

// Compute derives both price directions from sqrtPriceX96 and the token
// decimals. It is a pure function:
//
//	rawPrice        = (sqrtPriceX96 / 2^96)^2
//	price1PerToken0 = rawPrice * 10^(decimals0 - decimals1)
//	price0PerToken1 = 1 / price1PerToken0
//
// The square of a 160-bit value needs up to 320 bits, so everything stays in
// big integers; no intermediate result is truncated.
func Compute(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (Prices, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return Prices{}, &ComputationError{Reason: "sqrtPriceX96 must be positive"}
	}

	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	q192 := new(big.Int).Lsh(big.NewInt(1), 192)
	raw := new(big.Rat).SetFrac(squared, q192)

	price1Per0 := new(big.Rat).Mul(raw, decimalFactor(decimals0, decimals1))
	price0Per1 := new(big.Rat).Inv(price1Per0)

	return Prices{
		Price1PerToken0: price1Per0,
		Price0PerToken1: price0Per1,
	}, nil
}

// decimalFactor returns 10^(decimals0 - decimals1) as a rational, keeping
// negative exponents exact.
func decimalFactor(decimals0, decimals1 uint8) *big.Rat {
	exp := int64(decimals0) - int64(decimals1)
	if exp == 0 {
		return big.NewRat(1, 1)
	}
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(abs64(exp)), nil)
	if exp > 0 {
		return new(big.Rat).SetInt(pow)
	}
	return new(big.Rat).SetFrac(big.NewInt(1), pow)
}

// FormatPrice renders a price ratio as a fixed-point decimal string.
func FormatPrice(price *big.Rat) string {
	if price == nil {
		return "0"
	}
	return price.FloatString(FractionDigits)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
