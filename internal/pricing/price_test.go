package pricing

import (
	"errors"
	"math/big"
	"testing"
)

// 2^96, the encoding of sqrt(price) == 1.
func q96(t *testing.T) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString("79228162514264337593543950336", 10)
	if !ok {
		t.Fatalf("parse q96")
	}
	return v
}

func TestComputeUnitPrice(t *testing.T) {
	prices, err := Compute(q96(t), 18, 18)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	one := big.NewRat(1, 1)
	if prices.Price1PerToken0.Cmp(one) != 0 {
		t.Fatalf("price1PerToken0 = %s, want 1", prices.Price1PerToken0.RatString())
	}
	if prices.Price0PerToken1.Cmp(one) != 0 {
		t.Fatalf("price0PerToken1 = %s, want 1", prices.Price0PerToken1.RatString())
	}
	if FormatPrice(prices.Price1PerToken0) != "1.000000000000000000" {
		t.Fatalf("formatted price: %s", FormatPrice(prices.Price1PerToken0))
	}
}

func TestComputeDecimalsAdjustment(t *testing.T) {
	// With equal decimals the raw ratio is exactly 1; with 18/6 the price
	// must be scaled by 10^12.
	prices, err := Compute(q96(t), 18, 6)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	want := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))
	if prices.Price1PerToken0.Cmp(want) != 0 {
		t.Fatalf("price1PerToken0 = %s, want %s", prices.Price1PerToken0.RatString(), want.RatString())
	}

	// And the other way around for a negative exponent.
	prices, err = Compute(q96(t), 6, 18)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want = new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))
	if prices.Price1PerToken0.Cmp(want) != 0 {
		t.Fatalf("price1PerToken0 = %s, want %s", prices.Price1PerToken0.RatString(), want.RatString())
	}
}

func TestComputeDirectionsAreReciprocal(t *testing.T) {
	cases := []struct {
		name      string
		sqrtPrice string
		decimals0 uint8
		decimals1 uint8
	}{
		{"unit", "79228162514264337593543950336", 18, 18},
		{"usdc_weth_like", "1956311401572570945037907301427", 6, 18},
		{"small", "12345678901234567890", 8, 18},
		{"max_width", "1461501637330902918203684832716283019655932542975", 0, 255},
	}

	one := big.NewRat(1, 1)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sqrtPrice, ok := new(big.Int).SetString(tc.sqrtPrice, 10)
			if !ok {
				t.Fatalf("parse sqrt price")
			}

			prices, err := Compute(sqrtPrice, tc.decimals0, tc.decimals1)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}

			product := new(big.Rat).Mul(prices.Price0PerToken1, prices.Price1PerToken0)
			if product.Cmp(one) != 0 {
				t.Fatalf("directions not reciprocal: product = %s", product.RatString())
			}
			if prices.Price1PerToken0.Sign() <= 0 {
				t.Fatalf("non-positive price: %s", prices.Price1PerToken0.RatString())
			}
		})
	}
}

func TestComputeFullWidthDoesNotTruncate(t *testing.T) {
	// Largest uint160 value: squaring needs 320 bits, far beyond any native
	// integer. The result must stay exact.
	maxSqrt := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

	prices, err := Compute(maxSqrt, 18, 18)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	squared := new(big.Int).Mul(maxSqrt, maxSqrt)
	want := new(big.Rat).SetFrac(squared, new(big.Int).Lsh(big.NewInt(1), 192))
	if prices.Price1PerToken0.Cmp(want) != 0 {
		t.Fatalf("truncated result: %s", prices.Price1PerToken0.RatString())
	}
}

func TestComputeRejectsZeroSqrtPrice(t *testing.T) {
	var compErr *ComputationError

	_, err := Compute(big.NewInt(0), 18, 18)
	if !errors.As(err, &compErr) {
		t.Fatalf("expected ComputationError, got %v", err)
	}

	_, err = Compute(nil, 18, 18)
	if !errors.As(err, &compErr) {
		t.Fatalf("expected ComputationError for nil, got %v", err)
	}

	_, err = Compute(big.NewInt(-1), 18, 18)
	if !errors.As(err, &compErr) {
		t.Fatalf("expected ComputationError for negative, got %v", err)
	}
}
