package model

// TokenMeta captures ERC20 metadata. Symbol may be a fallback label derived
// from the address when the token does not expose one.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}
