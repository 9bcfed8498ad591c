package entity

import "strings"

// NativeTokenAddress is the sentinel token address used for a chain's native asset.
const NativeTokenAddress = ZeroAddress

// TokenInfo holds the details of a specific token.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// IsNativeToken reports whether the address denotes the chain's native asset.
func IsNativeToken(address string) bool {
	return address == "" || strings.EqualFold(address, ZeroAddress) || strings.EqualFold(address, "native")
}
