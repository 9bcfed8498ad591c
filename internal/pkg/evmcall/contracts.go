// Package evmcall packs and unpacks the contract calls the wallet core issues:
// ERC20 balance, allowance and transfer, and UniswapV2-style router quotes and swaps.
package evmcall

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const routerABI = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedERC20  abi.ABI
	parsedRouter abi.ABI
	parseOnce    sync.Once
)

func initABIs() {
	parseOnce.Do(func() {
		var err error
		parsedERC20, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		parsedRouter, err = abi.JSON(strings.NewReader(routerABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse router ABI: %v", err))
		}
	})
}

// BalanceOf packs an ERC20 balanceOf(owner) call.
func BalanceOf(owner string) ([]byte, error) {
	initABIs()
	return parsedERC20.Pack("balanceOf", common.HexToAddress(owner))
}

// UnpackBalance decodes a balanceOf result. Empty output decodes to zero.
func UnpackBalance(output []byte) (*big.Int, error) {
	initABIs()
	if len(output) == 0 {
		return big.NewInt(0), nil
	}
	values, err := parsedERC20.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data")
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", values[0])
	}
	return balance, nil
}

// Decimals packs an ERC20 decimals() call.
func Decimals() ([]byte, error) {
	initABIs()
	return parsedERC20.Pack("decimals")
}

// UnpackDecimals decodes a decimals() result.
func UnpackDecimals(output []byte) (uint8, error) {
	initABIs()
	values, err := parsedERC20.Unpack("decimals", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack decimals result: %w", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("decimals unpack returned no data")
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type %T", values[0])
	}
	return decimals, nil
}

// Allowance packs an ERC20 allowance(owner, spender) call.
func Allowance(owner, spender string) ([]byte, error) {
	initABIs()
	return parsedERC20.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
}

// UnpackAllowance decodes an allowance result.
func UnpackAllowance(output []byte) (*big.Int, error) {
	initABIs()
	values, err := parsedERC20.Unpack("allowance", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack allowance result: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("allowance unpack returned no data")
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result type %T", values[0])
	}
	return allowance, nil
}

// Transfer packs an ERC20 transfer(to, amount) call.
func Transfer(to string, amount *big.Int) ([]byte, error) {
	initABIs()
	return parsedERC20.Pack("transfer", common.HexToAddress(to), amount)
}

// GetAmountsOut packs a router quote for amountIn along path.
func GetAmountsOut(amountIn *big.Int, path []string) ([]byte, error) {
	initABIs()
	return parsedRouter.Pack("getAmountsOut", amountIn, toAddresses(path))
}

// UnpackAmountsOut decodes a getAmountsOut result.
func UnpackAmountsOut(output []byte) ([]*big.Int, error) {
	initABIs()
	values, err := parsedRouter.Unpack("getAmountsOut", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getAmountsOut result: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("getAmountsOut unpack returned no data")
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountsOut result type %T", values[0])
	}
	return amounts, nil
}

// SwapExactTokensForTokens packs a router swap of amountIn along path, paying out to recipient.
func SwapExactTokensForTokens(amountIn, amountOutMin *big.Int, path []string, recipient string, deadline int64) ([]byte, error) {
	initABIs()
	return parsedRouter.Pack("swapExactTokensForTokens",
		amountIn, amountOutMin, toAddresses(path), common.HexToAddress(recipient), big.NewInt(deadline))
}

func toAddresses(path []string) []common.Address {
	addrs := make([]common.Address, len(path))
	for i, p := range path {
		addrs[i] = common.HexToAddress(p)
	}
	return addrs
}

// IsAddress reports whether s is a hex-encoded 20 byte address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}
