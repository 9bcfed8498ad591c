// Package portfolio holds the pure derivations over wallet balance snapshots:
// cross-wallet consolidation and time-windowed totals.
package portfolio

import (
	"sort"
	"strings"

	"wallet_core/internal/domain/entity"

	"github.com/shopspring/decimal"
)

type tokenGroup struct {
	sum     decimal.Decimal
	owner   string // wallet id the display fields and price are taken from
	display entity.TokenBalance
}

// consolidationKey groups token holdings across wallets. Addresses compare case-insensitively;
// the native sentinel is shared by every chain, so native holdings are also keyed by symbol.
func consolidationKey(t entity.TokenBalance) string {
	addr := strings.ToLower(strings.TrimSpace(t.TokenAddress))
	if entity.IsNativeToken(addr) {
		return "native:" + strings.ToUpper(t.Symbol)
	}
	return addr
}

// Consolidate merges the same token's holdings across wallets into one aggregate TokenBalance per token.
// Balances are summed with decimal arithmetic and BalanceUSD is recomputed as sum * price.
// Price and display fields come from the holding of the lexically smallest wallet id with a non-zero price,
// so the result does not depend on input order. Zero totals are omitted. The result is sorted by
// BalanceUSD descending, then symbol, then token address.
func Consolidate(wallets []entity.WalletBalance) []entity.TokenBalance {
	groups := make(map[string]*tokenGroup)

	for _, wallet := range wallets {
		for _, token := range wallet.Tokens {
			key := consolidationKey(token)
			group, ok := groups[key]
			if !ok {
				groups[key] = &tokenGroup{sum: token.Balance, owner: wallet.WalletID, display: token}
				continue
			}
			group.sum = group.sum.Add(token.Balance)
			if preferHolding(group, wallet.WalletID, token) {
				group.owner = wallet.WalletID
				group.display = token
			}
		}
	}

	result := make([]entity.TokenBalance, 0, len(groups))
	for _, group := range groups {
		if group.sum.IsZero() {
			continue
		}
		aggregate := group.display
		aggregate.Balance = group.sum
		aggregate.BalanceUSD = group.sum.Mul(aggregate.Price)
		result = append(result, aggregate)
	}

	SortTokenBalances(result)
	return result
}

// preferHolding decides whether candidate replaces the group's current source of price and display fields.
func preferHolding(group *tokenGroup, walletID string, candidate entity.TokenBalance) bool {
	currentPriced := !group.display.Price.IsZero()
	candidatePriced := !candidate.Price.IsZero()
	if currentPriced != candidatePriced {
		return candidatePriced
	}
	if walletID != group.owner {
		return walletID < group.owner
	}
	// Same wallet listing a token twice: keep the larger price for a stable pick.
	return candidate.Price.GreaterThan(group.display.Price)
}

// SortTokenBalances orders balances by BalanceUSD descending, then symbol, then address.
func SortTokenBalances(balances []entity.TokenBalance) {
	sort.SliceStable(balances, func(i, j int) bool {
		if c := balances[i].BalanceUSD.Cmp(balances[j].BalanceUSD); c != 0 {
			return c > 0
		}
		if balances[i].Symbol != balances[j].Symbol {
			return balances[i].Symbol < balances[j].Symbol
		}
		return strings.ToLower(balances[i].TokenAddress) < strings.ToLower(balances[j].TokenAddress)
	})
}

// WalletTotal sums the USD value of a wallet's token holdings.
func WalletTotal(tokens []entity.TokenBalance) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tokens {
		total = total.Add(t.BalanceUSD)
	}
	return total
}
