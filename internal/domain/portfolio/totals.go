package portfolio

import (
	"sort"
	"time"

	"wallet_core/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Palette colors are assigned to allocation entries in rendering order.
var Palette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#EC4899", "#14B8A6", "#F97316", "#6366F1", "#84CC16",
}

// TotalsInput is everything CalculateTotals derives from.
type TotalsInput struct {
	Timeframe entity.Timeframe
	// Balances are consolidated holdings.
	Balances []entity.TokenBalance
	History  []entity.HistoryPoint
	Now      time.Time
	// MatchTolerance is the max distance between a window target and its matched point. Zero means unbounded.
	MatchTolerance time.Duration
}

// CalculateTotals derives total value, profit/loss since the first historical point,
// 24h/7d/30d deltas and the asset allocation. A history with fewer than two points yields zero deltas.
func CalculateTotals(in TotalsInput) entity.PortfolioTotals {
	total := WalletTotal(in.Balances)

	history := make([]entity.HistoryPoint, len(in.History))
	copy(history, in.History)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

	totals := entity.PortfolioTotals{
		Timeframe:              in.Timeframe,
		TotalBalanceUSD:        total,
		TotalProfitLossUSD:     decimal.Zero,
		TotalProfitLossPercent: decimal.Zero,
		Change24h:              zeroDelta(),
		Change7d:               zeroDelta(),
		Change30d:              zeroDelta(),
		Allocation:             Allocate(in.Balances),
		History:                history,
	}

	if len(history) < 2 {
		return totals
	}

	pl := delta(total, history[0].Value)
	totals.TotalProfitLossUSD = pl.Absolute
	totals.TotalProfitLossPercent = pl.Percent

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	windows := []struct {
		target *entity.WindowDelta
		ago    time.Duration
	}{
		{&totals.Change24h, 24 * time.Hour},
		{&totals.Change7d, 7 * 24 * time.Hour},
		{&totals.Change30d, 30 * 24 * time.Hour},
	}
	for _, w := range windows {
		point, ok := closestPoint(history, now.Add(-w.ago), in.MatchTolerance)
		if ok {
			*w.target = delta(total, point.Value)
		}
	}

	return totals
}

// closestPoint returns the history point nearest to target; ties go to the earlier point.
func closestPoint(history []entity.HistoryPoint, target time.Time, tolerance time.Duration) (entity.HistoryPoint, bool) {
	best := -1
	var bestDist time.Duration
	for i, p := range history {
		dist := p.Date.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best == -1 || (tolerance > 0 && bestDist > tolerance) {
		return entity.HistoryPoint{}, false
	}
	return history[best], true
}

func delta(current, past decimal.Decimal) entity.WindowDelta {
	d := entity.WindowDelta{Absolute: current.Sub(past), Percent: decimal.Zero}
	if !past.IsZero() {
		d.Percent = d.Absolute.Div(past).Mul(hundred).Round(2)
	}
	return d
}

func zeroDelta() entity.WindowDelta {
	return entity.WindowDelta{Absolute: decimal.Zero, Percent: decimal.Zero}
}

// Allocate computes each asset's share of the total, ordered by value descending then symbol.
// Assets without USD value are left out.
func Allocate(balances []entity.TokenBalance) []entity.Allocation {
	total := WalletTotal(balances)
	allocation := make([]entity.Allocation, 0, len(balances))
	if !total.IsPositive() {
		return allocation
	}

	for _, b := range balances {
		if !b.BalanceUSD.IsPositive() {
			continue
		}
		allocation = append(allocation, entity.Allocation{
			Name:       b.Name,
			Symbol:     b.Symbol,
			Value:      b.BalanceUSD,
			Percentage: b.BalanceUSD.Div(total).Mul(hundred).Round(2),
		})
	}

	sort.SliceStable(allocation, func(i, j int) bool {
		if c := allocation[i].Value.Cmp(allocation[j].Value); c != 0 {
			return c > 0
		}
		return allocation[i].Symbol < allocation[j].Symbol
	})
	for i := range allocation {
		allocation[i].Color = Palette[i%len(Palette)]
	}
	return allocation
}
