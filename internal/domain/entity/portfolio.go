package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe selects the historical series window for portfolio totals.
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
	TimeframeAll   Timeframe = "all"
)

// Valid reports whether tf is a known timeframe.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear, TimeframeAll:
		return true
	}
	return false
}

// HistoryPoint is one point of the backend-supplied balance series.
type HistoryPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// WindowDelta is the change of total value over one window.
type WindowDelta struct {
	Absolute decimal.Decimal `json:"absolute"`
	Percent  decimal.Decimal `json:"percent"`
}

// Allocation is one asset's share of the portfolio.
type Allocation struct {
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	Color      string          `json:"color"`
}

// PortfolioTotals is the derived, read-mostly portfolio view for one timeframe.
type PortfolioTotals struct {
	Timeframe              Timeframe       `json:"timeframe"`
	TotalBalanceUSD        decimal.Decimal `json:"totalBalanceUsd"`
	TotalProfitLossUSD     decimal.Decimal `json:"totalProfitLossUsd"`
	TotalProfitLossPercent decimal.Decimal `json:"totalProfitLossPercent"`
	Change24h              WindowDelta     `json:"change24h"`
	Change7d               WindowDelta     `json:"change7d"`
	Change30d              WindowDelta     `json:"change30d"`
	Allocation             []Allocation    `json:"allocation"`
	History                []HistoryPoint  `json:"history"`
}
