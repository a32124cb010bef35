package core

import "time"

// DefaultLowBalanceThreshold marks a fund as running low (1.000.000 ₫).
const DefaultLowBalanceThreshold Money = 1_000_000

type (
	// FundBalance is derived from the ledger on every read; it is never stored.
	FundBalance struct {
		Income  Money `json:"income"`
		Expense Money `json:"expense"`
		Total   Money `json:"total"`
	}

	// Balances always carries an entry for each of the three funds.
	Balances map[Fund]FundBalance

	// DayBucket sums one calendar date of the chart window.
	DayBucket struct {
		Date    string `json:"date"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// FundBar is one fund's income/expense pair for the comparison chart.
	FundBar struct {
		Fund    Fund   `json:"fund"`
		Label   string `json:"label"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// PieSlice is one fund's positive share of the overall balance.
	PieSlice struct {
		Fund  Fund   `json:"fund"`
		Label string `json:"label"`
		Value Money  `json:"value"`
		Color string `json:"color"`
	}

	// Dashboard bundles every figure the overview screen shows.
	Dashboard struct {
		Balances     Balances      `json:"balances"`
		TotalBalance Money         `json:"totalBalance"`
		FundChart    []FundBar     `json:"fundChart"`
		Pie          []PieSlice    `json:"pie"`
		Daily        []DayBucket   `json:"daily"`
		LowFunds     []Fund        `json:"lowFunds"`
		Recent       []Transaction `json:"recent"`
		Colors       ColorMap      `json:"colors"`
		Count        int           `json:"count"`
	}

	// DashboardOptions tunes BuildDashboard.
	DashboardOptions struct {
		Today               time.Time
		WindowDays          int
		LowBalanceThreshold Money
		RecentCount         int
	}
)

// ComputeBalances sums income and expense per fund. Every fund is present in
// the result, zero-valued when it has no records.
func ComputeBalances(ledger []Transaction) Balances {
	out := make(Balances, len(Funds))
	for _, f := range Funds {
		out[f] = FundBalance{}
	}
	for _, t := range ledger {
		b, ok := out[t.Fund]
		if !ok {
			// Unknown funds can only come from a hand-edited snapshot.
			continue
		}
		switch t.Kind {
		case Income:
			b.Income += t.Amount
			b.Total += t.Amount
		case Expense:
			b.Expense += t.Amount
			b.Total -= t.Amount
		}
		out[t.Fund] = b
	}
	return out
}

// TotalBalance sums the net total of all funds.
func TotalBalance(b Balances) Money {
	var total Money
	for _, f := range Funds {
		total += b[f].Total
	}
	return total
}

// ChartSeries buckets the ledger into the windowDays calendar dates ending at
// today, oldest first. Dates without records are zero-filled and records
// outside the window are ignored. The window follows today's location.
func ChartSeries(ledger []Transaction, today time.Time, windowDays int) []DayBucket {
	if windowDays <= 0 {
		return []DayBucket{}
	}
	y, m, d := today.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	series := make([]DayBucket, windowDays)
	index := make(map[string]int, windowDays)
	for i := 0; i < windowDays; i++ {
		day := end.AddDate(0, 0, i-windowDays+1).Format(DateLayout)
		series[i] = DayBucket{Date: day}
		index[day] = i
	}

	for _, t := range ledger {
		i, ok := index[t.Date]
		if !ok {
			continue
		}
		switch t.Kind {
		case Income:
			series[i].Income += t.Amount
		case Expense:
			series[i].Expense += t.Amount
		}
	}
	return series
}

// FundChart lists each fund's income and expense in display order.
func FundChart(b Balances) []FundBar {
	bars := make([]FundBar, 0, len(Funds))
	for _, f := range Funds {
		bars = append(bars, FundBar{
			Fund:    f,
			Label:   f.Label(),
			Income:  b[f].Income,
			Expense: b[f].Expense,
		})
	}
	return bars
}

// PieSlices returns the positive part of each fund's total. Funds at or below
// zero are left out.
func PieSlices(b Balances, colors ColorMap) []PieSlice {
	colors = colors.WithDefaults()
	slices := make([]PieSlice, 0, len(Funds))
	for _, f := range Funds {
		v := b[f].Total
		if v <= 0 {
			continue
		}
		slices = append(slices, PieSlice{Fund: f, Label: f.Label(), Value: v, Color: colors[f]})
	}
	return slices
}

// LowBalance reports whether the fund's net total is under threshold.
func LowBalance(b FundBalance, threshold Money) bool {
	return b.Total < threshold
}

// LowFunds lists, in display order, the funds whose total is under threshold.
func LowFunds(b Balances, threshold Money) []Fund {
	low := []Fund{}
	for _, f := range Funds {
		if LowBalance(b[f], threshold) {
			low = append(low, f)
		}
	}
	return low
}

// BuildDashboard computes the overview figures from scratch.
func BuildDashboard(ledger []Transaction, colors ColorMap, opts DashboardOptions) Dashboard {
	if opts.WindowDays == 0 {
		opts.WindowDays = 7
	}
	if opts.LowBalanceThreshold == 0 {
		opts.LowBalanceThreshold = DefaultLowBalanceThreshold
	}
	if opts.RecentCount == 0 {
		opts.RecentCount = 6
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}

	balances := ComputeBalances(ledger)
	return Dashboard{
		Balances:     balances,
		TotalBalance: TotalBalance(balances),
		FundChart:    FundChart(balances),
		Pie:          PieSlices(balances, colors),
		Daily:        ChartSeries(ledger, opts.Today, opts.WindowDays),
		LowFunds:     LowFunds(balances, opts.LowBalanceThreshold),
		Recent:       Recent(ledger, opts.RecentCount),
		Colors:       colors.WithDefaults(),
		Count:        len(ledger),
	}
}
