package core

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id string, f Fund, k Kind, amount Money, date string) Transaction {
	return Transaction{ID: id, Fund: f, Kind: k, Amount: amount, Description: "tx " + id, Date: date}
}

func randomLedger(r *rand.Rand, n int) []Transaction {
	kinds := []Kind{Income, Expense}
	ledger := make([]Transaction, 0, n)
	for i := 0; i < n; i++ {
		ledger = append(ledger, tx(
			fmt.Sprintf("%d", i),
			Funds[r.Intn(len(Funds))],
			kinds[r.Intn(2)],
			Money(r.Int63n(10_000_000)+1),
			fmt.Sprintf("2024-01-%02d", r.Intn(28)+1),
		))
	}
	return ledger
}

func TestComputeBalances_Scenario(t *testing.T) {
	ledger := Prepend(nil, tx("a", FundUnion, Income, 500000, "2024-01-10"))
	ledger = Prepend(ledger, tx("b", FundUnion, Expense, 200000, "2024-01-10"))

	b := ComputeBalances(ledger)
	assert.Equal(t, FundBalance{Income: 500000, Expense: 200000, Total: 300000}, b[FundUnion])
	assert.Equal(t, Money(300000), TotalBalance(b))
}

func TestComputeBalances_AllFundsPresent(t *testing.T) {
	b := ComputeBalances(nil)
	require.Len(t, b, 3)
	for _, f := range Funds {
		assert.Equal(t, FundBalance{}, b[f], "fund %s", f)
	}
	assert.Equal(t, Money(0), TotalBalance(b))
}

func TestComputeBalances_OrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		ledger := randomLedger(r, r.Intn(40))
		want := ComputeBalances(ledger)

		shuffled := append([]Transaction(nil), ledger...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, ComputeBalances(shuffled))
	}
}

func TestTotalBalance_EqualsSignedSum(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		ledger := randomLedger(r, r.Intn(60))
		var signed Money
		for _, rec := range ledger {
			signed += rec.Signed()
		}
		b := ComputeBalances(ledger)
		for _, f := range Funds {
			assert.Equal(t, b[f].Income-b[f].Expense, b[f].Total)
		}
		assert.Equal(t, signed, TotalBalance(b))
	}
}

func TestChartSeries(t *testing.T) {
	today := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
	ledger := []Transaction{
		tx("1", FundUnion, Income, 100, "2024-01-10"),
		tx("2", FundParty, Expense, 40, "2024-01-10"),
		tx("3", FundOffice, Income, 7, "2024-01-04"),
		tx("4", FundOffice, Income, 9, "2024-01-03"), // one day before the window
		tx("5", FundOffice, Income, 9, "2024-01-11"), // after today
	}

	series := ChartSeries(ledger, today, 7)
	require.Len(t, series, 7)
	assert.Equal(t, "2024-01-04", series[0].Date)
	assert.Equal(t, "2024-01-10", series[6].Date)
	assert.Equal(t, DayBucket{Date: "2024-01-04", Income: 7}, series[0])
	assert.Equal(t, DayBucket{Date: "2024-01-10", Income: 100, Expense: 40}, series[6])
	for _, b := range series[1:6] {
		assert.Zero(t, b.Income)
		assert.Zero(t, b.Expense)
	}
}

func TestChartSeries_EmptyLedgerStillFullWindow(t *testing.T) {
	today := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	series := ChartSeries(nil, today, 7)
	require.Len(t, series, 7)
	// The window crosses the end of February in a leap year.
	assert.Equal(t, "2024-02-25", series[0].Date)
	assert.Equal(t, "2024-02-29", series[4].Date)

	assert.Empty(t, ChartSeries(nil, today, 0))
}

func TestChartSeries_UsesLocationOfToday(t *testing.T) {
	hcm := time.FixedZone("ICT", 7*3600)
	// 20:00 UTC on the 9th is already the 10th in Hanoi.
	today := time.Date(2024, 1, 9, 20, 0, 0, 0, time.UTC).In(hcm)
	series := ChartSeries(nil, today, 1)
	require.Len(t, series, 1)
	assert.Equal(t, "2024-01-10", series[0].Date)
}

func TestPieSlicesAndLowFunds(t *testing.T) {
	ledger := []Transaction{
		tx("1", FundUnion, Income, 3_000_000, "2024-01-10"),
		tx("2", FundParty, Income, 100_000, "2024-01-10"),
		tx("3", FundOffice, Expense, 50_000, "2024-01-10"),
	}
	b := ComputeBalances(ledger)

	pie := PieSlices(b, ColorMap{FundUnion: "#000000"})
	require.Len(t, pie, 2)
	assert.Equal(t, FundUnion, pie[0].Fund)
	assert.Equal(t, "#000000", pie[0].Color)
	assert.Equal(t, DefaultColors()[FundParty], pie[1].Color)

	assert.Equal(t, []Fund{FundParty, FundOffice}, LowFunds(b, DefaultLowBalanceThreshold))
	assert.False(t, LowBalance(b[FundUnion], DefaultLowBalanceThreshold))

	bars := FundChart(b)
	require.Len(t, bars, 3)
	assert.Equal(t, Money(50_000), bars[2].Expense)
}

func TestBuildDashboard(t *testing.T) {
	var ledger []Transaction
	for i := 0; i < 8; i++ {
		ledger = Prepend(ledger, tx(fmt.Sprint(i), FundUnion, Income, 10, "2024-01-10"))
	}
	d := BuildDashboard(ledger, nil, DashboardOptions{Today: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})

	assert.Equal(t, 8, d.Count)
	assert.Equal(t, Money(80), d.TotalBalance)
	require.Len(t, d.Recent, 6)
	assert.Equal(t, "7", d.Recent[0].ID)
	require.Len(t, d.Daily, 7)
	assert.Equal(t, Money(80), d.Daily[6].Income)
	assert.Len(t, d.Colors, 3)
}

func TestPrependAndRemove(t *testing.T) {
	var ledger []Transaction
	inserts := 0
	deletes := 0
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		if len(ledger) > 0 && r.Intn(3) == 0 {
			victim := ledger[r.Intn(len(ledger))].ID
			var ok bool
			ledger, ok = Remove(ledger, victim)
			require.True(t, ok)
			deletes++
			continue
		}
		ledger = Prepend(ledger, tx(fmt.Sprintf("id-%d", i), FundOffice, Income, 1, "2024-01-01"))
		inserts++
	}
	assert.Len(t, ledger, inserts-deletes)

	seen := map[string]bool{}
	for _, rec := range ledger {
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}

	before := append([]Transaction(nil), ledger...)
	after, ok := Remove(ledger, "missing")
	assert.False(t, ok)
	assert.Equal(t, before, after)
}
