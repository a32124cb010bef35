package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLedger() []Transaction {
	return []Transaction{
		{ID: "5", Fund: FundOffice, Kind: Expense, Amount: 300000, Description: "Thuê phòng", Date: "2024-01-10", Person: "Công ty A"},
		{ID: "4", Fund: FundUnion, Kind: Expense, Amount: 120000, Description: "Mua vật tư", Date: "2024-01-09", Person: ""},
		{ID: "3", Fund: FundParty, Kind: Income, Amount: 50000, Description: "Đảng phí tháng 1", Date: "2024-01-10", Person: "Minh"},
		{ID: "2", Fund: FundUnion, Kind: Income, Amount: 500000, Description: "Đoàn phí", Date: "2024-01-08", Person: "MUA Lan"},
		{ID: "1", Fund: FundOffice, Kind: Income, Amount: 900000, Description: "Tạm ứng", Date: "2024-01-09", Person: "Kế toán"},
	}
}

func ids(seq []Transaction) []string {
	out := make([]string, 0, len(seq))
	for _, t := range seq {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter_DefaultsReturnEverything(t *testing.T) {
	ledger := sampleLedger()
	assert.Equal(t, ledger, Filter(ledger, Criteria{}))
	assert.Equal(t, ledger, Filter(ledger, ResetCriteria()))
	assert.True(t, ResetCriteria().IsZero())
	assert.False(t, Criteria{Search: "x"}.IsZero())
}

func TestFilter_SearchIsCaseInsensitive(t *testing.T) {
	got := Filter(sampleLedger(), Criteria{Search: "mua"})
	// Matches description "Mua vật tư" and person "MUA Lan", not "Thuê phòng".
	assert.Equal(t, []string{"4", "2"}, ids(got))

	got = Filter(sampleLedger(), Criteria{Search: "MINH"})
	assert.Equal(t, []string{"3"}, ids(got))
}

func TestFilter_FundAndDates(t *testing.T) {
	ledger := sampleLedger()

	assert.Equal(t, []string{"4", "2"}, ids(Filter(ledger, Criteria{Fund: FundUnion})))
	assert.Equal(t, []string{"5", "4", "3", "1"}, ids(Filter(ledger, Criteria{StartDate: "2024-01-09"})))
	assert.Equal(t, []string{"4", "2", "1"}, ids(Filter(ledger, Criteria{EndDate: "2024-01-09"})))
	assert.Equal(t, []string{"4", "1"}, ids(Filter(ledger, Criteria{StartDate: "2024-01-09", EndDate: "2024-01-09"})))
	assert.Equal(t, []string{"1"}, ids(Filter(ledger, Criteria{Fund: FundOffice, EndDate: "2024-01-09", Search: "kế"})))
	assert.Empty(t, Filter(ledger, Criteria{StartDate: "2024-01-11"}))
}

func TestFilter_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	ledger := randomLedger(r, 80)
	criteria := []Criteria{
		{},
		{Fund: FundParty},
		{Search: "1"},
		{StartDate: "2024-01-05", EndDate: "2024-01-20"},
		{Fund: FundUnion, Search: "tx", StartDate: "2024-01-10"},
	}
	for _, c := range criteria {
		once := Filter(ledger, c)
		assert.Equal(t, once, Filter(once, c), "criteria %+v", c)
	}
}

func TestGroupByDate(t *testing.T) {
	groups := GroupByDate(sampleLedger())
	require.Len(t, groups, 3)
	assert.Equal(t, "2024-01-10", groups[0].Date)
	assert.Equal(t, "2024-01-09", groups[1].Date)
	assert.Equal(t, "2024-01-08", groups[2].Date)
	assert.Equal(t, []string{"5", "3"}, ids(groups[0].Transactions))
	assert.Equal(t, []string{"4", "1"}, ids(groups[1].Transactions))

	assert.Empty(t, GroupByDate(nil))
}

func TestGroupByDate_Partitions(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	ledger := randomLedger(r, 100)
	filtered := Filter(ledger, Criteria{Fund: FundOffice})
	groups := GroupByDate(filtered)

	count := 0
	seen := map[string]int{}
	for i, g := range groups {
		if i > 0 {
			require.Greater(t, groups[i-1].Date, g.Date, "groups must be strictly descending")
		}
		for _, t2 := range g.Transactions {
			require.Equal(t, g.Date, t2.Date)
			seen[t2.ID]++
			count++
		}
	}
	assert.Equal(t, len(filtered), count)
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %s appears %d times", id, n)
	}
}

func TestGroupByDate_TwoDates(t *testing.T) {
	ledger := []Transaction{
		{ID: "b", Date: "2024-01-09"},
		{ID: "a", Date: "2024-01-10"},
	}
	groups := GroupByDate(Filter(ledger, Criteria{}))
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"2024-01-10", "2024-01-09"}, []string{groups[0].Date, groups[1].Date})
}
