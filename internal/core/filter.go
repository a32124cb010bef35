package core

import (
	"sort"
	"strings"
)

type (
	// Criteria narrows the ledger. The zero value matches every record.
	Criteria struct {
		Search    string `json:"search"`
		Fund      Fund   `json:"fund"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}

	// DateGroup holds the records of one calendar date.
	DateGroup struct {
		Date         string        `json:"date"`
		Transactions []Transaction `json:"transactions"`
	}
)

// ResetCriteria returns criteria that match everything.
func ResetCriteria() Criteria {
	return Criteria{Fund: AllFunds}
}

// IsZero reports whether c places no restriction on the ledger.
func (c Criteria) IsZero() bool {
	return c.Search == "" && (c.Fund == "" || c.Fund == AllFunds) && c.StartDate == "" && c.EndDate == ""
}

// Match applies every predicate of c to t.
func (c Criteria) Match(t Transaction) bool {
	if c.Search != "" {
		term := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.Person), term) {
			return false
		}
	}
	if c.Fund != "" && c.Fund != AllFunds && t.Fund != c.Fund {
		return false
	}
	// ISO dates are fixed width, so string order is calendar order.
	if c.StartDate != "" && t.Date < c.StartDate {
		return false
	}
	if c.EndDate != "" && t.Date > c.EndDate {
		return false
	}
	return true
}

// Filter returns the records matching c, in ledger order.
func Filter(ledger []Transaction, c Criteria) []Transaction {
	out := make([]Transaction, 0, len(ledger))
	for _, t := range ledger {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// GroupByDate partitions records by date. Groups are ordered newest date
// first; records keep their relative order inside a group.
func GroupByDate(seq []Transaction) []DateGroup {
	index := map[string]int{}
	groups := []DateGroup{}
	for _, t := range seq {
		i, ok := index[t.Date]
		if !ok {
			i = len(groups)
			index[t.Date] = i
			groups = append(groups, DateGroup{Date: t.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].Date > groups[b].Date
	})
	return groups
}
