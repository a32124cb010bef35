package http

import (
	"net/http"

	"quy/internal/core"
)

type balancesResponse struct {
	Balances     core.Balances `json:"balances"`
	TotalBalance core.Money    `json:"totalBalance"`
	LowFunds     []core.Fund   `json:"lowFunds"`
}

type chartResponse struct {
	Days   int              `json:"days"`
	Series []core.DayBucket `json:"series"`
	Funds  []core.FundBar   `json:"funds"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	b := core.ComputeBalances(s.deps.Store.Transactions())
	writeJSON(w, http.StatusOK, balancesResponse{
		Balances:     b,
		TotalBalance: core.TotalBalance(b),
		LowFunds:     core.LowFunds(b, s.deps.LowBalanceThreshold),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	days, err := parsePositiveInt(r, "days", s.deps.ChartWindowDays, 366)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs := s.deps.Store.Transactions()
	writeJSON(w, http.StatusOK, chartResponse{
		Days:   days,
		Series: core.ChartSeries(txs, s.now(), days),
		Funds:  core.FundChart(core.ComputeBalances(txs)),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.BuildDashboard(
		s.deps.Store.Transactions(),
		s.deps.Store.Colors(),
		core.DashboardOptions{
			Today:               s.now(),
			WindowDays:          s.deps.ChartWindowDays,
			LowBalanceThreshold: s.deps.LowBalanceThreshold,
		},
	))
}
