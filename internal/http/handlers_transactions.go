package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quy/internal/core"
	"quy/internal/log"
)

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
	Total        int                `json:"total"`
	Criteria     core.Criteria      `json:"criteria"`
}

type groupedList struct {
	Groups   []core.DateGroup `json:"groups"`
	Count    int              `json:"count"`
	Criteria core.Criteria    `json:"criteria"`
}

func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]core.Transaction, core.Criteria, int, bool) {
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, c, 0, false
	}
	all := s.deps.Store.Transactions()
	return core.Filter(all, c), c, len(all), true
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, c, total, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, transactionList{
		Transactions: txs,
		Count:        len(txs),
		Total:        total,
		Criteria:     c,
	})
}

func (s *Server) handleGroupedTransactions(w http.ResponseWriter, r *http.Request) {
	txs, c, _, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, groupedList{
		Groups:   core.GroupByDate(txs),
		Count:    len(txs),
		Criteria: c,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var d core.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}
	if err := d.Validate(); err != nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction rejected",
			log.FieldError, err,
			log.FieldOperation, log.OpValidate,
			log.FieldFund, d.Fund)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx, err := s.deps.Store.Insert(r.Context(), d)
	if err != nil {
		writeInternal(w, r, "could not record transaction", err, log.OpCreate)
		return
	}
	s.countCreated()
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionInserted(r.Context(), tx.ID, string(tx.Fund), string(tx.Kind), int64(tx.Amount))
	writeJSON(w, http.StatusCreated, tx)
}

// handleDeleteTransaction requires confirm=true. Deleting an unknown id is
// not an error.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}
	if !confirmed(r) {
		writeError(w, http.StatusPreconditionRequired, "deletion must be confirmed with confirm=true")
		return
	}
	removed, err := s.deps.Store.Delete(r.Context(), id)
	if err != nil {
		writeInternal(w, r, "could not delete transaction", err, log.OpDelete)
		return
	}
	if removed {
		s.countDeleted()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, _, _, ok := s.filtered(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="quy-`+s.now().Format(core.DateLayout)+`.csv"`)
	// UTF-8 BOM so spreadsheet tools detect the Vietnamese text.
	_, _ = w.Write([]byte("\ufeff"))
	if err := core.WriteCSV(w, txs); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldError, err, log.FieldOperation, log.OpExport)
	}
}
