package http

import (
	"encoding/csv"
	"net/http"

	"fintrack/internal/log"
)

var csvHeader = []string{"kind", "date", "label", "category", "amount"}

// handleExportCSV streams every ledger entry, incomes first, in insertion
// order.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	incomes, err := s.finance.Incomes(r.Context(), user)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	expenses, err := s.finance.Expenses(r.Context(), user)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fintrack.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, e := range incomes {
		_ = cw.Write([]string{"income", e.Date.String(), e.Source, "", e.Amount.String()})
	}
	for _, e := range expenses {
		_ = cw.Write([]string{"expense", e.Date.String(), e.Description, e.Category, e.Amount.String()})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "csv export interrupted",
			log.NewFields().WithError(err).ToSlice()...)
	}
}
