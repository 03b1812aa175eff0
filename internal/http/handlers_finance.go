package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.finance.Summary(r.Context(), userFrom(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.finance.MonthlySeries(r.Context(), userFrom(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]interface{}{"months": series}).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthFilter(r.URL.Query())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	incomes, err := s.finance.Incomes(r.Context(), userFrom(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if month != "" {
		filtered := make([]core.IncomeEntry, 0, len(incomes))
		for _, e := range incomes {
			if e.Date.MonthKey() == month {
				filtered = append(filtered, e)
			}
		}
		incomes = filtered
	}
	NewJSONResponse().Body(map[string]interface{}{
		"incomes": incomes,
		"total":   ledger.Total(incomes),
	}).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthFilter(r.URL.Query())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	expenses, err := s.finance.Expenses(r.Context(), userFrom(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if month != "" {
		filtered := make([]core.ExpenseEntry, 0, len(expenses))
		for _, e := range expenses {
			if e.Date.MonthKey() == month {
				filtered = append(filtered, e)
			}
		}
		expenses = filtered
	}
	NewJSONResponse().Body(map[string]interface{}{
		"expenses": expenses,
		"total":    ledger.Total(expenses),
	}).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, badBody(err)).Write(w)
		return
	}
	amount, err := p.Amount()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	date, err := p.Date()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if date.IsEmpty() {
		date = core.Today()
	}

	entry, err := s.finance.RecordIncome(r.Context(), userFrom(r.Context()), p.Get("source"), amount, date)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, badBody(err)).Write(w)
		return
	}
	amount, err := p.Amount()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	date, err := p.Date()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if date.IsEmpty() {
		date = core.Today()
	}

	res, err := s.finance.RecordExpense(r.Context(), userFrom(r.Context()),
		p.Get("description"), p.Get("category"), amount, date)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if res.Alert.Alerting() {
		log.FromContext(r.Context()).InfoContext(r.Context(), "budget alert",
			log.FieldCategory, res.Entry.Category,
			log.FieldAlertState, res.Alert.String())
	}
	NewJSONResponse().Status(http.StatusCreated).Body(res).Write(w)
}

func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	desc := sanitizeInput(r.URL.Query().Get("description"))
	NewJSONResponse().Body(map[string]string{
		"description": desc,
		"category":    s.finance.SuggestCategory(desc),
	}).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.finance.Budgets(r.Context(), userFrom(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]interface{}{"budgets": budgets}).Write(w)
}

func categoryParam(r *http.Request) string {
	raw := chi.URLParam(r, "category")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return sanitizeInput(raw)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, badBody(err)).Write(w)
		return
	}
	amount, err := p.Amount()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	category := categoryParam(r)
	if err := s.finance.SetBudget(r.Context(), userFrom(r.Context()), category, amount); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]interface{}{
		"category": category,
		"ceiling":  amount,
	}).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.RemoveBudget(r.Context(), userFrom(r.Context()), categoryParam(r)); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
