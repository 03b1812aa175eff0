package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/cache"
	"fintrack/internal/classifier"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/storage/memory"
	"fintrack/internal/users"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	summaries := cache.NewLRUCache[core.Summary](16, time.Minute)
	s := NewServer(":0", Deps{
		Finance:            services.NewFinanceService(store, classifier.Default(), services.WithSummaryCache(summaries)),
		Users:              users.NewService(store, users.WithCost(bcrypt.MinCost)),
		Sessions:           session.NewManager("test-secret-0123456789", time.Hour),
		Store:              store,
		SummaryCache:       summaries,
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { s.rateLimiter.Stop() })
	return s, store
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, s *Server, user string) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/register", "",
		`{"username":"`+user+`","password":"secret1","password_confirm":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/login", "", `{"username":"`+user+`","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decode(t, rec, &resp)
	if resp.Token == "" || resp.User != user {
		t.Fatalf("login response: %+v", resp)
	}
	return resp.Token
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id missing")
	}

	rec = do(t, s, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready"`) {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}

	s.store = downPinger{}
	rec = do(t, s, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with storage down: %d", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s, "alice")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"duplicate", "/api/register", `{"username":"alice","password":"secret1","password_confirm":"secret1"}`, http.StatusConflict},
		{"reserved", "/api/register", `{"username":"admin","password":"secret1","password_confirm":"secret1"}`, http.StatusUnprocessableEntity},
		{"mismatch", "/api/register", `{"username":"bob","password":"secret1","password_confirm":"secret2"}`, http.StatusUnprocessableEntity},
		{"short password", "/api/register", `{"username":"bob","password":"abc","password_confirm":"abc"}`, http.StatusUnprocessableEntity},
		{"malformed", "/api/register", `{"username":`, http.StatusBadRequest},
		{"wrong password", "/api/login", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", "/api/login", `{"username":"carol","password":"secret1"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, "", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t)

	for _, token := range []string{"", "not-a-jwt"} {
		rec := do(t, s, http.MethodGet, "/api/summary", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status %d", token, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatal("missing challenge")
		}
	}
}

func TestExpenseFlowWithBudgetAlerts(t *testing.T) {
	s, store := newTestServer(t)
	token := login(t, s, "alice")

	rec := do(t, s, http.MethodPost, "/api/incomes", token, `{"source":"Salary","amount":"2000","date":"2024-05-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("income: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPut, "/api/budgets/Food", token, `{"amount":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: %d %s", rec.Code, rec.Body.String())
	}

	steps := []struct {
		body  string
		state string
	}{
		{`{"description":"Pizza night","amount":50,"date":"2024-05-02"}`, "normal"},
		{`{"description":"Groceries","amount":40,"date":"2024-05-03"}`, "nearing"},
		{`{"description":"Coffee","amount":"10.00","date":"2024-06-01"}`, "exceeded"},
	}
	for i, step := range steps {
		rec = do(t, s, http.MethodPost, "/api/expenses", token, step.body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expense %d: %d %s", i, rec.Code, rec.Body.String())
		}
		var res struct {
			Entry core.ExpenseEntry `json:"entry"`
			Alert string            `json:"alert"`
		}
		decode(t, rec, &res)
		if res.Entry.Category != "Food" {
			t.Fatalf("expense %d: category %q, want suggested Food", i, res.Entry.Category)
		}
		if res.Alert != step.state {
			t.Fatalf("expense %d: alert %q, want %q", i, res.Alert, step.state)
		}
	}

	rec = do(t, s, http.MethodGet, "/api/summary", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d", rec.Code)
	}
	var sum core.Summary
	decode(t, rec, &sum)
	if sum.TotalIncome.Cents != 200000 || sum.TotalExpense.Cents != 10000 || sum.Balance.Cents != 190000 {
		t.Fatalf("summary totals: %+v", sum)
	}
	if len(sum.Budgets) != 1 || sum.Budgets[0].State != "exceeded" {
		t.Fatalf("summary budgets: %+v", sum.Budgets)
	}

	rec = do(t, s, http.MethodGet, "/api/expenses?month=2024-05", token, "")
	var list struct {
		Expenses []core.ExpenseEntry `json:"expenses"`
		Total    core.Money          `json:"total"`
	}
	decode(t, rec, &list)
	if len(list.Expenses) != 2 || list.Total.Cents != 9000 {
		t.Fatalf("filtered expenses: %+v", list)
	}

	rec = do(t, s, http.MethodGet, "/api/series", token, "")
	var series struct {
		Months []core.MonthPoint `json:"months"`
	}
	decode(t, rec, &series)
	if len(series.Months) != 2 || series.Months[0].Month != "2024-05" {
		t.Fatalf("series: %+v", series.Months)
	}

	// write-through: the store already holds everything
	_, expenses, err := store.LoadLedger(context.Background(), "alice")
	if err != nil || len(expenses) != 3 {
		t.Fatalf("stored expenses = %d, %v", len(expenses), err)
	}
}

func TestUndatedEntriesDefaultToToday(t *testing.T) {
	s, store := newTestServer(t)
	token := login(t, s, "alice")
	today := core.Today()

	if rec := do(t, s, http.MethodPost, "/api/incomes", token, `{"source":"Gift","amount":20}`); rec.Code != http.StatusCreated {
		t.Fatalf("income: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodPost, "/api/expenses", token, `{"description":"Bus","category":"Travel","amount":3}`); rec.Code != http.StatusCreated {
		t.Fatalf("expense: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodPost, "/api/logout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}

	incomes, expenses, err := store.LoadLedger(context.Background(), "alice")
	if err != nil || len(incomes) != 1 || len(expenses) != 1 {
		t.Fatalf("stored ledger = %v, %v, %v", incomes, expenses, err)
	}
	if incomes[0].Date.String() != today.String() || expenses[0].Date.String() != today.String() {
		t.Fatalf("stored dates = %v, %v; want %v", incomes[0].Date, expenses[0].Date, today)
	}

	// the token outlives the session; the ledger reloads from storage
	rec := do(t, s, http.MethodGet, "/api/series", token, "")
	var series struct {
		Months []core.MonthPoint `json:"months"`
	}
	decode(t, rec, &series)
	if len(series.Months) != 1 || series.Months[0].Month != today.MonthKey() {
		t.Fatalf("series: %+v", series.Months)
	}
}

func TestValidationErrors(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"zero amount", http.MethodPost, "/api/expenses", `{"description":"Bus","amount":0}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/expenses", `{"description":"Bus","amount":-3}`, http.StatusUnprocessableEntity},
		{"non numeric", http.MethodPost, "/api/incomes", `{"source":"Gift","amount":"lots"}`, http.StatusUnprocessableEntity},
		{"empty source", http.MethodPost, "/api/incomes", `{"source":" ","amount":5}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/incomes", `{"source":"Gift","amount":5,"date":"05/01/2024"}`, http.StatusUnprocessableEntity},
		{"bad month filter", http.MethodGet, "/api/incomes?month=2024-99", "", http.StatusUnprocessableEntity},
		{"remove unset budget", http.MethodDelete, "/api/budgets/Travel", "", http.StatusNotFound},
		{"budget zero", http.MethodPut, "/api/budgets/Travel", `{"amount":0}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := do(t, s, http.MethodGet, "/api/expenses", token, "")
	var list struct {
		Expenses []core.ExpenseEntry `json:"expenses"`
	}
	decode(t, rec, &list)
	if len(list.Expenses) != 0 {
		t.Fatalf("rejected input was stored: %+v", list.Expenses)
	}
}

func TestBudgetsAndSuggest(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "alice")

	if rec := do(t, s, http.MethodPut, "/api/budgets/Eating%20Out", token, `{"amount":"75.5"}`); rec.Code != http.StatusOK {
		t.Fatalf("set: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodGet, "/api/budgets", token, "")
	var got struct {
		Budgets map[string]core.Money `json:"budgets"`
	}
	decode(t, rec, &got)
	if got.Budgets["Eating Out"].Cents != 7550 {
		t.Fatalf("budgets: %+v", got.Budgets)
	}

	if rec := do(t, s, http.MethodDelete, "/api/budgets/Eating%20Out", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/categories/suggest?description=Taxi+to+airport", token, "")
	var sug map[string]string
	decode(t, rec, &sug)
	if sug["category"] != "Travel" {
		t.Fatalf("suggest: %+v", sug)
	}
	rec = do(t, s, http.MethodGet, "/api/categories/suggest?description=Gym", token, "")
	decode(t, rec, &sug)
	if sug["category"] != core.DefaultCategory {
		t.Fatalf("suggest fallback: %+v", sug)
	}
}

func TestExportCSV(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "alice")

	do(t, s, http.MethodPost, "/api/incomes", token, `{"source":"Salary","amount":1000}`)
	do(t, s, http.MethodPost, "/api/expenses", token, `{"description":"Train, return","category":"Travel","amount":12.3,"date":"2024-02-10"}`)

	rec := do(t, s, http.MethodGet, "/api/export.csv", token, "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		csvHeader,
		{"income", "", "Salary", "", "1000.00"},
		{"expense", "2024-02-10", "Train, return", "Travel", "12.30"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestLogoutFlushesSession(t *testing.T) {
	s, store := newTestServer(t)
	token := login(t, s, "alice")
	do(t, s, http.MethodPut, "/api/budgets/Food", token, `{"amount":10}`)

	if rec := do(t, s, http.MethodPost, "/api/logout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	budgets, err := store.LoadBudgets(context.Background(), "alice")
	if err != nil || budgets["Food"].Cents != 1000 {
		t.Fatalf("budgets after logout = %v, %v", budgets, err)
	}

	// a later request reloads from storage
	rec := do(t, s, http.MethodGet, "/api/budgets", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Food":10`) {
		t.Fatalf("reload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "alice")

	s.rateLimiter.Stop()
	s2 := NewServer(":0", Deps{
		Finance:            s.finance,
		Users:              s.users,
		Sessions:           s.sessions,
		Store:              s.store,
		RateLimitPerMinute: 1,
	})
	defer s2.rateLimiter.Stop()

	if rec := do(t, s2, http.MethodPost, "/api/incomes", token, `{"source":"A","amount":1}`); rec.Code != http.StatusCreated {
		t.Fatalf("first: %d", rec.Code)
	}
	rec := do(t, s2, http.MethodPost, "/api/incomes", token, `{"source":"B","amount":1}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second: %d", rec.Code)
	}
	// reads are not limited
	if rec := do(t, s2, http.MethodGet, "/api/incomes", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("read: %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "alice")
	do(t, s, http.MethodGet, "/api/summary", token, "")
	do(t, s, http.MethodGet, "/api/summary", token, "")

	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	body := rec.Body.String()
	for _, want := range []string{"http_requests_total", "summary_cache_hits_total 1", "uptime_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}
