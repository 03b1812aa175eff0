// Package console is the interactive menu front end over FinanceService.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const menu = `1. Add Income
2. Add Expense
3. Set Budget
4. View Summary
5. Exit`

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
	warn     lipgloss.Style
	muted    lipgloss.Style
	box      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")),
		label:    r.NewStyle().Width(16),
		positive: r.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		negative: r.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		box:      r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Console runs the menu loop for one user.
type Console struct {
	in     *bufio.Scanner
	out    io.Writer
	svc    *services.FinanceService
	user   string
	today  func() core.Date
	st     styles
	logger *log.Logger
}

// Option configures a Console.
type Option func(*Console)

// WithToday overrides the date used when the user leaves the date empty.
func WithToday(f func() core.Date) Option {
	return func(c *Console) { c.today = f }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Console) { c.logger = l.WithComponent(log.ComponentConsole) }
}

func New(in io.Reader, out io.Writer, svc *services.FinanceService, user string, opts ...Option) *Console {
	c := &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		svc:    svc,
		user:   user,
		today:  core.Today,
		st:     newStyles(lipgloss.NewRenderer(out)),
		logger: log.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run loads the user's data and loops until Exit or end of input. Data is
// flushed to storage before returning.
func (c *Console) Run(ctx context.Context) error {
	if err := c.svc.Open(ctx, c.user); err != nil {
		return fmt.Errorf("open %s: %w", c.user, err)
	}
	defer func() {
		if err := c.svc.Close(ctx, c.user); err != nil {
			c.logger.ErrorContext(ctx, "final save failed", log.FieldUser, c.user, log.FieldError, err)
		}
	}()

	for {
		c.println(c.st.title.Render("Personal Finance Manager"))
		c.println(menu)
		choice, ok := c.prompt("Choose an option: ")
		if !ok {
			c.println("")
			return nil
		}

		switch choice {
		case "1":
			c.addIncome(ctx)
		case "2":
			c.addExpense(ctx)
		case "3":
			c.setBudget(ctx)
		case "4":
			c.viewSummary(ctx)
		case "5":
			c.println("Goodbye!")
			return nil
		default:
			c.println(c.st.negative.Render("Invalid choice. Please select 1-5.") + "\n")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (c *Console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) readAmount(label string) (core.Money, bool) {
	raw, ok := c.prompt(label)
	if !ok {
		return core.Money{}, false
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		c.println(c.st.negative.Render("Invalid amount. Please enter a positive number.") + "\n")
		return core.Money{}, false
	}
	return amount, true
}

func (c *Console) readDate() (core.Date, bool) {
	raw, ok := c.prompt("Enter date (YYYY-MM-DD, Enter for today): ")
	if !ok {
		return core.Date{}, false
	}
	if raw == "" {
		return c.today(), true
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		c.println(c.st.negative.Render("Invalid date. Use YYYY-MM-DD.") + "\n")
		return core.Date{}, false
	}
	return d, true
}

// reportSaved prints the outcome of a mutation. Storage failures keep the
// in-memory change.
func (c *Console) reportSaved(err error, what string) bool {
	switch {
	case err == nil:
		c.println(c.st.positive.Render(what+" saved.") + "\n")
		return true
	case errors.Is(err, core.ErrStorage):
		c.println(c.st.warn.Render(what+" recorded, but saving failed: "+err.Error()) + "\n")
		return true
	default:
		c.println(c.st.negative.Render(err.Error()) + "\n")
		return false
	}
}

func (c *Console) addIncome(ctx context.Context) {
	source, ok := c.prompt("Enter income source: ")
	if !ok {
		return
	}
	amount, ok := c.readAmount("Enter income amount: ")
	if !ok {
		return
	}
	date, ok := c.readDate()
	if !ok {
		return
	}
	_, err := c.svc.RecordIncome(ctx, c.user, source, amount, date)
	c.reportSaved(err, "Income")
}

func (c *Console) addExpense(ctx context.Context) {
	desc, ok := c.prompt("Enter expense description: ")
	if !ok {
		return
	}
	suggested := c.svc.SuggestCategory(desc)
	c.println("Suggested category: " + c.st.title.Render(suggested))
	category, ok := c.prompt(fmt.Sprintf("Enter expense category (Enter to accept '%s'): ", suggested))
	if !ok {
		return
	}
	if category == "" {
		category = suggested
	}
	amount, ok := c.readAmount("Enter expense amount: ")
	if !ok {
		return
	}
	date, ok := c.readDate()
	if !ok {
		return
	}

	res, err := c.svc.RecordExpense(ctx, c.user, desc, category, amount, date)
	if !c.reportSaved(err, "Expense") {
		return
	}
	if res.Alert.Alerting() {
		c.println(c.alertLine(res.Status) + "\n")
	}
}

func (c *Console) setBudget(ctx context.Context) {
	category, ok := c.prompt("Enter category: ")
	if !ok {
		return
	}
	amount, ok := c.readAmount("Enter monthly budget: ")
	if !ok {
		return
	}
	c.reportSaved(c.svc.SetBudget(ctx, c.user, category, amount), "Budget")
}

func (c *Console) alertLine(s core.CategoryStatus) string {
	ceiling := ""
	if s.Ceiling != nil {
		ceiling = s.Ceiling.String()
	}
	switch s.State {
	case budget.Exceeded.String():
		return c.st.negative.Bold(true).Render(fmt.Sprintf("Alert: %s budget exceeded (%s of %s)", s.Category, s.Spent, ceiling))
	default:
		return c.st.warn.Render(fmt.Sprintf("Warning: %s budget nearly used (%.0f%% of %s)", s.Category, s.PercentUsed, ceiling))
	}
}

func (c *Console) viewSummary(ctx context.Context) {
	sum, err := c.svc.Summary(ctx, c.user)
	if err != nil {
		c.println(c.st.negative.Render(err.Error()) + "\n")
		return
	}

	var b strings.Builder
	b.WriteString(c.st.title.Render("Summary") + "\n")
	b.WriteString(c.st.label.Render("Total Income:") + c.st.positive.Render(sum.TotalIncome.String()) + "\n")
	b.WriteString(c.st.label.Render("Total Expense:") + c.st.negative.Render(sum.TotalExpense.String()) + "\n")
	balance := c.st.positive
	if sum.Balance.Cents < 0 {
		balance = c.st.negative
	}
	b.WriteString(c.st.label.Render("Balance:") + balance.Render(sum.Balance.String()) + "\n")

	b.WriteString("\n" + c.st.title.Render("Expenses by Category") + "\n")
	if len(sum.ByCategory) == 0 {
		b.WriteString(c.st.muted.Render("No expenses yet.") + "\n")
	}
	for _, ca := range sum.ByCategory {
		b.WriteString(c.st.label.Render(ca.Name+":") + ca.Amount.String() + "\n")
	}

	if len(sum.Budgets) > 0 {
		b.WriteString("\n" + c.st.title.Render("Budgets") + "\n")
	}
	for _, s := range sum.Budgets {
		line := c.st.label.Render(s.Category+":") + s.Spent.String()
		if s.Ceiling != nil {
			line += " / " + s.Ceiling.String() + fmt.Sprintf(" (%.0f%%)", s.PercentUsed)
		}
		switch s.State {
		case budget.Exceeded.String():
			line = c.st.negative.Render(line + " EXCEEDED")
		case budget.Nearing.String():
			line = c.st.warn.Render(line + " NEARING")
		}
		b.WriteString(line + "\n")
	}

	c.println(c.st.box.Render(strings.TrimRight(b.String(), "\n")) + "\n")
}
