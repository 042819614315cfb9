package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type loansState int

const (
	loansStateBrowse loansState = iota
	loansStateSchedule
	loansStatePayment
	loansStateOverride
)

var statusFilters = []*loan.Status{
	nil,
	new(loan.StatusActive),
	new(loan.StatusCompleted),
	new(loan.StatusDefaulted),
}

// formValues lives on the heap so the huh fields keep writing to the same
// place while the model is copied around by bubbletea.
type formValues struct {
	installment loan.InstallmentStatus
	paidAmount  string
	loanStatus  loan.Status
}

type LoansModel struct {
	CommonModel
	loanService   *loan.Service
	clientService *client.Service

	state    loansState
	table    table.Model
	schedule table.Model
	loans    []*loan.Loan
	clients  map[string]string
	selected *loan.Loan

	form   *huh.Form
	values *formValues

	statusFilterIdx int
	loading         bool
	err             error
	status          string
}

func NewLoansModel(loanSvc *loan.Service, clientSvc *client.Service) LoansModel {
	loansTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Client", Width: 20},
			{Title: "Type", Width: 14},
			{Title: "Amount", Width: 12},
			{Title: "Outstanding", Width: 12},
			{Title: "Status", Width: 10},
			{Title: "Officer", Width: 16},
			{Title: "Start", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	loansTable.SetStyles(tableStyles())

	scheduleTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Due", Width: 12},
			{Title: "Amount", Width: 12},
			{Title: "Status", Width: 15},
			{Title: "Paid", Width: 12},
			{Title: "Paid On", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	scheduleTable.SetStyles(tableStyles())

	return LoansModel{
		loanService:   loanSvc,
		clientService: clientSvc,
		table:         loansTable,
		schedule:      scheduleTable,
		clients:       map[string]string{},
		values:        &formValues{},
		loading:       true,
	}
}

func (m LoansModel) Title() string { return "Loans" }

func (m LoansModel) ShortHelp() string {
	switch m.state {
	case loansStateSchedule:
		return "Esc: back | p: update payment | o: override loan status"
	case loansStatePayment, loansStateOverride:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | Enter: schedule | s: status filter | r: refresh"
}

func (m LoansModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m LoansModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loansLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.loans = msg.loans
		m.clients = msg.clients
		m.refreshTable()

		return m, nil

	case loanSavedMsg:
		m.form = nil
		m.state = loansStateSchedule
		m.schedule.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			return m, nil
		}

		m.status = successStyle.Render(msg.summary)
		m.selected = msg.loan
		m.refreshSchedule()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		m.schedule.SetHeight(msg.Height - 14)

		return m, nil
	}

	switch m.state {
	case loansStateBrowse:
		return m.updateBrowse(msg)
	case loansStateSchedule:
		return m.updateSchedule(msg)
	case loansStatePayment, loansStateOverride:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m LoansModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			return m, m.loadCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.loans) {
				return m, nil
			}

			m.selected = m.loans[idx]
			m.status = ""
			m.state = loansStateSchedule
			m.refreshSchedule()
			m.schedule.SetCursor(firstUnpaid(m.selected))

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m LoansModel) updateSchedule(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = loansStateBrowse
			m.selected = nil
			m.status = ""

			return m, nil
		case "p":
			return m.enterPaymentForm()
		case "o":
			return m.enterOverrideForm()
		}
	}

	var cmd tea.Cmd
	m.schedule, cmd = m.schedule.Update(msg)

	return m, cmd
}

func (m LoansModel) enterPaymentForm() (tea.Model, tea.Cmd) {
	inst := m.cursorInstallment()
	if inst == nil {
		return m, nil
	}

	*m.values = formValues{installment: inst.Status}
	if inst.PaidAmount != nil && inst.Status == loan.InstallmentPartiallyPaid {
		m.values.paidAmount = inst.PaidAmount.String()
	}

	v := m.values
	limit := inst.Amount

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[loan.InstallmentStatus]().
				Title("Installment status").
				Options(
					huh.NewOption("Paid", loan.InstallmentPaid),
					huh.NewOption("Partially Paid", loan.InstallmentPartiallyPaid),
					huh.NewOption("Pending", loan.InstallmentPending),
					huh.NewOption("Overdue", loan.InstallmentOverdue),
				).
				Value(&v.installment),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Amount received").
				Description(fmt.Sprintf("Less than %s", FormatAmount(limit))).
				Value(&v.paidAmount).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil {
						return errors.New("enter a number")
					}

					if !d.IsPositive() || d.GreaterThanOrEqual(limit) {
						return fmt.Errorf("must be between 0 and %s", FormatAmount(limit))
					}

					return nil
				}),
		).WithHideFunc(func() bool {
			return v.installment != loan.InstallmentPartiallyPaid
		}),
	).WithWidth(45).WithShowHelp(false)

	m.state = loansStatePayment
	m.schedule.Blur()

	return m, m.form.Init()
}

func (m LoansModel) enterOverrideForm() (tea.Model, tea.Cmd) {
	if m.selected == nil {
		return m, nil
	}

	*m.values = formValues{loanStatus: m.selected.Status}
	v := m.values

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[loan.Status]().
				Title("Loan status").
				Options(
					huh.NewOption("Active", loan.StatusActive),
					huh.NewOption("Completed", loan.StatusCompleted),
					huh.NewOption("Defaulted", loan.StatusDefaulted),
				).
				Value(&v.loanStatus),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = loansStateOverride
	m.schedule.Blur()

	return m, m.form.Init()
}

func (m LoansModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = loansStateSchedule
		m.form = nil
		m.schedule.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == loansStateOverride {
		return m, m.overrideCmd()
	}

	return m, m.paymentCmd()
}

func (m LoansModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading loans...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	var content string

	switch m.state {
	case loansStateBrowse:
		label := "All"
		if f := statusFilters[m.statusFilterIdx]; f != nil {
			label = string(*f)
		}

		content = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render("Filter: [s] Status: "+activeStyle(label)),
			bordered(m.table.View()),
		)
	default:
		content = m.viewSchedule()
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left, content, faintStyle.Render(m.ShortHelp())),
	)
}

func (m LoansModel) viewSchedule() string {
	l := m.selected

	header := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("%s · %s", m.clientName(l.ClientID), l.Type)),
		fmt.Sprintf("Amount PKR %s over %d months from %s | Status: %s",
			FormatAmount(l.Amount), l.DurationMonths, FormatDate(l.StartDate), activeStyle(string(l.Status))),
		fmt.Sprintf("Paid PKR %s | Outstanding PKR %s | Officer: %s",
			FormatAmount(l.TotalPaid()), FormatAmount(l.Outstanding()), l.AssignedOfficer),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		bordered(m.schedule.View()),
	)

	if m.form == nil {
		return content
	}

	title := "Update Payment"
	if m.state == loansStateOverride {
		title = "Override Loan Status"
	}

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48).
		Render(title + "\n\n" + m.form.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
}

func bordered(s string) string {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(s)
}

func (m LoansModel) clientName(id string) string {
	if name, ok := m.clients[id]; ok {
		return name
	}

	return "Unknown"
}

func (m *LoansModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.loans))
	for _, l := range m.loans {
		rows = append(rows, table.Row{
			m.clientName(l.ClientID),
			l.Type,
			FormatAmount(l.Amount),
			FormatAmount(l.Outstanding()),
			string(l.Status),
			l.AssignedOfficer,
			FormatDate(l.StartDate),
		})
	}

	m.table.SetRows(rows)
}

func (m *LoansModel) refreshSchedule() {
	if m.selected == nil {
		m.schedule.SetRows(nil)
		return
	}

	rows := make([]table.Row, 0, len(m.selected.Schedule))
	for i, inst := range m.selected.Schedule {
		paid, paidOn := "", ""
		if inst.PaidAmount != nil {
			paid = FormatAmount(*inst.PaidAmount)
		}

		if inst.PaymentDate != nil {
			paidOn = FormatDate(*inst.PaymentDate)
		}

		rows = append(rows, table.Row{
			fmt.Sprint(i + 1),
			FormatDate(inst.DueDate),
			FormatAmount(inst.Amount),
			string(inst.Status),
			paid,
			paidOn,
		})
	}

	m.schedule.SetRows(rows)
}

func (m LoansModel) cursorInstallment() *loan.Installment {
	if m.selected == nil {
		return nil
	}

	idx := m.schedule.Cursor()
	if idx < 0 || idx >= len(m.selected.Schedule) {
		return nil
	}

	return m.selected.Schedule[idx]
}

func firstUnpaid(l *loan.Loan) int {
	for i, inst := range l.Schedule {
		if inst.Status != loan.InstallmentPaid {
			return i
		}
	}

	return 0
}

// Messages

type loansLoadedMsg struct {
	loans   []*loan.Loan
	clients map[string]string
	err     error
}

func (m LoansModel) loadCmd() tea.Cmd {
	filter := loan.Filter{Status: statusFilters[m.statusFilterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		loans, err := m.loanService.List(ctx, filter)
		if err != nil {
			return loansLoadedMsg{err: err}
		}

		clients, err := m.clientService.List(ctx)
		if err != nil {
			return loansLoadedMsg{err: err}
		}

		names := make(map[string]string, len(clients))
		for _, c := range clients {
			names[c.ID] = c.Name
		}

		return loansLoadedMsg{loans: loans, clients: names}
	}
}

type loanSavedMsg struct {
	loan    *loan.Loan
	summary string
	err     error
}

func (m LoansModel) paymentCmd() tea.Cmd {
	inst := m.cursorInstallment()
	if inst == nil || m.selected == nil {
		return nil
	}

	loanID, instID := m.selected.ID, inst.ID
	status := m.values.installment

	var paid *decimal.Decimal

	if status == loan.InstallmentPartiallyPaid {
		d, err := decimal.NewFromString(strings.TrimSpace(m.values.paidAmount))
		if err != nil {
			return func() tea.Msg { return loanSavedMsg{err: err} }
		}

		paid = &d
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		l, err := m.loanService.UpdatePayment(ctx, loanID, instID, status, paid)
		if err != nil {
			return loanSavedMsg{err: err}
		}

		return loanSavedMsg{loan: l, summary: fmt.Sprintf("Installment marked %s, loan is %s.", status, l.Status)}
	}
}

func (m LoansModel) overrideCmd() tea.Cmd {
	if m.selected == nil {
		return nil
	}

	loanID := m.selected.ID
	status := m.values.loanStatus

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		l, err := m.loanService.SetStatus(ctx, loanID, status)
		if err != nil {
			return loanSavedMsg{err: err}
		}

		return loanSavedMsg{loan: l, summary: fmt.Sprintf("Loan status set to %s.", l.Status)}
	}
}
