package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/mlms/internal/report"
)

type DashboardModel struct {
	CommonModel
	reportService *report.Service

	dashboard *report.Dashboard
	officers  table.Model
	loading   bool
	err       error
}

func NewDashboardModel(svc *report.Service) DashboardModel {
	columns := []table.Column{
		{Title: "Officer", Width: 22},
		{Title: "Loans", Width: 7},
		{Title: "Disbursed", Width: 14},
		{Title: "Active", Width: 7},
		{Title: "Defaulted", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	t.SetStyles(tableStyles())

	return DashboardModel{
		reportService: svc,
		officers:      t,
		loading:       true,
	}
}

func (m DashboardModel) Title() string     { return "Portfolio Dashboard" }
func (m DashboardModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.dashboard = msg.dashboard

		if msg.dashboard != nil {
			m.refreshOfficers()
		}

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m *DashboardModel) refreshOfficers() {
	rows := make([]table.Row, 0, len(m.dashboard.OfficerPerformance))
	for _, o := range m.dashboard.OfficerPerformance {
		rows = append(rows, table.Row{
			o.Officer,
			fmt.Sprint(o.TotalLoans),
			FormatAmount(o.TotalDisbursed),
			fmt.Sprint(o.Active),
			fmt.Sprint(o.Defaulted),
		})
	}

	m.officers.SetRows(rows)
}

func (m DashboardModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading portfolio...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	d := m.dashboard

	totals := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("Portfolio"),
		fmt.Sprintf("Clients:           %d", d.TotalClients),
		fmt.Sprintf("Active loans:      %d", d.ActiveLoans),
		fmt.Sprintf("Completed loans:   %d", d.CompletedLoans),
		fmt.Sprintf("Defaulted loans:   %d", d.DefaultedLoans),
		fmt.Sprintf("Total disbursed:   PKR %s", FormatAmount(d.TotalDisbursed)),
		fmt.Sprintf("Outstanding:       PKR %s", FormatAmount(d.TotalOutstanding)),
	)

	var risk strings.Builder
	risk.WriteString(headerStyle.Render("Risk distribution") + "\n")

	for _, b := range d.RiskDistribution {
		fmt.Fprintf(&risk, "%-8s %s %d\n", b.Risk, strings.Repeat("■", b.Count), b.Count)
	}

	var months strings.Builder
	months.WriteString(headerStyle.Render("Disbursement by month") + "\n")

	for _, mt := range d.DisbursementByMonth {
		fmt.Fprintf(&months, "%s  PKR %s\n", mt.Month, FormatAmount(mt.Amount))
	}

	box := lipgloss.NewStyle().
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63"))

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		box.Render(totals),
		box.Render(strings.TrimRight(risk.String(), "\n")),
		box.Render(strings.TrimRight(months.String(), "\n")),
	)

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		top,
		"",
		headerStyle.Render("Officer performance"),
		m.officers.View(),
		faintStyle.Render(m.ShortHelp()),
	))
}

type dashboardLoadedMsg struct {
	dashboard *report.Dashboard
	err       error
}

func (m DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d, err := m.reportService.Dashboard(ctx)

		return dashboardLoadedMsg{dashboard: d, err: err}
	}
}
