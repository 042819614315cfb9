package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/mlms/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/mlms/internal/app"
	"github.com/MrJamesThe3rd/mlms/internal/client/importer"
	"github.com/MrJamesThe3rd/mlms/internal/config"
	"github.com/MrJamesThe3rd/mlms/internal/logger"
)

const logFile = "mlms-tui.log"

type model struct {
	services *app.App
	parser   *importer.Parser

	currentView View

	dashboardView view.DashboardModel
	loansView     view.LoansModel
	importView    view.ImportModel
	sweepView     view.SweepModel
	exportView    view.ExportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewDashboard View = 1
	ViewLoans     View = 2
	ViewImport    View = 3
	ViewSweep     View = 4
	ViewExport    View = 5
)

func initialModel(services *app.App) model {
	return model{
		services:    services,
		parser:      importer.NewParser(),
		currentView: ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDashboard
				m.dashboardView = view.NewDashboardModel(m.services.Reports)

				return m, m.dashboardView.Init()
			case "2":
				m.currentView = ViewLoans
				m.loansView = view.NewLoansModel(m.services.Loans, m.services.Clients)

				return m, m.loansView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.services.Clients, m.parser)

				return m, m.importView.Init()
			case "4":
				m.currentView = ViewSweep
				m.sweepView = view.NewSweepModel(m.services.Loans)

				return m, m.sweepView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.services.Reports)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewLoans:
		var newModel tea.Model
		newModel, cmd = m.loansView.Update(msg)
		m.loansView = newModel.(view.LoansModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewSweep:
		var newModel tea.Model
		newModel, cmd = m.sweepView.Update(msg)
		m.sweepView = newModel.(view.SweepModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"MLMS Loan Officer Console\n\n" +
				"1. Portfolio Dashboard\n" +
				"2. Loans & Schedules\n" +
				"3. Import Clients\n" +
				"4. Run Overdue Sweep\n" +
				"5. Export Portfolio Report\n\n" +
				"q. Quit",
		)
	case ViewDashboard:
		return m.dashboardView.View()
	case ViewLoans:
		return m.loansView.View()
	case ViewImport:
		return m.importView.View()
	case ViewSweep:
		return m.sweepView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

// setupLogging keeps log output off the terminal the TUI draws on.
func setupLogging(level string) func() {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Init(level, io.Discard)
		return func() {}
	}

	logger.Init(level, f)

	return func() { _ = f.Close() }
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	closeLog := setupLogging(cfg.App.LogLevel)

	services, err := app.New(context.Background(), cfg)
	if err != nil {
		closeLog()
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to start", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(services), tea.WithAltScreen())
	_, err = p.Run()

	_ = services.Close()
	closeLog()

	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
