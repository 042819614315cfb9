package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

const sweepTimeout = time.Minute

type SweepModel struct {
	CommonModel
	loanService *loan.Service

	running bool
	result  loan.SweepResult
	err     error
	spinner spinner.Model
}

func NewSweepModel(svc *loan.Service) SweepModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return SweepModel{
		loanService: svc,
		running:     true,
		spinner:     s,
	}
}

func (m SweepModel) Title() string { return "Overdue Sweep" }

func (m SweepModel) ShortHelp() string {
	if m.running {
		return "Sweeping..."
	}

	return "Esc: back | r: run again"
}

func (m SweepModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.sweepCmd())
}

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sweepDoneMsg:
		m.running = false
		m.result = msg.result
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		if m.running {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.running = true
			return m, tea.Batch(m.spinner.Tick, m.sweepCmd())
		}

		return m, nil
	}

	if !m.running {
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m SweepModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	if m.running {
		return style.Render(fmt.Sprintf("%s Marking past-due installments as overdue...", m.spinner.View()))
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + faintStyle.Render(m.ShortHelp()))
	}

	if m.result.Processed == 0 {
		return style.Render(successStyle.Render("Nothing is past due.") + "\n\n" + faintStyle.Render(m.ShortHelp()))
	}

	body := fmt.Sprintf("%d installments marked overdue across %d loans:\n\n%s",
		m.result.Processed, len(m.result.LoanIDs), strings.Join(m.result.LoanIDs, "\n"))

	return style.Render(successStyle.Render("Sweep complete") + "\n\n" + body + "\n\n" + faintStyle.Render(m.ShortHelp()))
}

type sweepDoneMsg struct {
	result loan.SweepResult
	err    error
}

func (m SweepModel) sweepCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		res, err := m.loanService.RunOverdueSweep(ctx)

		return sweepDoneMsg{result: res, err: err}
	}
}
