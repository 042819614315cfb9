package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/client/importer"
)

// Creating clients scores each one against the advisory model, which can be
// slow for a large file.
const importTimeout = 5 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateParsing
	importStateReview
	importStateSaving
	importStateResult
)

type ImportModel struct {
	CommonModel
	clientService *client.Service
	parser        *importer.Parser

	state      importState
	filePicker filepicker.Model

	parsed    []client.CreateParams
	rowErrors []importer.RowError
	charset   string
	rowList   list.Model
	selected  map[int]bool

	status string
	err    error
}

func NewImportModel(clientSvc *client.Service, parser *importer.Parser) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		clientService: clientSvc,
		parser:        parser,
		filePicker:    fp,
		selected:      make(map[int]bool),
	}
}

func (m ImportModel) Title() string { return "Import Clients" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateReview {
		return "Space: toggle | a: all | n: none | Enter: import selected | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateReview {
			return m.updateReview(msg)
		}

	case parseResultMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.parsed = msg.result.Clients
		m.rowErrors = msg.result.Errors
		m.charset = string(msg.result.Encoding)
		m.selected = make(map[int]bool, len(m.parsed))

		for i := range m.parsed {
			m.selected[i] = true
		}

		if len(m.parsed) == 0 {
			m.state = importStateResult
			m.err = errors.New("no valid rows")
			m.status = fmt.Sprintf("No valid clients found (%d rows rejected).", len(m.rowErrors))

			return m, nil
		}

		items := make([]list.Item, len(m.parsed))
		for i, p := range m.parsed {
			items[i] = rowItem{params: p, index: i}
		}

		m.rowList = list.New(items, rowDelegate{selected: &m.selected}, 80, 18)
		m.rowList.Title = fmt.Sprintf("Clients to import (%s)", m.charset)
		m.rowList.SetShowStatusBar(false)
		m.rowList.SetFilteringEnabled(false)
		m.rowList.SetShowHelp(false)
		m.state = importStateReview

		return m, nil

	case saveResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d clients.", msg.count)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateParsing
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateReview, importStateResult:
		m.state = importStateFilePick
		m.err = nil
		m.status = ""
		m.parsed = nil
		m.rowErrors = nil
		m.selected = make(map[int]bool)

		return m, m.filePicker.Init()
	case importStateParsing, importStateSaving:
		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.rowList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a":
		for i := range m.parsed {
			m.selected[i] = true
		}

		return m, nil
	case "n":
		for i := range m.parsed {
			m.selected[i] = false
		}

		return m, nil
	case "enter":
		m.state = importStateSaving
		m.status = "Scoring and saving clients..."

		return m, m.saveCmd()
	}

	var cmd tea.Cmd
	m.rowList, cmd = m.rowList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a client CSV (Name, CNIC, Phone, Address, ...):\n\n" + m.filePicker.View(),
		)
	case importStateParsing, importStateSaving:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateReview:
		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left, m.rowList.View(), m.viewRowErrors(), faintStyle.Render(m.ShortHelp())),
		)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewRowErrors() string {
	if len(m.rowErrors) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%d rows skipped:\n", len(m.rowErrors))

	for _, e := range m.rowErrors {
		fmt.Fprintf(&b, "  row %d: %v\n", e.Row, e.Err)
	}

	return errorStyle.Render(b.String())
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + m.viewRowErrors() + "\n\n(Esc to go back)")
	}

	return style.Render(successStyle.Render(m.status) + "\n\n(Esc to go back)")
}

// Messages

type parseResultMsg struct {
	result importer.Result
	err    error
}

type saveResultMsg struct {
	count int
	err   error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parseResultMsg{err: err}
		}
		defer f.Close()

		result, err := m.parser.Parse(f)
		if err != nil {
			return parseResultMsg{err: err}
		}

		return parseResultMsg{result: result}
	}
}

func (m ImportModel) saveCmd() tea.Cmd {
	params := make([]client.CreateParams, 0, len(m.parsed))
	for i, p := range m.parsed {
		if m.selected[i] {
			params = append(params, p)
		}
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		created, err := m.clientService.CreateBatch(ctx, params)
		if err != nil {
			return saveResultMsg{err: err}
		}

		return saveResultMsg{count: len(created)}
	}
}

// Parsed row list item

type rowItem struct {
	params client.CreateParams
	index  int
}

func (i rowItem) Title() string       { return i.params.Name }
func (i rowItem) Description() string { return i.params.CNIC }
func (i rowItem) FilterValue() string { return i.params.Name }

// Parsed row list delegate

type rowDelegate struct {
	selected *map[int]bool
}

func (d rowDelegate) Height() int                             { return 2 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(rowItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if (*d.selected)[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	p := item.params

	details := p.Phone + "  " + p.Address
	if p.Occupation != "" {
		details += "  " + p.Occupation
	}

	if p.Income != nil {
		details += "  PKR " + FormatAmount(*p.Income)
	}

	fmt.Fprintf(w, "%s%s %s  %s\n      %s\n", cursor, checkbox, p.Name, p.CNIC, details)
}
