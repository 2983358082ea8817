package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/move-binary-format/abi"
	"github.com/wippyai/move-binary-format/config"
	"github.com/wippyai/move-binary-format/format"
	"github.com/wippyai/move-binary-format/release"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// definitionItem is one struct or function of the browsed module.
type definitionItem struct {
	title  string
	desc   string
	detail string
}

func (i definitionItem) Title() string       { return i.title }
func (i definitionItem) Description() string { return i.desc }
func (i definitionItem) FilterValue() string { return i.title }

type focus int

const (
	focusList focus = iota
	focusDetail
)

type interactiveModel struct {
	err      error
	cfg      *config.Config
	filename string
	title    string
	list     list.Model
	detail   viewport.Model
	focus    focus
	width    int
	height   int
	ready    bool
}

func newInteractiveModel(filename string, cfg *config.Config) *interactiveModel {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Definitions"
	l.SetShowHelp(false)
	return &interactiveModel{
		cfg:      cfg,
		filename: filename,
		list:     l,
		detail:   viewport.New(0, 0),
	}
}

type loadedMsg struct {
	err   error
	title string
	items []list.Item
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	mod, err := release.NewLoader(m.cfg.DeserializerConfig()).LoadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	items, err := definitionItems(mod.Module)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{title: mod.ID().String(), items: items}
}

// definitionItems lists structs then functions, each with its disassembly
// as detail text.
func definitionItems(m *format.CompiledModule) ([]list.Item, error) {
	a, err := abi.FromModule(m)
	if err != nil {
		return nil, err
	}
	exposed := make(map[string]abi.Function, len(a.ExposedFunctions))
	for _, f := range a.ExposedFunctions {
		exposed[f.Name] = f
	}

	var items []list.Item
	for i, def := range m.StructDefs().All() {
		var b strings.Builder
		if err := format.DisassembleStruct(&b, m, i); err != nil {
			return nil, err
		}
		h := m.StructHandleAt(def.StructHandle)
		desc := "struct"
		if def.IsNative() {
			desc = "native struct"
		}
		if !h.Abilities.IsEmpty() {
			desc += " has " + h.Abilities.String()
		}
		items = append(items, definitionItem{
			title:  string(m.StructName(def.StructHandle)),
			desc:   desc,
			detail: b.String(),
		})
	}

	for i, def := range m.FunctionDefs().All() {
		var b strings.Builder
		if err := format.DisassembleFunction(&b, m, i); err != nil {
			return nil, err
		}
		name := string(m.FunctionName(def.Function))
		desc := def.Visibility.String() + " fun"
		if def.IsEntry {
			desc = "entry " + desc
		}
		if f, ok := exposed[name]; ok {
			params := make([]string, len(f.Params))
			for j, p := range f.Params {
				params[j] = p.String()
			}
			fmt.Fprintf(&b, "\nABI: %s(%s)", name, strings.Join(params, ", "))
			if len(f.Return) > 0 {
				rets := make([]string, len(f.Return))
				for j, r := range f.Return {
					rets[j] = r.String()
				}
				fmt.Fprintf(&b, ": (%s)", strings.Join(rets, ", "))
			}
			b.WriteByte('\n')
		}
		items = append(items, definitionItem{title: name, desc: desc, detail: b.String()})
	}
	return items, nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.focus == focusList {
				m.focus = focusDetail
			} else {
				m.focus = focusList
			}
			return m, nil
		case "esc":
			if m.focus == focusDetail {
				m.focus = focusList
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.ready = true

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.title = msg.title
		cmds = append(cmds, m.list.SetItems(msg.items))
		m.showSelected()
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	if m.focus == focusList {
		prev := m.list.Index()
		m.list, cmd = m.list.Update(msg)
		if m.list.Index() != prev {
			m.showSelected()
		}
	} else {
		m.detail, cmd = m.detail.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) resize() {
	listWidth := m.width / 3
	paneHeight := m.height - 4
	m.list.SetSize(listWidth, paneHeight)
	m.detail.Width = m.width - listWidth - 4
	m.detail.Height = paneHeight
}

func (m *interactiveModel) showSelected() {
	item, ok := m.list.SelectedItem().(definitionItem)
	if !ok {
		m.detail.SetContent("")
		return
	}
	m.detail.SetContent(item.detail)
	m.detail.GotoTop()
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.title == "" || !m.ready {
		return "Loading module..."
	}

	listPane, detailPane := focusedPaneStyle, paneStyle
	if m.focus == focusDetail {
		listPane, detailPane = paneStyle, focusedPaneStyle
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("movedump"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.filename))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Render(m.list.View()),
		detailPane.Render(m.detail.View())))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • / filter • tab switch pane • q quit"))
	return b.String()
}

func runInteractive(filename string, cfg *config.Config) error {
	if filename == "" {
		return fmt.Errorf("interactive mode requires -file")
	}
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
