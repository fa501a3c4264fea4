// Package tui is the interactive todo list.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada-remote/internal/model"
	"github.com/idilsaglam/tada-remote/internal/todos"
	"github.com/idilsaglam/tada-remote/internal/ui"
)

const (
	focusTitle = iota
	focusDescription
)

// listItem adapts model.Todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) Title() string       { return i.todo.Title }
func (i listItem) Description() string { return i.todo.Description }
func (i listItem) FilterValue() string { return i.todo.Title + " " + i.todo.Description }

// resultMsg carries a finished network call back to the event loop.
type resultMsg struct {
	res todos.Result
}

type keyMap struct {
	add, edit, toggle, remove, reload key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.add, k.edit, k.toggle, k.remove, k.reload}
}

// Model is the Bubble Tea model. It owns the todos.Client; network calls run
// as commands and their results are applied in Update, so state is only
// touched from the event loop.
type Model struct {
	ctx    context.Context
	client *todos.Client
	keys   keyMap

	list    list.Model
	title   textinput.Model
	desc    textinput.Model
	focus   int
	formOn  bool // add or edit form visible
	spinner spinner.Model
	pending int  // requests in flight
	ticking bool // a spinner tick loop is live

	width, height int
}

// Custom delegate to control how items render
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	t := ui.Current()

	text := it.todo.Title
	if it.todo.Completed {
		text = t.Done.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(">") + " "
	}

	var meta []string
	if it.todo.Description != "" {
		meta = append(meta, it.todo.Description)
	}
	if !it.todo.CreatedAt.IsZero() {
		meta = append(meta, it.todo.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "%s%s %s\n    %s", prefix, ui.Checkbox(it.todo.Completed), text, t.Muted.Render(strings.Join(meta, " · ")))
}

// New builds the model around c. ctx bounds every request it issues.
func New(ctx context.Context, c *todos.Client) *Model {
	t := ui.Current()
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Help
	l.Styles.PaginationStyle = t.Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	title := textinput.New()
	title.Prompt = "title > "
	title.Placeholder = "What needs doing?"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Prompt = "descr > "
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Accent

	m := &Model{
		ctx:     ctx,
		client:  c,
		keys:    keys,
		list:    l,
		title:   title,
		desc:    desc,
		spinner: sp,
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, c *todos.Client) error {
	p := tea.NewProgram(New(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.request(m.client.LoadRequest())
}

// request wraps the network half of an operation in a command.
// A nil request is a local no-op.
func (m *Model) request(req todos.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	ctx := m.ctx
	run := func() tea.Msg { return resultMsg{res: req(ctx)} }
	m.pending++
	if !m.ticking {
		m.ticking = true
		return tea.Batch(run, m.spinner.Tick)
	}
	return run
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case resultMsg:
		return m, m.applyResult(msg.res)

	case spinner.TickMsg:
		if m.pending == 0 {
			m.ticking = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if cmd == nil {
			m.ticking = false
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.formOn {
			return m, m.updateForm(msg)
		}
		if m.list.FilterState() != list.Filtering {
			if cmd, handled := m.updateKeys(msg); handled {
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) applyResult(res todos.Result) tea.Cmd {
	if m.pending > 0 {
		m.pending--
	}
	// A late create only closes the form if it still shows what was sent.
	closeAfter := false
	switch r := res.(type) {
	case todos.Created:
		closeAfter = !m.client.IsEditing() && m.client.Form == r.Sent
	case todos.Updated:
		closeAfter = r.Edit
	}
	// Failures are logged by Apply; nothing is shown to the user.
	if err := m.client.Apply(res); err == nil && closeAfter && !m.client.IsEditing() {
		m.closeForm()
	}
	return m.refresh()
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case msg.String() == "q":
		return tea.Quit, true
	case key.Matches(msg, m.keys.add):
		m.client.CancelEdit()
		return m.openForm(), true
	case key.Matches(msg, m.keys.edit):
		if t, ok := m.selected(); ok {
			m.client.BeginEdit(t)
			return m.openForm(), true
		}
		return nil, true
	case key.Matches(msg, m.keys.toggle):
		if t, ok := m.selected(); ok {
			return m.request(m.client.ToggleRequest(t)), true
		}
		return nil, true
	case key.Matches(msg, m.keys.remove):
		if t, ok := m.selected(); ok {
			return m.request(m.client.DeleteRequest(t.TodoID)), true
		}
		return nil, true
	case key.Matches(msg, m.keys.reload):
		return m.request(m.client.LoadRequest()), true
	}
	return nil, false
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.syncForm()
		if m.client.IsEditing() {
			return m.request(m.client.SaveEditRequest())
		}
		f := m.client.Form
		return m.request(m.client.CreateRequest(f.Title, f.Description))
	case "esc":
		m.client.CancelEdit()
		m.closeForm()
		return nil
	case "tab", "shift+tab", "up", "down":
		if m.focus == focusTitle {
			m.focus = focusDescription
			m.title.Blur()
			return m.desc.Focus()
		}
		m.focus = focusTitle
		m.desc.Blur()
		return m.title.Focus()
	}

	var cmd tea.Cmd
	if m.focus == focusTitle {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.desc, cmd = m.desc.Update(msg)
	}
	m.syncForm()
	return cmd
}

// openForm shows the form seeded from the client's scratch fields.
func (m *Model) openForm() tea.Cmd {
	m.formOn = true
	m.title.SetValue(m.client.Form.Title)
	m.title.CursorEnd()
	m.desc.SetValue(m.client.Form.Description)
	m.desc.CursorEnd()
	m.focus = focusTitle
	m.desc.Blur()
	m.resize()
	return m.title.Focus()
}

func (m *Model) closeForm() {
	m.formOn = false
	m.client.Form = todos.Form{}
	m.title.SetValue("")
	m.desc.SetValue("")
	m.title.Blur()
	m.desc.Blur()
	m.resize()
}

func (m *Model) syncForm() {
	m.client.Form = todos.Form{Title: m.title.Value(), Description: m.desc.Value()}
}

func (m *Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

// refresh rebuilds list items and the header from client state.
func (m *Model) refresh() tea.Cmd {
	items := make([]list.Item, 0, len(m.client.Items))
	for _, t := range m.client.Items {
		items = append(items, listItem{todo: t})
	}
	idx := m.list.Index()
	cmd := m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	t := ui.Current()
	done, pending := m.client.Counts()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymOK), done,
		t.Pending.Render(t.SymDot), pending,
		t.Accent.Render("Total"), len(m.client.Items),
	)
	return cmd
}

func (m *Model) resize() {
	h := m.height - 5
	if m.formOn {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
	m.title.Width = m.width - 16
	m.desc.Width = m.width - 16
}

func (m *Model) View() string {
	t := ui.Current()
	done, _ := m.client.Counts()
	status := ui.ProgressBar(done, len(m.client.Items), 20)
	if m.pending > 0 {
		status += "  " + m.spinner.View() + t.Muted.Render(" syncing")
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.list.View(), t.Muted.Render(status))
	if m.formOn {
		heading := "Add todo"
		if m.client.IsEditing() {
			heading = "Edit todo"
		}
		box := lipgloss.NewStyle().Border(t.Border).BorderForeground(t.BorderColor).Padding(0, 1)
		form := t.Title.Render(heading) + "\n" + m.title.View() + "\n" + m.desc.View() + "\n" +
			t.Help.Render("enter save · tab switch field · esc cancel")
		content = lipgloss.JoinVertical(lipgloss.Left, content, box.Render(form))
	}
	return ui.PanelString(content)
}
