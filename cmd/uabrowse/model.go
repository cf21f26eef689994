package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	browseView view = iota
	nodeView
	namespacesView
	viewCount
)

var viewNames = [viewCount]string{"Browse", "Node", "Namespaces"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Back     key.Binding
	Goto     key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("backspace", "left"), key.WithHelp("⌫", "back")),
	Goto:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to node")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Goto, k.Tab, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Enter, k.Back, k.Goto, k.Refresh},
		{k.Quit},
	}
}

// location is one step of the breadcrumb trail.
type location struct {
	id   ua.NodeID
	name string
}

type model struct {
	client      *client
	currentView view
	path        []location
	refs        []ua.ReferenceDescription
	node        *ua.Node
	namespaces  []addressspace.NamespaceInfo
	refTable    table.Model
	gotoInput   textinput.Model
	help        help.Model
	keys        keyMap
	width       int
	err         error
}

type browsedMsg struct {
	refs []ua.ReferenceDescription
	node *ua.Node
}

type namespacesMsg []addressspace.NamespaceInfo

type errMsg struct{ err error }

func initialModel(c *client, start ua.NodeID) model {
	ti := textinput.New()
	ti.Placeholder = "ns=2;s=Room:1"
	ti.CharLimit = 200
	ti.Width = 60

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Reference", Width: 16},
			{Title: "Class", Width: 14},
			{Title: "Browse Name", Width: 28},
			{Title: "Node", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return model{
		client:    c,
		path:      []location{{id: start, name: start.String()}},
		refTable:  t,
		gotoInput: ti,
		help:      help.New(),
		keys:      keys,
	}
}

func (m model) current() ua.NodeID {
	return m.path[len(m.path)-1].id
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.browseCmd(m.current()), m.namespacesCmd())
}

func (m model) browseCmd(id ua.NodeID) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx := context.Background()
		node, err := c.node(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		refs, err := c.children(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return browsedMsg{refs: refs, node: node}
	}
}

func (m model) namespacesCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ns, err := c.namespaces(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return namespacesMsg(ns)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case browsedMsg:
		m.err = nil
		m.refs = msg.refs
		m.node = msg.node
		m.path[len(m.path)-1].name = msg.node.DisplayName.Text
		m.refTable.SetRows(referenceRows(msg.refs))
		m.refTable.SetCursor(0)
		return m, nil

	case namespacesMsg:
		m.namespaces = msg
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.gotoInput.Focused() {
			return m.updateGoto(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.currentView = (m.currentView + viewCount - 1) % viewCount
			return m, nil
		case key.Matches(msg, m.keys.Goto):
			m.gotoInput.SetValue("")
			cmd := m.gotoInput.Focus()
			return m, cmd
		case key.Matches(msg, m.keys.Refresh):
			return m, tea.Batch(m.browseCmd(m.current()), m.namespacesCmd())
		case key.Matches(msg, m.keys.Back):
			if len(m.path) > 1 {
				m.path = m.path[:len(m.path)-1]
				return m, m.browseCmd(m.current())
			}
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			if m.currentView != browseView {
				return m, nil
			}
			i := m.refTable.Cursor()
			if i < 0 || i >= len(m.refs) {
				return m, nil
			}
			ref := m.refs[i]
			if !ref.NodeID.IsLocal() {
				m.err = fmt.Errorf("%s is on another server", ref.NodeID)
				return m, nil
			}
			m.path = append(m.path, location{id: ref.NodeID.NodeID, name: ref.DisplayName.Text})
			return m, m.browseCmd(ref.NodeID.NodeID)
		}
	}

	if m.currentView == browseView {
		var cmd tea.Cmd
		m.refTable, cmd = m.refTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.gotoInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.gotoInput.Blur()
		id, err := ua.ParseNodeID(strings.TrimSpace(m.gotoInput.Value()))
		if err != nil {
			m.err = err
			return m, nil
		}
		m.path = append(m.path, location{id: id, name: id.String()})
		m.currentView = browseView
		return m, m.browseCmd(id)
	}
	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return m, cmd
}

func referenceRows(refs []ua.ReferenceDescription) []table.Row {
	rows := make([]table.Row, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, table.Row{
			referenceName(r.ReferenceTypeID),
			r.NodeClass.String(),
			r.BrowseName.String(),
			r.NodeID.String(),
		})
	}
	return rows
}

var referenceNames = map[ua.NodeID]string{
	ua.Organizes:         "Organizes",
	ua.HasComponent:      "HasComponent",
	ua.HasProperty:       "HasProperty",
	ua.HasSubtype:        "HasSubtype",
	ua.HasTypeDefinition: "HasTypeDefinition",
}

func referenceName(id ua.NodeID) string {
	if name, ok := referenceNames[id]; ok {
		return name
	}
	return id.String()
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("OPC UA address space"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case browseView:
		s.WriteString(m.renderBrowse())
	case nodeView:
		s.WriteString(m.renderNode())
	case namespacesView:
		s.WriteString(m.renderNamespaces())
	}

	if m.gotoInput.Focused() {
		s.WriteString("\n\n  Node: ")
		s.WriteString(m.gotoInput.View())
	}
	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("  ✗ " + m.err.Error()))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for i, name := range viewNames {
		if view(i) == m.currentView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m model) breadcrumb() string {
	names := make([]string, len(m.path))
	for i, loc := range m.path {
		names[i] = loc.name
	}
	return strings.Join(names, " / ")
}

func (m model) renderBrowse() string {
	var s strings.Builder
	s.WriteString(pathStyle.Render(m.breadcrumb()))
	s.WriteString("\n\n")
	if len(m.refs) == 0 {
		s.WriteString("  (no children)")
		return s.String()
	}
	s.WriteString(lipgloss.NewStyle().MarginLeft(2).Render(m.refTable.View()))
	return s.String()
}

func (m model) renderNode() string {
	n := m.node
	if n == nil {
		return "  loading..."
	}
	var s strings.Builder
	fmt.Fprintf(&s, "NodeId:       %s\n", n.ID)
	fmt.Fprintf(&s, "NodeClass:    %s\n", n.Class)
	fmt.Fprintf(&s, "BrowseName:   %s\n", n.BrowseName)
	fmt.Fprintf(&s, "DisplayName:  %s\n", n.DisplayName.Text)
	if n.Description.Text != "" {
		fmt.Fprintf(&s, "Description:  %s\n", n.Description.Text)
	}
	if v := n.Variable; v != nil {
		fmt.Fprintf(&s, "DataType:     %s\n", v.DataType)
		fmt.Fprintf(&s, "Value:        %v\n", v.Value)
		fmt.Fprintf(&s, "ValueRank:    %d\n", v.ValueRank)
		fmt.Fprintf(&s, "Historizing:  %t\n", v.Historizing)
	}
	fmt.Fprintf(&s, "References:   %d", len(n.References))
	return boxStyle.Render(s.String())
}

func (m model) renderNamespaces() string {
	ns := append([]addressspace.NamespaceInfo(nil), m.namespaces...)
	sort.Slice(ns, func(i, j int) bool { return ns[i].Index < ns[j].Index })
	var s strings.Builder
	for i, info := range ns {
		if i > 0 {
			s.WriteString("\n")
		}
		fmt.Fprintf(&s, "%3d  %-48s %6d nodes", info.Index, info.URI, info.Nodes)
	}
	if s.Len() == 0 {
		s.WriteString("loading...")
	}
	return boxStyle.Render(s.String())
}
