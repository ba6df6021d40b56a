// Package tui renders a session as an interactive terminal view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/session"
	"github.com/temirov/flakemap/internal/types"
)

const (
	applicationTitle    = "flakemap"
	expandedIndicator   = "▾ "
	collapsedIndicator  = "▸ "
	fileIndicator       = "  "
	indentUnit          = "  "
	notificationJoiner  = " · "
	emptyTreeMessage    = "no .nix files indexed"
	chromeLineCount     = 3
	fullHelpExtraHeight = 3
	watchFailedFormat   = "Watch unavailable: %v"
	rootRelativePath    = ""
)

// RefreshRequestMsg asks the model to refresh, as if the refresh key was pressed.
type RefreshRequestMsg struct{}

type startMsg struct{}

// watchChangeMsg is delivered when the watch subscription reports a change.
type watchChangeMsg struct{}

// WatchFunc subscribes to changes below root. Each receive on the returned
// channel triggers one refresh.
type WatchFunc func(root flake.Root) (<-chan struct{}, error)

// Options configures the model.
type Options struct {
	// View is types.ViewTree or types.ViewList.
	View string
	// Watch enables refresh on filesystem changes when set.
	Watch WatchFunc
}

// Model is the bubbletea model wrapping a session.
type Model struct {
	session *session.Session
	keys    KeyMap
	help    help.Model
	styles  Styles

	watch   WatchFunc
	changes <-chan struct{}

	view string
	tree *flake.TreeNode
	// expanded holds the open directories by relative path; the root is "".
	expanded map[string]bool
	rows     []flake.VisibleRow
	cursor   int
	offset   int
	width    int
	height   int

	status       []session.Notification
	startFailure *session.Notification
}

// New constructs a Model; the session is started by Init.
func New(activeSession *session.Session, options Options) Model {
	view := options.View
	if view != types.ViewList {
		view = types.ViewTree
	}
	return Model{
		session:  activeSession,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		styles:   DefaultStyles(),
		watch:    options.Watch,
		view:     view,
		expanded: map[string]bool{rootRelativePath: true},
	}
}

// Init starts the session.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

// StartFailure returns the notification that ended the program before a
// flake was displayed, or nil.
func (m Model) StartFailure() *session.Notification {
	return m.startFailure
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		updated, command := m.apply(m.session.Start(), true)
		if command != nil {
			return updated, command
		}
		return updated.startWatching()

	case RefreshRequestMsg:
		return m.apply(m.session.Handle(session.RefreshEvent{}), false)

	case watchChangeMsg:
		updated, command := m.apply(m.session.Handle(session.RefreshEvent{}), false)
		if command != nil {
			return updated, command
		}
		return updated, waitForChange(updated.changes)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.apply(m.session.Handle(session.QuitEvent{}), false)

	case key.Matches(msg, m.keys.Refresh):
		return m.apply(m.session.Handle(session.RefreshEvent{}), false)

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.pageSize())

	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.pageSize())

	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.ensureVisible()

	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.rows) - 1
		m.ensureVisible()

	case key.Matches(msg, m.keys.Select):
		selectedNode := m.selectedNode()
		if selectedNode == nil {
			return m, nil
		}
		if selectedNode.IsDirectory() {
			m.setExpanded(selectedNode, !m.isExpanded(selectedNode))
		}
		return m.apply(m.session.Handle(session.SelectEvent{Node: selectedNode}), false)

	case key.Matches(msg, m.keys.Expand):
		if selectedNode := m.selectedNode(); selectedNode != nil && selectedNode.IsDirectory() {
			m.setExpanded(selectedNode, true)
		}

	case key.Matches(msg, m.keys.Collapse):
		m.collapseOrAscend()

	case key.Matches(msg, m.keys.ToggleView):
		m.toggleView()

	case key.Matches(msg, m.keys.Copy):
		return m.apply(m.session.Handle(session.CopyEvent{Node: m.selectedNode()}), false)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.ensureVisible()
	}
	return m, nil
}

// startWatching subscribes to filesystem changes once the root is known.
func (m Model) startWatching() (Model, tea.Cmd) {
	root, located := m.session.Root()
	if m.watch == nil || !located {
		return m, nil
	}
	changes, watchError := m.watch(root)
	if watchError != nil {
		m.status = append(m.status, session.Notification{
			Severity: session.SeverityError,
			Message:  fmt.Sprintf(watchFailedFormat, watchError),
		})
		return m, nil
	}
	m.changes = changes
	return m, waitForChange(changes)
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, open := <-changes; !open {
			return nil
		}
		return watchChangeMsg{}
	}
}

// apply folds a session result into the display state.
func (m Model) apply(result session.Result, starting bool) (Model, tea.Cmd) {
	if len(result.Notifications) > 0 {
		m.status = result.Notifications
	}
	if result.TreeReplaced {
		m.replaceTree()
	}
	if result.Quit {
		if starting && len(result.Notifications) > 0 {
			failure := result.Notifications[len(result.Notifications)-1]
			m.startFailure = &failure
		}
		return m, tea.Quit
	}
	return m, nil
}

// replaceTree swaps in the session's new tree, keeping the cursor on the same
// path. Expansion is keyed by path, so open directories stay open.
func (m *Model) replaceTree() {
	previousSelection := ""
	if selectedNode := m.selectedNode(); selectedNode != nil {
		previousSelection = selectedNode.RelativePath
	}

	m.tree = m.session.Tree()
	m.rebuildRows()

	m.cursor = 0
	for rowIndex, row := range m.rows {
		if row.Node.RelativePath == previousSelection {
			m.cursor = rowIndex
			break
		}
	}
	m.ensureVisible()
}

func (m *Model) rebuildRows() {
	if m.view == types.ViewList {
		fileNodes := flake.Files(m.tree)
		m.rows = make([]flake.VisibleRow, 0, len(fileNodes))
		for _, fileNode := range fileNodes {
			m.rows = append(m.rows, flake.VisibleRow{Node: fileNode})
		}
	} else {
		m.rows = flake.FlattenWith(m.tree, m.isExpanded)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) toggleView() {
	selectedNode := m.selectedNode()
	if m.view == types.ViewTree {
		m.view = types.ViewList
	} else {
		m.view = types.ViewTree
		for ancestor := parentOf(selectedNode); ancestor != nil; ancestor = ancestor.Parent {
			m.expanded[ancestor.RelativePath] = true
		}
	}
	m.rebuildRows()
	m.cursor = 0
	for rowIndex, row := range m.rows {
		if row.Node == selectedNode {
			m.cursor = rowIndex
			break
		}
	}
	m.ensureVisible()
}

func (m Model) isExpanded(node *flake.TreeNode) bool {
	return node.IsDirectory() && m.expanded[node.RelativePath]
}

func (m *Model) setExpanded(node *flake.TreeNode, expanded bool) {
	if m.view != types.ViewTree || m.isExpanded(node) == expanded {
		return
	}
	if expanded {
		m.expanded[node.RelativePath] = true
	} else {
		delete(m.expanded, node.RelativePath)
	}
	m.rebuildRows()
	m.ensureVisible()
}

func (m *Model) collapseOrAscend() {
	selectedNode := m.selectedNode()
	if selectedNode == nil || m.view != types.ViewTree {
		return
	}
	if m.isExpanded(selectedNode) && selectedNode.Parent != nil {
		m.setExpanded(selectedNode, false)
		return
	}
	parentNode := selectedNode.Parent
	if parentNode == nil {
		return
	}
	for rowIndex, row := range m.rows {
		if row.Node == parentNode {
			m.cursor = rowIndex
			m.ensureVisible()
			return
		}
	}
}

func (m Model) selectedNode() *flake.TreeNode {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Node
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

// bodyHeight is the number of rows available for the tree, or 0 when unknown.
func (m Model) bodyHeight() int {
	if m.height == 0 {
		return 0
	}
	chrome := chromeLineCount
	if m.help.ShowAll {
		chrome += fullHelpExtraHeight
	}
	if m.height-chrome < 1 {
		return 1
	}
	return m.height - chrome
}

func (m Model) pageSize() int {
	if pageSize := m.bodyHeight() / 2; pageSize > 0 {
		return pageSize
	}
	return 1
}

func (m *Model) ensureVisible() {
	visibleRows := m.bodyHeight()
	if visibleRows == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visibleRows {
		m.offset = m.cursor - visibleRows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the header, body and footer.
func (m Model) View() string {
	var builder strings.Builder
	builder.WriteString(m.renderHeader())
	builder.WriteString("\n")
	builder.WriteString(m.renderBody())
	builder.WriteString(m.renderStatus())
	builder.WriteString("\n")
	builder.WriteString(m.help.View(m.keys))
	return builder.String()
}

func (m Model) renderHeader() string {
	header := m.styles.Header.Render(applicationTitle + " [" + m.view + "]")
	if root, located := m.session.Root(); located {
		header += m.styles.HeaderPath.Render(root.Directory)
	}
	return header
}

func (m Model) renderBody() string {
	if m.tree == nil {
		return ""
	}
	if len(m.session.Files()) == 0 {
		emptyLine := m.styles.Empty.Render(indentUnit+emptyTreeMessage) + "\n"
		if m.view == types.ViewTree && len(m.rows) > 0 {
			return m.renderRow(0) + "\n" + emptyLine
		}
		return emptyLine
	}

	lastRow := len(m.rows)
	if visibleRows := m.bodyHeight(); visibleRows > 0 && m.offset+visibleRows < lastRow {
		lastRow = m.offset + visibleRows
	}
	var builder strings.Builder
	for rowIndex := m.offset; rowIndex < lastRow; rowIndex++ {
		builder.WriteString(m.renderRow(rowIndex))
		builder.WriteString("\n")
	}
	return builder.String()
}

func (m Model) renderRow(rowIndex int) string {
	row := m.rows[rowIndex]
	var line string
	if m.view == types.ViewList {
		line = m.styles.File.Render(row.Node.RelativePath)
	} else {
		indicator := fileIndicator
		style := m.styles.File
		if row.Node.IsDirectory() {
			style = m.styles.Directory
			indicator = collapsedIndicator
			if m.isExpanded(row.Node) {
				indicator = expandedIndicator
			}
		}
		line = strings.Repeat(indentUnit, row.Depth) + indicator + style.Render(row.Node.Label)
	}
	if rowIndex == m.cursor {
		return m.styles.Cursor.Render(line)
	}
	return line
}

func (m Model) renderStatus() string {
	if len(m.status) == 0 {
		return ""
	}
	messages := make([]string, 0, len(m.status))
	style := m.styles.Information
	for _, notification := range m.status {
		messages = append(messages, notification.Message)
		if notification.Severity == session.SeverityError {
			style = m.styles.Error
		}
	}
	return style.Render(strings.Join(messages, notificationJoiner))
}

func parentOf(node *flake.TreeNode) *flake.TreeNode {
	if node == nil {
		return nil
	}
	return node.Parent
}
