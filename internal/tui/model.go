// Package tui is the local inspector console: pick a category, watch
// the scan progress, browse the grouped findings and unbind a group
// without leaving the terminal. It talks to the engine through an
// in-process bridge pipe, same protocol as the panel.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/standardbeagle/relink/internal/bridge"
	"github.com/standardbeagle/relink/internal/scan"
)

type uiState int

const (
	statePicking uiState = iota
	stateScanning
	stateResults
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// respMsg wraps one bridge response for the update loop.
type respMsg bridge.Response

// Model is the console state. It holds the client end of a bridge
// pipe; every action is a protocol command, so the console exercises
// the same paths as the panel.
type Model struct {
	pipe *bridge.Pipe

	state      uiState
	categories []scan.Category
	catCursor  int

	lastReq  bridge.Command
	bar      progress.Model
	percent  int
	watching bool

	groups    []scan.Group
	total     int
	grpCursor int

	status string
	errMsg string

	width  int
	height int
}

func NewModel(pipe *bridge.Pipe) Model {
	return Model{
		pipe:       pipe,
		state:      statePicking,
		categories: scan.Categories(),
		bar:        progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForResponse()
}

// waitForResponse pumps the next bridge response into the update loop.
// Re-issued after every receipt.
func (m Model) waitForResponse() tea.Cmd {
	return func() tea.Msg {
		return respMsg(<-m.pipe.Responses())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case respMsg:
		next := m.handleResponse(bridge.Response(msg))
		return next, next.waitForResponse()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		switch m.state {
		case statePicking:
			if m.catCursor > 0 {
				m.catCursor--
			}
		case stateResults:
			if m.grpCursor > 0 {
				m.grpCursor--
			}
		}

	case "down", "j":
		switch m.state {
		case statePicking:
			if m.catCursor < len(m.categories)-1 {
				m.catCursor++
			}
		case stateResults:
			if m.grpCursor < len(m.groups)-1 {
				m.grpCursor++
			}
		}

	case "enter":
		if m.state == statePicking {
			return m.startScan()
		}

	case "u":
		if m.state == stateResults && len(m.groups) > 0 {
			g := m.groups[m.grpCursor]
			m.pipe.Send(bridge.Command{Command: bridge.CmdUnbind, Group: &g})
			m.status = fmt.Sprintf("unbinding %d members of %s", len(g.Findings), g.Key)
		}

	case "s":
		if m.state == stateScanning {
			m.pipe.Send(bridge.Command{Command: bridge.CmdStopScan})
		}

	case "w":
		if m.watching {
			m.pipe.Send(bridge.Command{Command: bridge.CmdStopWatch})
		} else if m.lastReq.Command != "" {
			watch := m.lastReq
			watch.Command = bridge.CmdStartWatch
			m.pipe.Send(watch)
		}

	case "esc":
		if m.state == stateResults {
			m.state = statePicking
			m.status = ""
			m.errMsg = ""
		}
	}
	return m, nil
}

func (m Model) startScan() (tea.Model, tea.Cmd) {
	req := bridge.Command{
		Command:  bridge.CmdScan,
		Category: m.categories[m.catCursor],
	}
	m.pipe.Send(req)
	m.lastReq = req
	m.state = stateScanning
	m.percent = 0
	m.groups = nil
	m.total = 0
	m.grpCursor = 0
	m.errMsg = ""
	m.status = ""
	return m, nil
}

func (m Model) handleResponse(resp bridge.Response) Model {
	switch resp.Type {
	case bridge.RespProgress:
		m.percent = resp.Percent

	case bridge.RespResults:
		m.groups = resp.Groups
		m.total = resp.Total
		if m.grpCursor >= len(m.groups) {
			m.grpCursor = 0
		}
		m.state = stateResults
		m.status = fmt.Sprintf("%d findings in %d groups", resp.Total, len(resp.Groups))

	case bridge.RespNoResults:
		m.groups = nil
		m.total = 0
		m.state = stateResults
		m.status = "no unlinked values found"

	case bridge.RespScanCancelled:
		m.state = statePicking
		m.status = "scan cancelled"

	case bridge.RespError:
		m.errMsg = resp.Message
		if m.state == stateScanning {
			m.state = statePicking
		}

	case bridge.RespSuccess:
		if resp.Successful > 0 || resp.Failed > 0 {
			m.status = fmt.Sprintf("unbound %d, failed %d", resp.Successful, resp.Failed)
			if resp.Failed > 0 && resp.Message != "" {
				m.errMsg = resp.Message
			}
			// Refresh so the list reflects the document again.
			if m.lastReq.Command != "" {
				m.pipe.Send(m.lastReq)
				m.state = stateScanning
				m.percent = 0
			}
		}

	case bridge.RespWatchStarted:
		m.watching = true
		m.status = "watching for edits"

	case bridge.RespWatchStopped:
		m.watching = false
		m.status = "watch stopped"

	case bridge.RespWatchTriggered:
		m.state = stateScanning
		m.percent = 0
		m.status = "document changed, rescanning"
	}
	return m
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("relink"))
	if m.watching {
		b.WriteString(statusStyle.Render("  (watching)"))
	}
	b.WriteString("\n\n")

	switch m.state {
	case statePicking:
		b.WriteString("Scan for:\n")
		for i, c := range m.categories {
			line := "  " + string(c)
			if i == m.catCursor {
				line = activeStyle.Render("> " + string(c))
			} else {
				line = inactiveStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}

	case stateScanning:
		b.WriteString(fmt.Sprintf("Scanning %s\n\n", m.lastReq.Category))
		b.WriteString(m.bar.ViewAs(float64(m.percent)/100) + "\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d%%", m.percent)) + "\n")

	case stateResults:
		b.WriteString(fmt.Sprintf("%s groups\n\n", m.lastReq.Category))
		if len(m.groups) == 0 {
			b.WriteString(inactiveStyle.Render("  nothing unlinked here") + "\n")
		}
		for i, g := range m.groups {
			line := fmt.Sprintf("  %s  (%d)", g.Key, len(g.Findings))
			if i == m.grpCursor {
				line = activeStyle.Render(fmt.Sprintf("> %s  (%d)", g.Key, len(g.Findings)))
			} else {
				line = inactiveStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	switch m.state {
	case stateScanning:
		return "s stop · q quit"
	case stateResults:
		return "↑/↓ move · u unbind group · w watch · esc back · q quit"
	default:
		return "↑/↓ move · enter scan · q quit"
	}
}

func barWidth(total int) int {
	w := total - 8
	if w > 60 {
		w = 60
	}
	if w < 10 {
		w = 10
	}
	return w
}
