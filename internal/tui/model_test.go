package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/relink/internal/bridge"
	"github.com/standardbeagle/relink/internal/scan"
)

func testModel() Model {
	return NewModel(bridge.NewPipe(16))
}

func keyPress(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func respond(m Model, resp bridge.Response) Model {
	next, _ := m.Update(respMsg(resp))
	return next.(Model)
}

func drainCommands(p *bridge.Pipe) {
	for {
		select {
		case <-p.Commands():
		default:
			return
		}
	}
}

func TestPickerNavigationStaysInBounds(t *testing.T) {
	m := testModel()
	require.Equal(t, statePicking, m.state)

	m = keyPress(m, "up")
	assert.Equal(t, 0, m.catCursor, "cursor never goes above the first entry")

	for range m.categories {
		m = keyPress(m, "down")
	}
	assert.Equal(t, len(m.categories)-1, m.catCursor, "cursor stops at the last entry")
}

func TestEnterStartsScan(t *testing.T) {
	m := testModel()
	m = keyPress(m, "down") // stroke
	m = keyPress(m, "enter")

	assert.Equal(t, stateScanning, m.state)
	assert.Equal(t, bridge.CmdScan, m.lastReq.Command)
	assert.Equal(t, scan.CategoryStroke, m.lastReq.Category)

	// The command actually went down the pipe.
	select {
	case cmd := <-m.pipe.Commands():
		assert.Equal(t, bridge.CmdScan, cmd.Command)
		assert.Equal(t, scan.CategoryStroke, cmd.Category)
	default:
		t.Fatal("no command queued on the pipe")
	}
}

func TestProgressAndResultsFlow(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")

	m = respond(m, bridge.Response{Type: bridge.RespProgress, Percent: 25})
	assert.Equal(t, 25, m.percent)
	m = respond(m, bridge.Response{Type: bridge.RespProgress, Percent: 99})
	assert.Equal(t, 99, m.percent)

	m = respond(m, bridge.Response{
		Type:  bridge.RespResults,
		Total: 4,
		Groups: []scan.Group{
			{Key: "fill:RAW:255:0:0:1", Findings: make([]scan.Finding, 3)},
			{Key: "fill:RAW:0:0:255:1", Findings: make([]scan.Finding, 1)},
		},
	})
	require.Equal(t, stateResults, m.state)
	assert.Len(t, m.groups, 2)
	assert.Contains(t, m.status, "4 findings")

	view := m.View()
	assert.Contains(t, view, "fill:RAW:255:0:0:1")
	assert.Contains(t, view, "(3)")
	assert.Contains(t, view, "(1)")
}

func TestNoResultsFlow(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{Type: bridge.RespNoResults})

	assert.Equal(t, stateResults, m.state)
	assert.Empty(t, m.groups)
	assert.Contains(t, m.View(), "nothing unlinked")
}

func TestScanCancelledReturnsToPicker(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = keyPress(m, "s") // queues stop-scan
	m = respond(m, bridge.Response{Type: bridge.RespScanCancelled})

	assert.Equal(t, statePicking, m.state)
	assert.Contains(t, m.status, "cancelled")
}

func TestUnbindSelectedGroupSendsCommand(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	drainCommands(m.pipe)
	m = respond(m, bridge.Response{
		Type:  bridge.RespResults,
		Total: 2,
		Groups: []scan.Group{
			{Key: "a", Findings: make([]scan.Finding, 1)},
			{Key: "b", Findings: make([]scan.Finding, 1)},
		},
	})

	m = keyPress(m, "down")
	m = keyPress(m, "u")

	select {
	case cmd := <-m.pipe.Commands():
		require.Equal(t, bridge.CmdUnbind, cmd.Command)
		require.NotNil(t, cmd.Group)
		assert.Equal(t, "b", cmd.Group.Key)
	default:
		t.Fatal("no unbind command queued")
	}
}

func TestUnbindSuccessTriggersRefresh(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{
		Type:   bridge.RespResults,
		Total:  1,
		Groups: []scan.Group{{Key: "a", Findings: make([]scan.Finding, 1)}},
	})
	drainCommands(m.pipe)

	m = respond(m, bridge.Response{Type: bridge.RespSuccess, Successful: 1})
	assert.Equal(t, stateScanning, m.state, "a successful unbind rescans to refresh the list")
	assert.Contains(t, m.status, "unbound 1")

	select {
	case cmd := <-m.pipe.Commands():
		assert.Equal(t, bridge.CmdScan, cmd.Command)
	default:
		t.Fatal("no refresh scan queued")
	}
}

func TestErrorShowsMessage(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{Type: bridge.RespError, Message: "document unavailable"})

	assert.Equal(t, statePicking, m.state)
	assert.Contains(t, m.View(), "document unavailable")
}

func TestWatchToggle(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{Type: bridge.RespResults, Total: 0})
	drainCommands(m.pipe)

	m = keyPress(m, "w")
	select {
	case cmd := <-m.pipe.Commands():
		assert.Equal(t, bridge.CmdStartWatch, cmd.Command)
		assert.Equal(t, m.lastReq.Category, cmd.Category)
	default:
		t.Fatal("no start-watch command queued")
	}

	m = respond(m, bridge.Response{Type: bridge.RespWatchStarted})
	assert.True(t, m.watching)
	assert.True(t, strings.Contains(m.View(), "watching"))

	m = keyPress(m, "w")
	select {
	case cmd := <-m.pipe.Commands():
		assert.Equal(t, bridge.CmdStopWatch, cmd.Command)
	default:
		t.Fatal("no stop-watch command queued")
	}

	m = respond(m, bridge.Response{Type: bridge.RespWatchStopped})
	assert.False(t, m.watching)
}

func TestWatchTriggeredRescans(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{Type: bridge.RespResults, Total: 0})

	m = respond(m, bridge.Response{Type: bridge.RespWatchTriggered})
	assert.Equal(t, stateScanning, m.state)
	assert.Contains(t, m.status, "rescanning")
}

func TestEscReturnsToPicker(t *testing.T) {
	m := testModel()
	m = keyPress(m, "enter")
	m = respond(m, bridge.Response{Type: bridge.RespNoResults})
	m = keyPress(m, "esc")

	assert.Equal(t, statePicking, m.state)
}
