package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/pkg/events"
)

func newPanelServer(t *testing.T, svc *Service, bus *events.Bus) *httptest.Server {
	t.Helper()
	server := NewServer(svc, bus, "127.0.0.1", 0, nil)
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return srv
}

func dialPanel(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/panel"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntilTerminal(t *testing.T, conn *websocket.Conn) []Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var got []Response
	for {
		var resp Response
		require.NoError(t, conn.ReadJSON(&resp))
		got = append(got, resp)
		if isTerminal(resp) {
			return got
		}
	}
}

func TestPanelScanRoundTrip(t *testing.T) {
	svc, m := newFixture(t, ServiceOptions{})
	rawRect(t, m, "1:1", document.Color{R: 1, A: 1})
	srv := newPanelServer(t, svc, nil)
	conn := dialPanel(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Command: CmdScan, Category: scan.CategoryFill}))

	got := readUntilTerminal(t, conn)
	terminal := got[len(got)-1]
	require.Equal(t, RespResults, terminal.Type)
	assert.Equal(t, 1, terminal.Total)
	require.Len(t, terminal.Groups, 1)
	assert.Equal(t, "fill:RAW:255:0:0:1", terminal.Groups[0].Key)
}

func TestPanelMalformedCommandKeepsConnection(t *testing.T) {
	svc, m := newFixture(t, ServiceOptions{})
	rawRect(t, m, "1:1", document.Color{R: 1, A: 1})
	srv := newPanelServer(t, svc, nil)
	conn := dialPanel(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, RespError, resp.Type)
	assert.Contains(t, resp.Message, "malformed command")

	// The connection survives a bad payload.
	require.NoError(t, conn.WriteJSON(Command{Command: CmdScan, Category: scan.CategoryFill}))
	got := readUntilTerminal(t, conn)
	assert.Equal(t, RespResults, got[len(got)-1].Type)
}

func TestHealthz(t *testing.T) {
	svc, _ := newFixture(t, ServiceOptions{})
	srv := newPanelServer(t, svc, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["scanActive"])
	assert.EqualValues(t, 0, body["clients"])
}

func TestHealthzCountsClients(t *testing.T) {
	svc, _ := newFixture(t, ServiceOptions{})
	srv := newPanelServer(t, svc, nil)
	dialPanel(t, srv)

	clientCount := func() float64 {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			return -1
		}
		defer resp.Body.Close()
		var body map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return -1
		}
		n, _ := body["clients"].(float64)
		return n
	}
	require.Eventually(t, func() bool { return clientCount() == 1 },
		2*time.Second, 20*time.Millisecond)
}

func TestClientLifecycleEvents(t *testing.T) {
	bus := events.NewBusWithConfig(events.WorkerPoolConfig{WorkerCount: 1, BufferSize: 16})
	t.Cleanup(bus.Shutdown)

	var mu sync.Mutex
	var seen []events.EventType
	record := func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	}
	bus.Subscribe(events.ClientConnected, record)
	bus.Subscribe(events.ClientDisconnected, record)

	svc, _ := newFixture(t, ServiceOptions{})
	srv := newPanelServer(t, svc, bus)

	conn := dialPanel(t, srv)
	conn.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.EventType{events.ClientConnected, events.ClientDisconnected}, seen)
}

func TestStartServesInBackground(t *testing.T) {
	svc, _ := newFixture(t, ServiceOptions{})
	server := NewServer(svc, nil, "127.0.0.1", 0, nil)
	require.NoError(t, server.Start())
	t.Cleanup(func() { server.Stop() })

	// Start has handed control back; the listener keeps serving.
	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", server.Port())
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop())
	_, err = http.Get(url)
	assert.Error(t, err, "stopped server no longer accepts connections")
}
