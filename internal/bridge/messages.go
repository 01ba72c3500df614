// Package bridge speaks the panel protocol: JSON commands in, JSON
// responses out, over either an in-process pipe or a websocket. One
// service serves every transport; the engine's single-session rule
// still applies no matter how many clients are connected.
package bridge

import (
	"github.com/standardbeagle/relink/internal/scan"
)

// Command names accepted from clients.
const (
	CmdScan        = "scan"
	CmdStopScan    = "stop-scan"
	CmdPauseScan   = "pause-scan"
	CmdResumeScan  = "resume-scan"
	CmdUnbind      = "unbind"
	CmdBind        = "bind"
	CmdSelectNodes = "select-nodes"
	CmdStartWatch  = "start-watch"
	CmdStopWatch   = "stop-watch"
	CmdResize      = "resize"
)

// Response types sent to clients.
const (
	RespProgress         = "progress"
	RespResults          = "results"
	RespNoResults        = "no-results"
	RespError            = "error"
	RespScanCancelled    = "scan-cancelled"
	RespSuccess          = "success"
	RespSelectionUpdated = "selection-updated"
	RespSelectionError   = "selection-error"
	RespWatchStarted     = "watch-started"
	RespWatchStopped     = "watch-stopped"
	RespWatchTriggered   = "watch-triggered"
)

// Command is one client request. Only the fields belonging to the
// named command are read; the rest stay zero.
type Command struct {
	Command string `json:"command"`

	// scan / start-watch. IgnoreHidden is a pointer so an omitted
	// field falls back to the configured default while an explicit
	// false still overrides it.
	Category     scan.Category `json:"category,omitempty"`
	Scope        scan.Scope    `json:"scope"`
	IgnoreHidden *bool         `json:"ignoreHiddenLayers,omitempty"`

	// unbind
	Finding *scan.Finding `json:"finding,omitempty"`
	Group   *scan.Group   `json:"group,omitempty"`

	// bind
	NodeID   string `json:"nodeId,omitempty"`
	Property string `json:"property,omitempty"`
	TargetID string `json:"targetId,omitempty"`

	// select-nodes
	NodeIDs []string `json:"nodeIds,omitempty"`

	// resize
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Response is one message to a client. Fields are omitted when empty,
// so consumers treat a missing number as zero.
type Response struct {
	Type string `json:"type"`

	// progress
	Percent int `json:"percent,omitempty"`

	// results
	Category scan.Category `json:"category,omitempty"`
	Groups   []scan.Group  `json:"groups,omitempty"`
	Total    int           `json:"total,omitempty"`

	// success / error
	Message    string `json:"message,omitempty"`
	Successful int    `json:"successful,omitempty"`
	Failed     int    `json:"failed,omitempty"`

	// selection-updated
	Count int `json:"count,omitempty"`
}

func errorResponse(msg string) Response {
	return Response{Type: RespError, Message: msg}
}
