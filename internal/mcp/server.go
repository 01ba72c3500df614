// Package mcp exposes the lint engine to agent clients over the Model
// Context Protocol. Tools run against the same engine and actor the
// panel uses, so the single-scan rule holds across both surfaces.
package mcp

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/server"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/remediate"
	"github.com/standardbeagle/relink/internal/scan"
)

// Server wires the four lint tools onto an MCP stdio server.
type Server struct {
	host   document.Host
	engine *scan.Engine
	actor  *remediate.Actor
	log    hclog.Logger

	// last remembers the most recent scan so list_groups and
	// unbind_group can refer to groups by key.
	mu   sync.Mutex
	last *scan.Result

	srv *server.MCPServer
}

func NewServer(host document.Host, engine *scan.Engine, actor *remediate.Actor, log hclog.Logger, version string) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &Server{
		host:   host,
		engine: engine,
		actor:  actor,
		log:    log,
	}
	s.srv = server.NewMCPServer(
		"relink",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio blocks, speaking the protocol on stdin/stdout. Logs must
// go to stderr while this runs.
func (s *Server) ServeStdio() error {
	s.log.Info("serving MCP tools on stdio")
	return server.ServeStdio(s.srv)
}

func (s *Server) setLast(r *scan.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = r
}

func (s *Server) lastResult() *scan.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
