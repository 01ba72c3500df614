package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/prefs"
	"github.com/standardbeagle/relink/internal/remediate"
	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/pkg/events"
)

const defaultDebounce = 400 * time.Millisecond

// ServiceOptions configure behavior that is not carried by the wired
// dependencies themselves.
type ServiceOptions struct {
	// DocID keys preference lookups for this document.
	DocID string
	// Debounce is the quiet period before a watch rescan; zero means
	// the default.
	Debounce time.Duration
	// Prefs persists the panel window size; nil disables resize.
	Prefs *prefs.Store
	// IgnoreHidden applies to scan and start-watch commands that omit
	// ignoreHiddenLayers.
	IgnoreHidden bool
}

// Service executes panel commands against the engine, the remediation
// actor and the host document.
type Service struct {
	host     document.Host
	engine   *scan.Engine
	actor    *remediate.Actor
	bus      *events.Bus
	log      hclog.Logger
	prefs        *prefs.Store
	docID        string
	debounce     time.Duration
	ignoreHidden bool

	mu    sync.Mutex
	watch *watcher
}

func NewService(host document.Host, engine *scan.Engine, actor *remediate.Actor, bus *events.Bus, log hclog.Logger, opts ServiceOptions) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	docID := opts.DocID
	if docID == "" {
		docID = "doc-local"
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Service{
		host:         host,
		engine:       engine,
		actor:        actor,
		bus:          bus,
		log:          log,
		prefs:        opts.Prefs,
		docID:        docID,
		debounce:     debounce,
		ignoreHidden: opts.IgnoreHidden,
	}
}

// scanRequest builds the engine request for a scan or start-watch
// command, filling ignoreHiddenLayers from the configured default when
// the client omitted it.
func (s *Service) scanRequest(cmd Command) scan.Request {
	ignore := s.ignoreHidden
	if cmd.IgnoreHidden != nil {
		ignore = *cmd.IgnoreHidden
	}
	return scan.Request{Category: cmd.Category, Scope: cmd.Scope, IgnoreHidden: ignore}
}

// ScanActive reports whether the engine is currently running a scan.
func (s *Service) ScanActive() bool { return s.engine.Active() }

// Dispatch runs one command, delivering every response through send.
// Scan commands return immediately and stream their responses from a
// separate goroutine, so a client can still issue stop-scan while its
// scan runs. send must be safe for concurrent use.
func (s *Service) Dispatch(ctx context.Context, cmd Command, send func(Response)) {
	switch cmd.Command {
	case CmdScan:
		go s.runScan(ctx, s.scanRequest(cmd), send)
	case CmdStopScan:
		// The cancelled scan goroutine emits the terminal
		// scan-cancelled response.
		if !s.engine.Stop() {
			send(errorResponse("no scan is running"))
		}
	case CmdPauseScan:
		if err := s.engine.Pause(); err != nil {
			send(errorResponse(err.Error()))
			return
		}
		send(Response{Type: RespSuccess})
	case CmdResumeScan:
		if err := s.engine.Resume(); err != nil {
			send(errorResponse(err.Error()))
			return
		}
		send(Response{Type: RespSuccess})
	case CmdUnbind:
		s.unbind(ctx, cmd, send)
	case CmdBind:
		s.bind(ctx, cmd, send)
	case CmdSelectNodes:
		s.selectNodes(cmd, send)
	case CmdStartWatch:
		s.startWatch(ctx, cmd, send)
	case CmdStopWatch:
		s.stopWatch(send)
	case CmdResize:
		s.resize(cmd, send)
	default:
		send(errorResponse(fmt.Sprintf("unknown command %q", cmd.Command)))
	}
}

// runScan drives one engine scan to its terminal response.
func (s *Service) runScan(ctx context.Context, req scan.Request, send func(Response)) {
	result, err := s.engine.Scan(ctx, req, func(pct int) {
		send(Response{Type: RespProgress, Percent: pct})
	})
	resp, _ := scanTerminal(result, err)
	send(resp)
}

// scanTerminal maps a finished engine call to its terminal response.
// The bool reports whether the engine was busy with another scan, so
// callers can choose between answering and skipping.
func scanTerminal(result *scan.Result, err error) (Response, bool) {
	switch {
	case errors.Is(err, scan.ErrScanActive):
		return errorResponse("a scan is already running"), true
	case errors.Is(err, scan.ErrCancelled):
		return Response{Type: RespScanCancelled}, false
	case err != nil:
		return errorResponse(err.Error()), false
	case result.Total == 0:
		return Response{Type: RespNoResults, Category: result.Category}, false
	default:
		return Response{
			Type:     RespResults,
			Category: result.Category,
			Groups:   result.Groups,
			Total:    result.Total,
		}, false
	}
}

func (s *Service) unbind(ctx context.Context, cmd Command, send func(Response)) {
	switch {
	case cmd.Finding != nil && cmd.Group != nil:
		send(errorResponse("unbind takes a finding or a group, not both"))
	case cmd.Finding != nil:
		if err := s.actor.Unbind(ctx, *cmd.Finding); err != nil {
			send(Response{Type: RespError, Message: err.Error(), Failed: 1})
			return
		}
		send(Response{Type: RespSuccess, Successful: 1})
	case cmd.Group != nil:
		res := s.actor.UnbindGroup(ctx, cmd.Group.Findings)
		resp := Response{
			Successful: res.Successful,
			Failed:     res.Failed,
			Message:    strings.Join(res.Messages, "; "),
		}
		// Partial success is still success; the counts tell the story.
		if res.Failed > 0 && res.Successful == 0 {
			resp.Type = RespError
		} else {
			resp.Type = RespSuccess
		}
		send(resp)
	default:
		send(errorResponse("unbind needs a finding or a group"))
	}
}

func (s *Service) bind(ctx context.Context, cmd Command, send func(Response)) {
	if cmd.NodeID == "" || cmd.Property == "" || cmd.TargetID == "" {
		send(errorResponse("bind needs nodeId, property and targetId"))
		return
	}
	if err := s.actor.Bind(ctx, cmd.NodeID, cmd.Property, cmd.TargetID); err != nil {
		send(errorResponse(err.Error()))
		return
	}
	send(Response{Type: RespSuccess, Successful: 1})
}

func (s *Service) selectNodes(cmd Command, send func(Response)) {
	count, err := s.host.SetSelection(cmd.NodeIDs)
	if err != nil {
		s.log.Warn("selection failed", "error", err)
		send(Response{Type: RespSelectionError, Message: err.Error()})
		return
	}
	if count > 0 {
		if err := s.host.ScrollIntoView(cmd.NodeIDs); err != nil {
			// The selection took; a failed scroll is not worth failing
			// the command over.
			s.log.Warn("scroll into view failed", "error", err)
		}
	}
	send(Response{Type: RespSelectionUpdated, Count: count})
}

func (s *Service) startWatch(ctx context.Context, cmd Command, send func(Response)) {
	req := s.scanRequest(cmd)
	if !req.Category.Valid() {
		send(errorResponse(fmt.Sprintf("unknown scan category %q", req.Category)))
		return
	}

	w := newWatcher(s, req, send)
	s.mu.Lock()
	if s.watch != nil {
		// A second start-watch replaces the stored request.
		s.watch.halt()
	}
	s.watch = w
	s.mu.Unlock()

	go w.run(ctx)
	s.log.Info("watch started", "category", req.Category, "debounce", s.debounce)
	s.publish(events.WatchStarted, map[string]interface{}{"category": string(req.Category)})
	send(Response{Type: RespWatchStarted, Category: req.Category})
}

func (s *Service) stopWatch(send func(Response)) {
	s.mu.Lock()
	w := s.watch
	s.watch = nil
	s.mu.Unlock()

	if w != nil {
		w.halt()
		s.log.Info("watch stopped")
		s.publish(events.WatchStopped, nil)
	}
	send(Response{Type: RespWatchStopped})
}

func (s *Service) resize(cmd Command, send func(Response)) {
	if s.prefs == nil {
		send(errorResponse("no preference store configured"))
		return
	}
	w := prefs.Window{Width: cmd.Width, Height: cmd.Height}
	if err := s.prefs.SaveWindow(s.docID, w); err != nil {
		send(errorResponse(err.Error()))
		return
	}
	s.log.Debug("panel size saved", "doc", s.docID, "width", w.Width, "height", w.Height)
	send(Response{Type: RespSuccess})
}

func (s *Service) publish(eventType events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	s.bus.Publish(events.Event{Type: eventType, Data: data})
}
