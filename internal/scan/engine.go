package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/pkg/events"
)

// Options tune engine behavior; zero values are the defaults.
type Options struct {
	// FailOpenVisibility makes nodes whose visibility walk fails count
	// as visible instead of hidden.
	FailOpenVisibility bool
}

// Engine runs scans against one host document. Exactly one scan is
// active at a time; Stop, Pause and Resume act on the current one.
type Engine struct {
	host document.Host
	bus  *events.Bus
	log  hclog.Logger
	vis  *Visibility

	mu       sync.Mutex
	session  *Session
	category Category
}

func NewEngine(host document.Host, bus *events.Bus, log hclog.Logger, opts Options) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	vis := NewVisibility(log.Named("visibility"))
	vis.FailOpen = opts.FailOpenVisibility
	return &Engine{host: host, bus: bus, log: log, vis: vis}
}

// Scan runs one request to completion on the calling goroutine and
// returns the grouped result. ErrScanActive is returned if another
// scan is running; ErrCancelled if this one was stopped.
func (e *Engine) Scan(ctx context.Context, req Request, onProgress func(percent int)) (*Result, error) {
	if !req.Category.Valid() {
		return nil, fmt.Errorf("unknown scan category %q", req.Category)
	}

	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil, ErrScanActive
	}
	session := NewSession()
	e.session = session
	e.category = req.Category
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.session = nil
		e.category = ""
		e.mu.Unlock()
	}()

	e.log.Info("scan started", "session", session.ID(), "category", req.Category,
		"wholePage", req.Scope.WholePage(), "ignoreHidden", req.IgnoreHidden)
	e.publish(events.ScanStarted, map[string]interface{}{
		"session":  session.ID(),
		"category": string(req.Category),
	})

	result, err := e.run(ctx, session, req, onProgress)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			e.log.Info("scan cancelled", "session", session.ID())
			e.publish(events.ScanCancelled, map[string]interface{}{"session": session.ID()})
		} else {
			e.log.Error("scan failed", "session", session.ID(), "error", err)
		}
		return nil, err
	}

	e.log.Info("scan completed", "session", session.ID(),
		"findings", result.Total, "groups", len(result.Groups))
	e.publish(events.ScanCompleted, map[string]interface{}{
		"session":  session.ID(),
		"category": string(req.Category),
		"findings": result.Total,
		"groups":   len(result.Groups),
	})
	return result, nil
}

func (e *Engine) run(ctx context.Context, session *Session, req Request, onProgress func(int)) (*Result, error) {
	classifier := NewClassifier(e.host.Variables(), e.host.Styles(), e.log.Named("classify"))
	traverser := NewTraverser(e.host, e.vis, e.log.Named("traverse"))

	candidates, err := traverser.Collect(session, req.Scope, filterFor(req.Category), req.IgnoreHidden)
	if err != nil {
		return nil, err
	}

	meter := newProgressMeter(session, len(candidates), onProgress)
	sc := newScanner(req.Category, classifier, e.vis, e.log.Named("scan"))
	findings, err := sc.run(ctx, session, candidates, meter)
	if err != nil {
		return nil, err
	}
	if session.Cancelled() {
		return nil, ErrCancelled
	}

	return &Result{
		Category: req.Category,
		Groups:   GroupFindings(findings),
		Total:    len(findings),
	}, nil
}

// Stop cancels the active scan and reports whether one was running.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	e.session.Cancel()
	return true
}

// Pause suspends the active scan at its next checkpoint. Only library
// scans pause; other categories are quick enough that the panel never
// offers it.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return fmt.Errorf("no scan to pause")
	}
	if !e.category.Library() {
		return fmt.Errorf("category %s does not support pausing", e.category)
	}
	e.session.Pause()
	return nil
}

// Resume releases a paused scan.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return fmt.Errorf("no scan to resume")
	}
	e.session.Resume()
	return nil
}

// Active reports whether a scan is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Progress reports the active scan's completion in [0,1], or 0 when
// idle.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.Progress()
}

// Visibility exposes the engine's classifier for remediation-side
// checks.
func (e *Engine) Visibility() *Visibility { return e.vis }

func (e *Engine) publish(eventType events.EventType, data map[string]interface{}) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{Type: eventType, Data: data})
}
