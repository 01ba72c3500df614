package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/pkg/events"
)

// watcher re-runs one stored scan request after each debounced burst
// of document changes. Every rescan is a fresh independent scan; there
// is no diffing against previous results.
type watcher struct {
	svc  *Service
	req  scan.Request
	send func(Response)
	stop chan struct{}
	once sync.Once
}

func newWatcher(svc *Service, req scan.Request, send func(Response)) *watcher {
	return &watcher{
		svc:  svc,
		req:  req,
		send: send,
		stop: make(chan struct{}),
	}
}

func (w *watcher) run(ctx context.Context) {
	changes := w.svc.host.Changes()
	// Edits arrive in flurries; the debounce timer restarts on every
	// burst and the rescan fires only once the document goes quiet.
	var debounce *time.Timer
	var debounceC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if debounce == nil {
				debounce = time.NewTimer(w.svc.debounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.svc.debounce)
			}
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.trigger(ctx)
		}
	}
}

func (w *watcher) trigger(ctx context.Context) {
	w.send(Response{Type: RespWatchTriggered})
	w.svc.publish(events.WatchTriggered, map[string]interface{}{
		"category": string(w.req.Category),
	})

	result, err := w.svc.engine.Scan(ctx, w.req, func(pct int) {
		w.send(Response{Type: RespProgress, Percent: pct})
	})
	resp, busy := scanTerminal(result, err)
	if busy {
		// Someone is already scanning; the next change burst will
		// bring us back around.
		w.svc.log.Debug("watch rescan skipped, scan in progress",
			"category", w.req.Category)
		return
	}
	w.send(resp)
}

// halt stops the watch loop. Safe to call more than once.
func (w *watcher) halt() {
	w.once.Do(func() { close(w.stop) })
}
