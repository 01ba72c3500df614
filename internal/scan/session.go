package scan

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCancelled is returned by a scan that was stopped before it
	// completed. Partial output of a cancelled scan is discardable.
	ErrCancelled = errors.New("scan cancelled")
	// ErrScanActive is returned when a scan is requested while another
	// one is still running.
	ErrScanActive = errors.New("a scan is already running")
)

const pausePollInterval = 25 * time.Millisecond

// Session is the cooperative control state of one scan. The engine
// creates a fresh session per scan and never shares one across scans;
// the flags are inspected at loop boundaries, so in-flight single-node
// work always completes before a cancel takes effect.
type Session struct {
	id        string
	cancelled atomic.Bool
	paused    atomic.Bool
	progress  atomic.Uint64
}

func NewSession() *Session {
	return &Session{id: uuid.New().String()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Cancel()         { s.cancelled.Store(true) }
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

func (s *Session) Pause()       { s.paused.Store(true) }
func (s *Session) Resume()      { s.paused.Store(false) }
func (s *Session) Paused() bool { return s.paused.Load() }

func (s *Session) setProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	s.progress.Store(math.Float64bits(p))
}

// Progress reports the scan's completion in [0,1].
func (s *Session) Progress() float64 {
	return math.Float64frombits(s.progress.Load())
}

// checkpoint is called at the top of each per-node iteration. It parks
// while the session is paused and reports whether work may continue.
func (s *Session) checkpoint() bool {
	for s.Paused() {
		if s.Cancelled() {
			return false
		}
		time.Sleep(pausePollInterval)
	}
	return !s.Cancelled()
}
