package bridge

import (
	"context"
	"sync"
)

// Pipe is the in-process transport: the TUI and embedding hosts use it
// in place of a websocket. Commands flow one way, responses the other,
// both over buffered channels.
type Pipe struct {
	commands  chan Command
	responses chan Response
	closed    chan struct{}
	once      sync.Once
}

// NewPipe creates a pipe with the given per-direction buffer. A
// non-positive buffer gets a sensible default.
func NewPipe(buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pipe{
		commands:  make(chan Command, buffer),
		responses: make(chan Response, buffer),
		closed:    make(chan struct{}),
	}
}

// Send queues one command for the service. It reports false once the
// pipe is closed.
func (p *Pipe) Send(cmd Command) bool {
	select {
	case <-p.closed:
		return false
	case p.commands <- cmd:
		return true
	}
}

// Responses delivers service replies in the order they were produced.
func (p *Pipe) Responses() <-chan Response { return p.responses }

// Commands delivers queued client commands. ServePipe is the usual
// consumer; tests read it directly.
func (p *Pipe) Commands() <-chan Command { return p.commands }

// Close ends the conversation; ServePipe returns shortly after.
func (p *Pipe) Close() {
	p.once.Do(func() { close(p.closed) })
}

// ServePipe runs the command loop for one pipe until the pipe closes
// or ctx ends. A response that would block on a congested client is
// dropped with a warning rather than stalling the engine.
func (s *Service) ServePipe(ctx context.Context, p *Pipe) {
	send := func(resp Response) {
		select {
		case <-p.closed:
		case p.responses <- resp:
		default:
			s.log.Warn("dropping response for congested pipe client", "type", resp.Type)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closed:
			return
		case cmd := <-p.commands:
			s.Dispatch(ctx, cmd, send)
		}
	}
}
