package events

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestHandlerPanicReportsToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = old }()

	// One worker processes the two tasks in order, so the second
	// handler firing means the panicking one already ran.
	bus := NewBusWithConfig(WorkerPoolConfig{WorkerCount: 1, BufferSize: 4})
	done := make(chan struct{})
	bus.Subscribe("boom", func(Event) { panic("kaboom") })
	bus.Subscribe("boom", func(Event) { close(done) })
	bus.Publish(Event{Type: "boom"})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("second handler never ran; worker died with the panic")
	}
	bus.Shutdown()

	os.Stderr = old
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "event handler panic: kaboom") {
		t.Errorf("panic report not on stderr, got %q", out)
	}
}
