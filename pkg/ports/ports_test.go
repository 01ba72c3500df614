package ports

import (
	"fmt"
	"net"
	"testing"
)

func TestFindAvailablePortPrefersRequested(t *testing.T) {
	// Grab an ephemeral port, free it, then ask for it back.
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	want := l.Addr().(*net.TCPAddr).Port
	l.Close()

	got, err := FindAvailablePort(want)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got port %d, want %d", got, want)
	}
}

func TestFindAvailablePortSkipsBusy(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	busy := l.Addr().(*net.TCPAddr).Port

	got, err := FindAvailablePort(busy)
	if err != nil {
		t.Fatal(err)
	}
	if got == busy {
		t.Errorf("returned the busy port %d", busy)
	}
	if got < busy || got > busy+scanSpan {
		t.Errorf("port %d outside scan range %d-%d", got, busy, busy+scanSpan)
	}
	probe, err := net.Listen("tcp", fmt.Sprintf(":%d", got))
	if err != nil {
		t.Fatalf("returned port %d not listenable: %v", got, err)
	}
	probe.Close()
}

func TestFindAvailablePortZeroAsksOS(t *testing.T) {
	got, err := FindAvailablePort(0)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 0 || got > 65535 {
		t.Errorf("implausible port %d", got)
	}
}
