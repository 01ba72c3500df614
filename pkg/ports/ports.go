// Package ports picks listen ports for the panel bridge. The
// configured port is preferred; when a stale instance still holds it,
// the bridge moves to a nearby port rather than failing to start.
package ports

import (
	"fmt"
	"net"
)

const scanSpan = 100

// FindAvailablePort returns preferred if it is free, otherwise the
// first free port in (preferred, preferred+100]. Port 0 asks the OS to
// pick.
func FindAvailablePort(preferred int) (int, error) {
	if preferred == 0 {
		return ephemeralPort()
	}
	last := preferred + scanSpan
	if last > 65535 {
		last = 65535
	}
	for port := preferred; port <= last; port++ {
		if available(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in %d-%d", preferred, last)
}

func ephemeralPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("request ephemeral port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func available(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
