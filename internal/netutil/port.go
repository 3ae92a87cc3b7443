package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// ErrNoBindAddr is returned when neither the preferred address nor any
// candidate can be listened on.
var ErrNoBindAddr = errors.New("no available bind address for the saver API")

// SelectBindAddr returns preferred when it is free. Otherwise, with
// autoFallback, it returns the first free candidate, skipping blanks and
// repeats of preferred.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		if IsAddrAvailable(preferred) {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("saver API address %s is in use and SAVER_PORT_AUTO_FALLBACK is off", preferred)
		}
	}

	tried := map[string]bool{preferred: true}
	for _, addr := range candidates {
		if addr == "" || tried[addr] {
			continue
		}
		tried[addr] = true
		if IsAddrAvailable(addr) {
			if preferred != "" {
				slog.Warn("Saver API address in use, falling back", "preferred", preferred, "bind_addr", addr)
			}
			return addr, nil
		}
		slog.Debug("Bind candidate in use", "addr", addr)
	}

	return "", fmt.Errorf("%w (preferred %q, candidates %v)", ErrNoBindAddr, preferred, candidates)
}

// IsAddrAvailable reports whether addr can be listened on right now.
func IsAddrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	return ln.Close() == nil
}
