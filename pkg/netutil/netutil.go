// Package netutil holds small listener helpers.
package netutil

import (
	"fmt"
	"net"
)

// ListenWithFallback listens on host:preferredPort, or on a system-chosen
// port of host if the preferred one is taken or empty. It returns the
// listener and the port it is bound to.
func ListenWithFallback(host, preferredPort string) (net.Listener, int, error) {
	if preferredPort != "" {
		if lis, err := net.Listen("tcp", net.JoinHostPort(host, preferredPort)); err == nil {
			return lis, lis.Addr().(*net.TCPAddr).Port, nil
		}
	}

	lis, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to listen on %s:%s and a random port: %w", host, preferredPort, err)
	}
	return lis, lis.Addr().(*net.TCPAddr).Port, nil
}
