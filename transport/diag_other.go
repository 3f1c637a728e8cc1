//go:build !linux

package transport

import "net"

// Diagnostics is a best-effort snapshot of a TCP socket's kernel-level
// health. TCP_INFO is only available on Linux; elsewhere ReadDiagnostics
// always reports unavailable.
type Diagnostics struct {
	RTTMicros         uint32
	RTTVarianceMicros uint32
	Retransmits       uint32
}

// ReadDiagnostics always returns ok=false on this platform.
func ReadDiagnostics(conn net.Conn) (Diagnostics, bool) {
	return Diagnostics{}, false
}
