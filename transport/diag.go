//go:build linux

package transport

import (
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

// Diagnostics is a best-effort snapshot of a TCP socket's kernel-level
// health, surfaced alongside connection errors so an operator can tell a
// transient retransmit storm from an actually-dead controller.
type Diagnostics struct {
	RTTMicros        uint32
	RTTVarianceMicros uint32
	Retransmits      uint32
}

// ReadDiagnostics recovers the raw file descriptor behind conn (via
// higebu/netfd) and reads TCP_INFO off it. It returns ok=false rather than
// an error when diagnostics aren't available (non-TCP conn, unsupported
// platform) since this is purely advisory.
func ReadDiagnostics(conn net.Conn) (Diagnostics, bool) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return Diagnostics{}, false
	}
	fd, err := netfd.GetFd(tcpConn)
	if err != nil {
		return Diagnostics{}, false
	}
	info, err := unix.GetsockoptTCPInfo(int(fd), unix.SOL_TCP, unix.TCP_INFO)
	if err != nil {
		return Diagnostics{}, false
	}
	return Diagnostics{
		RTTMicros:         info.Rtt,
		RTTVarianceMicros: info.Rttvar,
		Retransmits:       uint32(info.Retransmits),
	}, true
}
