// Package transport delivers whole framed wire.Message values to and from
// TCP and UDP sockets: length-prefixed coalescing reads for TCP, one
// datagram per message for UDP.
package transport

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// ErrConnectionRefused wraps a dial failure with the two operational causes
// the MotoPlus controller is observed to produce them for: the controller's
// alarms have not been reset, or the client is on the wrong subnet.
var ErrConnectionRefused = errors.New("connection refused")

// wrapDialError adds the diagnostic hints spec.md §4.2 asks for whenever the
// underlying error looks like a refused connection.
func wrapDialError(addr string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(err, syscall.ECONNREFUSED) {
		return errors.Wrapf(ErrConnectionRefused, "dial %s: %v (check that the controller's alarms are reset and that this host is on the controller's subnet)", addr, opErr.Err)
	}
	return errors.Wrapf(err, "dial %s", addr)
}
