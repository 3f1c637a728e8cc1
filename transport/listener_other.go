//go:build !linux && !darwin

package transport

import (
	"net"

	"github.com/pkg/errors"
)

// Listen binds a plain TCP listener on addr. SO_REUSEADDR tuning is only
// wired up for the platforms the simulator is actually deployed on.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return ln, nil
}
