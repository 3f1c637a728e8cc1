package motion

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/motoman-devrel/simplemsg/wire"
)

// ErrNotReady is raised locally, before a trajectory point is ever put on
// the wire, when the controller has already told us it is not motion-ready.
// The controller would refuse the send anyway; rejecting it locally gives a
// better diagnostic (spec.md §4.3).
var ErrNotReady = errors.New("motion: controller is not motion-ready")

// RemoteFailure reports a controller reply whose Result was not SUCCESS.
// subcode ranges are defined in spec.md §3 but unknown subcodes are
// preserved verbatim rather than rejected.
type RemoteFailure struct {
	Result  wire.Result
	Subcode int32
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("motion: remote failure: result=%s subcode=%d", e.Result, e.Subcode)
}
