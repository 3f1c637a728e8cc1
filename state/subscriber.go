// Package state is the Simple Message state subscriber: a background reader
// on TCP port 50241 that maintains the latest-known joint feedback and robot
// status as a snapshot callers can read without blocking the reader, mirroring
// the registry's under-lock snapshot pattern for live controller state.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// DefaultPort is the state service's well-known TCP port.
const DefaultPort = 50241

// ErrInitialFeedbackTimeout is returned by Start when no feedback of some
// required kind arrived before the deadline.
var ErrInitialFeedbackTimeout = errors.New("state: timed out waiting for initial feedback")

// Callback is invoked on the reader goroutine with an independent copy of
// the snapshot that just changed. Callbacks must not block.
type Callback func(snapshot Snapshot)

// Snapshot is an immutable, deep-copied view of the subscriber's current
// state at the moment it was read.
type Snapshot struct {
	JointFeedback   map[int32]wire.JointFeedback
	JointFeedbackEx *wire.JointFeedbackEx
	RobotStatus     *wire.RobotStatus
}

// Subscriber maintains the latest feedback/status snapshot received from a
// controller's state channel. All reads and writes of the snapshot are
// guarded by a single mutex; the reader goroutine never holds the lock
// while invoking callbacks or blocking on the socket.
type Subscriber struct {
	logger logging.Logger
	conn   *transport.TCPConn

	mu              sync.RWMutex
	jointFeedback   map[int32]wire.JointFeedback
	jointFeedbackEx *wire.JointFeedbackEx
	robotStatus     *wire.RobotStatus

	callbackMu sync.Mutex
	callbacks  []Callback

	readyOnce sync.Once
	readyCh   chan struct{}

	done chan struct{}
	err  error
}

// Dial connects to the state service at addr and starts the background
// reader. Call Start to block until the initial snapshot is populated.
func Dial(ctx context.Context, addr string, logger logging.Logger) (*Subscriber, error) {
	conn, err := transport.DialTCP(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "state: dial %s", addr)
	}
	s := &Subscriber{
		logger:        logger,
		conn:          conn,
		jointFeedback: make(map[int32]wire.JointFeedback),
		readyCh:       make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Start blocks until at least one JointFeedback, one JointFeedbackEx, and
// one RobotStatus have been received, or until timeout elapses.
func (s *Subscriber) Start(timeout time.Duration) error {
	select {
	case <-s.readyCh:
		return nil
	case <-time.After(timeout):
		return ErrInitialFeedbackTimeout
	case <-s.done:
		if s.err != nil {
			return s.err
		}
		return ErrInitialFeedbackTimeout
	}
}

// OnUpdate registers a callback invoked after every successfully decoded
// message, with an independent copy of the snapshot.
func (s *Subscriber) OnUpdate(cb Callback) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// JointFeedback returns a copy of the latest feedback for groupno, if any
// has been received.
func (s *Subscriber) JointFeedback(groupno int32) (wire.JointFeedback, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fb, ok := s.jointFeedback[groupno]
	return fb, ok
}

// JointFeedbackEx returns a copy of the latest multi-group feedback, if any
// has been received.
func (s *Subscriber) JointFeedbackEx() (wire.JointFeedbackEx, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.jointFeedbackEx == nil {
		return wire.JointFeedbackEx{}, false
	}
	return copyFeedbackEx(*s.jointFeedbackEx), true
}

// RobotStatus returns a copy of the latest robot status, if any has been
// received.
func (s *Subscriber) RobotStatus() (wire.RobotStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.robotStatus == nil {
		return wire.RobotStatus{}, false
	}
	return *s.robotStatus, true
}

// Close stops the reader and closes the connection.
func (s *Subscriber) Close() error { return s.conn.Close() }

func (s *Subscriber) run() {
	defer close(s.done)
	for {
		msg, err := s.conn.Recv()
		if err != nil {
			s.err = err
			s.logger.Errorw("state: reader terminating on socket error", "error", err)
			return
		}
		if err := s.apply(msg); err != nil {
			// A message that decodes but is not a state message (an
			// unknown tag or another type) is logged and skipped. Any
			// error from Recv, including a body that fails to decode,
			// terminates the reader above.
			s.logger.Warnw("state: discarding undecodable message", "error", err)
			continue
		}
	}
}

func (s *Subscriber) apply(msg wire.Message) error {
	var snapshot Snapshot
	switch b := msg.Body.(type) {
	case wire.JointFeedback:
		s.mu.Lock()
		s.jointFeedback[b.GroupNo] = b
		snapshot = s.snapshotLocked()
		s.mu.Unlock()
	case wire.JointFeedbackEx:
		cp := copyFeedbackEx(b)
		s.mu.Lock()
		s.jointFeedbackEx = &cp
		snapshot = s.snapshotLocked()
		s.mu.Unlock()
	case wire.RobotStatus:
		s.mu.Lock()
		cp := b
		s.robotStatus = &cp
		snapshot = s.snapshotLocked()
		s.mu.Unlock()
	case wire.Invalid:
		return errors.Errorf("state: unrecognised tag %d", b.MsgType)
	default:
		return errors.Errorf("state: unexpected message type %T on state channel", b)
	}

	s.maybeSignalReady()
	s.invokeCallbacks(snapshot)
	return nil
}

// snapshotLocked must be called with s.mu held.
func (s *Subscriber) snapshotLocked() Snapshot {
	jf := make(map[int32]wire.JointFeedback, len(s.jointFeedback))
	for k, v := range s.jointFeedback {
		jf[k] = v
	}
	snap := Snapshot{JointFeedback: jf}
	if s.jointFeedbackEx != nil {
		cp := copyFeedbackEx(*s.jointFeedbackEx)
		snap.JointFeedbackEx = &cp
	}
	if s.robotStatus != nil {
		cp := *s.robotStatus
		snap.RobotStatus = &cp
	}
	return snap
}

func (s *Subscriber) maybeSignalReady() {
	s.mu.RLock()
	ready := len(s.jointFeedback) > 0 && s.jointFeedbackEx != nil && s.robotStatus != nil
	s.mu.RUnlock()
	if ready {
		s.readyOnce.Do(func() { close(s.readyCh) })
	}
}

func (s *Subscriber) invokeCallbacks(snapshot Snapshot) {
	s.callbackMu.Lock()
	cbs := make([]Callback, len(s.callbacks))
	copy(cbs, s.callbacks)
	s.callbackMu.Unlock()
	for _, cb := range cbs {
		cb(snapshot)
	}
}

func copyFeedbackEx(fb wire.JointFeedbackEx) wire.JointFeedbackEx {
	groups := make([]wire.JointFeedback, len(fb.Groups))
	copy(groups, fb.Groups)
	return wire.JointFeedbackEx{Groups: groups}
}
