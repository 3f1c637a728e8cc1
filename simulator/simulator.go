// Package simulator plays the controller side of the Simple Message
// protocol (C6): matching TCP listeners for motion, state, IO, and
// real-time control, a UDP endpoint for real-time data, and a per-group
// motion-buffer worker that interpolates queued trajectory points.
package simulator

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/ioctrl"
	"github.com/motoman-devrel/simplemsg/motion"
	"github.com/motoman-devrel/simplemsg/realtime"
	"github.com/motoman-devrel/simplemsg/state"
	"github.com/motoman-devrel/simplemsg/transport"
)

// Default cadences, per spec.md §4.6.
const (
	DefaultStateRate  = 25.0  // Hz
	DefaultBufferRate = 100.0 // Hz
)

// GroupSpec describes one control group the simulator should model.
type GroupSpec struct {
	GroupNo   int32
	NumJoints int
}

// Config parameterises a Simulator.
type Config struct {
	Addr       string // bind address, e.g. "127.0.0.1"
	Groups     []GroupSpec
	StateRate  float64       // Hz, default DefaultStateRate
	BufferRate float64       // Hz, default DefaultBufferRate
	RTPeriod   time.Duration // default realtime.DefaultPeriod
}

// Simulator is the controller-side counterpart to motion.Client,
// state.Subscriber, ioctrl.Client, and realtime.Endpoint.
type Simulator struct {
	logger logging.Logger
	cfg    Config
	groups map[int32]*group

	motionLn    net.Listener
	stateLn     net.Listener
	ioLn        net.Listener
	rtControlLn net.Listener
	rtData      *transport.UDPEndpoint

	ioStore *ioStore

	rtActive    int32 // atomic bool: real-time mode started over the control channel
	rtMode      int32 // atomic: current RTMode* advertised in state packets
	rtMessageID atomic.Int32

	rtPeersMu sync.Mutex
	rtPeers   map[string]*net.UDPAddr // peers with a live real-time session, keyed by address

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex
}

// Addresses of the five listeners, populated after New.
type Addresses struct {
	Motion, State, IO, RTControl, RTData string
}

// New binds every listener and starts the per-group motion workers. Call
// Serve to begin accepting connections.
func New(cfg Config, logger logging.Logger) (*Simulator, Addresses, error) {
	if cfg.StateRate <= 0 {
		cfg.StateRate = DefaultStateRate
	}
	if cfg.BufferRate <= 0 {
		cfg.BufferRate = DefaultBufferRate
	}
	if cfg.RTPeriod <= 0 {
		cfg.RTPeriod = realtime.DefaultPeriod
	}

	groups := make(map[int32]*group, len(cfg.Groups))
	for _, gs := range cfg.Groups {
		groups[gs.GroupNo] = newGroup(gs.GroupNo, gs.NumJoints, cfg.BufferRate)
	}

	s := &Simulator{logger: logger, cfg: cfg, groups: groups, ioStore: newIOStore(), stopCh: make(chan struct{}), rtPeers: make(map[string]*net.UDPAddr)}

	var err error
	s.motionLn, err = transport.Listen(net.JoinHostPort(cfg.Addr, strconv.Itoa(motion.DefaultPort)))
	if err != nil {
		return nil, Addresses{}, errors.Wrap(err, "simulator: listen motion")
	}
	s.stateLn, err = transport.Listen(net.JoinHostPort(cfg.Addr, strconv.Itoa(state.DefaultPort)))
	if err != nil {
		return nil, Addresses{}, errors.Wrap(err, "simulator: listen state")
	}
	s.ioLn, err = transport.Listen(net.JoinHostPort(cfg.Addr, strconv.Itoa(ioctrl.DefaultPort)))
	if err != nil {
		return nil, Addresses{}, errors.Wrap(err, "simulator: listen io")
	}
	s.rtControlLn, err = transport.Listen(net.JoinHostPort(cfg.Addr, strconv.Itoa(realtime.DefaultControlPort)))
	if err != nil {
		return nil, Addresses{}, errors.Wrap(err, "simulator: listen rt control")
	}
	s.rtData, err = transport.ListenUDP(net.JoinHostPort(cfg.Addr, strconv.Itoa(realtime.DefaultDataPort)))
	if err != nil {
		return nil, Addresses{}, errors.Wrap(err, "simulator: listen rt data")
	}

	addrs := Addresses{
		Motion:    s.motionLn.Addr().String(),
		State:     s.stateLn.Addr().String(),
		IO:        s.ioLn.Addr().String(),
		RTControl: s.rtControlLn.Addr().String(),
		RTData:    s.rtData.LocalAddr().String(),
	}
	return s, addrs, nil
}

// Serve starts accepting on every listener; it returns immediately, workers
// run on their own goroutines until Close is called.
func (s *Simulator) Serve(ctx context.Context) {
	s.wg.Add(4)
	go s.acceptLoop(s.motionLn, s.serveMotionConn)
	go s.acceptLoop(s.stateLn, s.serveStateConn)
	go s.acceptLoop(s.ioLn, s.serveIOConn)
	go s.acceptLoop(s.rtControlLn, s.serveRTControlConn)

	s.wg.Add(1)
	go s.runRTDataLoop(ctx)
}

func (s *Simulator) acceptLoop(ln net.Listener, handle func(conn *transport.TCPConn)) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Warnw("simulator: accept failed", "error", err)
				return
			}
		}
		tc := transport.NewTCPConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer tc.Close()
			handle(tc)
		}()
	}
}

// Close stops every worker and closes every listener/connection.
func (s *Simulator) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	_ = s.motionLn.Close()
	_ = s.stateLn.Close()
	_ = s.ioLn.Close()
	_ = s.rtControlLn.Close()
	_ = s.rtData.Close()
	for _, g := range s.groups {
		g.close()
	}
	s.wg.Wait()
	return nil
}

func (s *Simulator) group(groupNo int32) (*group, bool) {
	g, ok := s.groups[groupNo]
	return g, ok
}
