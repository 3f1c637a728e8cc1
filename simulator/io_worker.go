package simulator

import (
	"sync"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// ioStore is an in-memory bit/word register file backing the IO service.
type ioStore struct {
	mu     sync.Mutex
	bits   map[uint32]uint32
	groups map[uint32]uint32
}

func newIOStore() *ioStore {
	return &ioStore{bits: make(map[uint32]uint32), groups: make(map[uint32]uint32)}
}

func (s *ioStore) readBit(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bits[addr]
}

func (s *ioStore) writeBit(addr, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits[addr] = value
}

func (s *ioStore) readGroup(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[addr]
}

func (s *ioStore) writeGroup(addr, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[addr] = value
}

// serveIOConn answers every IO bit/group read or write against the
// simulator's in-memory register file.
func (s *Simulator) serveIOConn(conn *transport.TCPConn) {
	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}

		switch b := msg.Body.(type) {
		case wire.MotoReadIOBitRequest:
			reply := wire.Header{MsgType: wire.MsgMotoReadIOBitReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoReadIOBitReply{Value: s.ioStore.readBit(b.Address)}); err != nil {
				return
			}
		case wire.MotoWriteIOBitRequest:
			s.ioStore.writeBit(b.Address, b.Value)
			reply := wire.Header{MsgType: wire.MsgMotoWriteIOBitReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoWriteIOBitReply{}); err != nil {
				return
			}
		case wire.MotoReadIOGroupRequest:
			reply := wire.Header{MsgType: wire.MsgMotoReadIOGroupReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoReadIOGroupReply{Value: s.ioStore.readGroup(b.Address)}); err != nil {
				return
			}
		case wire.MotoWriteIOGroupRequest:
			s.ioStore.writeGroup(b.Address, b.Value)
			reply := wire.Header{MsgType: wire.MsgMotoWriteIOGroupReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoWriteIOGroupReply{}); err != nil {
				return
			}
		default:
			s.logger.Warnw("simulator: io worker ignoring unexpected message", "type", b)
		}
	}
}
