package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Fixed body sizes, in bytes, for the scalar (non-Ex) messages and for one
// repeated sub-record of each Ex message. spec.md's §6 size table and its
// §3 field-by-field body layout disagree by 4 bytes for JointFeedback and
// the JointTrajPtFullEx sub-record (128 vs the 132 the explicit field list
// implies); this codec follows the field list, since that is what actually
// drives the byte layout, and treats the size table as approximate.
const (
	sizeRobotStatus              = 7 * 4
	sizeJointTrajPtFull          = 4 + 4 + 4 + 4 + 3*MaxJoints*4
	sizeJointFeedback            = 4 + 4 + 4 + 3*MaxJoints*4
	sizeMotoMotionCtrl           = 4 + 4 + 4 + MaxJoints*4
	sizeMotoMotionReply          = 4 + 4 + 4 + 4 + 4 + MaxJoints*4
	sizeReadBitRequest           = 4
	sizeReadBitReply             = 4 + 4
	sizeWriteBitRequest          = 4 + 4
	sizeWriteBitReply            = 4
	sizeMotoIoCtrlReply          = 4 + 4
	sizeJointTrajPtExData        = 4 + 4 + 4 + 3*MaxJoints*4
	sizeSelectTool               = 4 + 4 + 4
	sizeDhParameters             = MaxGroups * 8 * 4 * 4
	sizeRealTimeJointStateData   = 4 + MaxJoints*4 + MaxJoints*4
	sizeRealTimeJointCommandData = 4 + MaxJoints*4
)

// --- little-endian cursor helpers -----------------------------------------

type byteWriter struct{ buf []byte }

func (w *byteWriter) i32(v int32)   { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }
func (w *byteWriter) u32(v uint32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) f32(v float32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v)) }
func (w *byteWriter) floats(a [MaxJoints]float32) {
	for _, v := range a {
		w.f32(v)
	}
}

type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortFrame
		return false
	}
	return true
}

func (r *byteReader) i32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

func (r *byteReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) f32() float32 {
	if !r.need(4) {
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

func (r *byteReader) floats() [MaxJoints]float32 {
	var out [MaxJoints]float32
	for i := range out {
		out[i] = r.f32()
	}
	return out
}

// --- per-message encode/decode ---------------------------------------------

func encodeBody(b Body) []byte {
	switch m := b.(type) {
	case nil:
		return nil
	case RobotStatus:
		w := &byteWriter{buf: make([]byte, 0, sizeRobotStatus)}
		w.i32(m.DrivesPowered.toWire())
		w.i32(m.EStopped.toWire())
		w.i32(m.ErrorCode)
		w.i32(m.InError.toWire())
		w.i32(m.InMotion.toWire())
		w.i32(m.Mode.toWire())
		w.i32(m.MotionPossible.toWire())
		return w.buf
	case JointTrajPtFull:
		w := &byteWriter{buf: make([]byte, 0, sizeJointTrajPtFull)}
		w.i32(m.GroupNo)
		w.i32(m.Sequence)
		w.i32(m.ValidFields)
		w.f32(m.Time)
		w.floats(m.Pos)
		w.floats(m.Vel)
		w.floats(m.Acc)
		return w.buf
	case JointFeedback:
		return encodeJointFeedback(m)
	case MotoMotionCtrl:
		w := &byteWriter{buf: make([]byte, 0, sizeMotoMotionCtrl)}
		w.i32(m.GroupNo)
		w.i32(m.Sequence)
		w.i32(m.Command)
		w.floats(m.Data)
		return w.buf
	case MotoMotionReply:
		w := &byteWriter{buf: make([]byte, 0, sizeMotoMotionReply)}
		w.i32(m.GroupNo)
		w.i32(m.Sequence)
		w.i32(m.Command)
		w.i32(int32(m.Result))
		w.i32(m.Subcode)
		w.floats(m.Data)
		return w.buf
	case MotoReadIOBitRequest:
		w := &byteWriter{buf: make([]byte, 0, sizeReadBitRequest)}
		w.u32(m.Address)
		return w.buf
	case MotoReadIOBitReply:
		w := &byteWriter{buf: make([]byte, 0, sizeReadBitReply)}
		w.u32(m.Value)
		w.u32(m.ResultCode)
		return w.buf
	case MotoWriteIOBitRequest:
		w := &byteWriter{buf: make([]byte, 0, sizeWriteBitRequest)}
		w.u32(m.Address)
		w.u32(m.Value)
		return w.buf
	case MotoWriteIOBitReply:
		w := &byteWriter{buf: make([]byte, 0, sizeWriteBitReply)}
		w.u32(m.ResultCode)
		return w.buf
	case MotoReadIOGroupRequest:
		w := &byteWriter{buf: make([]byte, 0, sizeReadBitRequest)}
		w.u32(m.Address)
		return w.buf
	case MotoReadIOGroupReply:
		w := &byteWriter{buf: make([]byte, 0, sizeReadBitReply)}
		w.u32(m.Value)
		w.u32(m.ResultCode)
		return w.buf
	case MotoWriteIOGroupRequest:
		w := &byteWriter{buf: make([]byte, 0, sizeWriteBitRequest)}
		w.u32(m.Address)
		w.u32(m.Value)
		return w.buf
	case MotoWriteIOGroupReply:
		w := &byteWriter{buf: make([]byte, 0, sizeWriteBitReply)}
		w.u32(m.ResultCode)
		return w.buf
	case MotoIoCtrlReply:
		w := &byteWriter{buf: make([]byte, 0, sizeMotoIoCtrlReply)}
		w.u32(m.Result)
		w.i32(m.Subcode)
		return w.buf
	case JointTrajPtFullEx:
		w := &byteWriter{buf: make([]byte, 0, 8+len(m.Groups)*sizeJointTrajPtExData)}
		w.i32(int32(len(m.Groups)))
		w.i32(m.Sequence)
		for _, g := range m.Groups {
			w.i32(g.GroupNo)
			w.i32(g.ValidFields)
			w.f32(g.Time)
			w.floats(g.Pos)
			w.floats(g.Vel)
			w.floats(g.Acc)
		}
		return w.buf
	case JointFeedbackEx:
		w := &byteWriter{buf: make([]byte, 0, 4+len(m.Groups)*sizeJointFeedback)}
		w.i32(int32(len(m.Groups)))
		for _, g := range m.Groups {
			w.buf = append(w.buf, encodeJointFeedback(g)...)
		}
		return w.buf
	case SelectTool:
		w := &byteWriter{buf: make([]byte, 0, sizeSelectTool)}
		w.i32(m.GroupNo)
		w.i32(m.Tool)
		w.i32(m.Sequence)
		return w.buf
	case MotoGetDhParameters:
		w := &byteWriter{buf: make([]byte, 0, sizeDhParameters)}
		for _, group := range m.Groups {
			for _, link := range group {
				w.f32(link.Theta)
				w.f32(link.D)
				w.f32(link.A)
				w.f32(link.Alpha)
			}
		}
		return w.buf
	case RealTimeJointStateEx:
		w := &byteWriter{buf: make([]byte, 0, 12+len(m.Groups)*sizeRealTimeJointStateData)}
		w.i32(m.MessageID)
		w.i32(m.Mode)
		w.i32(int32(len(m.Groups)))
		for _, g := range m.Groups {
			w.i32(g.GroupNo)
			w.floats(g.Pos)
			w.floats(g.Vel)
		}
		return w.buf
	case RealTimeJointCommandEx:
		w := &byteWriter{buf: make([]byte, 0, 8+len(m.Groups)*sizeRealTimeJointCommandData)}
		w.i32(m.MessageID)
		w.i32(int32(len(m.Groups)))
		for _, g := range m.Groups {
			w.i32(g.GroupNo)
			w.floats(g.Command)
		}
		return w.buf
	case Invalid:
		out := make([]byte, len(m.Raw))
		copy(out, m.Raw)
		return out
	default:
		return nil
	}
}

func encodeJointFeedback(m JointFeedback) []byte {
	w := &byteWriter{buf: make([]byte, 0, sizeJointFeedback)}
	w.i32(m.GroupNo)
	w.i32(m.ValidFields)
	w.f32(m.Time)
	w.floats(m.Pos)
	w.floats(m.Vel)
	w.floats(m.Acc)
	return w.buf
}

type decodeFunc func([]byte) (Body, error)

func decodeRobotStatus(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	m := RobotStatus{
		DrivesPowered: ternaryFromWire(r.i32()),
		EStopped:      ternaryFromWire(r.i32()),
		ErrorCode:     r.i32(),
		InError:       ternaryFromWire(r.i32()),
		InMotion:      ternaryFromWire(r.i32()),
		Mode:          pendantModeFromWire(r.i32()),
		MotionPossible: ternaryFromWire(r.i32()),
	}
	return m, r.err
}

func decodeJointTrajPtFull(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	m := JointTrajPtFull{
		GroupNo:     r.i32(),
		Sequence:    r.i32(),
		ValidFields: r.i32(),
		Time:        r.f32(),
	}
	m.Pos = r.floats()
	m.Vel = r.floats()
	m.Acc = r.floats()
	return m, r.err
}

func decodeJointFeedbackFrom(r *byteReader) JointFeedback {
	m := JointFeedback{
		GroupNo:     r.i32(),
		ValidFields: r.i32(),
		Time:        r.f32(),
	}
	m.Pos = r.floats()
	m.Vel = r.floats()
	m.Acc = r.floats()
	return m
}

func decodeJointFeedback(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	m := decodeJointFeedbackFrom(r)
	return m, r.err
}

func decodeMotoMotionCtrl(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	m := MotoMotionCtrl{
		GroupNo:  r.i32(),
		Sequence: r.i32(),
		Command:  r.i32(),
	}
	m.Data = r.floats()
	return m, r.err
}

func decodeMotoMotionReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	m := MotoMotionReply{
		GroupNo:  r.i32(),
		Sequence: r.i32(),
		Command:  r.i32(),
		Result:   Result(r.i32()),
		Subcode:  r.i32(),
	}
	m.Data = r.floats()
	return m, r.err
}

func decodeReadBitRequest(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoReadIOBitRequest{Address: r.u32()}, r.err
}

func decodeReadBitReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoReadIOBitReply{Value: r.u32(), ResultCode: r.u32()}, r.err
}

func decodeWriteBitRequest(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoWriteIOBitRequest{Address: r.u32(), Value: r.u32()}, r.err
}

func decodeWriteBitReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoWriteIOBitReply{ResultCode: r.u32()}, r.err
}

func decodeReadGroupRequest(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoReadIOGroupRequest{Address: r.u32()}, r.err
}

func decodeReadGroupReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoReadIOGroupReply{Value: r.u32(), ResultCode: r.u32()}, r.err
}

func decodeWriteGroupRequest(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoWriteIOGroupRequest{Address: r.u32(), Value: r.u32()}, r.err
}

func decodeWriteGroupReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoWriteIOGroupReply{ResultCode: r.u32()}, r.err
}

func decodeMotoIoCtrlReply(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return MotoIoCtrlReply{Result: r.u32(), Subcode: r.i32()}, r.err
}

func decodeJointTrajPtFullEx(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	n := r.i32()
	seq := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if n < 1 || n > MaxGroups {
		return nil, errors.Wrapf(ErrInvalidGroupCount, "n=%d", n)
	}
	groups := make([]JointTrajPtExData, n)
	for i := range groups {
		groups[i] = JointTrajPtExData{
			GroupNo:     r.i32(),
			ValidFields: r.i32(),
			Time:        r.f32(),
		}
		groups[i].Pos = r.floats()
		groups[i].Vel = r.floats()
		groups[i].Acc = r.floats()
	}
	return JointTrajPtFullEx{Sequence: seq, Groups: groups}, r.err
}

func decodeJointFeedbackEx(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	n := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if n < 1 || n > MaxGroups {
		return nil, errors.Wrapf(ErrInvalidGroupCount, "n=%d", n)
	}
	groups := make([]JointFeedback, n)
	for i := range groups {
		groups[i] = decodeJointFeedbackFrom(r)
	}
	return JointFeedbackEx{Groups: groups}, r.err
}

func decodeSelectTool(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	return SelectTool{GroupNo: r.i32(), Tool: r.i32(), Sequence: r.i32()}, r.err
}

func decodeDhParameters(body []byte) (Body, error) {
	// GetDhParameters' request carries tag 2020 with no body (spec.md §4.3);
	// only the reply carries the full 512-byte layout. Tolerate the empty
	// request rather than failing on it.
	if len(body) == 0 {
		return MotoGetDhParameters{}, nil
	}
	r := &byteReader{buf: body}
	var m MotoGetDhParameters
	for g := range m.Groups {
		for l := range m.Groups[g] {
			m.Groups[g][l] = DHLink{
				Theta: r.f32(),
				D:     r.f32(),
				A:     r.f32(),
				Alpha: r.f32(),
			}
		}
	}
	return m, r.err
}

func decodeRealTimeJointStateEx(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	id := r.i32()
	mode := r.i32()
	n := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if n < 1 || n > MaxGroups {
		return nil, errors.Wrapf(ErrInvalidGroupCount, "n=%d", n)
	}
	groups := make([]RealTimeJointStateExData, n)
	for i := range groups {
		groups[i].GroupNo = r.i32()
		groups[i].Pos = r.floats()
		groups[i].Vel = r.floats()
	}
	return RealTimeJointStateEx{MessageID: id, Mode: mode, Groups: groups}, r.err
}

func decodeRealTimeJointCommandEx(body []byte) (Body, error) {
	r := &byteReader{buf: body}
	id := r.i32()
	n := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if n < 1 || n > MaxGroups {
		return nil, errors.Wrapf(ErrInvalidGroupCount, "n=%d", n)
	}
	groups := make([]RealTimeJointCommandExData, n)
	for i := range groups {
		groups[i].GroupNo = r.i32()
		groups[i].Command = r.floats()
	}
	return RealTimeJointCommandEx{MessageID: id, Groups: groups}, r.err
}

var decoders = map[MsgType]decodeFunc{
	MsgRobotStatus:             decodeRobotStatus,
	MsgJointTrajPtFull:         decodeJointTrajPtFull,
	MsgJointFeedback:           decodeJointFeedback,
	MsgMotoMotionCtrl:          decodeMotoMotionCtrl,
	MsgMotoMotionReply:         decodeMotoMotionReply,
	MsgMotoReadIOBitRequest:    decodeReadBitRequest,
	MsgMotoReadIOBitReply:      decodeReadBitReply,
	MsgMotoWriteIOBitRequest:   decodeWriteBitRequest,
	MsgMotoWriteIOBitReply:     decodeWriteBitReply,
	MsgMotoReadIOGroupRequest:  decodeReadGroupRequest,
	MsgMotoReadIOGroupReply:    decodeReadGroupReply,
	MsgMotoWriteIOGroupRequest: decodeWriteGroupRequest,
	MsgMotoWriteIOGroupReply:   decodeWriteGroupReply,
	MsgMotoIoCtrlReply:         decodeMotoIoCtrlReply,
	MsgJointTrajPtFullEx:       decodeJointTrajPtFullEx,
	MsgJointFeedbackEx:         decodeJointFeedbackEx,
	MsgSelectTool:              decodeSelectTool,
	MsgMotoGetDhParameters:     decodeDhParameters,
	MsgRealTimeJointStateEx:    decodeRealTimeJointStateEx,
	MsgRealTimeJointCommandEx:  decodeRealTimeJointCommandEx,
}

// Encode produces prefix+header+body for msg. The prefix's length field
// equals the number of bytes after the prefix (header + body); a nil Body
// encodes a header-only 12-byte frame.
func Encode(header Header, body Body) []byte {
	bodyBytes := encodeBody(body)
	out := make([]byte, 0, PrefixSize+HeaderSize+len(bodyBytes))
	w := &byteWriter{buf: out}
	w.u32(uint32(HeaderSize + len(bodyBytes)))
	w.i32(int32(header.MsgType))
	w.i32(int32(header.CommType))
	w.i32(int32(header.ReplyType))
	w.buf = append(w.buf, bodyBytes...)
	return w.buf
}

// Decode reads one framed message from data, returning the message and the
// number of bytes consumed. It fails with ErrShortFrame if fewer bytes than
// the prefix declares are available, or ErrInvalidTag if the declared frame
// is too small to even hold the 12-byte header. An unrecognised msg_type
// decodes to an Invalid body rather than failing.
func Decode(data []byte) (Message, int, error) {
	if len(data) < PrefixSize {
		return Message{}, 0, ErrShortFrame
	}
	declared := binary.LittleEndian.Uint32(data[:PrefixSize])
	if declared < HeaderSize {
		return Message{}, 0, ErrInvalidTag
	}
	total := PrefixSize + int(declared)
	if len(data) < total {
		return Message{}, 0, ErrShortFrame
	}

	r := &byteReader{buf: data[PrefixSize:total]}
	header := Header{
		MsgType:   MsgType(r.i32()),
		CommType:  CommType(r.i32()),
		ReplyType: ReplyType(r.i32()),
	}
	bodyBytes := data[PrefixSize+HeaderSize : total]

	dec, ok := decoders[header.MsgType]
	if !ok {
		raw := make([]byte, len(bodyBytes))
		copy(raw, bodyBytes)
		return Message{Header: header, Body: Invalid{MsgType: header.MsgType, Raw: raw}}, total, nil
	}
	body, err := dec(bodyBytes)
	if err != nil {
		return Message{}, 0, err
	}
	return Message{Header: header, Body: body}, total, nil
}
