package wire

// Body is implemented by every decoded message payload, including Invalid
// for unrecognised tags. It is a closed tagged union dispatched by Tag();
// callers type-switch on the concrete type.
type Body interface {
	Tag() MsgType
}

// Message pairs a header with its decoded body.
type Message struct {
	Header Header
	Body   Body
}

// Invalid carries the raw bytes of a body whose msg_type tag is not in the
// catalogue. The codec never fails on an unknown tag; it hands back the
// residual bytes instead.
type Invalid struct {
	MsgType MsgType
	Raw     []byte
}

func (Invalid) Tag() MsgType { return 0 }

// JointVector returns a fixed MaxJoints-length array with values copied in
// and the remainder zero-padded. It is a convenience for callers building a
// trajectory point from a shorter, group-sized joint slice; the codec
// itself never pads or trims on their behalf.
func JointVector(values []float32) [MaxJoints]float32 {
	var out [MaxJoints]float32
	copy(out[:], values)
	return out
}

// RobotStatus is msg_type 13, a TOPIC message published continuously by the
// controller.
type RobotStatus struct {
	DrivesPowered  Ternary
	EStopped       Ternary
	ErrorCode      int32
	InError        Ternary
	InMotion       Ternary
	Mode           PendantMode
	MotionPossible Ternary
}

func (RobotStatus) Tag() MsgType { return MsgRobotStatus }

// JointTrajPtFull is msg_type 14, a single group's trajectory point.
type JointTrajPtFull struct {
	GroupNo     int32
	Sequence    int32
	ValidFields int32
	Time        float32
	Pos         [MaxJoints]float32
	Vel         [MaxJoints]float32
	Acc         [MaxJoints]float32
}

func (JointTrajPtFull) Tag() MsgType { return MsgJointTrajPtFull }

// Bits of JointTrajPtFull.ValidFields / JointFeedback.ValidFields.
const (
	ValidTime         int32 = 1
	ValidPosition     int32 = 2
	ValidVelocity     int32 = 4
	ValidAcceleration int32 = 8 // spec.md resolves the historical "6" typo to 8
)

// JointFeedback is msg_type 15, continuous per-group state feedback.
type JointFeedback struct {
	GroupNo     int32
	ValidFields int32
	Time        float32
	Pos         [MaxJoints]float32
	Vel         [MaxJoints]float32
	Acc         [MaxJoints]float32
}

func (JointFeedback) Tag() MsgType { return MsgJointFeedback }

// MotoMotionCtrl is msg_type 2001, the motion-service request envelope used
// for every control command in spec.md §4.3.
type MotoMotionCtrl struct {
	GroupNo  int32
	Sequence int32
	Command  int32
	Data     [MaxJoints]float32
}

func (MotoMotionCtrl) Tag() MsgType { return MsgMotoMotionCtrl }

// MotoMotionReply is msg_type 2002, the reply to MotoMotionCtrl.
type MotoMotionReply struct {
	GroupNo  int32
	Sequence int32
	Command  int32
	Result   Result
	Subcode  int32
	Data     [MaxJoints]float32
}

func (MotoMotionReply) Tag() MsgType { return MsgMotoMotionReply }

// IO request/reply bodies (tags 2003-2011). These are intentionally
// minimal: the IO service is a thin request/reply pair reusing the motion
// client's plumbing (spec.md §1).
type MotoReadIOBitRequest struct{ Address uint32 }

func (MotoReadIOBitRequest) Tag() MsgType { return MsgMotoReadIOBitRequest }

type MotoReadIOBitReply struct {
	Value      uint32
	ResultCode uint32
}

func (MotoReadIOBitReply) Tag() MsgType { return MsgMotoReadIOBitReply }

type MotoWriteIOBitRequest struct {
	Address uint32
	Value   uint32
}

func (MotoWriteIOBitRequest) Tag() MsgType { return MsgMotoWriteIOBitRequest }

type MotoWriteIOBitReply struct{ ResultCode uint32 }

func (MotoWriteIOBitReply) Tag() MsgType { return MsgMotoWriteIOBitReply }

type MotoReadIOGroupRequest struct{ Address uint32 }

func (MotoReadIOGroupRequest) Tag() MsgType { return MsgMotoReadIOGroupRequest }

type MotoReadIOGroupReply struct {
	Value      uint32
	ResultCode uint32
}

func (MotoReadIOGroupReply) Tag() MsgType { return MsgMotoReadIOGroupReply }

type MotoWriteIOGroupRequest struct {
	Address uint32
	Value   uint32
}

func (MotoWriteIOGroupRequest) Tag() MsgType { return MsgMotoWriteIOGroupRequest }

type MotoWriteIOGroupReply struct{ ResultCode uint32 }

func (MotoWriteIOGroupReply) Tag() MsgType { return MsgMotoWriteIOGroupReply }

// MotoIoCtrlReply is msg_type 2011, a generic IO-control result envelope.
type MotoIoCtrlReply struct {
	Result  uint32
	Subcode int32
}

func (MotoIoCtrlReply) Tag() MsgType { return MsgMotoIoCtrlReply }

// JointTrajPtExData is one group's sub-record inside JointTrajPtFullEx.
type JointTrajPtExData struct {
	GroupNo     int32
	ValidFields int32
	Time        float32
	Pos         [MaxJoints]float32
	Vel         [MaxJoints]float32
	Acc         [MaxJoints]float32
}

// JointTrajPtFullEx is msg_type 2016: an atomic multi-group trajectory
// point, fanning out to each group's motion buffer in the simulator.
type JointTrajPtFullEx struct {
	Sequence int32
	Groups   []JointTrajPtExData // 1..MaxGroups
}

func (JointTrajPtFullEx) Tag() MsgType { return MsgJointTrajPtFullEx }

// JointFeedbackEx is msg_type 2017: multi-group feedback in one message.
type JointFeedbackEx struct {
	Groups []JointFeedback // 1..MaxGroups
}

func (JointFeedbackEx) Tag() MsgType { return MsgJointFeedbackEx }

// SelectTool is msg_type 2018.
type SelectTool struct {
	GroupNo  int32
	Tool     int32
	Sequence int32
}

func (SelectTool) Tag() MsgType { return MsgSelectTool }

// DHLink is one link's Denavit-Hartenberg parameters.
type DHLink struct {
	Theta, D, A, Alpha float32
}

// MotoGetDhParameters is msg_type 2020's reply body: 4 groups of up to 8
// links each.
type MotoGetDhParameters struct {
	Groups [MaxGroups][8]DHLink
}

func (MotoGetDhParameters) Tag() MsgType { return MsgMotoGetDhParameters }

// RealTimeJointStateExData is one group's sub-record inside
// RealTimeJointStateEx.
type RealTimeJointStateExData struct {
	GroupNo int32
	Pos     [MaxJoints]float32
	Vel     [MaxJoints]float32
}

// RealTimeJointStateEx is msg_type 2030, sent by the controller at a fixed
// cadence on the UDP real-time data channel.
type RealTimeJointStateEx struct {
	MessageID int32
	Mode      int32
	Groups    []RealTimeJointStateExData // 1..MaxGroups
}

func (RealTimeJointStateEx) Tag() MsgType { return MsgRealTimeJointStateEx }

// RealTimeJointCommandExData is one group's sub-record inside
// RealTimeJointCommandEx.
type RealTimeJointCommandExData struct {
	GroupNo int32
	Command [MaxJoints]float32
}

// RealTimeJointCommandEx is msg_type 2031, the external controller's reply
// to RealTimeJointStateEx. MessageID must echo the state packet it answers.
type RealTimeJointCommandEx struct {
	MessageID int32
	Groups    []RealTimeJointCommandExData // 1..MaxGroups
}

func (RealTimeJointCommandEx) Tag() MsgType { return MsgRealTimeJointCommandEx }

// Real-time loop modes (RealTimeJointStateEx.Mode).
const (
	RTModeIdle           int32 = 0
	RTModeJointPosition  int32 = 1
	RTModeJointVelocity  int32 = 2
)
