// Package wire implements the MotoPlus Simple Message wire protocol: a
// family of fixed-and-variable-length binary messages framed as a 4-byte
// little-endian length prefix, a 12-byte header, and a tag-dispatched body.
package wire

// HeaderSize is the fixed size, in bytes, of the three-field header that
// follows the length prefix on every framed message.
const HeaderSize = 12

// PrefixSize is the size, in bytes, of the length prefix itself.
const PrefixSize = 4

// CommType classifies how a message is being used: unsolicited topic,
// service request, or service reply.
type CommType int32

const (
	CommInvalid        CommType = 0
	CommTopic          CommType = 1
	CommServiceRequest CommType = 2
	CommServiceReply   CommType = 3
)

func (c CommType) String() string {
	switch c {
	case CommTopic:
		return "TOPIC"
	case CommServiceRequest:
		return "SERVICE_REQUEST"
	case CommServiceReply:
		return "SERVICE_REPLY"
	default:
		return "INVALID"
	}
}

// ReplyType reports whether a service reply succeeded.
type ReplyType int32

const (
	ReplyInvalid ReplyType = 0
	ReplySuccess ReplyType = 1
	ReplyFailure ReplyType = 2
)

func (r ReplyType) String() string {
	switch r {
	case ReplySuccess:
		return "SUCCESS"
	case ReplyFailure:
		return "FAILURE"
	default:
		return "INVALID"
	}
}

// MsgType is the integer tag that selects a message's body layout. The tag
// is authoritative: an unknown tag decodes to an Invalid body rather than
// failing, so new controller firmware that adds message types never breaks
// an older client.
type MsgType int32

const (
	MsgRobotStatus             MsgType = 13
	MsgJointTrajPtFull         MsgType = 14
	MsgJointFeedback           MsgType = 15
	MsgMotoMotionCtrl          MsgType = 2001
	MsgMotoMotionReply         MsgType = 2002
	MsgMotoReadIOBitRequest    MsgType = 2003
	MsgMotoReadIOBitReply      MsgType = 2004
	MsgMotoWriteIOBitRequest   MsgType = 2005
	MsgMotoWriteIOBitReply     MsgType = 2006
	MsgMotoReadIOGroupRequest  MsgType = 2007
	MsgMotoReadIOGroupReply    MsgType = 2008
	MsgMotoWriteIOGroupRequest MsgType = 2009
	MsgMotoWriteIOGroupReply   MsgType = 2010
	MsgMotoIoCtrlReply         MsgType = 2011
	MsgJointTrajPtFullEx       MsgType = 2016
	MsgJointFeedbackEx         MsgType = 2017
	MsgSelectTool              MsgType = 2018
	MsgMotoGetDhParameters     MsgType = 2020
	MsgRealTimeJointStateEx    MsgType = 2030
	MsgRealTimeJointCommandEx  MsgType = 2031
)

// Header is the 12-byte prefix that precedes every message body.
type Header struct {
	MsgType   MsgType
	CommType  CommType
	ReplyType ReplyType
}

// Command codes carried in MotoMotionCtrl.Command and echoed back in
// MotoMotionReply.Command.
const (
	CommandCheckMotionReady          int32 = 200101
	CommandCheckQueueCnt             int32 = 200102
	CommandStopMotion                int32 = 200111
	CommandStartServos               int32 = 200112
	CommandStopServos                int32 = 200113
	CommandResetAlarm                int32 = 200114
	CommandStartTrajMode             int32 = 200121
	CommandStopTrajMode              int32 = 200122
	CommandDisconnect                int32 = 200130
	CommandStartRealTimeMotionMode   int32 = 200140
	CommandStopRealTimeMotionMode    int32 = 200141
)

// Result is the outcome code carried in MotoMotionReply.Result and
// MotoIoCtrlReply.Result. ResultSuccess and ResultTrue alias the value 0 in
// the original protocol; ResultBusy and an undocumented ResultFalse alias
// the value... in practice only one canonical name is exposed per value
// here, per the resolution in spec.md's ambiguity notes.
type Result int32

const (
	ResultSuccess   Result = 0
	ResultBusy      Result = 1
	ResultFailure   Result = 2
	ResultInvalid   Result = 3
	ResultAlarm     Result = 4
	ResultNotReady  Result = 5
	ResultMPFailure Result = 6
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultBusy:
		return "BUSY"
	case ResultFailure:
		return "FAILURE"
	case ResultInvalid:
		return "INVALID"
	case ResultAlarm:
		return "ALARM"
	case ResultNotReady:
		return "NOT_READY"
	case ResultMPFailure:
		return "MP_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// MaxJoints is ROS_MAX_JOINT: joint vectors on the wire are always this
// long, right-padded with zeros past a group's actual joint count.
const MaxJoints = 10

// MaxGroups is MOT_MAX_GR: the most control groups an Ex message can carry.
const MaxGroups = 4

// UnspecifiedSequence is the sentinel written into Sequence fields to mean
// "caller did not choose a sequence number". It must round-trip unchanged;
// never remap it to 0.
const UnspecifiedSequence int32 = -1
