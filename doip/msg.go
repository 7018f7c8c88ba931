package doip

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// ProtocolVersion is DoIP ISO 13400-2:2012
	ProtocolVersion        uint8 = 0x02
	InverseProtocolVersion uint8 = ^ProtocolVersion

	// HeaderSize : version + inverse version + payload type + payload length
	HeaderSize = 8
)

// MsgTid represents a DoIP payload type, Table 12
type MsgTid uint16

const (
	GenericHeaderNegativeAcknowledge     MsgTid = 0x0000
	VehicleIdentificationRequest         MsgTid = 0x0001
	VehicleAnnouncementMessage           MsgTid = 0x0004
	RoutingActivationRequest             MsgTid = 0x0005
	RoutingActivationResponse            MsgTid = 0x0006
	AliveCheckRequest                    MsgTid = 0x0007
	AliveCheckResponse                   MsgTid = 0x0008
	DiagnosticMessage                    MsgTid = 0x8001
	DiagnosticMessagePositiveAcknowledge MsgTid = 0x8002
	DiagnosticMessageNegativeAcknowledge MsgTid = 0x8003
)

// Table 14: Generic DoIP header NACK codes
const (
	HdrErrIncorrectFormat    byte = 0x00
	HdrErrUnknownPayloadType byte = 0x01
	HdrErrMsgTooLarge        byte = 0x02
	HdrErrOutOfMemory        byte = 0x03
	HdrErrInvalidLen         byte = 0x04
)

// Table 25: Routing activation response code values
const (
	RoutingDeniedUnknownSA       byte = 0x00
	RoutingDeniedAllSocketsInUse byte = 0x01
	RoutingDeniedSAMismatch      byte = 0x02
	RoutingDeniedSAInUse         byte = 0x03
	RoutingDeniedMissingAuth     byte = 0x04
	RoutingDeniedRejectedConf    byte = 0x05
	RoutingDeniedUnsupportedType byte = 0x06
	RoutingSuccessfullyActivated byte = 0x10
	RoutingWillActivate          byte = 0x11
)

// Frame codec errors
var (
	ErrMalformedFrame         = errors.New("doip: malformed frame")
	ErrUnsupportedPayloadType = errors.New("doip: unsupported payload type")
)

var knownPayloadTypes = map[MsgTid]struct{}{
	GenericHeaderNegativeAcknowledge:     {},
	VehicleIdentificationRequest:         {},
	VehicleAnnouncementMessage:           {},
	RoutingActivationRequest:             {},
	RoutingActivationResponse:            {},
	AliveCheckRequest:                    {},
	AliveCheckResponse:                   {},
	DiagnosticMessage:                    {},
	DiagnosticMessagePositiveAcknowledge: {},
	DiagnosticMessageNegativeAcknowledge: {},
}

// Frame is one DoIP message on the wire: a generic header plus its payload.
type Frame struct {
	PayloadType MsgTid
	Payload     []byte
}

// PackFrame prepends the generic DoIP header to payload.
func PackFrame(id MsgTid, payload []byte) []byte {
	b := make([]byte, HeaderSize+len(payload))
	b[0] = ProtocolVersion
	b[1] = InverseProtocolVersion
	binary.BigEndian.PutUint16(b[2:4], uint16(id))
	binary.BigEndian.PutUint32(b[4:8], uint32(len(payload)))
	copy(b[HeaderSize:], payload)
	return b
}

// UnpackFrame validates and decodes a complete DoIP message held in b.
// The protocol version pairing and the declared payload length are checked
// before any payload is returned.
func UnpackFrame(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, ErrMalformedFrame
	}
	if b[0] != ProtocolVersion || b[1] != InverseProtocolVersion {
		return Frame{}, ErrMalformedFrame
	}
	id := MsgTid(binary.BigEndian.Uint16(b[2:4]))
	declared := binary.BigEndian.Uint32(b[4:8])
	if uint32(len(b)-HeaderSize) != declared {
		return Frame{}, ErrMalformedFrame
	}
	if _, ok := knownPayloadTypes[id]; !ok {
		return Frame{}, ErrUnsupportedPayloadType
	}
	return Frame{PayloadType: id, Payload: b[HeaderSize:]}, nil
}

// Unpack errors
var (
	ErrUnpackNoExist  = errors.New("doip: no unpacker for payload type")
	ErrUnpackTooShort = errors.New("doip: payload too short")
)

// Pack errors
var (
	ErrPackNoExist = errors.New("doip: no packer for payload type")
	ErrPackNil     = errors.New("doip: pack on wrong message type")
)

var mhUnpack = map[MsgTid]func([]byte) (Msg, error){
	GenericHeaderNegativeAcknowledge: unpackResNAK,
	VehicleIdentificationRequest:     unpackReqVI,
	VehicleAnnouncementMessage:       unpackResVI,
	RoutingActivationRequest:         unpackReqRA,
	RoutingActivationResponse:        unpackResRA,
	DiagnosticMessage:                unpackDM,
	DiagnosticMessagePositiveAcknowledge: func(b []byte) (Msg, error) {
		return unpackDMAck(b, DiagnosticMessagePositiveAcknowledge)
	},
	DiagnosticMessageNegativeAcknowledge: func(b []byte) (Msg, error) {
		return unpackDMAck(b, DiagnosticMessageNegativeAcknowledge)
	},
}

// Unpack decodes the raw payload bytes of type id into a message.
func Unpack(b []byte, id MsgTid) (Msg, error) {
	if f, ok := mhUnpack[id]; ok {
		return f(b)
	}
	return nil, ErrUnpackNoExist
}

// Msg represents one decoded DoIP payload.
type Msg interface {
	GetID() MsgTid
}

// MsgReq is a message the tester can put on the wire.
type MsgReq interface {
	Msg
	Pack() []byte
}

// MsgNACK : generic header negative acknowledge
type MsgNACK struct {
	ErrCode byte
}

func (m *MsgNACK) GetID() MsgTid { return GenericHeaderNegativeAcknowledge }

func (m *MsgNACK) Pack() []byte { return []byte{m.ErrCode} }

func unpackResNAK(b []byte) (Msg, error) {
	if len(b) < 1 {
		return nil, ErrUnpackTooShort
	}
	return &MsgNACK{ErrCode: b[0]}, nil
}

// MsgVehicleIdentReq : vehicle identification request, empty payload
type MsgVehicleIdentReq struct{}

func (m *MsgVehicleIdentReq) GetID() MsgTid { return VehicleIdentificationRequest }

func (m *MsgVehicleIdentReq) Pack() []byte { return []byte{} }

func unpackReqVI(b []byte) (Msg, error) { return &MsgVehicleIdentReq{}, nil }

// MsgVehicleAnnouncement : vehicle announcement / identification response
type MsgVehicleAnnouncement struct {
	VIN            string
	LogicalAddress uint16
	EID            [6]byte
	GID            [6]byte
	FurtherAction  byte
}

func (m *MsgVehicleAnnouncement) GetID() MsgTid { return VehicleAnnouncementMessage }

func (m *MsgVehicleAnnouncement) Pack() []byte {
	b := make([]byte, 32)
	copy(b[0:17], m.VIN)
	binary.BigEndian.PutUint16(b[17:19], m.LogicalAddress)
	copy(b[19:25], m.EID[:])
	copy(b[25:31], m.GID[:])
	b[31] = m.FurtherAction
	return b
}

func unpackResVI(b []byte) (Msg, error) {
	// 32 bytes mandatory, an optional sync status byte may follow
	if len(b) < 32 {
		return nil, ErrUnpackTooShort
	}
	m := &MsgVehicleAnnouncement{
		VIN:            string(b[0:17]),
		LogicalAddress: binary.BigEndian.Uint16(b[17:19]),
		FurtherAction:  b[31],
	}
	copy(m.EID[:], b[19:25])
	copy(m.GID[:], b[25:31])
	return m, nil
}

// MsgActivationReq : routing activation request
type MsgActivationReq struct {
	SrcAddress     uint16
	ActivationType byte
	ReserveForStd  []byte
	ReserveForOEM  []byte
}

func (m *MsgActivationReq) GetID() MsgTid { return RoutingActivationRequest }

func (m *MsgActivationReq) Pack() []byte {
	ln := 2 + 1 + 4
	if len(m.ReserveForOEM) == 4 {
		ln += 4
	}
	b := make([]byte, ln)
	binary.BigEndian.PutUint16(b[0:2], m.SrcAddress)
	b[2] = m.ActivationType
	copy(b[3:7], m.ReserveForStd)
	if len(m.ReserveForOEM) == 4 {
		copy(b[7:11], m.ReserveForOEM)
	}
	return b
}

func unpackReqRA(b []byte) (Msg, error) {
	ll := len(b)
	if !(ll == 7 || ll == 11) {
		return nil, ErrUnpackTooShort
	}
	m := &MsgActivationReq{
		SrcAddress:     binary.BigEndian.Uint16(b[0:2]),
		ActivationType: b[2],
		ReserveForStd:  b[3:7],
	}
	if ll == 11 {
		m.ReserveForOEM = b[7:11]
	}
	return m, nil
}

// MsgActivationRes : routing activation response
type MsgActivationRes struct {
	SrcAddress    uint16
	DstAddress    uint16
	Code          byte
	ReserveForStd []byte
	ReserveForOEM []byte
}

func (m *MsgActivationRes) GetID() MsgTid { return RoutingActivationResponse }

func (m *MsgActivationRes) Pack() []byte {
	ln := 9
	if len(m.ReserveForOEM) == 4 {
		ln += 4
	}
	b := make([]byte, ln)
	binary.BigEndian.PutUint16(b[0:2], m.SrcAddress)
	binary.BigEndian.PutUint16(b[2:4], m.DstAddress)
	b[4] = m.Code
	copy(b[5:9], m.ReserveForStd)
	if ln == 13 {
		copy(b[9:13], m.ReserveForOEM)
	}
	return b
}

func unpackResRA(b []byte) (Msg, error) {
	ll := len(b)
	if !(ll == 9 || ll == 13) {
		return nil, ErrUnpackTooShort
	}
	m := &MsgActivationRes{
		SrcAddress:    binary.BigEndian.Uint16(b[0:2]),
		DstAddress:    binary.BigEndian.Uint16(b[2:4]),
		Code:          b[4],
		ReserveForStd: b[5:9],
	}
	if ll == 13 {
		m.ReserveForOEM = b[9:13]
	}
	return m, nil
}

// MsgDiagMsg : diagnostic message carrying a UDS payload
type MsgDiagMsg struct {
	SrcAddress uint16
	DstAddress uint16
	Userdata   []byte
}

func (m *MsgDiagMsg) GetID() MsgTid { return DiagnosticMessage }

func (m *MsgDiagMsg) Pack() []byte {
	b := make([]byte, 4+len(m.Userdata))
	binary.BigEndian.PutUint16(b[0:2], m.SrcAddress)
	binary.BigEndian.PutUint16(b[2:4], m.DstAddress)
	copy(b[4:], m.Userdata)
	return b
}

func unpackDM(b []byte) (Msg, error) {
	if len(b) <= 4 {
		return nil, ErrUnpackTooShort
	}
	return &MsgDiagMsg{
		SrcAddress: binary.BigEndian.Uint16(b[0:2]),
		DstAddress: binary.BigEndian.Uint16(b[2:4]),
		Userdata:   b[4:],
	}, nil
}

// MsgDiagMsgAck : diagnostic message positive/negative acknowledge
type MsgDiagMsgAck struct {
	Id         MsgTid
	SrcAddress uint16
	DstAddress uint16
	AckCode    byte // 0: ACK, 1..0xFF: NACK
	Userdata   []byte
}

func (m *MsgDiagMsgAck) GetID() MsgTid { return m.Id }

func (m *MsgDiagMsgAck) Pack() []byte {
	b := make([]byte, 5+len(m.Userdata))
	binary.BigEndian.PutUint16(b[0:2], m.SrcAddress)
	binary.BigEndian.PutUint16(b[2:4], m.DstAddress)
	b[4] = m.AckCode
	copy(b[5:], m.Userdata)
	return b
}

func unpackDMAck(b []byte, id MsgTid) (Msg, error) {
	if len(b) < 5 {
		return nil, ErrUnpackTooShort
	}
	return &MsgDiagMsgAck{
		Id:         id,
		SrcAddress: binary.BigEndian.Uint16(b[0:2]),
		DstAddress: binary.BigEndian.Uint16(b[2:4]),
		AckCode:    b[4],
		Userdata:   b[5:],
	}, nil
}

// PackMsg packs m with the generic DoIP header in front.
func PackMsg(m MsgReq) []byte {
	return PackFrame(m.GetID(), m.Pack())
}

// RoutingActivationError is the denial code from a routing activation
// response, Table 25.
type RoutingActivationError struct {
	Code byte
}

func (e *RoutingActivationError) Error() string {
	return fmt.Sprintf("doip: routing activation denied (code 0x%02X)", e.Code)
}
