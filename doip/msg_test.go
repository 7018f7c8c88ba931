package doip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackFrame(t *testing.T) {
	payload := []byte{0x0E, 0x80, 0x1D, 0x01, 0x22, 0xF1, 0x90}
	b := PackFrame(DiagnosticMessage, payload)

	assert.Equal(t, HeaderSize+len(payload), len(b))
	assert.Equal(t, ProtocolVersion, b[0])
	assert.Equal(t, InverseProtocolVersion, b[1])

	f, err := UnpackFrame(b)
	assert.NoError(t, err)
	assert.Equal(t, DiagnosticMessage, f.PayloadType)
	assert.Equal(t, payload, f.Payload)
}

func TestUnpackFrameRejectsBadVersionPairing(t *testing.T) {
	b := PackFrame(DiagnosticMessage, []byte{0x01})
	b[1] = 0x00

	_, err := UnpackFrame(b)
	assert.Equal(t, ErrMalformedFrame, err)
}

func TestUnpackFrameRejectsLengthMismatch(t *testing.T) {
	b := PackFrame(DiagnosticMessage, []byte{0x01, 0x02})
	b = b[:len(b)-1]

	_, err := UnpackFrame(b)
	assert.Equal(t, ErrMalformedFrame, err)
}

func TestUnpackFrameRejectsShortHeader(t *testing.T) {
	_, err := UnpackFrame([]byte{ProtocolVersion, InverseProtocolVersion, 0x80})
	assert.Equal(t, ErrMalformedFrame, err)
}

func TestUnpackFrameRejectsUnknownPayloadType(t *testing.T) {
	b := PackFrame(MsgTid(0x7777), nil)

	_, err := UnpackFrame(b)
	assert.Equal(t, ErrUnsupportedPayloadType, err)
}

func TestVehicleAnnouncementRoundTrip(t *testing.T) {
	in := &MsgVehicleAnnouncement{
		VIN:            "1HGCM82633A123456",
		LogicalAddress: 0x1D01,
		EID:            [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		GID:            [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		FurtherAction:  0x00,
	}
	b := in.Pack()
	assert.Equal(t, 32, len(b))

	m, err := Unpack(b, VehicleAnnouncementMessage)
	assert.NoError(t, err)
	out := m.(*MsgVehicleAnnouncement)
	assert.Equal(t, in, out)
}

func TestVehicleAnnouncementTooShort(t *testing.T) {
	_, err := Unpack(make([]byte, 31), VehicleAnnouncementMessage)
	assert.Equal(t, ErrUnpackTooShort, err)
}

func TestActivationRequestRoundTrip(t *testing.T) {
	in := &MsgActivationReq{
		SrcAddress:     0x0E80,
		ActivationType: 0x00,
		ReserveForStd:  []byte{0, 0, 0, 0},
	}
	b := in.Pack()
	assert.Equal(t, 7, len(b))

	m, err := Unpack(b, RoutingActivationRequest)
	assert.NoError(t, err)
	out := m.(*MsgActivationReq)
	assert.Equal(t, in.SrcAddress, out.SrcAddress)
	assert.Equal(t, in.ActivationType, out.ActivationType)
}

func TestActivationResponseRoundTrip(t *testing.T) {
	in := &MsgActivationRes{
		SrcAddress:    0x0E80,
		DstAddress:    0x1D01,
		Code:          RoutingSuccessfullyActivated,
		ReserveForStd: []byte{0, 0, 0, 0},
	}
	b := in.Pack()
	assert.Equal(t, 9, len(b))

	m, err := Unpack(b, RoutingActivationResponse)
	assert.NoError(t, err)
	out := m.(*MsgActivationRes)
	assert.Equal(t, in.SrcAddress, out.SrcAddress)
	assert.Equal(t, in.DstAddress, out.DstAddress)
	assert.Equal(t, RoutingSuccessfullyActivated, out.Code)
}

func TestDiagMsgRoundTrip(t *testing.T) {
	in := &MsgDiagMsg{
		SrcAddress: 0x0E80,
		DstAddress: 0x1D01,
		Userdata:   []byte{0x22, 0xF1, 0x90},
	}
	m, err := Unpack(in.Pack(), DiagnosticMessage)
	assert.NoError(t, err)
	out := m.(*MsgDiagMsg)
	assert.Equal(t, in, out)
}

func TestDiagMsgAckRoundTrip(t *testing.T) {
	in := &MsgDiagMsgAck{
		Id:         DiagnosticMessageNegativeAcknowledge,
		SrcAddress: 0x1D01,
		DstAddress: 0x0E80,
		AckCode:    0x02,
		Userdata:   []byte{},
	}
	m, err := Unpack(in.Pack(), DiagnosticMessageNegativeAcknowledge)
	assert.NoError(t, err)
	out := m.(*MsgDiagMsgAck)
	assert.Equal(t, in, out)
}

func TestPackMsgAddsHeader(t *testing.T) {
	b := PackMsg(&MsgVehicleIdentReq{})
	assert.Equal(t, HeaderSize, len(b))

	f, err := UnpackFrame(b)
	assert.NoError(t, err)
	assert.Equal(t, VehicleIdentificationRequest, f.PayloadType)
	assert.Equal(t, 0, len(f.Payload))
}
