package uds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestEncode(t *testing.T) {
	r := NewRequest(ServiceReadDataByIdentifier, []byte{0xF1, 0x90})
	assert.Equal(t, []byte{0x22, 0xF1, 0x90}, r.Encode())
}

func TestSubFunctionRequestEncode(t *testing.T) {
	r := NewSubFunctionRequest(ServiceDiagnosticSessionControl, 0x03, nil)
	assert.Equal(t, []byte{0x10, 0x03}, r.Encode())

	r = NewSubFunctionRequest(ServiceSecurityAccess, 0x02, []byte{0xDE, 0xAD})
	assert.Equal(t, []byte{0x27, 0x02, 0xDE, 0xAD}, r.Encode())
}

func TestDecodePositiveResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte{0x62, 0xF1, 0x90, 'A', 'B'}, ServiceReadDataByIdentifier)
	assert.NoError(t, err)
	assert.True(t, resp.Positive())
	assert.Equal(t, ServiceReadDataByIdentifier, resp.ServiceID)
	assert.Equal(t, []byte{0xF1, 0x90, 'A', 'B'}, resp.Data)
}

func TestDecodeNegativeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte{0x7F, 0x22, 0x31}, ServiceReadDataByIdentifier)
	assert.NoError(t, err)
	assert.False(t, resp.Positive())
	assert.Equal(t, ServiceReadDataByIdentifier, resp.ServiceID)
	assert.Equal(t, NRCRequestOutOfRange, resp.Code)
}

func TestDecodeResponseTruncated(t *testing.T) {
	_, err := DecodeResponse(nil, ServiceReadDataByIdentifier)
	assert.Equal(t, ErrTruncatedResponse, err)

	_, err = DecodeResponse([]byte{0x7F, 0x22}, ServiceReadDataByIdentifier)
	assert.Equal(t, ErrTruncatedResponse, err)
}

func TestDecodeResponseServiceMismatch(t *testing.T) {
	// positive response for a different service
	_, err := DecodeResponse([]byte{0x50, 0x03}, ServiceReadDataByIdentifier)
	assert.Equal(t, ErrServiceMismatch, err)

	// negative response naming a different service
	_, err = DecodeResponse([]byte{0x7F, 0x10, 0x12}, ServiceReadDataByIdentifier)
	assert.Equal(t, ErrServiceMismatch, err)
}

func TestNegativeResponseErrorText(t *testing.T) {
	err := &NegativeResponseError{ServiceID: ServiceSecurityAccess, Code: NRCSecurityAccessDenied}
	assert.Contains(t, err.Error(), "Security Access")
	assert.Contains(t, err.Error(), "0x33")
}

func TestAsNegativeResponse(t *testing.T) {
	nre, ok := AsNegativeResponse(&NegativeResponseError{ServiceID: 0x22, Code: 0x31})
	assert.True(t, ok)
	assert.Equal(t, byte(0x31), nre.Code)

	_, ok = AsNegativeResponse(ErrTimeout)
	assert.False(t, ok)
}
