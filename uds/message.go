package uds

import (
	"errors"
	"fmt"
)

// Codec errors
var (
	ErrTruncatedResponse = errors.New("uds: truncated response")
	ErrServiceMismatch   = errors.New("uds: response service id does not match request")
)

// Request is one UDS service request.
type Request struct {
	ServiceID   byte
	SubFunction *byte
	Data        []byte
}

// NewRequest builds a request without sub-function.
func NewRequest(sid byte, data []byte) Request {
	return Request{ServiceID: sid, Data: data}
}

// NewSubFunctionRequest builds a request with a sub-function byte.
func NewSubFunctionRequest(sid, sub byte, data []byte) Request {
	return Request{ServiceID: sid, SubFunction: &sub, Data: data}
}

// Encode renders the request: service id, optional sub-function, then the
// parameter bytes.
func (r Request) Encode() []byte {
	n := 1 + len(r.Data)
	if r.SubFunction != nil {
		n++
	}
	b := make([]byte, 0, n)
	b = append(b, r.ServiceID)
	if r.SubFunction != nil {
		b = append(b, *r.SubFunction)
	}
	return append(b, r.Data...)
}

// Response is the decoded outcome of one exchange. A zero Code is a
// positive response; otherwise Code holds the NRC.
type Response struct {
	// ServiceID is the id of the originating request.
	ServiceID byte
	// Code is the negative response code, zero for positive responses.
	Code byte
	// Data carries the positive response parameters after the service id.
	Data []byte
}

// Positive reports whether the server accepted the request.
func (r Response) Positive() bool { return r.Code == 0 }

// DecodeResponse interprets raw response bytes against the service id of
// the outstanding request. ErrTruncatedResponse is returned when fewer
// bytes than the minimum for the detected shape are present,
// ErrServiceMismatch when the response belongs to a different service.
func DecodeResponse(b []byte, requestSID byte) (Response, error) {
	if len(b) < 1 {
		return Response{}, ErrTruncatedResponse
	}
	if b[0] == NegativeResponseID {
		if len(b) < 3 {
			return Response{}, ErrTruncatedResponse
		}
		if b[1] != requestSID {
			return Response{}, ErrServiceMismatch
		}
		return Response{ServiceID: b[1], Code: b[2]}, nil
	}
	if b[0] != requestSID|PositiveResponseMask {
		return Response{}, ErrServiceMismatch
	}
	return Response{ServiceID: requestSID, Data: b[1:]}, nil
}

// NegativeResponseError reports a server refusal. It is an expected
// outcome, not a protocol failure: callers branch on Code.
type NegativeResponseError struct {
	ServiceID byte
	Code      byte
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("uds: %s refused with %s (0x%02X)",
		ServiceName(e.ServiceID), NRCName(e.Code), e.Code)
}

// AsNegativeResponse unwraps err into a NegativeResponseError if it is
// one.
func AsNegativeResponse(err error) (*NegativeResponseError, bool) {
	var nre *NegativeResponseError
	if errors.As(err, &nre) {
		return nre, true
	}
	return nil, false
}
