package uds

import (
	"encoding/binary"
	"errors"
	"time"
)

// ErrLinkDown is returned for any exchange attempted after a successful
// ECU reset until Reconnect has re-established the transport channel.
var ErrLinkDown = errors.New("uds: link down, reconnect required")

// Logger interface should be implemented by the embedding application.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
}

// Transport is the diagnostic bearer underneath the client, e.g. a DoIP
// connection. Receive is expected to return within the transport's read
// timeout; the client keeps polling until the exchange deadline.
type Transport interface {
	Send(targetAddress uint16, data []byte) error
	Receive() (sourceAddress uint16, targetAddress uint16, data []byte, err error)
	Reconnect() error
	Disconnect()
}

// TransportError lets a transport classify its receive failures.
type TransportError interface {
	error
	IsTimeout() bool
	IsDisconnected() bool
}

const defaultPendingMax = 5

// Client is the diagnostic facade: one UDS session towards one server
// logical address, strictly one exchange in flight at a time.
type Client struct {
	log     Logger
	trans   Transport
	target  uint16
	codecs  CodecMap
	tracker *Tracker

	session   SessionType
	security  SecurityState
	resetDown bool
}

// NewClient creates a client for the server at the given logical address
// with a 2 second request timeout and five response-pending extensions.
func NewClient(log Logger, trans Transport, target uint16) *Client {
	return NewClientWithTimeout(log, trans, target, 2*time.Second, defaultPendingMax)
}

// NewClientWithTimeout creates a client with an explicit per-exchange
// timeout and response-pending budget.
func NewClientWithTimeout(log Logger, trans Transport, target uint16, timeout time.Duration, pendingMax int) *Client {
	if log == nil {
		log = &nopLogger{}
	}
	return &Client{
		log:     log,
		trans:   trans,
		target:  target,
		codecs:  make(CodecMap),
		tracker: NewTracker(timeout, pendingMax),
		session: SessionDefault,
	}
}

// RegisterCodec binds a codec to a data identifier.
func (c *Client) RegisterCodec(did uint16, codec Codec) {
	c.codecs[did] = codec
}

// RegisterCodecs merges a whole codec table.
func (c *Client) RegisterCodecs(m CodecMap) {
	for did, codec := range m {
		c.codecs[did] = codec
	}
}

// Session returns the currently negotiated diagnostic session.
func (c *Client) Session() SessionType { return c.session }

// Security returns the current security-access state.
func (c *Client) Security() SecurityState { return c.security }

// Target returns the server logical address.
func (c *Client) Target() uint16 { return c.target }

// ChangeSession performs DiagnosticSessionControl. On success the tracked
// session is updated; a refusal comes back as *NegativeResponseError.
func (c *Client) ChangeSession(level SessionType) error {
	resp, err := c.Exchange(NewSubFunctionRequest(ServiceDiagnosticSessionControl, byte(level), nil))
	if err != nil {
		return err
	}
	// sub-function echo, then the session parameter record (P2 timings)
	if len(resp.Data) < 1 || resp.Data[0] != byte(level) {
		return ErrServiceMismatch
	}
	c.session = level
	c.log.Debugf("session changed to %v", level)
	return nil
}

// ReadDataByIdentifier reads one data identifier and decodes the record
// with the registered codec. ErrNoCodec is returned when the identifier
// has no codec; use ReadDataByIdentifierRaw for the untyped bytes.
func (c *Client) ReadDataByIdentifier(did uint16) (interface{}, error) {
	codec, ok := c.codecs[did]
	if !ok {
		return nil, ErrNoCodec
	}
	record, err := c.ReadDataByIdentifierRaw(did)
	if err != nil {
		return nil, err
	}
	return codec.Decode(record)
}

// ReadDataByIdentifierRaw reads one data identifier and returns the raw
// record bytes after the identifier echo.
func (c *Client) ReadDataByIdentifierRaw(did uint16) ([]byte, error) {
	resp, err := c.Exchange(NewRequest(ServiceReadDataByIdentifier, didBytes(did)))
	if err != nil {
		return nil, err
	}
	record, err := stripDIDEcho(resp.Data, did)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// WriteDataByIdentifier encodes value with the registered codec and
// writes it to the server. A positive response echoing the identifier
// signals success.
func (c *Client) WriteDataByIdentifier(did uint16, value interface{}) error {
	codec, ok := c.codecs[did]
	if !ok {
		return ErrNoCodec
	}
	record, err := codec.Encode(value)
	if err != nil {
		return err
	}
	resp, err := c.Exchange(NewRequest(ServiceWriteDataByIdentifier, append(didBytes(did), record...)))
	if err != nil {
		return err
	}
	if _, err := stripDIDEcho(resp.Data, did); err != nil {
		return err
	}
	return nil
}

// SecurityAccess runs the request-seed / send-key sequence for an odd
// security level. derive computes the key from the issued seed. An
// all-zero seed means the level is already unlocked.
func (c *Client) SecurityAccess(level byte, derive KeyDeriver) error {
	if level%2 == 0 {
		return errors.New("uds: security access level must be odd (request seed)")
	}
	resp, err := c.Exchange(NewSubFunctionRequest(ServiceSecurityAccess, level, nil))
	if err != nil {
		return err
	}
	if len(resp.Data) < 2 || resp.Data[0] != level {
		return ErrTruncatedResponse
	}
	seed := resp.Data[1:]
	if allZero(seed) {
		c.security = SecurityState{Status: SecurityUnlocked, Level: level}
		c.log.Debugf("security level %#02x already unlocked", level)
		return nil
	}
	c.security = SecurityState{Status: SecuritySeedIssued, Level: level}

	key, err := derive(seed)
	if err != nil {
		c.security = SecurityState{Status: SecurityLocked}
		return err
	}
	resp, err = c.Exchange(NewSubFunctionRequest(ServiceSecurityAccess, level+1, key))
	if err != nil {
		c.security = SecurityState{Status: SecurityLocked}
		return err
	}
	if len(resp.Data) < 1 || resp.Data[0] != level+1 {
		c.security = SecurityState{Status: SecurityLocked}
		return ErrTruncatedResponse
	}
	c.security = SecurityState{Status: SecurityUnlocked, Level: level}
	c.log.Debugf("security level %#02x unlocked", level)
	return nil
}

// ECUReset requests the server to restart. On success the connection
// handle is invalidated: every further exchange fails with ErrLinkDown
// until Reconnect.
func (c *Client) ECUReset(rt ResetType) error {
	resp, err := c.Exchange(NewSubFunctionRequest(ServiceECUReset, byte(rt), nil))
	if err != nil {
		return err
	}
	if len(resp.Data) < 1 || resp.Data[0] != byte(rt) {
		return ErrServiceMismatch
	}
	// the ECU process restarts; the transport channel it negotiated with
	// this tester is gone
	c.resetDown = true
	c.session = SessionDefault
	c.security = SecurityState{Status: SecurityLocked}
	c.log.Debugf("ecu %v accepted, reconnect required", rt)
	return nil
}

// TesterPresent keeps the server session alive.
func (c *Client) TesterPresent() error {
	resp, err := c.Exchange(NewSubFunctionRequest(ServiceTesterPresent, 0x00, nil))
	if err != nil {
		return err
	}
	if len(resp.Data) < 1 || resp.Data[0] != 0x00 {
		return ErrServiceMismatch
	}
	return nil
}

// Reconnect re-establishes the transport channel after an ECU reset and
// clears the reset latch.
func (c *Client) Reconnect() error {
	if err := c.trans.Reconnect(); err != nil {
		return err
	}
	c.resetDown = false
	c.session = SessionDefault
	c.security = SecurityState{Status: SecurityLocked}
	return nil
}

// Close releases the transport.
func (c *Client) Close() {
	c.trans.Disconnect()
}

// Exchange submits one raw request and resolves it to a response. A
// negative response other than response-pending resolves the exchange
// and is returned as *NegativeResponseError alongside the decoded
// response, so callers can branch on the code.
func (c *Client) Exchange(req Request) (Response, error) {
	if c.resetDown {
		return Response{}, ErrLinkDown
	}
	if err := c.tracker.Submit(req); err != nil {
		return Response{}, err
	}

	raw := req.Encode()
	c.log.Debugf("sending %s request to %#04x: % x", ServiceName(req.ServiceID), c.target, raw)
	if err := c.trans.Send(c.target, raw); err != nil {
		c.tracker.Abort()
		return Response{}, err
	}

	for {
		if expired := c.tracker.Expire(time.Now()); expired != nil {
			return Response{}, expired
		}

		source, _, data, err := c.trans.Receive()
		switch {
		case err != nil:
			var terr TransportError
			if errors.As(err, &terr) && terr.IsTimeout() {
				if expired := c.tracker.Expire(time.Now()); expired != nil {
					return Response{}, expired
				}
				continue
			}
			c.tracker.Abort()
			return Response{}, err

		case source != c.target:
			c.log.Debugf("dropping response from %#04x while talking to %#04x", source, c.target)
			continue
		}

		resp, err := DecodeResponse(data, req.ServiceID)
		if err != nil {
			c.tracker.Abort()
			return Response{}, err
		}

		done, err := c.tracker.Observe(resp)
		if err != nil {
			return Response{}, err
		}
		if !done {
			c.log.Debugf("%s: response pending, waiting", ServiceName(req.ServiceID))
			continue
		}
		if !resp.Positive() {
			return resp, &NegativeResponseError{ServiceID: resp.ServiceID, Code: resp.Code}
		}
		c.log.Debugf("received positive %s response: % x", ServiceName(req.ServiceID), resp.Data)
		return resp, nil
	}
}

func didBytes(did uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, did)
	return b
}

// stripDIDEcho validates the identifier echo leading the response record.
func stripDIDEcho(data []byte, did uint16) ([]byte, error) {
	if len(data) < 2 {
		return nil, ErrTruncatedResponse
	}
	if binary.BigEndian.Uint16(data[0:2]) != did {
		return nil, ErrServiceMismatch
	}
	return data[2:], nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

type nopLogger struct{}

func (nopLogger) Debug(v ...interface{})                 {}
func (nopLogger) Debugf(format string, v ...interface{}) {}
func (nopLogger) Info(v ...interface{})                  {}
func (nopLogger) Infof(format string, v ...interface{})  {}
