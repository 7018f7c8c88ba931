package doip

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"
)

const (
	dialTimeout        = 10 * time.Second
	defaultReadTimeout = 2 * time.Second
	aliveInterval      = 1 * time.Second
)

// Connection level errors
var (
	ErrTimeout     error = &Error{err: "receive timeout", timeout: true}
	ErrLinkDown    error = &Error{err: "link down", disconnected: true}
	ErrNegativeAck error = &Error{err: "diagnostic message negative acknowledge"}
)

// Error represents a DoIP connection error.
type Error struct {
	err          string
	timeout      bool
	disconnected bool
}

func (e *Error) Error() string {
	if e == nil {
		return "doip: <nil>"
	}
	return "doip: " + e.err
}

// IsTimeout reports whether the receive deadline elapsed.
func (e *Error) IsTimeout() bool { return e.timeout }

// IsDisconnected reports whether the transport channel is gone.
func (e *Error) IsDisconnected() bool { return e.disconnected }

// Conn owns the TCP channel towards one DoIP entity. All writes are
// serialized through Send; a dedicated goroutine reads frames off the
// socket and hands diagnostic payloads to Receive.
type Conn struct {
	log         Logger
	source      uint16
	server      string
	activation  byte
	readTimeout time.Duration
	aliveCheck  bool

	mtx        sync.Mutex
	inChan     chan *inMessage
	errChan    chan error
	running    chan struct{}
	connection net.Conn
}

type inMessage struct {
	source uint16
	target uint16
	data   []byte
}

// NewConn creates a connection towards server ("host:port") with the given
// tester logical address. Nothing is dialed until Connect.
func NewConn(logger Logger, sourceAddress uint16, server string) *Conn {
	if logger == nil {
		logger = NewLogger()
	}
	return &Conn{
		log:         logger,
		source:      sourceAddress,
		server:      server,
		readTimeout: defaultReadTimeout,
	}
}

// SetReadTimeout sets a custom receive timeout.
func (c *Conn) SetReadTimeout(timeout time.Duration) {
	c.readTimeout = timeout
}

// SetActivationType selects the routing activation type sent during
// Connect. Zero is the ISO default.
func (c *Conn) SetActivationType(t byte) {
	c.activation = t
}

// EnableAliveCheck starts the periodic DoIP alive check after Connect,
// 7.1.7.
func (c *Conn) EnableAliveCheck() {
	c.aliveCheck = true
}

// Source returns the tester logical address bound to this connection.
func (c *Conn) Source() uint16 { return c.source }

// Connect dials the server, starts the input loop and performs the
// routing activation handshake. A denial is reported as
// *RoutingActivationError and the socket is closed again.
func (c *Conn) Connect() error {
	conn, err := net.DialTimeout("tcp", c.server, dialTimeout)
	if err != nil {
		c.log.Debugf("dial %s failed: %v", c.server, err)
		return err
	}

	c.mtx.Lock()
	c.connection = conn
	c.inChan = make(chan *inMessage, 1)
	c.errChan = make(chan error, 1)
	c.running = make(chan struct{})
	c.mtx.Unlock()

	// pass the conn to the loop to avoid a race with Disconnect
	go c.inputLoop(conn)

	if err := c.activationHandshake(); err != nil {
		c.log.Debugf("activation handshake failed: %v", err)
		c.Disconnect()
		return err
	}

	if c.aliveCheck {
		go c.aliveCheckPeriodical()
	}
	return nil
}

// Disconnect closes the connection. Any blocked Receive is released with
// ErrLinkDown. Safe to call more than once.
func (c *Conn) Disconnect() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.connection == nil {
		return
	}
	close(c.running)
	if err := c.connection.Close(); err != nil {
		c.log.Debugf("failed to close the socket (%v)", err)
	}
	c.connection = nil
}

// Reconnect tears the TCP channel down and re-establishes it including
// routing activation. Required after an ECU reset invalidated the prior
// channel.
func (c *Conn) Reconnect() error {
	c.Disconnect()
	return c.Connect()
}

// Send wraps the UDS payload in a diagnostic message and writes it.
func (c *Conn) Send(targetAddress uint16, data []byte) error {
	m := &MsgDiagMsg{
		SrcAddress: c.source,
		DstAddress: targetAddress,
		Userdata:   data,
	}
	return c.write(PackMsg(m))
}

// SendMsg writes any request message.
func (c *Conn) SendMsg(m MsgReq) error {
	return c.write(PackMsg(m))
}

func (c *Conn) write(buffer []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.connection == nil {
		c.log.Debug("attempt to send when not connected")
		return ErrLinkDown
	}
	sent := 0
	for sent < len(buffer) {
		n, err := c.connection.Write(buffer[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	return nil
}

// Receive blocks until a diagnostic payload, an error event or the read
// timeout. A closed connection yields ErrLinkDown.
func (c *Conn) Receive() (source uint16, target uint16, data []byte, err error) {
	select {
	case message, ok := <-c.inChan:
		if ok {
			return message.source, message.target, message.data, nil
		}
		err = ErrLinkDown

	case e, ok := <-c.errChan:
		if !ok {
			err = ErrLinkDown
		} else {
			err = e
		}

	case <-time.After(c.readTimeout):
		err = ErrTimeout
	}
	c.log.Debugf("%v", err)
	return
}

// Exchange sends one diagnostic payload and waits for the next inbound
// payload.
func (c *Conn) Exchange(targetAddr uint16, writeData []byte) ([]byte, error) {
	if err := c.Send(targetAddr, writeData); err != nil {
		return nil, err
	}
	_, _, readData, err := c.Receive()
	return readData, err
}

// See Table 22
func (c *Conn) activationHandshake() error {
	req := &MsgActivationReq{
		SrcAddress:     c.source,
		ActivationType: c.activation,
		ReserveForStd:  []byte{0, 0, 0, 0},
	}
	if err := c.SendMsg(req); err != nil {
		return err
	}

	_, _, data, err := c.Receive()
	if err != nil {
		return err
	}
	// See Table 25; the response code sits behind the two address fields
	// which the input loop already stripped.
	if len(data) == 0 {
		return ErrUnpackTooShort
	}
	if data[0] != RoutingSuccessfullyActivated {
		return &RoutingActivationError{Code: data[0]}
	}
	return nil
}

// aliveCheckPeriodical keeps the DoIP session marked active on the entity,
// 7.1.7.
func (c *Conn) aliveCheckPeriodical() {
	c.log.Debug("starting alive check routine")
	defer c.log.Debug("stopping alive check routine")
	for {
		select {
		case <-time.After(aliveInterval):
			b := make([]byte, 2)
			binary.BigEndian.PutUint16(b, c.source)
			if err := c.write(PackFrame(AliveCheckResponse, b)); err != nil {
				c.log.Debugf("alive check send error %s", err)
				return
			}
		case <-c.running:
			return
		}
	}
}

func (c *Conn) isStopped() bool {
	select {
	case _, ok := <-c.running:
		return !ok
	default:
		return false
	}
}

// inputLoop reads the 8 byte generic header, then the payload, and
// dispatches by payload type. Frames addressed to another tester are
// dropped: DoIP multiplexes several logical addresses over one channel.
func (c *Conn) inputLoop(connection net.Conn) {
	defer close(c.inChan)
	defer close(c.errChan)

	var header [HeaderSize]byte
	for {
		n, err := io.ReadFull(connection, header[:])
		if err != nil {
			if !c.isStopped() && err != io.EOF && err != io.ErrUnexpectedEOF {
				c.log.Debugf("failed to read from socket (recv: %v of %v, err: %v)", n, HeaderSize, err)
			}
			return
		}
		if header[0] != ProtocolVersion || header[1] != InverseProtocolVersion {
			c.log.Debug("protocol version mismatch")
			c.errChan <- ErrMalformedFrame
			continue
		}

		payloadType := MsgTid(binary.BigEndian.Uint16(header[2:4]))
		dataSize := binary.BigEndian.Uint32(header[4:8])

		payload := make([]byte, dataSize)
		n, err = io.ReadFull(connection, payload)
		if err != nil {
			if !c.isStopped() && err != io.EOF && err != io.ErrUnexpectedEOF {
				c.log.Debugf("failed to read from socket (recv: %v of %v, err: %v)", n, dataSize, err)
			}
			return
		}

		sourceAddress, targetAddress := parseAddresses(payloadType, payload)

		switch {
		case payloadType == AliveCheckRequest:
			b := make([]byte, 2)
			binary.BigEndian.PutUint16(b, c.source)
			if err := c.write(PackFrame(AliveCheckResponse, b)); err != nil {
				c.log.Debugf("alive check response failed: %v", err)
			}

		case payloadType == GenericHeaderNegativeAcknowledge:
			c.log.Debug("generic header NACK")
			c.errChan <- ErrUnsupportedPayloadType

		case targetAddress != c.source:
			c.log.Debugf("frame for target %#04x - drop message (type %#04x)", targetAddress, uint16(payloadType))

		case payloadType == DiagnosticMessageNegativeAcknowledge:
			c.errChan <- ErrNegativeAck

		case payloadType == DiagnosticMessagePositiveAcknowledge:
			// transport level confirmation only, nothing for the caller

		case payloadType == DiagnosticMessage || payloadType == RoutingActivationResponse:
			c.inChan <- &inMessage{
				source: sourceAddress,
				target: targetAddress,
				data:   payload[4:],
			}

		default:
			c.log.Debug("unknown payload type - drop message")
			c.errChan <- ErrUnsupportedPayloadType
		}
	}
}

func parseAddresses(payloadType MsgTid, payload []byte) (sourceAddress uint16, targetAddress uint16) {
	if len(payload) < 4 {
		return
	}
	switch payloadType {
	case RoutingActivationResponse:
		targetAddress = binary.BigEndian.Uint16(payload[0:2])
		sourceAddress = binary.BigEndian.Uint16(payload[2:4])
	case DiagnosticMessage, DiagnosticMessagePositiveAcknowledge, DiagnosticMessageNegativeAcknowledge:
		sourceAddress = binary.BigEndian.Uint16(payload[0:2])
		targetAddress = binary.BigEndian.Uint16(payload[2:4])
	}
	return
}
