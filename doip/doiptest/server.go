// Package doiptest provides an in-process DoIP entity for testing
// clients, in the spirit of net/http/httptest. It answers routing
// activation and vehicle identification and delegates diagnostic
// payloads to a configurable handler.
package doiptest

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/openmotive/godiag/doip"
)

// DiagHandler maps one inbound UDS request payload to zero or more UDS
// response payloads. Each returned payload is sent back as its own
// diagnostic message frame.
type DiagHandler func(request []byte) [][]byte

// Server is a loopback DoIP entity.
type Server struct {
	// Logical is the entity address announced and used as diagnostic
	// message source.
	Logical uint16
	// VIN reported in vehicle announcements.
	VIN string
	// ActivationCode returned on routing activation requests.
	ActivationCode byte
	// AckDiagnostics controls whether a positive diagnostic ack frame is
	// sent before the handler responses.
	AckDiagnostics bool
	// Diag handles diagnostic payloads. Nil echoes the request.
	Diag DiagHandler

	log doip.Logger

	mu     sync.Mutex
	ln     net.Listener
	pc     net.PacketConn
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer starts a DoIP entity on loopback TCP and UDP sockets.
// Callers must Close it.
func NewServer(logger doip.Logger, configure func(*Server)) (*Server, error) {
	if logger == nil {
		logger = doip.NewLogger()
	}
	s := &Server{
		Logical:        0x00E0,
		VIN:            "GODIAG00TESTVIN01",
		ActivationCode: doip.RoutingSuccessfullyActivated,
		AckDiagnostics: true,
		log:            logger,
		conns:          make(map[net.Conn]struct{}),
	}
	if configure != nil {
		configure(s)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		ln.Close()
		return nil, err
	}
	s.ln = ln
	s.pc = pc

	s.wg.Add(2)
	go s.acceptLoop()
	go s.udpLoop()
	return s, nil
}

// Addr returns the TCP address of the entity.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// UDPAddr returns the UDP discovery address of the entity.
func (s *Server) UDPAddr() string { return s.pc.LocalAddr().String() }

// Close shuts the entity down and drops all client connections.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	s.pc.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// DropConnections closes every active TCP connection without stopping
// the listener. Useful to simulate an ECU restart.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
		delete(s.conns, c)
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	var header [doip.HeaderSize]byte
	for {
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			return
		}
		if header[0] != doip.ProtocolVersion || header[1] != doip.InverseProtocolVersion {
			s.writeMsg(conn, &doip.MsgNACK{ErrCode: doip.HdrErrIncorrectFormat})
			return
		}
		id := doip.MsgTid(binary.BigEndian.Uint16(header[2:4]))
		size := binary.BigEndian.Uint32(header[4:8])
		payload := make([]byte, size)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		switch id {
		case doip.RoutingActivationRequest:
			m, err := doip.Unpack(payload, id)
			if err != nil {
				s.writeMsg(conn, &doip.MsgNACK{ErrCode: doip.HdrErrInvalidLen})
				continue
			}
			req := m.(*doip.MsgActivationReq)
			s.writeMsg(conn, &doip.MsgActivationRes{
				SrcAddress:    req.SrcAddress,
				DstAddress:    s.Logical,
				Code:          s.ActivationCode,
				ReserveForStd: []byte{0, 0, 0, 0},
			})

		case doip.DiagnosticMessage:
			m, err := doip.Unpack(payload, id)
			if err != nil {
				s.writeMsg(conn, &doip.MsgNACK{ErrCode: doip.HdrErrInvalidLen})
				continue
			}
			req := m.(*doip.MsgDiagMsg)
			if s.AckDiagnostics {
				s.writeMsg(conn, &doip.MsgDiagMsgAck{
					Id:         doip.DiagnosticMessagePositiveAcknowledge,
					SrcAddress: req.DstAddress,
					DstAddress: req.SrcAddress,
					AckCode:    0,
				})
			}
			for _, resp := range s.handleDiag(req.Userdata) {
				s.writeMsg(conn, &doip.MsgDiagMsg{
					SrcAddress: req.DstAddress,
					DstAddress: req.SrcAddress,
					Userdata:   resp,
				})
			}

		case doip.AliveCheckResponse:
			// client liveness report, nothing to answer

		default:
			s.writeMsg(conn, &doip.MsgNACK{ErrCode: doip.HdrErrUnknownPayloadType})
		}
	}
}

func (s *Server) handleDiag(request []byte) [][]byte {
	if s.Diag == nil {
		return [][]byte{request}
	}
	return s.Diag(request)
}

func (s *Server) writeMsg(conn net.Conn, m doip.MsgReq) {
	if _, err := conn.Write(doip.PackMsg(m)); err != nil && !s.isClosed() {
		s.log.Debugf("doiptest: write failed: %v", err)
	}
}

func (s *Server) udpLoop() {
	defer s.wg.Done()
	buf := make([]byte, 1500)
	for {
		n, from, err := s.pc.ReadFrom(buf)
		if err != nil {
			return
		}
		frame, err := doip.UnpackFrame(buf[:n])
		if err != nil || frame.PayloadType != doip.VehicleIdentificationRequest {
			continue
		}
		ann := &doip.MsgVehicleAnnouncement{
			VIN:            s.VIN,
			LogicalAddress: s.Logical,
		}
		if _, err := s.pc.WriteTo(doip.PackMsg(ann), from); err != nil && !s.isClosed() {
			s.log.Debugf("doiptest: announcement write failed: %v", err)
		}
	}
}
