package doip

import (
	"net"
	"time"
)

// DiscoveryPort is the UDP port DoIP entities listen on for vehicle
// identification requests.
const DiscoveryPort = 13400

// VehicleAnnouncement describes a DoIP entity found during discovery.
type VehicleAnnouncement struct {
	VIN            string
	LogicalAddress uint16
	EID            [6]byte
	GID            [6]byte
	FurtherAction  byte
	// IP and Port locate the answering entity.
	IP   net.IP
	Port int
}

// Discover broadcasts a vehicle identification request towards target
// ("host:port", typically a broadcast address on port 13400) and waits
// for the first valid announcement. ErrTimeout is returned when nothing
// valid arrives before the timeout.
func Discover(logger Logger, target string, timeout time.Duration) (*VehicleAnnouncement, error) {
	if logger == nil {
		logger = NewLogger()
	}

	raddr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, err
	}

	pc, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}
	defer pc.Close()

	req := PackMsg(&MsgVehicleIdentReq{})
	if _, err := pc.WriteTo(req, raddr); err != nil {
		return nil, err
	}
	logger.Debugf("sent vehicle identification request to %s", target)

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1500)
	for {
		if err := pc.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, ErrTimeout
			}
			return nil, err
		}

		frame, err := UnpackFrame(buf[:n])
		if err != nil {
			logger.Debugf("discovery: dropping datagram from %s: %v", from, err)
			continue
		}
		if frame.PayloadType != VehicleAnnouncementMessage {
			logger.Debugf("discovery: ignoring payload type %#04x from %s", uint16(frame.PayloadType), from)
			continue
		}
		m, err := Unpack(frame.Payload, frame.PayloadType)
		if err != nil {
			logger.Debugf("discovery: malformed announcement from %s: %v", from, err)
			continue
		}
		ann := m.(*MsgVehicleAnnouncement)

		va := &VehicleAnnouncement{
			VIN:            ann.VIN,
			LogicalAddress: ann.LogicalAddress,
			EID:            ann.EID,
			GID:            ann.GID,
			FurtherAction:  ann.FurtherAction,
		}
		if ua, ok := from.(*net.UDPAddr); ok {
			va.IP = ua.IP
			va.Port = ua.Port
		}
		logger.Debugf("discovery: announcement from %s, logical address %#04x", from, va.LogicalAddress)
		return va, nil
	}
}
