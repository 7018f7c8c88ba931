package uds

import "fmt"

// UDS service identifiers, ISO 14229-1
const (
	ServiceDiagnosticSessionControl byte = 0x10
	ServiceECUReset                 byte = 0x11
	ServiceReadDTCInformation       byte = 0x19
	ServiceReadDataByIdentifier     byte = 0x22
	ServiceReadMemoryByAddress      byte = 0x23
	ServiceSecurityAccess           byte = 0x27
	ServiceWriteDataByIdentifier    byte = 0x2E
	ServiceRoutineControl           byte = 0x31
	ServiceTesterPresent            byte = 0x3E
)

// PositiveResponseMask offsets a request service id into its positive
// response id.
const PositiveResponseMask byte = 0x40

// NegativeResponseID marks the first byte of a negative response.
const NegativeResponseID byte = 0x7F

var serviceNames = map[byte]string{
	ServiceDiagnosticSessionControl: "Diagnostic Session Control",
	ServiceECUReset:                 "ECU Reset",
	ServiceReadDTCInformation:       "Read DTC Information",
	ServiceReadDataByIdentifier:     "Read Data By Identifier",
	ServiceReadMemoryByAddress:      "Read Memory By Address",
	ServiceSecurityAccess:           "Security Access",
	ServiceWriteDataByIdentifier:    "Write Data By Identifier",
	ServiceRoutineControl:           "Routine Control",
	ServiceTesterPresent:            "Tester Present",
}

// ServiceName returns the human readable name of a service id.
func ServiceName(sid byte) string {
	if name, ok := serviceNames[sid]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", sid)
}

// Diagnostic session levels for DiagnosticSessionControl.
type SessionType byte

const (
	SessionDefault      SessionType = 0x01
	SessionProgramming  SessionType = 0x02
	SessionExtended     SessionType = 0x03
	SessionSafetySystem SessionType = 0x04
)

func (s SessionType) String() string {
	switch s {
	case SessionDefault:
		return "default"
	case SessionProgramming:
		return "programming"
	case SessionExtended:
		return "extended"
	case SessionSafetySystem:
		return "safety system"
	default:
		return fmt.Sprintf("0x%02X", byte(s))
	}
}

// Reset types for ECUReset.
type ResetType byte

const (
	ResetHard     ResetType = 0x01
	ResetKeyOffOn ResetType = 0x02
	ResetSoft     ResetType = 0x03
)

func (r ResetType) String() string {
	switch r {
	case ResetHard:
		return "hard reset"
	case ResetKeyOffOn:
		return "key off/on reset"
	case ResetSoft:
		return "soft reset"
	default:
		return fmt.Sprintf("0x%02X", byte(r))
	}
}
