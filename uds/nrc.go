package uds

import "fmt"

// UDS Negative Response Code (NRC) constants, ISO 14229-1
const (
	NRCGeneralReject                           byte = 0x10
	NRCServiceNotSupported                     byte = 0x11
	NRCSubFunctionNotSupported                 byte = 0x12
	NRCIncorrectMessageLengthOrInvalidFormat   byte = 0x13
	NRCResponseTooLong                         byte = 0x14
	NRCBusyRepeatRequest                       byte = 0x21
	NRCConditionsNotCorrect                    byte = 0x22
	NRCRequestSequenceError                    byte = 0x24
	NRCNoResponseFromSubnetComponent           byte = 0x25
	NRCFailurePreventsExecution                byte = 0x26
	NRCRequestOutOfRange                       byte = 0x31
	NRCSecurityAccessDenied                    byte = 0x33
	NRCInvalidKey                              byte = 0x35
	NRCExceededNumberOfAttempts                byte = 0x36
	NRCRequiredTimeDelayNotExpired             byte = 0x37
	NRCUploadDownloadNotAccepted               byte = 0x70
	NRCTransferDataSuspended                   byte = 0x71
	NRCGeneralProgrammingFailure               byte = 0x72
	NRCWrongBlockSequenceCounter               byte = 0x73
	NRCRequestCorrectlyReceivedResponsePending byte = 0x78
	NRCSubFunctionNotSupportedInActiveSession  byte = 0x7E
	NRCServiceNotSupportedInActiveSession      byte = 0x7F
)

var nrcNames = map[byte]string{
	NRCGeneralReject:                           "General Reject",
	NRCServiceNotSupported:                     "Service Not Supported",
	NRCSubFunctionNotSupported:                 "SubFunction Not Supported",
	NRCIncorrectMessageLengthOrInvalidFormat:   "Incorrect Message Length or Invalid Format",
	NRCResponseTooLong:                         "Response Too Long",
	NRCBusyRepeatRequest:                       "Busy Repeat Request",
	NRCConditionsNotCorrect:                    "Conditions Not Correct",
	NRCRequestSequenceError:                    "Request Sequence Error",
	NRCNoResponseFromSubnetComponent:           "No Response From Subnet Component",
	NRCFailurePreventsExecution:                "Failure Prevents Execution of Requested Action",
	NRCRequestOutOfRange:                       "Request Out of Range",
	NRCSecurityAccessDenied:                    "Security Access Denied",
	NRCInvalidKey:                              "Invalid Key",
	NRCExceededNumberOfAttempts:                "Exceeded Number of Attempts",
	NRCRequiredTimeDelayNotExpired:             "Required Time Delay Not Expired",
	NRCUploadDownloadNotAccepted:               "Upload/Download Not Accepted",
	NRCTransferDataSuspended:                   "Transfer Data Suspended",
	NRCGeneralProgrammingFailure:               "General Programming Failure",
	NRCWrongBlockSequenceCounter:               "Wrong Block Sequence Counter",
	NRCRequestCorrectlyReceivedResponsePending: "Request Correctly Received - Response Pending",
	NRCSubFunctionNotSupportedInActiveSession:  "SubFunction Not Supported in Active Session",
	NRCServiceNotSupportedInActiveSession:      "Service Not Supported in Active Session",
}

// NRCName returns the human readable name of a negative response code.
func NRCName(code byte) string {
	if name, ok := nrcNames[code]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", code)
}
