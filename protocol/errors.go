package protocol

import (
	"errors"
	"fmt"
)

// ErrWriteTimeout reports that the receive buffer stayed full for the whole
// write timeout, the software equivalent of a hardware buffer-full condition.
var ErrWriteTimeout = errors.New("printemu: write timed out waiting for receive buffer space")

// ErrorCode identifies a protocol error message understood by FormatError.
type ErrorCode string

const (
	ErrorChecksumMismatch ErrorCode = "checksum_mismatch"
	ErrorChecksumMissing  ErrorCode = "checksum_missing"
	ErrorLinenoMismatch   ErrorCode = "lineno_mismatch"
	ErrorLinenoMissing    ErrorCode = "lineno_missing"
	ErrorMaxtemp          ErrorCode = "maxtemp"
	ErrorMintemp          ErrorCode = "mintemp"
	ErrorCommandUnknown   ErrorCode = "command_unknown"
)

var errorMessages = map[ErrorCode]string{
	ErrorChecksumMismatch: "Checksum mismatch",
	ErrorChecksumMissing:  "Missing checksum",
	ErrorLinenoMismatch:   "expected line %d got %d",
	ErrorLinenoMissing:    "No Line Number with checksum, Last Line: %d",
	ErrorMaxtemp:          "MAXTEMP triggered!",
	ErrorMintemp:          "MINTEMP triggered!",
	ErrorCommandUnknown:   "Unknown command %s",
}

// FormatError renders an error response line for the outgoing queue. The
// engine itself emits only the checksum and line-number variants; the rest
// are available to command handlers layered on top.
func FormatError(code ErrorCode, args ...any) string {
	return "Error: " + fmt.Sprintf(errorMessages[code], args...)
}
