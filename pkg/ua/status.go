package ua

import (
	"fmt"
	"strconv"
)

// StatusCode is a protocol result code. The top two bits carry severity.
type StatusCode uint32

const (
	StatusGood                           StatusCode = 0x00000000
	StatusBadInternalError               StatusCode = 0x80020000
	StatusBadTimeout                     StatusCode = 0x800A0000
	StatusBadServiceUnsupported          StatusCode = 0x800B0000
	StatusBadNothingToDo                 StatusCode = 0x800F0000
	StatusBadTooManyOperations           StatusCode = 0x80100000
	StatusBadUserAccessDenied            StatusCode = 0x801F0000
	StatusBadNodeIDInvalid               StatusCode = 0x80330000
	StatusBadNodeIDUnknown               StatusCode = 0x80340000
	StatusBadReferenceTypeIDInvalid      StatusCode = 0x804C0000
	StatusBadBrowseDirectionInvalid      StatusCode = 0x804D0000
	StatusBadQueryTooComplex             StatusCode = 0x806E0000
	StatusBadHistoryOperationUnsupported StatusCode = 0x80720000
	StatusBadInvalidArgument             StatusCode = 0x80AB0000
)

var statusNames = map[StatusCode]string{
	StatusGood:                           "Good",
	StatusBadInternalError:               "BadInternalError",
	StatusBadTimeout:                     "BadTimeout",
	StatusBadServiceUnsupported:          "BadServiceUnsupported",
	StatusBadNothingToDo:                 "BadNothingToDo",
	StatusBadTooManyOperations:           "BadTooManyOperations",
	StatusBadUserAccessDenied:            "BadUserAccessDenied",
	StatusBadNodeIDInvalid:               "BadNodeIdInvalid",
	StatusBadNodeIDUnknown:               "BadNodeIdUnknown",
	StatusBadReferenceTypeIDInvalid:      "BadReferenceTypeIdInvalid",
	StatusBadBrowseDirectionInvalid:      "BadBrowseDirectionInvalid",
	StatusBadQueryTooComplex:             "BadQueryTooComplex",
	StatusBadHistoryOperationUnsupported: "BadHistoryOperationUnsupported",
	StatusBadInvalidArgument:             "BadInvalidArgument",
}

// String returns the symbolic name, or the hex value for unknown codes.
func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "0x" + strconv.FormatUint(uint64(s), 16)
}

// Error lets a StatusCode travel as an error value.
func (s StatusCode) Error() string {
	return fmt.Sprintf("status %s (0x%08X)", s.String(), uint32(s))
}

// IsGood reports whether the severity is Good.
func (s StatusCode) IsGood() bool { return s&0xC0000000 == 0 }

// IsBad reports whether the severity is Bad.
func (s StatusCode) IsBad() bool { return s&0x80000000 != 0 }

// MarshalText encodes the code by name so JSON responses stay readable.
func (s StatusCode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts either a symbolic name or a 0x-prefixed hex value.
func (s *StatusCode) UnmarshalText(data []byte) error {
	text := string(data)
	for code, name := range statusNames {
		if name == text {
			*s = code
			return nil
		}
	}
	v, err := strconv.ParseUint(text, 0, 32)
	if err != nil {
		return fmt.Errorf("unknown status code %q", text)
	}
	*s = StatusCode(v)
	return nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
