package oplog

import (
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Cursor Type
// --------------------------------------------------------------------------

// Cursor is a strictly monotonically increasing position marker over the
// global event log. A cursor is assigned at the moment a record becomes
// visible to readers. Cursors are totally ordered across the whole log,
// never reused and never decrease.
type Cursor uint64

// cursorDigits is the fixed width of a cursor rendered into a key.
// Zero-padding keeps lexicographic key order identical to numeric order.
const cursorDigits = 20

// PadCursor renders a cursor as a fixed-width decimal string for use as a
// key segment.
func PadCursor(c Cursor) string {
	return fmt.Sprintf("%0*d", cursorDigits, uint64(c))
}

// ParseCursor parses a key segment previously produced by PadCursor.
func ParseCursor(s string) (Cursor, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewError(RetCMalformed, fmt.Sprintf("invalid cursor segment %q", s))
	}
	return Cursor(v), nil
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// LogFactory is a function type that creates a new log used by the sync
// engine. This is used to abstract the creation of the log from its
// consumers.
type LogFactory func() ILog

// ILog is the generic interface for the append-only ordered key-value log.
// All write operations assign a fresh cursor and return it together with a
// *Error (nil on success); read operations return the requested data along
// with a *Error (nil on success).
//
// Every successful write must notify the change notifier registered with
// the log so that suspended long-poll requests wake up.
type ILog interface {
	// Put inserts or updates a key-value pair and returns the cursor
	// assigned to the write.
	Put(key string, value []byte) (c Cursor, err error)

	// Append performs a write whose key and/or value embed the assigned
	// cursor. The build function receives the cursor and returns the final
	// key and value. It must be cheap and side-effect free; it is invoked
	// while the log's write path is held.
	Append(build func(c Cursor) (key string, value []byte)) (c Cursor, err error)

	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)

	// Range iterates all entries whose key starts with prefix, in ascending
	// key order. Iteration stops early when fn returns false.
	Range(prefix string, fn func(key string, value []byte) bool) (err error)

	// RangeAfter iterates entries whose key starts with prefix and whose
	// cursor segment (immediately following the prefix) is strictly greater
	// than after, in ascending key order. This is the half-open interval
	// scan (after, ...] used by the delta collectors.
	RangeAfter(prefix string, after Cursor, fn func(key string, value []byte) bool) (err error)

	// Delete removes a key-value pair. Deletes do not allocate a cursor and
	// do not notify watchers.
	Delete(key string) (err error)

	// Tail returns the cursor of the most recent visible write, or zero if
	// the log is empty.
	Tail() (c Cursor)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("OpLogError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the return code from an error. Errors that did not
// originate from this package map to RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess        RetCode = iota // 0: Command executed successfully.
	RetCInternalError                 // 1: Command failed due to an internal error.
	RetCNotFound                      // 2: No such record; recoverable for the caller.
	RetCForbidden                     // 3: Access or ignore-list violation.
	RetCStorageFailure                // 4: I/O failure from the underlying engine.
	RetCMalformed                     // 5: Corrupt persisted state.
	RetCInvalidOperation              // 6: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotFound:
		return "NotFound"
	case RetCForbidden:
		return "Forbidden"
	case RetCStorageFailure:
		return "StorageFailure"
	case RetCMalformed:
		return "Malformed"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
