package data

import (
	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("data")

// Key space layout. Every accessor owns exactly one prefix; the cursor
// segment always directly follows the accessor prefix so half-open
// interval scans work uniformly.
const (
	acctPrefix    = "acct/"   // acct/<user>/g/<cursor> and acct/<user>/<room>/<cursor>
	acctGlobalSeg = "g"       // pseudo room segment for global account data
	rcptPrefix    = "rcpt/"   // rcpt/<room>/<cursor>/<user>
	rcptPrivPfx   = "rcptp/"  // rcptp/<user>/<room>
	todevPrefix   = "todev/"  // todev/<user>/<device>/<cursor>
	memberPrefix  = "member/" // member/<user>/<room>
	ignorePrefix  = "ignore/" // ignore/<user>/<target>
)

// Stores bundles the stored-state accessors the delta collectors read
// from. All accessors share one ordered log; Typing is the exception, it
// is live in-process state and never persisted.
type Stores struct {
	Account    *AccountData
	Receipts   *Receipts
	ToDevice   *ToDevice
	Membership *Membership
	Typing     *Typing
	Ignore     *IgnoreList
}

// NewStores creates the accessor bundle over the given log.
func NewStores(l oplog.ILog) *Stores {
	return &Stores{
		Account:    &AccountData{log: l},
		Receipts:   &Receipts{log: l},
		ToDevice:   &ToDevice{log: l},
		Membership: &Membership{log: l},
		Typing:     NewTyping(),
		Ignore:     &IgnoreList{log: l},
	}
}

// --------------------------------------------------------------------------
// Watch prefixes
// --------------------------------------------------------------------------

// The long-poll path registers change-notifier interest via these prefix
// builders. They are the only place outside the accessors that knows the
// key space layout.

// AccountWatchPrefix covers the user's global and per-room account data.
func AccountWatchPrefix(userID string) string {
	return acctPrefix + userID + "/"
}

// MemberWatchPrefix covers the user's membership records, so a poll wakes
// when the user's room selection changes.
func MemberWatchPrefix(userID string) string {
	return memberPrefix + userID + "/"
}

// PrivateReceiptWatchPrefix covers the user's private read markers.
func PrivateReceiptWatchPrefix(userID string) string {
	return rcptPrivPfx + userID + "/"
}

// ToDeviceWatchPrefix covers the message queue of one device.
func ToDeviceWatchPrefix(userID, deviceID string) string {
	return todevPrefix + userID + "/" + deviceID + "/"
}

// ReceiptWatchPrefix covers the public receipts of one room.
func ReceiptWatchPrefix(roomID string) string {
	return rcptPrefix + roomID + "/"
}

// getRetry reads a key, transparently retrying once on a transient storage
// failure. Failures other than StorageFailure are surfaced immediately.
func getRetry(l oplog.ILog, key string) ([]byte, bool, error) {
	value, loaded, err := l.Get(key)
	if err != nil && oplog.CodeOf(err) == oplog.RetCStorageFailure {
		value, loaded, err = l.Get(key)
	}
	return value, loaded, err
}

// tailCursorSeg extracts the trailing cursor segment of a key produced by
// an Append layout.
func tailCursorSeg(key string) (oplog.Cursor, bool) {
	if len(key) < 20 {
		return 0, false
	}
	c, err := oplog.ParseCursor(key[len(key)-20:])
	if err != nil {
		return 0, false
	}
	return c, true
}
