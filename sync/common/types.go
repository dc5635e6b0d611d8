package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hearthchat/hearth/lib/oplog"
)

// --------------------------------------------------------------------------
// Session Key
// --------------------------------------------------------------------------

// ConnKeyPrefix is the key space holding persisted connection records. No
// component other than the connection cache may read or write below it.
const ConnKeyPrefix = "conn/"

// SessionKey identifies one sync connection: a (user, device, session)
// triple. The same user and device may hold several independent sync
// sessions, each with its own cursors.
type SessionKey struct {
	UserID    string
	DeviceID  string
	SessionID string
}

// Encode renders the composite storage key of the connection record.
func (k SessionKey) Encode() string {
	return ConnKeyPrefix + k.UserID + "/" + k.DeviceID + "/" + k.SessionID
}

// DecodeSessionKey parses a storage key produced by Encode.
func DecodeSessionKey(key string) (SessionKey, error) {
	rest, ok := strings.CutPrefix(key, ConnKeyPrefix)
	if !ok {
		return SessionKey{}, oplog.NewError(oplog.RetCMalformed, fmt.Sprintf("not a connection key: %q", key))
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 {
		return SessionKey{}, oplog.NewError(oplog.RetCMalformed, fmt.Sprintf("malformed connection key: %q", key))
	}
	return SessionKey{UserID: parts[0], DeviceID: parts[1], SessionID: parts[2]}, nil
}

func (k SessionKey) String() string {
	return k.UserID + "/" + k.DeviceID + "/" + k.SessionID
}

// Matches reports whether the key matches the given selector fields. An
// empty selector field matches everything; this powers the administrative
// drop command.
func (k SessionKey) Matches(userID, deviceID, sessionID string) bool {
	return (userID == "" || userID == k.UserID) &&
		(deviceID == "" || deviceID == k.DeviceID) &&
		(sessionID == "" || sessionID == k.SessionID)
}

// --------------------------------------------------------------------------
// Position Tokens
// --------------------------------------------------------------------------

// FormatPos renders a cursor as the opaque position token echoed to the
// client.
func FormatPos(c oplog.Cursor) string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParsePos parses a client-supplied position token. The empty token means
// "initial sync" and parses to cursor zero.
func ParsePos(s string) (oplog.Cursor, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, oplog.NewError(oplog.RetCInvalidOperation, fmt.Sprintf("invalid position token %q", s))
	}
	return oplog.Cursor(v), nil
}

// --------------------------------------------------------------------------
// Connection Record
// --------------------------------------------------------------------------

// RoomCursor is the per-room sync state stored on a connection.
type RoomCursor struct {
	// RoomSince is the cursor up to which this room's data has been fully
	// delivered to the client.
	RoomSince oplog.Cursor `json:"room_since"`
}

// Connection is the server-side state remembered per sync session. It is
// what turns a poll into a diff: the stored cursors bound every collector's
// scan, and the stored lists/subscriptions/extension scopes make request
// parameters sticky across polls.
//
// A connection is mutated only at the end of a successful poll, and always
// as a whole (read-modify-write is atomic per session).
type Connection struct {
	// GlobalSince marks the last fully-delivered point for data not scoped
	// to a room, e.g. to-device messages.
	GlobalSince oplog.Cursor `json:"global_since"`

	// NextBatch is the cursor that becomes the new since point once the
	// client acknowledges this poll's response.
	NextBatch oplog.Cursor `json:"next_batch"`

	Rooms         map[string]RoomCursor       `json:"rooms"`
	Lists         map[string]ListConfig       `json:"lists"`
	Subscriptions map[string]RoomSubscription `json:"subscriptions"`
	Extensions    ExtensionConfig             `json:"extensions"`
}

// NewConnection returns a fresh connection with all maps initialized.
func NewConnection() *Connection {
	return &Connection{
		Rooms:         map[string]RoomCursor{},
		Lists:         map[string]ListConfig{},
		Subscriptions: map[string]RoomSubscription{},
	}
}

// UpdateSticky merges the request into the cached connection state.
// Request fields that are absent keep their cached value; present fields
// replace it. This is what lets clients send minimal follow-up requests.
func (c *Connection) UpdateSticky(req *Request) {
	for listID, reqList := range req.Lists {
		cached, ok := c.Lists[listID]
		if !ok {
			c.Lists[listID] = reqList
			continue
		}
		cached.merge(reqList)
		c.Lists[listID] = cached
	}

	for roomID, sub := range req.RoomSubscriptions {
		c.Subscriptions[roomID] = sub
	}

	c.Extensions.AccountData.merge(req.Extensions.AccountData)
	c.Extensions.Receipts.merge(req.Extensions.Receipts)
	c.Extensions.Typing.merge(req.Extensions.Typing)
	if req.Extensions.ToDevice.Enabled != nil {
		c.Extensions.ToDevice.Enabled = req.Extensions.ToDevice.Enabled
	}
}

// RewindRooms retards every per-room cursor newer than since back to since.
// Used when a client replays an older position token.
func (c *Connection) RewindRooms(since oplog.Cursor) {
	for roomID, room := range c.Rooms {
		if room.RoomSince > since {
			room.RoomSince = since
			c.Rooms[roomID] = room
		}
	}
}

// AdvanceRooms moves every given room's cursor to the connection's
// NextBatch after a poll delivered data for it.
func (c *Connection) AdvanceRooms(roomIDs []string) {
	for _, roomID := range roomIDs {
		room := c.Rooms[roomID]
		room.RoomSince = c.NextBatch
		c.Rooms[roomID] = room
	}
}

// Snapshot returns a deep copy of the connection for introspection, safe
// to read after the originating session resumes polling.
func (c *Connection) Snapshot() *Connection {
	cp := *c
	cp.Rooms = make(map[string]RoomCursor, len(c.Rooms))
	for k, v := range c.Rooms {
		cp.Rooms[k] = v
	}
	cp.Lists = make(map[string]ListConfig, len(c.Lists))
	for k, v := range c.Lists {
		cp.Lists[k] = v
	}
	cp.Subscriptions = make(map[string]RoomSubscription, len(c.Subscriptions))
	for k, v := range c.Subscriptions {
		cp.Subscriptions[k] = v
	}
	return &cp
}

// --------------------------------------------------------------------------
// Lists and Subscriptions
// --------------------------------------------------------------------------

// ListConfig describes one subscribed list: a named room selector.
type ListConfig struct {
	RequiredState []string     `json:"required_state,omitempty"`
	Filters       *ListFilters `json:"filters,omitempty"`
}

// ListFilters narrows which rooms a list selects.
type ListFilters struct {
	IsDM         *bool    `json:"is_dm,omitempty"`
	IsInvite     *bool    `json:"is_invite,omitempty"`
	RoomTypes    []string `json:"room_types,omitempty"`
	NotRoomTypes []string `json:"not_room_types,omitempty"`
}

func (l *ListConfig) merge(req ListConfig) {
	if len(req.RequiredState) > 0 {
		l.RequiredState = req.RequiredState
	}
	switch {
	case req.Filters == nil:
		// keep cached filters
	case l.Filters == nil:
		l.Filters = req.Filters
	default:
		if req.Filters.IsDM != nil {
			l.Filters.IsDM = req.Filters.IsDM
		}
		if req.Filters.IsInvite != nil {
			l.Filters.IsInvite = req.Filters.IsInvite
		}
		if len(req.Filters.RoomTypes) > 0 {
			l.Filters.RoomTypes = req.Filters.RoomTypes
		}
		if len(req.Filters.NotRoomTypes) > 0 {
			l.Filters.NotRoomTypes = req.Filters.NotRoomTypes
		}
	}
}

// RoomSubscription is an explicit per-room subscription outside any list.
type RoomSubscription struct {
	RequiredState []string `json:"required_state,omitempty"`
	TimelineLimit uint64   `json:"timeline_limit,omitempty"`
}

// --------------------------------------------------------------------------
// Extension Configuration
// --------------------------------------------------------------------------

// ExtScope is the shared request shape of the room-scoped extensions. All
// fields are sticky. A nil Lists or Rooms means "all" (wildcard); an empty
// non-nil slice means "none". The Rooms entry WildcardSubscribed selects
// every explicitly subscribed room.
type ExtScope struct {
	Enabled *bool     `json:"enabled,omitempty"`
	Lists   *[]string `json:"lists,omitempty"`
	Rooms   *[]string `json:"rooms,omitempty"`
}

// WildcardSubscribed is the ExtScope rooms entry selecting all explicitly
// subscribed rooms.
const WildcardSubscribed = "*"

func (s *ExtScope) merge(req ExtScope) {
	if req.Enabled != nil {
		s.Enabled = req.Enabled
	}
	if req.Lists != nil {
		s.Lists = req.Lists
	}
	if req.Rooms != nil {
		s.Rooms = req.Rooms
	}
}

// On reports whether the extension was enabled by this or a previous poll.
func (s ExtScope) On() bool {
	return s.Enabled != nil && *s.Enabled
}

// ExtToDevice configures the to-device extension, which is device-scoped
// rather than room-scoped.
type ExtToDevice struct {
	Enabled *bool `json:"enabled,omitempty"`
}

func (s ExtToDevice) On() bool {
	return s.Enabled != nil && *s.Enabled
}

// ExtensionConfig carries the sticky per-extension request state.
type ExtensionConfig struct {
	AccountData ExtScope    `json:"account_data,omitempty"`
	Receipts    ExtScope    `json:"receipts,omitempty"`
	Typing      ExtScope    `json:"typing,omitempty"`
	ToDevice    ExtToDevice `json:"to_device,omitempty"`
}

// --------------------------------------------------------------------------
// Request / Response
// --------------------------------------------------------------------------

// Request is one poll of a sync session, as handed over by the transport
// layer.
type Request struct {
	// Pos is the position token from the previous response; empty on the
	// first poll of a session.
	Pos   string
	TxnID string

	Lists             map[string]ListConfig
	RoomSubscriptions map[string]RoomSubscription
	Extensions        ExtensionConfig

	// Timeout permits long polling: if the computed delta is empty the
	// request suspends up to this long for new data. Zero returns
	// immediately.
	Timeout time.Duration
}

// Window is the set of rooms in scope for one poll, keyed by room id.
type Window map[string]*WindowRoom

// WindowRoom tags one room of the poll window.
type WindowRoom struct {
	RoomID string
	// Lists names the subscribed lists that pulled this room into the
	// window; empty for rooms selected only by explicit subscription.
	Lists []string
	// Entering is true when the room has no cursor on the connection yet,
	// i.e. it newly enters the window with this poll.
	Entering bool
}

// Response is the aggregate result of one poll.
type Response struct {
	// Pos is the token the client echoes back as its next since point.
	Pos        string              `json:"pos"`
	TxnID      string              `json:"txn_id,omitempty"`
	Lists      map[string][]string `json:"lists,omitempty"`
	Extensions ExtensionDelta      `json:"extensions,omitempty"`
}

// Empty reports whether the response carries no new data. The lists
// summary alone does not count as data; an all-empty response lets the
// poll suspend for more.
func (r *Response) Empty() bool {
	return r.Extensions.Empty()
}

// --------------------------------------------------------------------------
// Extension Deltas
// --------------------------------------------------------------------------

// Event is an opaque account-data event.
type Event struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Receipt is one read receipt inside a room.
type Receipt struct {
	UserID  string       `json:"user_id"`
	EventID string       `json:"event_id"`
	Cursor  oplog.Cursor `json:"cursor"`
	// Private marks the requester's own private read receipt. Private
	// receipts are never delivered to any other user.
	Private bool `json:"private,omitempty"`
}

// ToDeviceMessage is one direct device message.
type ToDeviceMessage struct {
	ID      string          `json:"id"`
	Sender  string          `json:"sender"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// AccountDataDelta maps rooms to their new account-data events. Rooms with
// no changes in the polled interval are absent from the map entirely.
type AccountDataDelta struct {
	Global []Event            `json:"global,omitempty"`
	Rooms  map[string][]Event `json:"rooms,omitempty"`
}

func (d *AccountDataDelta) empty() bool {
	return d == nil || (len(d.Global) == 0 && len(d.Rooms) == 0)
}

// ReceiptsDelta maps rooms to their new read receipts.
type ReceiptsDelta struct {
	Rooms map[string][]Receipt `json:"rooms,omitempty"`
}

func (d *ReceiptsDelta) empty() bool {
	return d == nil || len(d.Rooms) == 0
}

// TypingDelta maps rooms to the users currently typing in them. Only rooms
// with a non-empty live typing set appear.
type TypingDelta struct {
	Rooms map[string][]string `json:"rooms,omitempty"`
}

func (d *TypingDelta) empty() bool {
	return d == nil || len(d.Rooms) == 0
}

// ToDeviceDelta carries the outstanding device messages and the
// acknowledgement token for them.
type ToDeviceDelta struct {
	NextBatch string            `json:"next_batch"`
	Events    []ToDeviceMessage `json:"events"`
}

func (d *ToDeviceDelta) empty() bool {
	return d == nil || len(d.Events) == 0
}

// ExtensionDelta is the per-extension aggregate of one poll. A nil entry
// means the extension was disabled or produced nothing.
type ExtensionDelta struct {
	AccountData *AccountDataDelta `json:"account_data,omitempty"`
	Receipts    *ReceiptsDelta    `json:"receipts,omitempty"`
	Typing      *TypingDelta      `json:"typing,omitempty"`
	ToDevice    *ToDeviceDelta    `json:"to_device,omitempty"`
}

// Empty reports whether no extension produced any data.
func (d ExtensionDelta) Empty() bool {
	return d.AccountData.empty() && d.Receipts.empty() && d.Typing.empty() && d.ToDevice.empty()
}
