package conncache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hearthchat/hearth/lib/notify"
	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/hearthchat/hearth/sync/data"
	"github.com/hearthchat/hearth/sync/extensions"
	"github.com/hearthchat/hearth/sync/serializer"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("conncache")

var (
	metricPolls    = metrics.GetOrCreateCounter("hearth_poll_total")
	metricWakes    = metrics.GetOrCreateCounter("hearth_poll_wakes_total")
	metricTimeouts = metrics.GetOrCreateCounter("hearth_poll_timeouts_total")
)

// --------------------------------------------------------------------------
// Cache
// --------------------------------------------------------------------------

// session is the in-memory half of one sync connection. The mutex
// serializes record access per session; polls for different sessions never
// contend on it. It is held only while a poll evaluates, never while it
// suspends.
type session struct {
	mu   sync.Mutex
	conn *common.Connection
}

// Cache is the connection cache: it owns the per-session connection
// records, drives the poll cycle, and is the only component that reads or
// writes the conn/ key space.
type Cache struct {
	log      oplog.ILog
	notifier *notify.Notifier
	stores   *data.Stores
	ser      serializer.IConnSerializer
	cfg      common.SyncConfig

	sessions *xsync.MapOf[string, *session]
}

// NewCache creates a connection cache over the given log and stores. The
// notifier must be the one the log reports its writes to, otherwise long
// polls never wake.
func NewCache(l oplog.ILog, n *notify.Notifier, stores *data.Stores, cfg common.SyncConfig) *Cache {
	return &Cache{
		log:      l,
		notifier: n,
		stores:   stores,
		ser:      serializer.ForName(cfg.Serializer),
		cfg:      cfg,
		sessions: xsync.NewMapOf[string, *session](),
	}
}

func (c *Cache) session(key common.SessionKey) *session {
	s, _ := c.sessions.LoadOrCompute(key.Encode(), func() *session {
		return &session{}
	})
	return s
}

// --------------------------------------------------------------------------
// Poll
// --------------------------------------------------------------------------

// Poll runs one sync cycle for the session: validate the position token
// against the stored connection, snapshot the upper bound, compute the
// room window, fan the extension collectors out, and persist the advanced
// cursors. If the computed delta is empty and the request permits
// blocking, Poll suspends until a relevant write, the timeout, or ctx
// cancellation; on wake it re-evaluates everything from scratch.
//
// The returned response carries the position token the client must echo
// on its next poll; echoing it acknowledges receipt. A response that is
// never acknowledged is delivered again when the client replays its old
// position.
//
// Thread-safety: This method is thread-safe. Evaluations for the same
// session are serialized; different sessions run in parallel.
func (c *Cache) Poll(ctx context.Context, key common.SessionKey, req *common.Request) (*common.Response, error) {
	metricPolls.Inc()

	since, err := common.ParsePos(req.Pos)
	if err != nil {
		return nil, err
	}

	timeout := c.cfg.ClampTimeout(req.Timeout)
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
	}

	reset := req.Pos == ""
	for {
		resp, w, nextSince, err := c.pollOnce(key, req, since, reset, timeout > 0)
		if err != nil {
			if w != nil {
				w.Cancel()
			}
			return nil, err
		}

		// Later iterations of this request resume from the evaluated
		// connection state; an initial-sync reset must not repeat on wake.
		since = nextSince
		reset = false

		if !resp.Empty() || timeout == 0 {
			if w != nil {
				w.Cancel()
			}
			return resp, nil
		}

		select {
		case <-w.Done():
			metricWakes.Inc()
			w.Cancel()
			// Re-evaluate against a fresh snapshot. Never assume the
			// firing key is the only change.

		case <-timer.C:
			metricTimeouts.Inc()
			w.Cancel()
			// Timeout is not an error: the client gets the empty
			// response with the position advanced.
			return resp, nil

		case <-ctx.Done():
			w.Cancel()
			return nil, ctx.Err()
		}
	}
}

// pollOnce performs one locked evaluation of the session. When block is
// set it also registers the wake sources and returns the watch set; the
// caller owns its cancellation.
//
// Ordering matters here: the wake sources are registered before the upper
// bound is snapshotted, so every write is either covered by this
// evaluation or fires the registration. Nothing can fall between.
func (c *Cache) pollOnce(key common.SessionKey, req *common.Request, since oplog.Cursor, reset, block bool) (*common.Response, *watchSet, oplog.Cursor, error) {
	sess := c.session(key)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	conn, err := c.prologue(sess, key, since, reset)
	if err != nil {
		return nil, nil, 0, err
	}
	nextSince := conn.GlobalSince

	conn.UpdateSticky(req)

	window, err := c.buildWindow(key.UserID, conn)
	if err != nil {
		return nil, nil, 0, err
	}

	var w *watchSet
	if block {
		w = c.watch(key, window)
	}

	// Single consistent upper bound for every collector of this poll
	conn.NextBatch = c.log.Tail()

	si := extensions.SyncInfo{UserID: key.UserID, DeviceID: key.DeviceID, Stores: c.stores}
	delta := extensions.Handle(si, conn, window)

	resp := &common.Response{
		Pos:        common.FormatPos(conn.NextBatch),
		TxnID:      req.TxnID,
		Lists:      summarizeLists(window),
		Extensions: delta,
	}

	if err := c.epilogue(sess, key, conn, window); err != nil {
		return nil, w, 0, err
	}
	return resp, w, nextSince, nil
}

// prologue loads or initializes the session's connection and validates the
// client's position token against it.
//
// An empty token resets the session: the fresh connection starts with all
// cursors at the log tail, so a new session receives no historical
// backlog. A token equal to the last response's position acknowledges it.
// A token at or before the acknowledged position replays: per-room cursors
// are rewound so the unacknowledged data is delivered again. Anything else
// is a position this session never issued.
func (c *Cache) prologue(sess *session, key common.SessionKey, since oplog.Cursor, reset bool) (*common.Connection, error) {
	if reset {
		tail := c.log.Tail()
		conn := common.NewConnection()
		conn.GlobalSince = tail
		conn.NextBatch = tail
		sess.conn = conn
		log.Debugf("fresh connection %s at cursor %d", key, tail)
		return conn, nil
	}

	conn := sess.conn
	if conn == nil {
		conn = c.loadStored(key)
		sess.conn = conn
	}
	if conn == nil {
		return nil, oplog.NewError(oplog.RetCInvalidOperation,
			fmt.Sprintf("unknown position %d for session %s", since, key))
	}

	switch {
	case since == conn.NextBatch:
		// Acknowledges the previous response
		conn.GlobalSince = since

	case since <= conn.GlobalSince:
		// Replays an older token: deliver everything after it again
		conn.GlobalSince = since
		conn.RewindRooms(since)

	default:
		return nil, oplog.NewError(oplog.RetCInvalidOperation,
			fmt.Sprintf("position %d for session %s is neither an acknowledgement nor a replay", since, key))
	}

	return conn, nil
}

// loadStored reads the persisted connection record, if any. A corrupt
// record is discarded and treated as absent.
func (c *Cache) loadStored(key common.SessionKey) *common.Connection {
	blob, loaded, err := c.log.Get(key.Encode())
	if err != nil || !loaded {
		if err != nil {
			log.Warningf("reading connection record %s failed: %v", key, err)
		}
		return nil
	}

	conn := common.NewConnection()
	if err := c.ser.Deserialize(blob, conn); err != nil {
		log.Warningf("discarding corrupt connection record %s: %v", key, err)
		return nil
	}
	return conn
}

// epilogue advances every window room's cursor to the poll's upper bound
// and persists the whole record. The in-memory record and the persisted
// blob always change together; a poll that errors persists nothing new.
func (c *Cache) epilogue(sess *session, key common.SessionKey, conn *common.Connection, window common.Window) error {
	roomIDs := make([]string, 0, len(window))
	for roomID := range window {
		roomIDs = append(roomIDs, roomID)
	}
	conn.AdvanceRooms(roomIDs)

	blob, err := c.ser.Serialize(conn)
	if err != nil {
		return oplog.NewError(oplog.RetCInternalError, fmt.Sprintf("serializing connection %s: %v", key, err))
	}
	if _, err := c.log.Put(key.Encode(), blob); err != nil {
		return err
	}
	sess.conn = conn
	return nil
}

// --------------------------------------------------------------------------
// Room window
// --------------------------------------------------------------------------

// buildWindow resolves the rooms in scope for this poll: the user's joined
// rooms that either belong to a list the connection subscribes or carry an
// explicit room subscription. A failure here is structural and aborts the
// poll.
func (c *Cache) buildWindow(userID string, conn *common.Connection) (common.Window, error) {
	joined, err := c.stores.Membership.JoinedRooms(userID)
	if err != nil {
		return nil, err
	}

	window := common.Window{}
	for _, rec := range joined {
		var lists []string
		for _, l := range rec.Lists {
			if _, ok := conn.Lists[l]; ok {
				lists = append(lists, l)
			}
		}
		if len(lists) == 0 {
			if _, ok := conn.Subscriptions[rec.RoomID]; !ok {
				continue
			}
		}
		_, known := conn.Rooms[rec.RoomID]
		window[rec.RoomID] = &common.WindowRoom{
			RoomID:   rec.RoomID,
			Lists:    lists,
			Entering: !known,
		}
	}
	return window, nil
}

// summarizeLists renders the per-list room membership of the window for
// the response.
func summarizeLists(window common.Window) map[string][]string {
	lists := map[string][]string{}
	for roomID, room := range window {
		for _, l := range room.Lists {
			lists[l] = append(lists[l], roomID)
		}
	}
	if len(lists) == 0 {
		return nil
	}
	for _, rooms := range lists {
		sort.Strings(rooms)
	}
	return lists
}
