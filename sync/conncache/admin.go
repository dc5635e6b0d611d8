package conncache

import (
	"sort"

	"github.com/hearthchat/hearth/sync/common"
)

// Administrative surface. All operations are safe against concurrent
// polls: Inspect takes the session mutex for the duration of the copy, so
// it observes either the pre- or post-poll record, never a torn one.

// ListConnections returns the session keys currently live in memory,
// sorted.
func (c *Cache) ListConnections() []common.SessionKey {
	var keys []common.SessionKey
	c.sessions.Range(func(encoded string, s *session) bool {
		key, err := common.DecodeSessionKey(encoded)
		if err != nil {
			log.Errorf("invalid session map key %q: %v", encoded, err)
			return true
		}
		keys = append(keys, key)
		return true
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].Encode() < keys[j].Encode() })
	return keys
}

// ListStoredConnections returns the session keys of all persisted
// connection records, sorted. This covers sessions that survived a restart
// but have not polled yet.
func (c *Cache) ListStoredConnections() ([]common.SessionKey, error) {
	var keys []common.SessionKey
	err := c.log.Range(common.ConnKeyPrefix, func(k string, _ []byte) bool {
		key, err := common.DecodeSessionKey(k)
		if err != nil {
			log.Warningf("skipping malformed connection key %q: %v", k, err)
			return true
		}
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Inspect returns a deep-copied snapshot of the session's connection, or
// false if the session is unknown both in memory and in storage.
func (c *Cache) Inspect(key common.SessionKey) (*common.Connection, bool) {
	if s, ok := c.sessions.Load(key.Encode()); ok {
		s.mu.Lock()
		conn := s.conn
		var snap *common.Connection
		if conn != nil {
			snap = conn.Snapshot()
		}
		s.mu.Unlock()
		if snap != nil {
			return snap, true
		}
	}

	if conn := c.loadStored(key); conn != nil {
		return conn, true
	}
	return nil, false
}

// Drop evicts every connection matching the selector, in memory and in
// storage, and returns how many were dropped. Empty selector fields match
// everything; Drop("", "", "") clears the whole cache.
//
// A poll in flight for a dropped session finishes on its own copy of the
// record; the session starts fresh on its next initial poll.
func (c *Cache) Drop(userID, deviceID, sessionID string) (int, error) {
	stored, err := c.ListStoredConnections()
	if err != nil {
		return 0, err
	}

	dropped := map[string]struct{}{}
	for _, key := range stored {
		if !key.Matches(userID, deviceID, sessionID) {
			continue
		}
		if err := c.log.Delete(key.Encode()); err != nil {
			return len(dropped), err
		}
		dropped[key.Encode()] = struct{}{}
	}

	c.sessions.Range(func(encoded string, _ *session) bool {
		key, err := common.DecodeSessionKey(encoded)
		if err != nil || !key.Matches(userID, deviceID, sessionID) {
			return true
		}
		c.sessions.Delete(encoded)
		dropped[encoded] = struct{}{}
		return true
	})

	log.Infof("dropped %d connection(s) for selector (%q, %q, %q)", len(dropped), userID, deviceID, sessionID)
	return len(dropped), nil
}
