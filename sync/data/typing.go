package data

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Typing is the live typing registry. Typing state is ephemeral: it is
// never written to the log and carries no cursors. A poll reports the set
// of users typing at collection time, nothing else.
type Typing struct {
	rooms *xsync.MapOf[string, *typingRoom]
}

type typingRoom struct {
	mu    sync.Mutex
	users map[string]struct{}
	wake  chan struct{}
}

// NewTyping creates an empty typing registry.
func NewTyping() *Typing {
	return &Typing{
		rooms: xsync.NewMapOf[string, *typingRoom](),
	}
}

func (t *Typing) room(roomID string) *typingRoom {
	r, _ := t.rooms.LoadOrCompute(roomID, func() *typingRoom {
		return &typingRoom{
			users: map[string]struct{}{},
			wake:  make(chan struct{}),
		}
	})
	return r
}

// Start marks the user as typing in the room.
func (t *Typing) Start(roomID, userID string) {
	r := t.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; ok {
		return
	}
	r.users[userID] = struct{}{}
	r.wakeLocked()
}

// Stop clears the user's typing state in the room.
func (t *Typing) Stop(roomID, userID string) {
	r := t.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return
	}
	delete(r.users, userID)
	r.wakeLocked()
}

// Users returns the users currently typing in the room, sorted, with
// exclude (typically the requester) filtered out.
func (t *Typing) Users(roomID, exclude string) []string {
	r, ok := t.rooms.Load(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.users))
	for u := range r.users {
		if u == exclude {
			continue
		}
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Wait returns a channel closed on the next typing change in the room.
// Long polls include it in their wake set.
func (t *Typing) Wait(roomID string) <-chan struct{} {
	r := t.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wake
}

// wakeLocked resolves all current waiters. Caller must hold r.mu.
func (r *typingRoom) wakeLocked() {
	close(r.wake)
	r.wake = make(chan struct{})
}
