// Package conncache implements the connection cache, the stateful heart
// of the sync engine. It remembers, per (user, device, session) triple,
// the cursors up to which data has been delivered, so that every poll
// computes a diff instead of replaying the full state.
//
// One poll runs through a fixed cycle: validate the client's position
// token against the stored connection, snapshot the log tail as the single
// upper bound for all collectors, merge the request's sticky parameters,
// resolve the room window from the membership store, fan the extension
// collectors out concurrently, advance the window rooms' cursors to the
// snapshot, and persist the whole record in one write.
//
// A fresh session starts with its cursors at the current log tail: new
// sessions receive no historical backlog, only changes after first
// contact.
//
// When the computed delta is empty and the request permits blocking, the
// poll registers wake prefixes with the change notifier (plus the live
// typing channels of the window rooms) and suspends. On wake it
// re-evaluates everything against a fresh snapshot; the firing key is
// never assumed to be the only change. Timeouts are not errors: the
// client receives the empty response with its position advanced.
//
// Thread-safety: polls for the same session are serialized by a per-session
// mutex; sessions never contend with each other. The conn/ key space
// belongs exclusively to this package.
package conncache
