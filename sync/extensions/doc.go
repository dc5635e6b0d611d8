// Package extensions implements the per-poll delta collectors: account
// data, read receipts, typing notifications and to-device messages.
//
// Each collector answers one question: "what of this kind changed for
// this session since its last acknowledged position?" The connection
// snapshot bounds every scan (half-open intervals, exclusive since and
// inclusive next-batch), the poll window limits which rooms are
// considered, and the sticky extension scopes select rooms within the
// window via their lists/rooms wildcards.
//
// Collectors are independent and side-effect free with one exception: the
// to-device collector deletes the messages the client's position proves it
// has received before reading the outstanding ones.
//
// Failure handling is per slice: a collector that cannot read one room's
// data logs and omits that room rather than failing the poll.
package extensions
