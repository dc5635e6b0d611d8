// Package federation contains the destination resolver used when talking
// to remote servers. Its job here is narrow: turn a server name into a
// host and port exactly once per expiry interval, no matter how many
// requests ask at the same time.
//
// The resolver composes a TTL cache with the single-flight map: cache
// hits never touch the flight path, cache misses collapse onto one
// in-flight lookup per server name. The lookup itself (well-known
// discovery, DNS) is injected as a function.
package federation
