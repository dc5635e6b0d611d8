// Package common holds the shared vocabulary of the sync engine: session
// keys, the persisted Connection record, poll requests and responses, the
// extension delta types, the engine configuration and the logging setup.
//
// The central type is Connection, the server-side memory of one sync
// session. It stores the global and per-room cursors that bound every
// collector's scan plus the sticky request state (lists, subscriptions,
// extension scopes) merged across polls, so a client only ever sends what
// changed in its request.
//
// Logging uses the dragonboat logger facade: named per-package loggers
// behind a custom factory with uniform formatting, configured once via
// InitLoggers.
package common
