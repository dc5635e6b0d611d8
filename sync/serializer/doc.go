// Package serializer provides codecs for the persisted connection records
// of the sync engine. It defines a common interface and multiple
// implementations for serializing and deserializing the per-session state
// blob between the connection cache and the ordered log.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Mapping decode failures of corrupt blobs to the Malformed error code,
//     so the connection cache can discard them and start the session fresh
//     instead of failing the poll
//
// Key Components:
//
//   - IConnSerializer: Core interface that all serializer implementations
//     must satisfy.
//
//   - jsonSerializerImpl: Implementation using JSON encoding. Records stay
//     inspectable with standard tooling; the default choice.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding,
//     producing smaller blobs for deployments with many long-lived
//     sessions.
//
// The serializer is selected by name through ForName, driven by the
// Serializer field of the engine configuration.
package serializer
