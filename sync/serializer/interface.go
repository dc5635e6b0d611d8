package serializer

import (
	"github.com/hearthchat/hearth/sync/common"
)

// IConnSerializer is the interface for all connection record serializers
type IConnSerializer interface {
	// Serialize serializes a Connection into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(conn *common.Connection) ([]byte, error)
	// Deserialize deserializes a byte array into a Connection
	// It takes a byte array and a pointer to a Connection as parameters
	// It returns an error if any
	Deserialize(b []byte, conn *common.Connection) error
}

// ForName returns the serializer registered under the given config name.
// Unknown names fall back to JSON.
func ForName(name string) IConnSerializer {
	switch name {
	case "gob":
		return NewGobSerializer()
	default:
		return NewJSONSerializer()
	}
}
