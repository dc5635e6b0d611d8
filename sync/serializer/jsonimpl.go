package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
)

// NewJSONSerializer creates a new serializer using the JSON format.
// JSON blobs stay debuggable with standard tooling, which matters for a
// record that outlives server restarts.
func NewJSONSerializer() IConnSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements IConnSerializer using encoding/json
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IConnSerializer)
// --------------------------------------------------------------------------

func (s *jsonSerializerImpl) Serialize(conn *common.Connection) ([]byte, error) {
	b, err := json.Marshal(conn)
	if err != nil {
		return nil, oplog.NewError(oplog.RetCInternalError, fmt.Sprintf("failed to serialize connection: %v", err))
	}
	return b, nil
}

func (s *jsonSerializerImpl) Deserialize(b []byte, conn *common.Connection) error {
	if err := json.Unmarshal(b, conn); err != nil {
		return oplog.NewError(oplog.RetCMalformed, fmt.Sprintf("corrupt connection record: %v", err))
	}
	return nil
}
