package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
)

// NewGobSerializer creates a new serializer using the gob format, the
// compact binary option for deployments with many persisted connections
func NewGobSerializer() IConnSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements IConnSerializer using encoding/gob
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IConnSerializer)
// --------------------------------------------------------------------------

func (s *gobSerializerImpl) Serialize(conn *common.Connection) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(conn); err != nil {
		return nil, oplog.NewError(oplog.RetCInternalError, fmt.Sprintf("failed to serialize connection: %v", err))
	}
	return buf.Bytes(), nil
}

func (s *gobSerializerImpl) Deserialize(b []byte, conn *common.Connection) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(conn); err != nil {
		return oplog.NewError(oplog.RetCMalformed, fmt.Sprintf("corrupt connection record: %v", err))
	}
	return nil
}
