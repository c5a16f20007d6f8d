package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"
)

// ==================== World state ====================

// stateModel is one committed record of the world state. The raw JSON
// value is authoritative; Doc carries the same document decoded so that
// selector queries can match on its fields server-side.
type stateModel struct {
	grove.BaseModel `grove:"table:planledger_state"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	Doc       bson.M    `grove:"doc"        bson:"doc"`
	Value     []byte    `grove:"value"      bson:"value"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toStateModel(key string, value []byte, at time.Time) (*stateModel, error) {
	doc := bson.M{}
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, fmt.Errorf("planledger/mongo: decode value for %s: %w", key, err)
	}
	return &stateModel{
		Key:       key,
		Doc:       doc,
		Value:     value,
		UpdatedAt: at,
	}, nil
}

// ==================== History ====================

// historyModel is one committed version of a key. Seq orders versions
// written by the same transaction; ordering across transactions follows
// the commit timestamp.
type historyModel struct {
	grove.BaseModel `grove:"table:planledger_history"`

	ID        string    `grove:"id,pk"     bson:"_id"`
	Key       string    `grove:"key"       bson:"key"`
	TxID      string    `grove:"tx_id"     bson:"tx_id"`
	Timestamp time.Time `grove:"timestamp" bson:"timestamp"`
	Seq       int       `grove:"seq"       bson:"seq"`
	IsDelete  bool      `grove:"is_delete" bson:"is_delete"`
	Value     []byte    `grove:"value"     bson:"value,omitempty"`
}

func toHistoryModel(key, txID string, seq int, isDelete bool, value []byte, at time.Time) *historyModel {
	return &historyModel{
		ID:        fmt.Sprintf("%s#%s#%d", key, txID, seq),
		Key:       key,
		TxID:      txID,
		Timestamp: at,
		Seq:       seq,
		IsDelete:  isDelete,
		Value:     value,
	}
}
