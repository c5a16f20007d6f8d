package postgres

import (
	"fmt"
	"time"

	"github.com/xraph/grove"
)

// stateModel is one committed record of the world state.
type stateModel struct {
	grove.BaseModel `grove:"table:planledger_state"`

	Key       string    `grove:"key,pk"`
	Value     []byte    `grove:"value"`
	UpdatedAt time.Time `grove:"updated_at"`
}

// historyModel is one committed version of a key. Seq orders versions
// written by the same transaction.
type historyModel struct {
	grove.BaseModel `grove:"table:planledger_history"`

	ID        string    `grove:"id,pk"`
	Key       string    `grove:"key"`
	TxID      string    `grove:"tx_id"`
	Timestamp time.Time `grove:"timestamp"`
	Seq       int       `grove:"seq"`
	IsDelete  bool      `grove:"is_delete"`
	Value     []byte    `grove:"value"`
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
