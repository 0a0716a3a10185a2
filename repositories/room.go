//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"syncpad/domain"

	"github.com/dgraph-io/badger/v4"
)

const roomKeyPrefix = "room:"

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

func roomKey(roomID domain.RoomID) []byte {
	return []byte(roomKeyPrefix + string(roomID))
}

// Save overwrites the one durable record for a room. The record carries no
// connection or timer state; callers hand in a snapshot built by ToRecord.
func (r RoomRepository) Save(roomID domain.RoomID, record domain.DurableRecord) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding room %s: %w", roomID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(roomID), bytes)
	})
}

// LoadAll enumerates every persisted room record via a prefix scan.
// Reloaded members are connectionless by construction of DurableRecord.
func (r RoomRepository) LoadAll() (map[domain.RoomID]domain.DurableRecord, error) {
	records := make(map[domain.RoomID]domain.DurableRecord)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		prefix := []byte(roomKeyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			roomID := domain.RoomID(strings.TrimPrefix(string(item.Key()), roomKeyPrefix))
			err := item.Value(func(value []byte) error {
				var record domain.DurableRecord
				if err := json.Unmarshal(value, &record); err != nil {
					// A corrupt record must not block startup; skip and report.
					r.log.Error("Skipping unreadable room record",
						"room_id", string(roomID), "error", err)
					return nil
				}
				records[roomID] = record
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes a room's record. A missing record is not an error.
func (r RoomRepository) Delete(roomID domain.RoomID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(roomKey(roomID))
	})
}
