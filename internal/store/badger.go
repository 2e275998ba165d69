package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	createAttempts = 5
	joinAttempts   = 10
)

var errCodeTaken = errors.New("room code taken")

type roomRecord struct {
	Code         domain.RoomCode `json:"code"`
	Participants int             `json:"participants"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BadgerStore keeps rooms under "room:<code>" and participants under
// "participant:<code>:<uuid>". The participant count lives in the room
// record so concurrent joins conflict on it and get retried.
type BadgerStore struct {
	db       *badger.DB
	capacity int
}

// OpenBadger opens the store at path, in memory when path is empty.
func OpenBadger(path string, capacity int) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return NewBadgerStore(db, capacity), nil
}

func NewBadgerStore(db *badger.DB, capacity int) *BadgerStore {
	return &BadgerStore{db: db, capacity: capacity}
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) CreateRoom(ctx context.Context) (domain.RoomCode, error) {
	for range createAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := domain.NewRoomCode()
		rec := roomRecord{Code: code, CreatedAt: time.Now().UTC()}
		err := s.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(roomKey(code)); err == nil {
				return errCodeTaken
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return setJSON(txn, roomKey(code), rec)
		})
		switch {
		case err == nil:
			log.Info().Str("module", "store").Str("room", string(code)).Msg("room created")
			return code, nil
		case errors.Is(err, errCodeTaken), errors.Is(err, badger.ErrConflict):
			continue
		default:
			return "", fmt.Errorf("create room: %w", err)
		}
	}
	return "", fmt.Errorf("create room: no free code after %d attempts", createAttempts)
}

func (s *BadgerStore) JoinRoom(ctx context.Context, code domain.RoomCode, nickname string) error {
	participant, err := domain.NewParticipant(code, nickname)
	if err != nil {
		return err
	}
	for range joinAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			rec, err := getRoom(txn, code)
			if err != nil {
				return err
			}
			if rec.Participants >= s.capacity {
				return ErrRoomFull
			}
			rec.Participants++
			if err := setJSON(txn, roomKey(code), rec); err != nil {
				return err
			}
			return setJSON(txn, participantKey(code, uuid.NewString()), participant)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err == nil {
			log.Info().Str("module", "store").Str("room", string(code)).Str("nickname", nickname).Msg("participant recorded")
		}
		return err
	}
	return fmt.Errorf("join room %s: too much contention", code)
}

func (s *BadgerStore) RoomExists(_ context.Context, code domain.RoomCode) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getRoom(txn, code)
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrRoomNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Participants lists the recorded participants of a room.
func (s *BadgerStore) Participants(_ context.Context, code domain.RoomCode) ([]domain.Participant, error) {
	out := []domain.Participant{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: participantPrefix(code), PrefetchValues: true, PrefetchSize: 16})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var p domain.Participant
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func getRoom(txn *badger.Txn, code domain.RoomCode) (roomRecord, error) {
	var rec roomRecord
	item, err := txn.Get(roomKey(code))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, ErrRoomNotFound
	}
	if err != nil {
		return rec, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

func roomKey(code domain.RoomCode) []byte { return []byte("room:" + string(code)) }

func participantPrefix(code domain.RoomCode) []byte {
	return []byte("participant:" + string(code) + ":")
}

func participantKey(code domain.RoomCode, id string) []byte {
	return append(participantPrefix(code), id...)
}
