//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_room_store.go -package=mocks
package store

import (
	"context"
	"errors"

	"github.com/dkeye/QuickRoom/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
)

// RoomStore persists rooms and their participant records. It backs the
// create-room and join-room endpoints; live connections never touch it
// except for the existence check at upgrade time.
type RoomStore interface {
	CreateRoom(ctx context.Context) (domain.RoomCode, error)
	// JoinRoom records a participant, failing with ErrRoomNotFound or ErrRoomFull.
	JoinRoom(ctx context.Context, code domain.RoomCode, nickname string) error
	RoomExists(ctx context.Context, code domain.RoomCode) (bool, error)
	// Participants lists join-room records, oldest key order first.
	Participants(ctx context.Context, code domain.RoomCode) ([]domain.Participant, error)
}
