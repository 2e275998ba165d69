package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RoomCodeLen is the length of generated room codes.
const RoomCodeLen = 6

// RoomCode is the short opaque identifier clients use to address a room.
type RoomCode string

// NewRoomCode returns a fresh upper-case hex code such as "AB12C3".
// Uniqueness is checked by whoever persists it.
func NewRoomCode() RoomCode {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RoomCode(strings.ToUpper(hex[:RoomCodeLen]))
}

// ParseRoomCode normalizes a code taken from a URL or request body.
func ParseRoomCode(raw string) RoomCode {
	return RoomCode(strings.Trim(strings.TrimSpace(raw), "/"))
}
