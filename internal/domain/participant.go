// Package domain holds the room code and participant types together with
// their format rules: code generation and parsing, nickname validation.
package domain

import (
	"errors"
	"time"
)

const MaxNicknameLen = 50

var (
	ErrNicknameTooLong = errors.New("nickname too long")
	ErrNicknameEmpty   = errors.New("nickname empty")
)

// Participant is the persisted record created by a successful join-room request.
// It is unrelated to live connections: closing a socket never removes it.
type Participant struct {
	RoomCode RoomCode  `json:"room_code"`
	Nickname string    `json:"nickname"`
	JoinedAt time.Time `json:"joined_at"`
}

// NewParticipant avoids raw literals in adapters and keeps the nickname rules in one place.
func NewParticipant(code RoomCode, nickname string) (*Participant, error) {
	if err := ValidateNickname(nickname); err != nil {
		return nil, err
	}
	return &Participant{RoomCode: code, Nickname: nickname, JoinedAt: time.Now().UTC()}, nil
}

func ValidateNickname(nickname string) error {
	if len(nickname) == 0 {
		return ErrNicknameEmpty
	}
	if len([]rune(nickname)) > MaxNicknameLen {
		return ErrNicknameTooLong
	}
	return nil
}
