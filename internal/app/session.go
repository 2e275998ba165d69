package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/dkeye/QuickRoom/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var ErrSessionClosed = errors.New("session closed")

type State int32

const (
	StateConnected State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is the lifecycle of one connection inside its room.
// The room is fixed when the session is created.
type Session struct {
	id          core.ConnID
	room        domain.RoomCode
	registry    *core.Registry
	broadcaster *Broadcaster

	mu       sync.Mutex
	state    State
	nickname string
}

func (s *Session) ID() core.ConnID       { return s.id }
func (s *Session) Room() domain.RoomCode { return s.room }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// Handle applies one inbound event.
func (s *Session) Handle(ev protocol.Inbound) error {
	switch e := ev.(type) {
	case protocol.JoinEvent:
		return s.join(e.Nickname)
	case protocol.ChatEvent:
		return s.chat(e.Message)
	case protocol.TypingEvent:
		return s.typing(e.IsTyping)
	default:
		return fmt.Errorf("%w: unhandled event %T", protocol.ErrProtocol, ev)
	}
}

func (s *Session) join(nickname string) error {
	if nickname == "" {
		return fmt.Errorf("%w: empty nickname", protocol.ErrProtocol)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err := s.registry.SetNickname(s.room, s.id, nickname); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("join: %w", err)
	}
	s.nickname = nickname
	s.state = StateJoined
	s.mu.Unlock()

	log.Info().Str("module", "app.session").Str("room", string(s.room)).Str("sid", string(s.id)).Str("nickname", nickname).Msg("joined")
	s.broadcaster.Broadcast(s.room, protocol.SystemMessage{Message: nickname + " joined the chat."})
	s.broadcastRoster()
	return nil
}

func (s *Session) chat(message string) error {
	nickname, err := s.activeNickname()
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(s.room, protocol.ChatMessage{Nickname: nickname, Message: message})
	return nil
}

func (s *Session) typing(isTyping bool) error {
	nickname, err := s.activeNickname()
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(s.room, protocol.TypingIndicator{Nickname: nickname, IsTyping: isTyping})
	return nil
}

func (s *Session) activeNickname() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return "", ErrSessionClosed
	}
	return s.nickname, nil
}

// Close unregisters the session and sends the new roster to whoever is left.
// Only the first call has an effect. No "left" message is sent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	if !s.registry.Unregister(s.room, s.id) {
		log.Warn().Str("module", "app.session").Str("room", string(s.room)).Str("sid", string(s.id)).Msg("closing session that was not registered")
	}
	s.broadcastRoster()
	log.Info().Str("module", "app.session").Str("room", string(s.room)).Str("sid", string(s.id)).Msg("closed")
}

func (s *Session) broadcastRoster() {
	users := lo.Map(s.registry.Roster(s.room), func(e core.RosterEntry, _ int) protocol.User {
		return protocol.User{ID: string(e.ID), Nickname: e.Nickname}
	})
	s.broadcaster.Broadcast(s.room, protocol.UserList{Users: users})
}
