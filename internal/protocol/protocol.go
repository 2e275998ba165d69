// Package protocol defines the JSON frames exchanged over a chat connection.
//
// Inbound and Outbound are closed sets: every frame type is a struct in this
// package and Decode / Encode hold the only type switches over them.
package protocol

import "errors"

// ErrProtocol marks a frame that is malformed, incomplete or of unknown type.
var ErrProtocol = errors.New("protocol error")

type Type string

const (
	TypeJoin            Type = "join"
	TypeChatMessage     Type = "chat_message"
	TypeTypingIndicator Type = "typing_indicator"
	TypeSystemMessage   Type = "system_message"
	TypeUserList        Type = "user_list"
)

// Inbound is a decoded client frame.
type Inbound interface {
	Type() Type
	inbound()
}

type JoinEvent struct {
	Nickname string
}

type ChatEvent struct {
	Message string
}

type TypingEvent struct {
	IsTyping bool
}

func (JoinEvent) Type() Type   { return TypeJoin }
func (ChatEvent) Type() Type   { return TypeChatMessage }
func (TypingEvent) Type() Type { return TypeTypingIndicator }

func (JoinEvent) inbound()   {}
func (ChatEvent) inbound()   {}
func (TypingEvent) inbound() {}

// Outbound is an event fanned out to the members of a room.
type Outbound interface {
	Type() Type
	outbound()
}

type ChatMessage struct {
	Nickname string
	Message  string
}

type SystemMessage struct {
	Message string
}

type TypingIndicator struct {
	Nickname string
	IsTyping bool
}

// User is one roster line as sent to clients.
type User struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type UserList struct {
	Users []User
}

func (ChatMessage) Type() Type     { return TypeChatMessage }
func (SystemMessage) Type() Type   { return TypeSystemMessage }
func (TypingIndicator) Type() Type { return TypeTypingIndicator }
func (UserList) Type() Type        { return TypeUserList }

func (ChatMessage) outbound()     {}
func (SystemMessage) outbound()   {}
func (TypingIndicator) outbound() {}
func (UserList) outbound()        {}
