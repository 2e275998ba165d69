package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type envelope struct {
	Type Type `json:"type"`
}

type joinPayload struct {
	Nickname string `json:"nickname" validate:"required"`
}

type chatPayload struct {
	Message *string `json:"message" validate:"required"`
}

type typingPayload struct {
	IsTyping *bool `json:"is_typing" validate:"required"`
}

// Decode parses one client frame. Every failure wraps ErrProtocol.
// Unknown fields are ignored; message text is kept verbatim.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	switch env.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrProtocol)
	case TypeJoin:
		var p joinPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		return JoinEvent{Nickname: p.Nickname}, nil
	case TypeChatMessage:
		var p chatPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		return ChatEvent{Message: *p.Message}, nil
	case TypeTypingIndicator:
		var p typingPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		return TypingEvent{IsTyping: *p.IsTyping}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrProtocol, env.Type)
	}
}

func decodePayload(data []byte, p any) error {
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// Encode renders an outbound event as a text frame.
func Encode(ev Outbound) ([]byte, error) {
	switch e := ev.(type) {
	case ChatMessage:
		return json.Marshal(struct {
			Type     Type   `json:"type"`
			Nickname string `json:"nickname"`
			Message  string `json:"message"`
		}{e.Type(), e.Nickname, e.Message})
	case SystemMessage:
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Message string `json:"message"`
		}{e.Type(), e.Message})
	case TypingIndicator:
		return json.Marshal(struct {
			Type     Type   `json:"type"`
			Nickname string `json:"nickname"`
			IsTyping bool   `json:"is_typing"`
		}{e.Type(), e.Nickname, e.IsTyping})
	case UserList:
		users := e.Users
		if users == nil {
			users = []User{}
		}
		return json.Marshal(struct {
			Type  Type   `json:"type"`
			Users []User `json:"users"`
		}{e.Type(), users})
	default:
		return nil, fmt.Errorf("encode: unsupported event %T", ev)
	}
}
