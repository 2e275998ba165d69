package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_Valid_Frames(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{"join", `{"type":"join","nickname":"Alice"}`, JoinEvent{Nickname: "Alice"}},
		{"join with extra room_code", `{"type":"join","nickname":"Alice","room_code":"AB12C3"}`, JoinEvent{Nickname: "Alice"}},
		{"chat", `{"type":"chat_message","message":"hi <b>there</b>"}`, ChatEvent{Message: "hi <b>there</b>"}},
		{"empty chat is kept", `{"type":"chat_message","message":""}`, ChatEvent{Message: ""}},
		{"typing on", `{"type":"typing_indicator","is_typing":true}`, TypingEvent{IsTyping: true}},
		{"typing off", `{"type":"typing_indicator","is_typing":false}`, TypingEvent{IsTyping: false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.frame))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_Rejects_Bad_Frames(t *testing.T) {
	cases := map[string]string{
		"not json":          `hello`,
		"array":             `[1,2]`,
		"null":              `null`,
		"missing type":      `{"nickname":"Alice"}`,
		"type not a string": `{"type":5}`,
		"unknown type":      `{"type":"leave"}`,
		"outbound type":     `{"type":"user_list","users":[]}`,
		"join no nickname":  `{"type":"join"}`,
		"join empty":        `{"type":"join","nickname":""}`,
		"chat no message":   `{"type":"chat_message"}`,
		"chat null message": `{"type":"chat_message","message":null}`,
		"typing no flag":    `{"type":"typing_indicator"}`,
		"typing bad flag":   `{"type":"typing_indicator","is_typing":"yes"}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			require.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		ev   Outbound
		want string
	}{
		{"chat", ChatMessage{Nickname: "Alice", Message: "hi"}, `{"type":"chat_message","nickname":"Alice","message":"hi"}`},
		{"chat before join", ChatMessage{Message: "hi"}, `{"type":"chat_message","nickname":"","message":"hi"}`},
		{"system", SystemMessage{Message: "Alice joined the chat."}, `{"type":"system_message","message":"Alice joined the chat."}`},
		{"typing", TypingIndicator{Nickname: "Bob", IsTyping: true}, `{"type":"typing_indicator","nickname":"Bob","is_typing":true}`},
		{"user list", UserList{Users: []User{{ID: "c1", Nickname: "Alice"}, {ID: "c3"}}},
			`{"type":"user_list","users":[{"id":"c1","nickname":"Alice"},{"id":"c3","nickname":""}]}`},
		{"empty user list", UserList{}, `{"type":"user_list","users":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.ev)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(got))
		})
	}
}
