package core

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/domain"
)

// Event types on the wire. Every frame is a JSON object with a "type" field.
const (
	TypeJoin        = "join"
	TypeSendMessage = "sendMessage"
	TypePing        = "ping"
	TypeWhoAmI      = "whoami"

	TypeOnlineUsers = "onlineUsers"
	TypeUserJoined  = "userJoined"
	TypeUserLeft    = "userLeft"
	TypeNewMessage  = "newMessage"
	TypePong        = "pong"
	TypeError       = "error"
)

// Inbound payloads.

type JoinPayload struct {
	Type string `json:"type"`
	Name string `json:"name" validate:"max=256"`
}

type SendMessagePayload struct {
	Type    string `json:"type"`
	To      string `json:"to" validate:"required,max=256"`
	Message string `json:"message" validate:"required"`
}

// Outbound events.

type OnlineUsersEvent struct {
	Type  string               `json:"type"`
	Users []domain.DisplayName `json:"users"`
}

type UserJoinedEvent struct {
	Type string             `json:"type"`
	Name domain.DisplayName `json:"name"`
}

type UserLeftEvent struct {
	Type string             `json:"type"`
	Name domain.DisplayName `json:"name"`
}

type NewMessageEvent struct {
	Type string             `json:"type"`
	From domain.DisplayName `json:"from"`
	Text string             `json:"text"`
	Time string             `json:"time"`
}

type WhoAmIEvent struct {
	Type   string             `json:"type"`
	Name   domain.DisplayName `json:"name,omitempty"`
	Joined bool               `json:"joined"`
}

type PongEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func OnlineUsers(names []domain.DisplayName) OnlineUsersEvent {
	if names == nil {
		names = []domain.DisplayName{}
	}
	return OnlineUsersEvent{Type: TypeOnlineUsers, Users: names}
}

func UserJoined(name domain.DisplayName) UserJoinedEvent {
	return UserJoinedEvent{Type: TypeUserJoined, Name: name}
}

func UserLeft(name domain.DisplayName) UserLeftEvent {
	return UserLeftEvent{Type: TypeUserLeft, Name: name}
}

func NewMessage(env domain.Envelope) NewMessageEvent {
	return NewMessageEvent{Type: TypeNewMessage, From: env.From, Text: env.Text, Time: env.Time}
}

func Pong() PongEvent {
	return PongEvent{Type: TypePong}
}

func WhoAmI(name domain.DisplayName, joined bool) WhoAmIEvent {
	return WhoAmIEvent{Type: TypeWhoAmI, Name: name, Joined: joined}
}

func ErrorFrame(msg string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: msg}
}

// Encode marshals an outbound event into a frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
