package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	svcErr "github.com/oggyb/devconnect/internal/errors"
)

// Inbound event names.
const (
	EventJoin         = "join"
	EventJoinChat     = "join-chat"
	EventLeaveChat    = "leave-chat"
	EventSendMessage  = "send-message"
	EventTypingStart  = "typing-start"
	EventTypingStop   = "typing-stop"
	EventMarkRead     = "mark-messages-read"
)

// Outbound event names.
const (
	EventConnected        = "connected"
	EventUserOnline       = "user-online"
	EventUserOffline      = "user-offline"
	EventOnlineUsersList  = "online-users-list"
	EventOnlineUsersCount = "online-users-count"
	EventUserJoinedChat   = "user-joined-chat"
	EventReceiveMessage   = "receive-message"
	EventMessageNotice    = "new-message-notification"
	EventMessageError     = "message-error"
	EventUserTyping       = "user-typing"
	EventUserStopTyping   = "user-stop-typing"
	EventMessagesRead     = "messages-read"
	EventNewMatch         = "new-match"
	EventError            = "error"
)

// InboundEvents lists every event a client may send.
var InboundEvents = []string{
	EventJoin,
	EventJoinChat,
	EventLeaveChat,
	EventSendMessage,
	EventTypingStart,
	EventTypingStop,
	EventMarkRead,
}

// Envelope is the normalized form of every inbound event.
type Envelope struct {
	Type    string          `json:"type" validate:"required,oneof=join join-chat leave-chat send-message typing-start typing-stop mark-messages-read"`
	Payload json.RawMessage `json:"payload"`
}

// ChatRef addresses a conversation.
type ChatRef struct {
	ChatID uint64 `json:"chatId" validate:"required"`
}

type SendMessagePayload struct {
	ChatID  uint64 `json:"chatId" validate:"required"`
	Content string `json:"content" validate:"required,max=5000"`
	TempID  any    `json:"tempId,omitempty"`
}

var validate = validator.New()

// Decode builds a validated envelope. Clients send chat-scoped events either
// as an object or as a bare chat id; a bare id (number or numeric string) is
// rewritten to {"chatId": id}.
func Decode(eventType string, raw json.RawMessage) (Envelope, error) {
	env := Envelope{Type: eventType, Payload: normalizePayload(raw)}
	if err := validate.Struct(env); err != nil {
		return Envelope{}, svcErr.InvalidArgument(fmt.Sprintf("Unknown event %q", eventType))
	}
	return env, nil
}

// Bind unmarshals the payload into dst and validates it.
func (e Envelope) Bind(dst any) error {
	if len(e.Payload) == 0 {
		return svcErr.InvalidArgument("Missing payload")
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return svcErr.InvalidArgument("Malformed payload")
	}
	if err := validate.Struct(dst); err != nil {
		return svcErr.InvalidArgument(validationMessage(err))
	}
	return nil
}

func normalizePayload(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var id uint64
	switch trimmed[0] {
	case '"':
		var s string
		if json.Unmarshal(trimmed, &s) != nil {
			return trimmed
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return trimmed
		}
		id = n
	case '{', '[':
		return trimmed
	default:
		if json.Unmarshal(trimmed, &id) != nil {
			return trimmed
		}
	}
	return json.RawMessage(`{"chatId":` + strconv.FormatUint(id, 10) + `}`)
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid payload"
	}
	fe := verrs[0]
	switch {
	case fe.Tag() == "max":
		return "Message is too long"
	case strings.HasPrefix(fe.StructNamespace(), "SendMessagePayload."):
		return "Chat ID and message content required"
	case fe.Field() == "ChatID":
		return "Chat ID required"
	}
	return "Invalid payload"
}
