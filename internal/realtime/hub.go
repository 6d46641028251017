package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/auth"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/views"
)

// NotificationPreviewLength is the number of characters of a message carried
// by new-message-notification.
const NotificationPreviewLength = 50

// Conn is one client session. socketio.Conn satisfies it.
type Conn interface {
	ID() string
	Emit(event string, v ...interface{})
	Join(room string)
	Leave(room string)
}

// Broadcaster delivers an event to every session in a room, or to everyone.
type Broadcaster interface {
	ToRoom(ctx context.Context, room, event string, payload any) error
	ToAll(ctx context.Context, event string, payload any) error
}

// UserRoom is the personal room every session of a user joins.
func UserRoom(userID uint64) string { return fmt.Sprintf("user:%d", userID) }

// ChatRoom is joined by sessions that have the conversation open.
func ChatRoom(chatID uint64) string { return fmt.Sprintf("chat:%d", chatID) }

// Hub mirrors chat and match activity to connected sessions and keeps track of
// presence. It is transport agnostic; SocketServer feeds it.
type Hub struct {
	chatRepo *repository.ChatRepository
	userRepo *repository.UserRepository
	registry SessionRegistry
	out      Broadcaster
	log      *slog.Logger
	now      func() time.Time
}

func NewHub(appCtx *app.AppContext, registry SessionRegistry, out Broadcaster) *Hub {
	return &Hub{
		chatRepo: repository.NewChatRepository(appCtx.DB),
		userRepo: repository.NewUserRepository(appCtx.DB),
		registry: registry,
		out:      out,
		log:      appCtx.Logger.With("component", "realtime"),
		now:      time.Now,
	}
}

// presence is a user as shown in online lists.
type presence struct {
	UserID    uint64 `json:"userId"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	TempID  any    `json:"tempId,omitempty"`
}

func errorOf(err error, tempID any) errorPayload {
	return errorPayload{
		Message: svcErr.Message(err),
		Code:    svcErr.KindOf(err).Code(),
		TempID:  tempID,
	}
}

// Connect registers a freshly authenticated session.
func (h *Hub) Connect(ctx context.Context, c Conn, id auth.Identity) {
	c.Join(UserRoom(id.UserID))

	first, err := h.registry.Register(ctx, id.UserID, c.ID())
	if err != nil {
		h.log.Error("session register failed", "user", id.UserID, "session", c.ID(), "err", err)
	}
	online, err := h.registry.Online(ctx)
	if err != nil {
		h.log.Error("online users lookup failed", "err", err)
	}

	c.Emit(EventConnected, fields{
		"userId":      id.UserID,
		"socketId":    c.ID(),
		"onlineCount": len(online),
	})

	if first {
		h.broadcastAll(ctx, EventUserOnline, presence{UserID: id.UserID, Username: id.Username, AvatarURL: id.AvatarURL})
	}

	c.Emit(EventOnlineUsersList, h.presenceList(ctx, online))
	h.log.Info("session connected", "user", id.UserID, "session", c.ID(), "first", first)
}

// Disconnect drops the session; the user goes offline with its last session.
func (h *Hub) Disconnect(ctx context.Context, c Conn, id auth.Identity, reason string) {
	last, err := h.registry.Deregister(ctx, id.UserID, c.ID())
	if err != nil {
		h.log.Error("session deregister failed", "user", id.UserID, "session", c.ID(), "err", err)
	}
	if last {
		h.broadcastAll(ctx, EventUserOffline, fields{"userId": id.UserID})
	}

	online, err := h.registry.Online(ctx)
	if err == nil {
		h.broadcastAll(ctx, EventOnlineUsersCount, len(online))
	}
	h.log.Info("session disconnected", "user", id.UserID, "session", c.ID(), "reason", reason, "last", last)
}

func (h *Hub) presenceList(ctx context.Context, ids []uint64) []presence {
	out := make([]presence, 0, len(ids))
	users, err := h.userRepo.ByIDs(ctx, ids)
	if err != nil {
		h.log.Warn("online users profile lookup failed", "err", err)
	}
	for _, uid := range ids {
		p := presence{UserID: uid}
		if u, ok := users[uid]; ok {
			p.Username, p.AvatarURL = u.Username, u.AvatarURL
		}
		out = append(out, p)
	}
	return out
}

// Dispatch handles one inbound event from c. Failures are reported to c only.
func (h *Hub) Dispatch(ctx context.Context, c Conn, id auth.Identity, eventType string, raw json.RawMessage) {
	env, err := Decode(eventType, raw)
	if err != nil {
		c.Emit(EventError, errorOf(err, nil))
		return
	}

	switch env.Type {
	case EventJoin:
		c.Join(UserRoom(id.UserID))

	case EventJoinChat:
		var ref ChatRef
		if err := env.Bind(&ref); err != nil {
			c.Emit(EventError, errorOf(err, nil))
			return
		}
		if err := h.JoinChat(ctx, c, id, ref.ChatID); err != nil {
			c.Emit(EventError, errorOf(err, nil))
		}

	case EventLeaveChat:
		var ref ChatRef
		if err := env.Bind(&ref); err != nil {
			c.Emit(EventError, errorOf(err, nil))
			return
		}
		c.Leave(ChatRoom(ref.ChatID))

	case EventSendMessage:
		var p SendMessagePayload
		if err := env.Bind(&p); err != nil {
			c.Emit(EventMessageError, errorOf(err, p.TempID))
			return
		}
		if _, err := h.SendMessage(ctx, id, p.ChatID, p.Content, p.TempID); err != nil {
			c.Emit(EventMessageError, errorOf(err, p.TempID))
		}

	case EventTypingStart, EventTypingStop:
		var ref ChatRef
		if err := env.Bind(&ref); err != nil {
			c.Emit(EventError, errorOf(err, nil))
			return
		}
		if err := h.Typing(ctx, id, ref.ChatID, env.Type == EventTypingStart); err != nil {
			c.Emit(EventError, errorOf(err, nil))
		}

	case EventMarkRead:
		var ref ChatRef
		if err := env.Bind(&ref); err != nil {
			c.Emit(EventError, errorOf(err, nil))
			return
		}
		if _, err := h.MarkRead(ctx, id.UserID, ref.ChatID); err != nil {
			c.Emit(EventError, errorOf(err, nil))
		}
	}
}

// participantConversation loads chatID and checks userID takes part in it.
// Unknown conversations are reported like foreign ones.
func (h *Hub) participantConversation(ctx context.Context, userID, chatID uint64) (*db.Conversation, error) {
	conv, err := h.chatRepo.Conversation(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.PermissionDenied("Access denied to this chat")
		}
		return nil, svcErr.Map(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, svcErr.PermissionDenied("Access denied to this chat")
	}
	return conv, nil
}

// JoinChat subscribes c to the conversation room and announces it there.
func (h *Hub) JoinChat(ctx context.Context, c Conn, id auth.Identity, chatID uint64) error {
	if _, err := h.participantConversation(ctx, id.UserID, chatID); err != nil {
		return err
	}
	c.Join(ChatRoom(chatID))
	h.broadcast(ctx, ChatRoom(chatID), EventUserJoinedChat, fields{
		"userId":   id.UserID,
		"username": id.Username,
		"chatId":   chatID,
	})
	return nil
}

// SendMessage stores a message from the sender and fans it out.
//
// Behavior:
//   - The sender must be a participant, else PermissionDenied and nothing is
//     stored or sent.
//   - The message and the conversation preview are written in one transaction.
//   - receive-message goes to the conversation room (with tempID echoed back);
//     new-message-notification goes to the peer's personal room.
//   - Storage failures surface as "Failed to send message".
func (h *Hub) SendMessage(ctx context.Context, from auth.Identity, chatID uint64, content string, tempID any) (*views.Message, error) {
	content = strings.TrimSpace(content)
	if chatID == 0 || content == "" {
		return nil, svcErr.InvalidArgument("Chat ID and message content required")
	}

	conv, err := h.participantConversation(ctx, from.UserID, chatID)
	if err != nil {
		return nil, err
	}

	msg, err := h.chatRepo.AppendMessage(ctx, conv, from.UserID, content)
	if err != nil {
		h.log.Error("message persist failed", "chat", chatID, "sender", from.UserID, "err", err)
		return nil, svcErr.Internal("Failed to send message", err)
	}

	view := views.FromMessage(msg)
	view.Sender = &views.Sender{Username: from.Username, AvatarURL: from.AvatarURL}
	view.TempID = tempID

	h.broadcast(ctx, ChatRoom(chatID), EventReceiveMessage, view)
	h.broadcast(ctx, UserRoom(msg.ReceiverID), EventMessageNotice, fields{
		"chatId":     chatID,
		"senderId":   from.UserID,
		"senderName": from.Username,
		"preview":    repository.TruncateRunes(content, NotificationPreviewLength),
		"timestamp":  msg.CreatedAt,
	})

	view.TempID = nil
	return &view, nil
}

// Typing relays a typing indicator to the conversation room. Only
// participants may signal. The sender's own sessions receive it too and are
// expected to ignore their own userId.
func (h *Hub) Typing(ctx context.Context, id auth.Identity, chatID uint64, typing bool) error {
	if _, err := h.participantConversation(ctx, id.UserID, chatID); err != nil {
		return err
	}
	if typing {
		h.broadcast(ctx, ChatRoom(chatID), EventUserTyping, fields{
			"userId":   id.UserID,
			"username": id.Username,
			"chatId":   chatID,
		})
		return nil
	}
	h.broadcast(ctx, ChatRoom(chatID), EventUserStopTyping, fields{
		"userId": id.UserID,
		"chatId": chatID,
	})
	return nil
}

// MarkRead flags every unread message in chatID not sent by readerID and tells
// the peer. It returns the number of messages marked.
func (h *Hub) MarkRead(ctx context.Context, readerID, chatID uint64) (int64, error) {
	conv, err := h.participantConversation(ctx, readerID, chatID)
	if err != nil {
		return 0, err
	}

	at := h.now().UTC()
	n, err := h.chatRepo.MarkRead(ctx, chatID, readerID, at)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	h.broadcast(ctx, UserRoom(conv.Peer(readerID)), EventMessagesRead, fields{
		"chatId":    chatID,
		"readerId":  readerID,
		"count":     n,
		"timestamp": at,
	})
	return n, nil
}

// NotifyMatch tells both users about their new conversation.
func (h *Hub) NotifyMatch(ctx context.Context, chatID uint64, a, b db.User) {
	payload := fields{
		"chatId":    chatID,
		"users":     []views.Summary{views.SummaryOf(&a), views.SummaryOf(&b)},
		"timestamp": h.now().UTC(),
	}
	h.broadcast(ctx, UserRoom(a.ID), EventNewMatch, payload)
	h.broadcast(ctx, UserRoom(b.ID), EventNewMatch, payload)
}

// IsOnline reports whether userID has a live session.
func (h *Hub) IsOnline(ctx context.Context, userID uint64) bool {
	sessions, err := h.registry.Sessions(ctx, userID)
	return err == nil && len(sessions) > 0
}

func (h *Hub) broadcast(ctx context.Context, room, event string, payload any) {
	if err := h.out.ToRoom(ctx, room, event, payload); err != nil {
		h.log.Warn("broadcast failed", "room", room, "event", event, "err", err)
	}
}

func (h *Hub) broadcastAll(ctx context.Context, event string, payload any) {
	if err := h.out.ToAll(ctx, event, payload); err != nil {
		h.log.Warn("broadcast failed", "event", event, "err", err)
	}
}

// fields is a loosely shaped event payload.
type fields = map[string]any
