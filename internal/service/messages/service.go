package messages

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/auth"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/views"
)

// Chat is the realtime side of messaging. Sending and marking read over HTTP
// go through it so socket clients see the same events either way.
type Chat interface {
	SendMessage(ctx context.Context, from auth.Identity, chatID uint64, content string, tempID any) (*views.Message, error)
	MarkRead(ctx context.Context, readerID, chatID uint64) (int64, error)
	IsOnline(ctx context.Context, userID uint64) bool
}

// Service exposes chat history and conversations over HTTP.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	chatRepo *repository.ChatRepository
	chat     Chat
}

func NewMessageService(appCtx *app.AppContext, chat Chat) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		chatRepo: repository.NewChatRepository(appCtx.DB),
		chat:     chat,
	}
}

// History returns every message between userID and otherID, oldest first.
// Users who never talked get an empty list.
func (s *Service) History(ctx context.Context, userID, otherID uint64) ([]views.Message, error) {
	msgs, err := s.chatRepo.History(ctx, userID, otherID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]views.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, views.FromMessage(&msgs[i]))
	}
	return out, nil
}

// Send delivers content to receiverID. Only mutual matches share a
// conversation, so anyone else is refused.
func (s *Service) Send(ctx context.Context, from auth.Identity, receiverID uint64, content string) (*views.Message, error) {
	if receiverID == 0 || strings.TrimSpace(content) == "" {
		return nil, svcErr.InvalidArgument("Receiver ID and message content required")
	}
	conv, err := s.chatRepo.FindConversation(ctx, from.UserID, receiverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.PermissionDenied("You can only message your matches")
		}
		return nil, svcErr.Map(err)
	}
	return s.chat.SendMessage(ctx, from, conv.ID, content, nil)
}

// MarkRead flags otherID's messages to readerID as read and returns how many
// changed.
func (s *Service) MarkRead(ctx context.Context, readerID, otherID uint64) (int64, error) {
	conv, err := s.chatRepo.FindConversation(ctx, readerID, otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, svcErr.NotFound("Conversation not found")
		}
		return 0, svcErr.Map(err)
	}
	return s.chat.MarkRead(ctx, readerID, conv.ID)
}

// Conversations lists userID's chats, most recent activity first, with the
// peer card, last message preview, unread count and presence.
func (s *Service) Conversations(ctx context.Context, userID uint64) ([]views.Conversation, error) {
	convs, err := s.chatRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	peerIDs := make([]uint64, 0, len(convs))
	convIDs := make([]uint64, 0, len(convs))
	for _, c := range convs {
		peerIDs = append(peerIDs, c.Peer(userID))
		convIDs = append(convIDs, c.ID)
	}
	peers, err := s.userRepo.ByIDs(ctx, peerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	unread, err := s.chatRepo.UnreadCounts(ctx, userID, convIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]views.Conversation, 0, len(convs))
	for _, c := range convs {
		peer, ok := peers[c.Peer(userID)]
		if !ok || !peer.Active {
			continue
		}
		out = append(out, views.Conversation{
			ID:            c.ID,
			User:          views.SummaryOf(&peer),
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
			Unread:        unread[c.ID],
			Online:        s.chat.IsOnline(ctx, peer.ID),
			CreatedAt:     c.CreatedAt,
		})
	}
	return out, nil
}
