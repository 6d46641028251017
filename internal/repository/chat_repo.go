package repository

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devconnect/internal/db"
)

// PreviewLength is the number of characters kept in Conversation.LastMessage.
const PreviewLength = 100

// ChatRepository stores conversations and their messages.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{db: tx}
}

func orderedPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// EnsureConversation returns the conversation of the unordered pair {a, b},
// creating it when missing. created is true only for the call that inserted.
func (r *ChatRepository) EnsureConversation(ctx context.Context, a, b uint64) (conv *db.Conversation, created bool, err error) {
	u1, u2 := orderedPair(a, b)
	c := db.Conversation{User1ID: u1, User2ID: u2}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&c)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &c, true, nil
	}

	existing, err := r.FindConversation(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Conversation loads a conversation by id.
func (r *ChatRepository) Conversation(ctx context.Context, id uint64) (*db.Conversation, error) {
	var c db.Conversation
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConversation loads the conversation of the unordered pair {a, b}.
func (r *ChatRepository) FindConversation(ctx context.Context, a, b uint64) (*db.Conversation, error) {
	u1, u2 := orderedPair(a, b)
	var c db.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConversationsByPeer maps each peer of userID to the shared conversation id.
func (r *ChatRepository) ConversationsByPeer(ctx context.Context, userID uint64) (map[uint64]uint64, error) {
	convs, err := r.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]uint64, len(convs))
	for _, c := range convs {
		out[c.Peer(userID)] = c.ID
	}
	return out, nil
}

// ListConversations returns userID's conversations, most recent activity first.
func (r *ChatRepository) ListConversations(ctx context.Context, userID uint64) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Find(&convs).Error
	return convs, err
}

// UnreadCounts returns, per conversation, how many messages addressed to
// userID are still unread.
func (r *ChatRepository) UnreadCounts(ctx context.Context, userID uint64, convIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID uint64
		Unread         int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ? AND conversation_id IN ?", userID, false, convIDs).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}

// AppendMessage persists a message from senderID into conv and refreshes the
// conversation preview in the same transaction.
func (r *ChatRepository) AppendMessage(ctx context.Context, conv *db.Conversation, senderID uint64, content string) (*db.Message, error) {
	msg := db.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.Peer(senderID),
		Content:        content,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return err
		}
		at := msg.CreatedAt
		return tx.Model(&db.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]any{
				"last_message":    TruncateRunes(content, PreviewLength),
				"last_message_at": &at,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead flags every unread message of the conversation that readerID did
// not send. It returns the number of rows changed.
func (r *ChatRepository) MarkRead(ctx context.Context, convID, readerID uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// History returns every message exchanged between a and b, oldest first.
func (r *ChatRepository) History(ctx context.Context, a, b uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// TruncateRunes keeps at most n characters of s, never splitting a rune.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
