package db

import (
	"time"

	"gorm.io/datatypes"
)

// Decision statuses. A decision is written once per (actor, recipient).
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// User table
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Bio          string `gorm:"type:text"`
	Skills       datatypes.JSONSlice[string]
	LookingFor   datatypes.JSONSlice[string]
	GithubURL    string `gorm:"size:255"`
	AvatarURL    string `gorm:"size:512"`
	Theme        string `gorm:"size:16;default:light"`
	Active       bool   `gorm:"default:true;index"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Post is soft-deleted through IsActive; Likes mirrors the post_likes rows
// and is updated in the same transaction as them.
type Post struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;index"`
	User      User   `gorm:"foreignKey:UserID"`
	Title     string `gorm:"size:200;not null"`
	Content   string `gorm:"type:text;not null"`
	Tags      datatypes.JSONSlice[string]
	Likes     int64     `gorm:"not null;default:0"`
	IsActive  bool      `gorm:"default:true;index:idx_posts_active_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_posts_active_created,priority:2,sort:desc"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PostLike records one like. Composite PK: at most one like per user per post.
type PostLike struct {
	PostID    uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Decision represents an actor's accept/reject decision on a recipient.
//
// Unique index: idx_decision_pair(actor_id, recipient_id)
//   - Enforces the write-once rule at the storage layer; inserts use
//     ON CONFLICT DO NOTHING and treat zero affected rows as a conflict.
//
// Indexes:
//   - idx_recipient_status_created(recipient_id, status, created_at DESC)
//     Serves the "pending for me" list with cursor pagination.
type Decision struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	ActorID     uint64    `gorm:"not null;uniqueIndex:idx_decision_pair,priority:1"`
	RecipientID uint64    `gorm:"not null;uniqueIndex:idx_decision_pair,priority:2;index:idx_recipient_status_created,priority:1"`
	Status      string    `gorm:"size:16;not null;index:idx_recipient_status_created,priority:2"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_recipient_status_created,priority:3,sort:desc"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Conversation is created once per mutual match. The pair is stored ordered
// (User1ID < User2ID) so the unique index covers the unordered pair.
type Conversation struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	User1ID       uint64 `gorm:"not null;uniqueIndex:idx_conversation_pair,priority:1"`
	User2ID       uint64 `gorm:"not null;uniqueIndex:idx_conversation_pair,priority:2;index"`
	LastMessage   string `gorm:"size:100"`
	LastMessageAt *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Peer returns the other participant, or 0 when userID is not part of the
// conversation.
func (c Conversation) Peer(userID uint64) uint64 {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return 0
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID uint64) bool {
	return userID != 0 && (userID == c.User1ID || userID == c.User2ID)
}

// Message rows are append-only apart from the read flag.
type Message struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64 `gorm:"not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       uint64 `gorm:"not null;index"`
	Sender         User   `gorm:"foreignKey:SenderID"`
	ReceiverID     uint64 `gorm:"not null;index"`
	Content        string `gorm:"type:text;not null"`
	Read           bool   `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2"`
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []any {
	return []any{&User{}, &Post{}, &PostLike{}, &Decision{}, &Conversation{}, &Message{}}
}
