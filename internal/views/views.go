// Package views holds the JSON shapes returned by the HTTP API and pushed
// over the realtime channel, plus their conversions from storage models.
package views

import (
	"time"

	"github.com/oggyb/devconnect/internal/db"
)

// User is the full profile, only ever shown to its owner or on profile pages.
type User struct {
	ID         uint64    `json:"id"`
	Email      string    `json:"email,omitempty"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatarUrl"`
	Bio        string    `json:"bio"`
	Skills     []string  `json:"skills"`
	LookingFor []string  `json:"lookingFor"`
	GithubURL  string    `json:"githubUrl"`
	Theme      string    `json:"theme"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Summary is the compact user card embedded in posts, matches and events.
type Summary struct {
	ID        uint64   `json:"id"`
	Username  string   `json:"username"`
	AvatarURL string   `json:"avatarUrl"`
	Bio       string   `json:"bio,omitempty"`
	Skills    []string `json:"skills"`
	GithubURL string   `json:"githubUrl,omitempty"`
}

type Post struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Likes     int64     `json:"likes"`
	LikedByMe bool      `json:"likedByMe"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      Summary   `json:"user"`
}

type Message struct {
	ID         uint64     `json:"id"`
	ChatID     uint64     `json:"chatId"`
	SenderID   uint64     `json:"senderId"`
	ReceiverID uint64     `json:"receiverId"`
	Content    string     `json:"content"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	Sender     *Sender    `json:"sender,omitempty"`
	TempID     any        `json:"tempId,omitempty"`
}

type Sender struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

type Conversation struct {
	ID            uint64     `json:"id"`
	User          Summary    `json:"user"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	Unread        int64      `json:"unread"`
	Online        bool       `json:"online"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func FromUser(u *db.User) User {
	return User{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		Bio:        u.Bio,
		Skills:     list(u.Skills),
		LookingFor: list(u.LookingFor),
		GithubURL:  u.GithubURL,
		Theme:      theme(u.Theme),
		CreatedAt:  u.CreatedAt,
	}
}

// PublicUser is FromUser without the email address.
func PublicUser(u *db.User) User {
	v := FromUser(u)
	v.Email = ""
	return v
}

func SummaryOf(u *db.User) Summary {
	return Summary{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Skills:    list(u.Skills),
		GithubURL: u.GithubURL,
	}
}

func FromPost(p *db.Post, likedByMe bool) Post {
	return Post{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Tags:      list(p.Tags),
		Likes:     p.Likes,
		LikedByMe: likedByMe,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		User: Summary{
			ID:        p.User.ID,
			Username:  p.User.Username,
			AvatarURL: p.User.AvatarURL,
			Skills:    list(p.User.Skills),
		},
	}
}

func FromMessage(m *db.Message) Message {
	v := Message{
		ID:         m.ID,
		ChatID:     m.ConversationID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.Read,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
	if m.Sender.ID != 0 {
		v.Sender = &Sender{Username: m.Sender.Username, AvatarURL: m.Sender.AvatarURL}
	}
	return v
}

// list never returns nil so JSON carries [] instead of null.
func list(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func theme(t string) string {
	if t == "" {
		return "light"
	}
	return t
}
