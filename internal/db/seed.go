package db

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devconnect/internal/logger"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

var (
	seedSkills = []string{
		"Go", "React", "TypeScript", "Python", "Rust", "PostgreSQL", "Docker",
		"Kubernetes", "GraphQL", "Node.js", "AWS", "Figma", "Swift", "Kotlin",
	}
	seedBios = []string{
		"Backend engineer who enjoys building distributed systems and clean APIs",
		"Frontend developer passionate about design systems and accessible interfaces",
		"Full stack developer building side projects on weekends, open source contributor",
		"Mobile developer looking for collaborators on a fitness tracking app",
		"Data engineer who loves streaming pipelines and distributed systems",
		"Designer turned developer, passionate about interfaces and product thinking",
	}
	seedTitles = []string{
		"Looking for a co-founder", "Shipping my first Go service", "Weekend hackathon team?",
		"Thoughts on server components", "Open source maintainers wanted", "Pairing on Rust this week",
	}
)

// SeedTestData resets the database and populates it with demo developers,
// posts, decisions and conversations.
//
// Behavior:
//  1. Clears existing data in every table.
//  2. Creates 20 users with hashed passwords and random skill sets.
//  3. Creates 2 posts per user.
//  4. Generates decisions with ~70% accepts; every 3rd pair is made mutual
//     and gets a conversation.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(db); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed Users ---
	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		username := fmt.Sprintf("dev%d", i)
		lastLogin := time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour)
		user := User{
			Username:     username,
			Email:        fmt.Sprintf("dev%d@example.com", i),
			PasswordHash: string(hash),
			Bio:          seedBios[r.Intn(len(seedBios))],
			Skills:       pick(r, seedSkills, 3),
			LookingFor:   pick(r, seedSkills, 2),
			GithubURL:    "https://github.com/" + username,
			AvatarURL:    DefaultAvatarURL(username),
			LastLoginAt:  &lastLogin,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	logger.Info("seeded users", "count", len(users))

	// --- Seed Posts ---
	for _, u := range users {
		for j := 0; j < 2; j++ {
			post := Post{
				UserID:  u.ID,
				Title:   seedTitles[r.Intn(len(seedTitles))],
				Content: fmt.Sprintf("%s here. %s", u.Username, u.Bio),
				Tags:    pick(r, u.Skills, 2),
			}
			if err := db.Omit(clause.Associations).Create(&post).Error; err != nil {
				return fmt.Errorf("failed to seed post: %w", err)
			}
		}
	}

	// --- Seed Decisions ---
	counter, mutual := 0, 0
	for _, actor := range users {
		for j := 0; j < 8; j++ { // each user decides on ~8 others
			recipient := users[r.Intn(len(users))]
			if actor.ID == recipient.ID {
				continue
			}

			status := StatusRejected
			if r.Intn(100) < 70 {
				status = StatusAccepted
			}

			// guarantee a mutual match every 3rd pair
			if counter%3 == 0 {
				status = StatusAccepted
				if err := insertDecision(db, recipient.ID, actor.ID, StatusAccepted); err != nil {
					return err
				}
			}
			if err := insertDecision(db, actor.ID, recipient.ID, status); err != nil {
				return err
			}
			counter++
		}
	}

	// Conversations for every mutual pair, whichever way it came about.
	var pairs []struct{ A, B uint64 }
	if err := db.Raw(`
		SELECT d1.actor_id AS a, d1.recipient_id AS b
		FROM decisions d1
		JOIN decisions d2 ON d2.actor_id = d1.recipient_id AND d2.recipient_id = d1.actor_id
		WHERE d1.status = ? AND d2.status = ? AND d1.actor_id < d1.recipient_id`,
		StatusAccepted, StatusAccepted).Scan(&pairs).Error; err != nil {
		return fmt.Errorf("failed to load mutual pairs: %w", err)
	}
	for _, p := range pairs {
		conv := Conversation{User1ID: p.A, User2ID: p.B}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
			return fmt.Errorf("failed to seed conversation: %w", err)
		}
		mutual++
	}
	logger.Info("seeded decisions", "decisions", counter, "conversations", mutual)

	return nil
}

// SeedMinimalTestData writes a small fixed graph used by tests:
//
//	user1 ⇄ user2 mutual (conversation exists)
//	user3 → user1 accepted, unanswered
//	user1 → user3 is absent, so user3 is pending for user1
//	user4 has no decisions at all
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearAll(db); err != nil {
		return err
	}

	users := []User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Bio: "golang backend developer", Skills: []string{"Go", "SQL"}, LookingFor: []string{"React"}},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Bio: "react frontend developer", Skills: []string{"React"}, LookingFor: []string{"Go"}},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Skills: []string{"Python"}},
		{ID: 4, Username: "user4", Email: "u4@test.com", PasswordHash: "x", Skills: []string{"Go"}},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	decisions := []Decision{
		{ActorID: 1, RecipientID: 2, Status: StatusAccepted}, // user1 → user2
		{ActorID: 2, RecipientID: 1, Status: StatusAccepted}, // user2 → user1 → mutual
		{ActorID: 3, RecipientID: 1, Status: StatusAccepted}, // user3 → user1, not answered
	}
	if err := db.Create(&decisions).Error; err != nil {
		return err
	}

	return db.Create(&Conversation{User1ID: 1, User2ID: 2}).Error
}

// DefaultAvatarURL is the generated avatar assigned on registration.
func DefaultAvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username
}

func insertDecision(db *gorm.DB, actorID, recipientID uint64, status string) error {
	d := Decision{ActorID: actorID, RecipientID: recipientID, Status: status}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error; err != nil {
		return fmt.Errorf("failed to seed decision: %w", err)
	}
	return nil
}

func clearAll(db *gorm.DB) error {
	for _, table := range []string{"messages", "conversations", "decisions", "post_likes", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"messages", "conversations", "decisions", "posts", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}
	return nil
}

func pick(r *rand.Rand, from []string, n int) []string {
	if n > len(from) {
		n = len(from)
	}
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(from))[:n] {
		out = append(out, from[i])
	}
	return out
}
