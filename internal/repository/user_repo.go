package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/db"
)

// searchScanLimit bounds how many rows a skill search inspects before the
// in-process skill filter runs.
const searchScanLimit = 500

// UserRepository wraps the users table. Users are never hard-deleted;
// "active" is the visibility switch.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts u. Duplicate email or username surface as
// gorm.ErrDuplicatedKey when the connection translates errors.
func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	u.Skills = NormalizeSet(u.Skills)
	u.LookingFor = NormalizeSet(u.LookingFor)
	return r.db.WithContext(ctx).Create(u).Error
}

// GetByID returns the user regardless of the active flag.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActiveByID returns gorm.ErrRecordNotFound for unknown and inactive users.
func (r *UserRepository) GetActiveByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmailOrUsername returns the first user holding either identifier.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UsernameTaken reports whether another user already holds username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, exceptID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	return count > 0, err
}

// ProfileUpdate holds optional profile fields; nil means "keep current".
type ProfileUpdate struct {
	Username   *string
	Bio        *string
	Skills     []string
	LookingFor []string
	GithubURL  *string
	AvatarURL  *string
	Theme      *string
}

// UpdateProfile applies the non-nil fields of p to an active user and
// returns the stored row.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) (*db.User, error) {
	updates := map[string]any{}
	if p.Username != nil {
		updates["username"] = *p.Username
	}
	if p.Bio != nil {
		updates["bio"] = *p.Bio
	}
	if p.Skills != nil {
		updates["skills"] = datatypes.JSONSlice[string](NormalizeSet(p.Skills))
	}
	if p.LookingFor != nil {
		updates["looking_for"] = datatypes.JSONSlice[string](NormalizeSet(p.LookingFor))
	}
	if p.GithubURL != nil {
		updates["github_url"] = *p.GithubURL
	}
	if p.AvatarURL != nil {
		updates["avatar_url"] = *p.AvatarURL
	}
	if p.Theme != nil {
		updates["theme"] = *p.Theme
	}

	var u db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND active = ?", id, true).First(&u).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&u).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Deactivate soft-disables the account.
func (r *UserRepository) Deactivate(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLogin stamps the last successful login.
func (r *UserRepository) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ByIDs loads users keyed by id. Missing ids are simply absent.
func (r *UserRepository) ByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Search finds active users other than requesterID whose username or bio
// contains q, optionally holding skill. Both matches are case-insensitive.
//
// The skill filter runs in Go because JSON containment differs per dialect.
func (r *UserRepository) Search(ctx context.Context, requesterID uint64, q, skill string, limit int) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Where("id <> ? AND active = ?", requesterID, true).
		Order("username ASC")

	if q = strings.TrimSpace(strings.ToLower(q)); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.Where("(LOWER(username) LIKE ? ESCAPE '!' OR LOWER(bio) LIKE ? ESCAPE '!')", like, like)
	}

	skill = strings.TrimSpace(skill)
	if skill == "" {
		query = query.Limit(limit)
	} else {
		query = query.Limit(searchScanLimit)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	if skill == "" {
		return users, nil
	}

	out := make([]db.User, 0, limit)
	for _, u := range users {
		if hasFold(u.Skills, skill) {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Candidates returns up to limit active users in random order, excluding the
// requester and anyone with a decision involving the requester in either
// direction.
func (r *UserRepository) Candidates(ctx context.Context, requesterID uint64, limit int) ([]db.User, error) {
	decided := r.db.
		Table("decisions d").
		Select("1").
		Where("(d.actor_id = ? AND d.recipient_id = users.id) OR (d.recipient_id = ? AND d.actor_id = users.id)",
			requesterID, requesterID)

	var users []db.User
	err := r.db.WithContext(ctx).
		Where("users.id <> ? AND users.active = ?", requesterID, true).
		Where("NOT EXISTS (?)", decided).
		Order(randomOrder(r.db)).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func randomOrder(database *gorm.DB) string {
	if database.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// NormalizeSet trims entries, drops empty ones and removes duplicates while
// keeping first-seen order.
func NormalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func hasFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
