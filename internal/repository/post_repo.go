package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/utils/pagination"
)

// PostRepository provides data access for posts and their likes.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(database *gorm.DB) *PostRepository {
	return &PostRepository{db: database}
}

// Create inserts p and loads its author.
func (r *PostRepository) Create(ctx context.Context, p *db.Post) error {
	p.Tags = NormalizeSet(p.Tags)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return tx.First(&p.User, p.UserID).Error
	})
}

// GetActive returns an active post with its author.
func (r *PostRepository) GetActive(ctx context.Context, id uint64) (*db.Post, error) {
	var p db.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns active posts newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *PostRepository) List(
	ctx context.Context,
	paginationToken *string,
	limit int,
) ([]db.Post, *string, error) {
	var posts []db.Post

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, cursor.ID)
	}

	if err := query.Find(&posts).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(posts) > limit {
		last := posts[limit-1]
		token, _ := pagination.Encode(pagination.At(last.ID, last.CreatedAt))
		nextToken = &token
		posts = posts[:limit]
	}
	return posts, nextToken, nil
}

// PostUpdate holds optional post fields; nil means "keep current".
type PostUpdate struct {
	Title   *string
	Content *string
	Tags    []string
}

// Update changes an active post owned by ownerID. Posts owned by someone else
// are reported as gorm.ErrRecordNotFound.
func (r *PostRepository) Update(ctx context.Context, id, ownerID uint64, u PostUpdate) (*db.Post, error) {
	updates := map[string]any{}
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Content != nil {
		updates["content"] = *u.Content
	}
	if u.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](NormalizeSet(u.Tags))
	}

	var p db.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).First(&p).Error; err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&p).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Preload("User").First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SoftDelete marks an owned post inactive.
func (r *PostRepository) SoftDelete(ctx context.Context, id, ownerID uint64) error {
	res := r.db.WithContext(ctx).
		Model(&db.Post{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleLike likes the post for userID, or removes the like when one exists.
// The like row and the denormalized counter change in one transaction and the
// counter never drops below zero.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID uint64) (liked bool, likes int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Select("id").Where("id = ? AND is_active = ?", postID, true).First(&post).Error; err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&db.PostLike{})
		if res.Error != nil {
			return res.Error
		}

		var delta *gorm.DB
		if res.RowsAffected > 0 {
			liked = false
			delta = tx.Model(&db.Post{}).Where("id = ?", postID).
				UpdateColumn("likes", gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END"))
		} else {
			liked = true
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&db.PostLike{PostID: postID, UserID: userID})
			if ins.Error != nil {
				return ins.Error
			}
			// a concurrent toggle already inserted the row and bumped the counter
			if ins.RowsAffected == 0 {
				return tx.Model(&db.Post{}).Select("likes").Where("id = ?", postID).Scan(&likes).Error
			}
			delta = tx.Model(&db.Post{}).Where("id = ?", postID).
				UpdateColumn("likes", gorm.Expr("likes + 1"))
		}
		if delta.Error != nil {
			return delta.Error
		}
		return tx.Model(&db.Post{}).Select("likes").Where("id = ?", postID).Scan(&likes).Error
	})
	return liked, likes, err
}

// LikedBy reports which of postIDs userID has liked.
func (r *PostRepository) LikedBy(ctx context.Context, userID uint64, postIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
