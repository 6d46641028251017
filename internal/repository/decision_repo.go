package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/utils/pagination"
)

// DecisionRepository provides data access methods for the Decision model.
// It encapsulates all queries related to accept/reject decisions between users.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *DecisionRepository) WithTx(tx *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: tx}
}

// Create records the decision made by actor -> recipient.
//
// Behavior:
//   - The insert is a single INSERT ... ON CONFLICT DO NOTHING against
//     idx_decision_pair, so two concurrent writers cannot both succeed.
//   - Zero affected rows means a decision already exists → ErrAlreadyDecided.
//     The existing row is never overwritten.
//
// Example:
//
//	repo.Create(ctx, 1, 2, db.StatusAccepted) // user 1 accepted user 2
func (r *DecisionRepository) Create(
	ctx context.Context,
	actorID, recipientID uint64,
	status string,
) (*db.Decision, error) {
	decision := db.Decision{
		ActorID:     actorID,
		RecipientID: recipientID,
		Status:      status,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoNothing: true,
		}).
		Create(&decision)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}
	return &decision, nil
}

// HasAccepted checks whether an actor has accepted a recipient.
//
// Example:
//
//	repo.HasAccepted(ctx, 2, 1) // -> true if user 2 accepted user 1
func (r *DecisionRepository) HasAccepted(
	ctx context.Context,
	actorID, recipientID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("actor_id = ? AND recipient_id = ? AND status = ?", actorID, recipientID, db.StatusAccepted).
		Count(&count).Error
	return count > 0, err
}

// pendingQuery selects acceptances received by recipientID that the recipient
// has not answered in any way yet, from actors that are still active.
func (r *DecisionRepository) pendingQuery(ctx context.Context, recipientID uint64) *gorm.DB {
	// subquery to exclude anyone the recipient already decided on
	answered := r.db.
		Table("decisions d2").
		Select("1").
		Where("d2.actor_id = d.recipient_id AND d2.recipient_id = d.actor_id")

	activeActor := r.db.
		Table("users u").
		Select("1").
		Where("u.id = d.actor_id AND u.active = ?", true)

	return r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.recipient_id = ? AND d.status = ?", recipientID, db.StatusAccepted).
		Where("NOT EXISTS (?)", answered).
		Where("EXISTS (?)", activeActor)
}

// Pending returns users who accepted the recipient and are still waiting for
// an answer.
//
// Behavior:
//   - Only decisions where recipient_id = X and status = accepted are considered.
//   - Excludes actors the recipient already accepted or rejected.
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination.
//
// Example:
//
//	repo.Pending(ctx, 42, nil, 20) // first 20 unanswered acceptances for user 42
func (r *DecisionRepository) Pending(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	var decisions []db.Decision

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.pendingQuery(ctx, recipientID).
		Select("d.*").
		Order("d.created_at DESC, d.id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(d.created_at < ? OR (d.created_at = ? AND d.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.At(last.ID, last.CreatedAt))
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// CountPending returns how many acceptances are waiting for the recipient.
// Used in conjunction with Redis cache (DB is fallback).
func (r *DecisionRepository) CountPending(
	ctx context.Context,
	recipientID uint64,
) (int64, error) {
	var count int64
	if err := r.pendingQuery(ctx, recipientID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Mutual returns userID's own acceptances that were reciprocated, newest
// first. Counterparts that deactivated are skipped.
func (r *DecisionRepository) Mutual(ctx context.Context, userID uint64) ([]db.Decision, error) {
	var decisions []db.Decision

	reciprocated := r.db.
		Table("decisions d2").
		Select("1").
		Where("d2.actor_id = d.recipient_id AND d2.recipient_id = d.actor_id AND d2.status = ?", db.StatusAccepted)

	activePeer := r.db.
		Table("users u").
		Select("1").
		Where("u.id = d.recipient_id AND u.active = ?", true)

	err := r.db.WithContext(ctx).
		Table("decisions d").
		Select("d.*").
		Where("d.actor_id = ? AND d.status = ?", userID, db.StatusAccepted).
		Where("EXISTS (?)", reciprocated).
		Where("EXISTS (?)", activePeer).
		Order("d.created_at DESC, d.id DESC").
		Find(&decisions).Error
	return decisions, err
}
