package match

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/utils/pagination"
	"github.com/oggyb/devconnect/internal/views"
)

var tracer = otel.Tracer("github.com/oggyb/devconnect/internal/service/match")

// Notifier is told about every new mutual match once the decision that
// completed it has been committed.
type Notifier interface {
	NotifyMatch(ctx context.Context, chatID uint64, a, b db.User)
}

// Service implements the match API: decisions, recommendations, mutual
// matches and pending acceptances. It contains the business logic on top of
// repository and cache layers.
type Service struct {
	appCtx       *app.AppContext
	userRepo     *repository.UserRepository
	decisionRepo *repository.DecisionRepository
	chatRepo     *repository.ChatRepository
	notifier     Notifier

	poolSize   int
	resultSize int
}

// NewMatchService creates a new match service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via user, decision and chat repositories)
//   - RedisCache for pending counters, optional
//   - Notifier for new-match events, optional
func NewMatchService(appCtx *app.AppContext, notifier Notifier) *Service {
	s := &Service{
		appCtx:       appCtx,
		userRepo:     repository.NewUserRepository(appCtx.DB),
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		chatRepo:     repository.NewChatRepository(appCtx.DB),
		notifier:     notifier,
		poolSize:     20,
		resultSize:   10,
	}
	if cfg := appCtx.Config; cfg != nil {
		if cfg.Match.PoolSize > 0 {
			s.poolSize = cfg.Match.PoolSize
		}
		if cfg.Match.ResultSize > 0 {
			s.resultSize = cfg.Match.ResultSize
		}
	}
	return s
}

// Decision is the stored decision as returned to clients.
type Decision struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"userId"`
	MatchedUserID uint64    `json:"matchedUserId"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DecideResult is the outcome of Decide.
type DecideResult struct {
	Match         Decision `json:"match"`
	IsMutualMatch bool     `json:"isMutualMatch"`
	ChatID        *uint64  `json:"chatId"`
}

// Decide records actorID's accept/reject decision on candidateID.
//
// Behavior:
//   - Validates input: both ids set, status accepted|rejected, no self-decisions.
//   - The candidate must be an active user.
//   - Decisions are write-once; a second decision on the same candidate is a
//     conflict whatever its status.
//   - On accept, the reverse decision is checked in the same transaction; if it
//     is an accept too, the pair's conversation is created and both users are
//     notified after commit.
//
// Example:
//
//	svc.Decide(ctx, 1, 2, db.StatusAccepted)
func (s *Service) Decide(ctx context.Context, actorID, candidateID uint64, status string) (*DecideResult, error) {
	s.appCtx.Logger.Debug("Decide called", "actor", actorID, "candidate", candidateID, "status", status)

	ctx, span := tracer.Start(ctx, "match.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("match.actor_id", int64(actorID)),
		attribute.Int64("match.candidate_id", int64(candidateID)),
		attribute.String("match.status", status),
	)

	if candidateID == 0 || status == "" {
		return nil, svcErr.InvalidArgument("Matched user ID and status are required")
	}
	if status != db.StatusAccepted && status != db.StatusRejected {
		return nil, svcErr.InvalidArgument("Status must be accepted or rejected")
	}
	if actorID == candidateID {
		return nil, svcErr.InvalidArgument("Cannot match with yourself")
	}

	if _, err := s.userRepo.GetActiveByID(ctx, candidateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, svcErr.Map(err)
	}

	var (
		decision *db.Decision
		conv     *db.Conversation
		mutual   bool
	)
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		decision, err = s.decisionRepo.WithTx(tx).Create(ctx, actorID, candidateID, status)
		if err != nil {
			return err
		}
		if status != db.StatusAccepted {
			return nil
		}

		mutual, err = s.decisionRepo.WithTx(tx).HasAccepted(ctx, candidateID, actorID)
		if err != nil || !mutual {
			return err
		}
		conv, _, err = s.chatRepo.WithTx(tx).EnsureConversation(ctx, actorID, candidateID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return nil, svcErr.AlreadyExists("Already interacted with this user")
		}
		s.appCtx.Logger.Error("Decide failed", "actor", actorID, "candidate", candidateID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.invalidatePending(ctx, actorID, candidateID)

	result := &DecideResult{
		Match: Decision{
			ID:            decision.ID,
			UserID:        decision.ActorID,
			MatchedUserID: decision.RecipientID,
			Status:        decision.Status,
			CreatedAt:     decision.CreatedAt,
		},
		IsMutualMatch: mutual,
	}
	span.SetAttributes(attribute.Bool("match.mutual", mutual))
	if conv != nil {
		result.ChatID = &conv.ID
		s.notifyMatch(ctx, conv.ID, actorID, candidateID)
	}

	return result, nil
}

func (s *Service) notifyMatch(ctx context.Context, chatID, a, b uint64) {
	if s.notifier == nil {
		return
	}
	users, err := s.userRepo.ByIDs(ctx, []uint64{a, b})
	if err != nil {
		// the match itself is committed; only the push is lost
		s.appCtx.Logger.Warn("load users for match notification failed", "chat", chatID, "err", err)
		return
	}
	ua, okA := users[a]
	ub, okB := users[b]
	if !okA || !okB || !ua.Active || !ub.Active {
		s.appCtx.Logger.Warn("skipping match notification for missing user", "chat", chatID, "a", a, "b", b)
		return
	}
	s.notifier.NotifyMatch(ctx, chatID, ua, ub)
}

func (s *Service) invalidatePending(ctx context.Context, userIDs ...uint64) {
	if s.appCtx.RedisCache == nil {
		return
	}
	if err := s.appCtx.RedisCache.InvalidatePending(ctx, userIDs...); err != nil {
		s.appCtx.Logger.Warn("pending count invalidation failed", "users", userIDs, "err", err)
	}
}

// Recommendation is a scored candidate.
type Recommendation struct {
	ID         uint64   `json:"id"`
	Username   string   `json:"username"`
	AvatarURL  string   `json:"avatarUrl"`
	Bio        string   `json:"bio"`
	Skills     []string `json:"skills"`
	LookingFor []string `json:"lookingFor"`
	GithubURL  string   `json:"githubUrl"`
	MatchScore int      `json:"matchScore"`
}

// Recommend returns up to resultSize scored candidates for userID.
//
// Behavior:
//   - Pool: up to poolSize random active users with no decision involving
//     userID in either direction.
//   - Each candidate is scored with Score and the pool is sorted by score
//     descending; ties keep the random pool order.
//   - Nothing is persisted.
func (s *Service) Recommend(ctx context.Context, userID uint64) ([]Recommendation, error) {
	requester, err := s.userRepo.GetActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, svcErr.Map(err)
	}

	pool, err := s.userRepo.Candidates(ctx, userID, s.poolSize)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ranked := Rank(profileOf(*requester), pool, profileOf, s.resultSize)
	out := make([]Recommendation, 0, len(ranked))
	for _, r := range ranked {
		u := views.FromUser(&r.Item)
		out = append(out, Recommendation{
			ID:         u.ID,
			Username:   u.Username,
			AvatarURL:  u.AvatarURL,
			Bio:        u.Bio,
			Skills:     u.Skills,
			LookingFor: u.LookingFor,
			GithubURL:  u.GithubURL,
			MatchScore: r.Score,
		})
	}

	s.appCtx.Logger.Debug("Recommend result", "user", userID, "pool", len(pool), "returned", len(out))
	return out, nil
}

func profileOf(u db.User) Profile {
	return Profile{Skills: u.Skills, LookingFor: u.LookingFor, Bio: u.Bio}
}

// Match is a mutual match with its conversation.
type Match struct {
	ID        uint64        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	ChatID    uint64        `json:"chatId"`
	User      views.Summary `json:"user"`
}

// Matches lists userID's mutual matches, newest first. A mutual pair without a
// conversation (two accepts committed concurrently, neither seeing the other)
// gets one here.
func (s *Service) Matches(ctx context.Context, userID uint64) ([]Match, error) {
	decisions, err := s.decisionRepo.Mutual(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if len(decisions) == 0 {
		return []Match{}, nil
	}

	peerIDs := make([]uint64, 0, len(decisions))
	for _, d := range decisions {
		peerIDs = append(peerIDs, d.RecipientID)
	}
	peers, err := s.userRepo.ByIDs(ctx, peerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	chats, err := s.chatRepo.ConversationsByPeer(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]Match, 0, len(decisions))
	for _, d := range decisions {
		peer, ok := peers[d.RecipientID]
		if !ok {
			continue
		}
		chatID, ok := chats[d.RecipientID]
		if !ok {
			conv, _, err := s.chatRepo.EnsureConversation(ctx, userID, d.RecipientID)
			if err != nil {
				return nil, svcErr.Map(err)
			}
			s.appCtx.Logger.Info("created missing conversation for mutual match", "users", []uint64{userID, d.RecipientID})
			chatID = conv.ID
		}
		out = append(out, Match{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			ChatID:    chatID,
			User:      views.SummaryOf(&peer),
		})
	}
	return out, nil
}

// PendingMatch is someone who accepted the user and awaits an answer.
type PendingMatch struct {
	ID        uint64        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	User      views.Summary `json:"user"`
}

// Pending returns users who accepted userID and were not answered yet.
//
// Behavior:
//   - Newest first, cursor-based pagination with paginationToken.
//   - Actors that were deactivated are skipped.
func (s *Service) Pending(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]PendingMatch, *string, error) {
	decisions, nextToken, err := s.decisionRepo.Pending(ctx, userID, paginationToken, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, nil, svcErr.InvalidArgument("invalid pagination token")
		}
		return nil, nil, svcErr.Map(err)
	}

	actorIDs := make([]uint64, 0, len(decisions))
	for _, d := range decisions {
		actorIDs = append(actorIDs, d.ActorID)
	}
	actors, err := s.userRepo.ByIDs(ctx, actorIDs)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	out := make([]PendingMatch, 0, len(decisions))
	for _, d := range decisions {
		actor, ok := actors[d.ActorID]
		if !ok {
			continue
		}
		out = append(out, PendingMatch{ID: d.ID, CreatedAt: d.CreatedAt, User: views.SummaryOf(&actor)})
	}
	return out, nextToken, nil
}

// PendingCount returns how many acceptances await userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (match:pending:count:userID).
//  2. On cache miss or cache failure, falls back to DB via CountPending.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) PendingCount(ctx context.Context, userID uint64) (int64, error) {
	rc := s.appCtx.RedisCache
	if rc != nil {
		n, ok, err := rc.GetPendingCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("pending count cache read failed", "user", userID, "err", err)
		} else if ok {
			return n, nil
		}
	}

	// fallback: DB
	count, err := s.decisionRepo.CountPending(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	if rc != nil {
		_ = rc.SetPendingCount(ctx, userID, count)
	}
	return count, nil
}
