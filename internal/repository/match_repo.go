package repository

import (
	"context"
	"time"

	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/pair"
	"github.com/oggyb/vivahvows/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRepository provides data access for the directed action ledger
// and the mutual match registry.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// UpsertAction inserts or updates the action made by initiator -> target.
//
// Behavior:
//   - If (initiator_id, target_id) pair exists → the row is updated with
//     the new status (set-or-replace, no history).
//   - If it doesn't exist → a new row is inserted.
//   - Composite PK ensures overwrite guarantee; re-posting the same
//     status only advances updated_at.
//
// No transition guard exists: a "blocked" row may later be overwritten
// by "liked".
func (r *MatchRepository) UpsertAction(
	ctx context.Context,
	initiatorID, targetID uint64,
	status db.ActionStatus,
) error {
	action := db.MatchAction{
		InitiatorID: initiatorID,
		TargetID:    targetID,
		Status:      status,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "initiator_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&action).Error
}

// GetAction returns the current action initiator -> target, or
// gorm.ErrRecordNotFound when no action has been recorded.
func (r *MatchRepository) GetAction(
	ctx context.Context,
	initiatorID, targetID uint64,
) (*db.MatchAction, error) {
	var action db.MatchAction
	err := r.db.WithContext(ctx).
		Where("initiator_id = ? AND target_id = ?", initiatorID, targetID).
		First(&action).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// HasLiked checks whether initiator currently holds a "liked" action
// toward target. Used for reciprocity detection on a new like.
func (r *MatchRepository) HasLiked(
	ctx context.Context,
	initiatorID, targetID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.MatchAction{}).
		Where("initiator_id = ? AND target_id = ? AND status = ?", initiatorID, targetID, db.StatusLiked).
		Count(&count).Error
	return count > 0, err
}

// GetOrCreateMutual records the confirmed match for the unordered pair.
//
// The pair is normalized to (low, high) before the insert, and the
// insert runs under the unique pair constraint with conflict-as-no-op
// semantics: when two reciprocal likes race, the losing insert affects
// zero rows and the existing row is re-fetched instead of erroring.
func (r *MatchRepository) GetOrCreateMutual(
	ctx context.Context,
	userA, userB uint64,
) (*db.MutualMatch, bool, error) {
	low, high := pair.Normalize(userA, userB)
	match := db.MutualMatch{UserOneID: low, UserTwoID: high}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_one_id"}, {Name: "user_two_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &match, true, nil
	}

	// already created (possibly by the concurrent reciprocal request)
	var existing db.MutualMatch
	err := r.db.WithContext(ctx).
		Where("user_one_id = ? AND user_two_id = ?", low, high).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// DeleteMutual removes the mutual match for the unordered pair, if any.
// Both stored orders are matched even though creation always normalizes,
// so a row written before the ordering rule existed is still revoked.
func (r *MatchRepository) DeleteMutual(
	ctx context.Context,
	userA, userB uint64,
) error {
	low, high := pair.Normalize(userA, userB)
	return r.db.WithContext(ctx).
		Where("(user_one_id = ? AND user_two_id = ?) OR (user_one_id = ? AND user_two_id = ?)",
			low, high, high, low).
		Delete(&db.MutualMatch{}).Error
}

// ListMutualInvolving returns the mutual matches that include the given
// user, newest first, with cursor-based pagination.
func (r *MatchRepository) ListMutualInvolving(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.MutualMatch, *string, error) {
	var matches []db.MutualMatch

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.MutualMatch{}).
		Where("user_one_id = ? OR user_two_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&matches).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(matches) > limit {
		last := matches[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		matches = matches[:limit]
	}

	return matches, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
