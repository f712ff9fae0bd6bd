package repository

import (
	"context"
	"time"

	"github.com/oggyb/vivahvows/internal/db"

	"gorm.io/gorm"
)

// SuggestionFilter carries the fully resolved filters for a suggestion
// query. Precedence between query parameters and stored preferences is
// resolved by the caller; the repository only applies what it is given.
// Zero values mean "no constraint".
type SuggestionFilter struct {
	Gender      string
	City        string
	Religion    string
	AgeMin      int
	AgeMax      int
	InterestIDs []uint64
}

// SuggestionRow is one ranked candidate: a profile plus the number of
// interests it shares with the requester.
type SuggestionRow struct {
	db.Profile
	SharedInterests int
}

// ProfileRepository provides data access for profiles, interests and
// the candidate suggestion query.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetByUserID fetches a user's profile including its interest set.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).
		Preload("Interests").
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetManyByUserIDs fetches the profiles of the given users, interests
// included. Used to build partner snapshots for mutual match listings.
func (r *ProfileRepository) GetManyByUserIDs(ctx context.Context, userIDs []uint64) ([]db.Profile, error) {
	var profiles []db.Profile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Interests").
		Where("user_id IN ?", userIDs).
		Find(&profiles).Error
	return profiles, err
}

// Save persists profile field changes; updated_at is bumped by gorm.
func (r *ProfileRepository) Save(ctx context.Context, profile *db.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// ReplaceInterests replaces the profile's interest set with the
// interests identified by ids, and bumps the profile's updated_at so
// suggestion ranking sees the change.
func (r *ProfileRepository) ReplaceInterests(ctx context.Context, profile *db.Profile, ids []uint64) error {
	var interests []db.Interest
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&interests).Error; err != nil {
			return err
		}
	}
	if err := r.db.WithContext(ctx).Model(profile).Association("Interests").Replace(interests); err != nil {
		return err
	}
	profile.Interests = interests
	return r.db.WithContext(ctx).Model(profile).Update("updated_at", time.Now().UTC()).Error
}

// ListInterests returns all interests ordered by name.
func (r *ProfileRepository) ListInterests(ctx context.Context) ([]db.Interest, error) {
	var interests []db.Interest
	err := r.db.WithContext(ctx).Order("name").Find(&interests).Error
	return interests, err
}

// GetInterestIDs returns the interest-id set of a profile.
func (r *ProfileRepository) GetInterestIDs(ctx context.Context, profileID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("profile_interests").
		Where("profile_id = ?", profileID).
		Pluck("interest_id", &ids).Error
	return ids, err
}

// Suggest runs the candidate query for the requesting user.
//
// Exclusions:
//   - the requester's own profile,
//   - users in a "blocked" action with the requester in either direction,
//   - users the requester has "rejected" or "blocked" (directed only; a
//     user who rejected the requester still sees nothing change here).
//
// Filters are applied as given; age bounds are translated to a
// date-of-birth window against "today" by the caller-facing service.
//
// Ranking: shared-interest count with the requester DESC, then
// updated_at DESC. Shared interests are computed against
// requesterInterestIDs via a correlated count over the join table.
func (r *ProfileRepository) Suggest(
	ctx context.Context,
	requesterID uint64,
	requesterInterestIDs []uint64,
	filter SuggestionFilter,
	now time.Time,
	limit int,
) ([]SuggestionRow, error) {
	var rows []SuggestionRow

	query := r.db.WithContext(ctx).Model(&db.Profile{})

	if len(requesterInterestIDs) > 0 {
		query = query.Select(
			"profiles.*, (SELECT COUNT(*) FROM profile_interests pi WHERE pi.profile_id = profiles.id AND pi.interest_id IN ?) AS shared_interests",
			requesterInterestIDs,
		)
	} else {
		query = query.Select("profiles.*, 0 AS shared_interests")
	}

	query = query.
		Where("profiles.user_id <> ?", requesterID).
		Where(`NOT EXISTS (
			SELECT 1 FROM match_actions ma
			WHERE ma.status = 'blocked'
			  AND ((ma.initiator_id = ? AND ma.target_id = profiles.user_id)
			    OR (ma.target_id = ? AND ma.initiator_id = profiles.user_id))
		)`, requesterID, requesterID).
		Where(`NOT EXISTS (
			SELECT 1 FROM match_actions ma2
			WHERE ma2.initiator_id = ?
			  AND ma2.target_id = profiles.user_id
			  AND ma2.status IN ('rejected', 'blocked')
		)`, requesterID)

	if filter.Gender != "" {
		query = query.Where("profiles.gender = ?", filter.Gender)
	}
	if filter.City != "" {
		query = query.Where("LOWER(profiles.city) = LOWER(?)", filter.City)
	}
	if filter.Religion != "" {
		query = query.Where("LOWER(profiles.religion) = LOWER(?)", filter.Religion)
	}

	if filter.AgeMin > 0 {
		query = query.Where("profiles.date_of_birth <= ?", subtractYears(now, filter.AgeMin))
	}
	if filter.AgeMax > 0 {
		query = query.Where("profiles.date_of_birth >= ?", subtractYears(now, filter.AgeMax))
	}

	if len(filter.InterestIDs) > 0 {
		query = query.Where(`EXISTS (
			SELECT 1 FROM profile_interests pif
			WHERE pif.profile_id = profiles.id AND pif.interest_id IN ?
		)`, filter.InterestIDs)
	}

	err := query.
		Order("shared_interests DESC, profiles.updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	if err := r.attachInterests(ctx, rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// attachInterests loads the interest sets for the suggested profiles in
// one query instead of preloading through the aliased select.
func (r *ProfileRepository) attachInterests(ctx context.Context, rows []SuggestionRow) error {
	if len(rows) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}

	var links []struct {
		ProfileID  uint64
		InterestID uint64
		Name       string
	}
	err := r.db.WithContext(ctx).
		Table("profile_interests").
		Select("profile_interests.profile_id, interests.id AS interest_id, interests.name").
		Joins("JOIN interests ON interests.id = profile_interests.interest_id").
		Where("profile_interests.profile_id IN ?", ids).
		Scan(&links).Error
	if err != nil {
		return err
	}

	byProfile := make(map[uint64][]db.Interest, len(rows))
	for _, l := range links {
		byProfile[l.ProfileID] = append(byProfile[l.ProfileID], db.Interest{ID: l.InterestID, Name: l.Name})
	}
	for i := range rows {
		rows[i].Interests = byProfile[rows[i].ID]
	}
	return nil
}

// subtractYears computes "now minus N years" for the age → date-of-birth
// translation. A Feb-29 "today" is clamped to Feb-28 when the target
// year is not a leap year; this clamp is deliberate policy.
func subtractYears(now time.Time, years int) time.Time {
	y, m, d := now.Date()
	y -= years
	if m == time.February && d == 29 && !isLeapYear(y) {
		d = 28
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
