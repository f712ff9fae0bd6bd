package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/repository"
	"github.com/oggyb/vivahvows/internal/service/notify"
)

// Service implements the suggestion engine, the like/reject/block
// action processor, and the mutual match listing.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	matchRepo   *repository.MatchRepository
	userRepo    *repository.UserRepository
	chatRepo    *repository.ChatRepository
	notifier    notify.Sink
}

// NewService creates the match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier notify.Sink) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		userRepo:    repository.NewUserRepository(appCtx.DB),
		chatRepo:    repository.NewChatRepository(appCtx.DB),
		notifier:    notifier,
	}
}

// InterestView is the interest shape embedded in profile cards.
type InterestView struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ProfileCard is the candidate snapshot returned by the suggestion and
// mutual endpoints. Age is derived at read time, never stored.
type ProfileCard struct {
	UserID          uint64         `json:"user_id"`
	Name            string         `json:"name"`
	Age             int            `json:"age,omitempty"`
	Gender          string         `json:"gender,omitempty"`
	City            string         `json:"city,omitempty"`
	Religion        string         `json:"religion,omitempty"`
	Education       string         `json:"education,omitempty"`
	Profession      string         `json:"profession,omitempty"`
	Bio             string         `json:"bio,omitempty"`
	Interests       []InterestView `json:"interests"`
	SharedInterests int            `json:"shared_interests"`
}

// ActResult reports the recorded action and whether a mutual match
// resulted, so the caller can show a match animation.
type ActResult struct {
	Detail string `json:"detail"`
	Match  bool   `json:"match,omitempty"`
}

// MutualMatchItem is one entry of the mutual match listing.
type MutualMatchItem struct {
	ID        uint64      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Partner   ProfileCard `json:"partner"`
}

// Suggestions produces the ranked candidate page for the requester.
//
// The result is cached for the configured TTL keyed by a digest of
// (requester id, normalized query params); a hit short-circuits the
// whole pipeline. The requester's own later block/reject actions are
// not reflected until the TTL lapses — an accepted staleness window.
func (s *Service) Suggestions(ctx context.Context, userID uint64, params map[string][]string) ([]ProfileCard, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("profile not found")
		}
		return nil, err
	}

	cacheKey := s.appCtx.RedisCache.KeyForSuggestions(userID, params)
	if cached, _ := s.appCtx.RedisCache.Get(ctx, cacheKey); cached != "" {
		var cards []ProfileCard
		if err := json.Unmarshal([]byte(cached), &cards); err == nil {
			s.appCtx.Logger.Debug("suggestions cache hit", "user_id", userID)
			return cards, nil
		}
	}

	filter, err := resolveFilter(profile, params)
	if err != nil {
		return nil, err
	}

	requesterInterests := make([]uint64, 0, len(profile.Interests))
	for _, it := range profile.Interests {
		requesterInterests = append(requesterInterests, it.ID)
	}

	rows, err := s.profileRepo.Suggest(
		ctx, userID, requesterInterests, filter,
		time.Now().UTC(), s.appCtx.Cfg.Suggestions.PageSize,
	)
	if err != nil {
		return nil, err
	}

	cards := make([]ProfileCard, 0, len(rows))
	for i := range rows {
		card := toCard(&rows[i].Profile)
		card.SharedInterests = rows[i].SharedInterests
		cards = append(cards, card)
	}

	if data, err := json.Marshal(cards); err == nil {
		_ = s.appCtx.RedisCache.Set(ctx, cacheKey, data, s.appCtx.Cfg.Suggestions.CacheTTL)
	}

	return cards, nil
}

// Act applies a like/reject/block from initiator to target and runs the
// side effects of the resulting state.
//
// Overwrite semantics: any current status may transition to any other,
// including "blocked" back to "liked" — deliberately unguarded.
func (s *Service) Act(ctx context.Context, initiatorID, targetID uint64, status db.ActionStatus) (*ActResult, error) {
	if !status.Valid() {
		return nil, httperr.Validation("invalid action")
	}
	if initiatorID == targetID {
		return nil, httperr.Validation("cannot target yourself")
	}

	exists, err := s.userRepo.Exists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, httperr.NotFound("target user not found")
	}

	if err := s.matchRepo.UpsertAction(ctx, initiatorID, targetID, status); err != nil {
		return nil, err
	}

	result := &ActResult{Detail: fmt.Sprintf("%s action recorded", capitalize(string(status)))}

	switch status {
	case db.StatusLiked:
		reciprocal, err := s.matchRepo.HasLiked(ctx, targetID, initiatorID)
		if err != nil {
			return nil, err
		}
		if reciprocal {
			if err := s.confirmMutual(ctx, initiatorID, targetID); err != nil {
				return nil, err
			}
			result.Match = true
		} else {
			if err := s.notifier.Push(ctx, targetID, db.EventLike, map[string]any{"user_id": initiatorID}); err != nil {
				s.appCtx.Logger.Warn("like notification failed", "target", targetID, "err", err)
			}
		}

	case db.StatusBlocked:
		// revokes mutual-match status in either stored order; the chat
		// room itself is left to the chat layer to hide
		if err := s.matchRepo.DeleteMutual(ctx, initiatorID, targetID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// confirmMutual runs the reciprocal match event: canonical registry row,
// chat room provisioning, and "match" notifications to both parties.
// Both creates are idempotent get-or-creates, so the two racing likes of
// a pair converge on the same rows.
func (s *Service) confirmMutual(ctx context.Context, initiatorID, targetID uint64) error {
	mutual, created, err := s.matchRepo.GetOrCreateMutual(ctx, initiatorID, targetID)
	if err != nil {
		return err
	}

	if _, _, err := s.chatRepo.GetOrCreateRoom(ctx, initiatorID, targetID); err != nil {
		return err
	}

	s.appCtx.Logger.Info("mutual match confirmed",
		"match_id", mutual.ID, "created", created,
		"user_one", mutual.UserOneID, "user_two", mutual.UserTwoID,
	)

	if err := s.notifier.Push(ctx, targetID, db.EventMatch, map[string]any{"user_id": initiatorID}); err != nil {
		s.appCtx.Logger.Warn("match notification failed", "user", targetID, "err", err)
	}
	if err := s.notifier.Push(ctx, initiatorID, db.EventMatch, map[string]any{"user_id": targetID}); err != nil {
		s.appCtx.Logger.Warn("match notification failed", "user", initiatorID, "err", err)
	}
	return nil
}

// MutualMatches lists the requester's confirmed matches with partner
// profile snapshots, newest first, cursor-paginated.
func (s *Service) MutualMatches(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]MutualMatchItem, *string, error) {
	matches, nextToken, err := s.matchRepo.ListMutualInvolving(ctx, userID, paginationToken, limit)
	if err != nil {
		return nil, nil, httperr.Validation("invalid pagination token")
	}

	partnerIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		partnerIDs = append(partnerIDs, partnerOf(m, userID))
	}

	profiles, err := s.profileRepo.GetManyByUserIDs(ctx, partnerIDs)
	if err != nil {
		return nil, nil, err
	}
	byUser := make(map[uint64]*db.Profile, len(profiles))
	for i := range profiles {
		byUser[profiles[i].UserID] = &profiles[i]
	}

	items := make([]MutualMatchItem, 0, len(matches))
	for _, m := range matches {
		item := MutualMatchItem{ID: m.ID, CreatedAt: m.CreatedAt}
		if p := byUser[partnerOf(m, userID)]; p != nil {
			item.Partner = toCard(p)
		}
		items = append(items, item)
	}

	return items, nextToken, nil
}

func partnerOf(m db.MutualMatch, userID uint64) uint64 {
	if m.UserOneID == userID {
		return m.UserTwoID
	}
	return m.UserOneID
}

// resolveFilter merges query params over the requester's stored
// preferences, field by field: an explicit parameter wins, an absent
// one falls back to the preference.
func resolveFilter(profile *db.Profile, params map[string][]string) (repository.SuggestionFilter, error) {
	filter := repository.SuggestionFilter{
		Gender:   firstOr(params, "gender", profile.PreferredGender),
		City:     firstOr(params, "city", profile.PreferredCity),
		Religion: firstOr(params, "religion", profile.PreferredReligion),
	}

	ageMin, err := intParam(params, "age_min", profile.PreferredAgeMin)
	if err != nil {
		return filter, err
	}
	ageMax, err := intParam(params, "age_max", profile.PreferredAgeMax)
	if err != nil {
		return filter, err
	}
	if ageMin > 0 && ageMax > 0 && ageMin > ageMax {
		return filter, httperr.Validation("age_min must not exceed age_max")
	}
	filter.AgeMin = ageMin
	filter.AgeMax = ageMax

	for _, raw := range params["interests"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return filter, httperr.Validation("interests must be a list of interest ids")
			}
			filter.InterestIDs = append(filter.InterestIDs, id)
		}
	}

	return filter, nil
}

func firstOr(params map[string][]string, name, fallback string) string {
	if vals := params[name]; len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return fallback
}

func intParam(params map[string][]string, name string, fallback int) (int, error) {
	vals := params[name]
	if len(vals) == 0 || vals[0] == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil || n < 0 {
		return 0, httperr.Validation(name + " must be a non-negative integer")
	}
	return n, nil
}

func toCard(p *db.Profile) ProfileCard {
	card := ProfileCard{
		UserID:     p.UserID,
		Name:       p.Name,
		Gender:     p.Gender,
		City:       p.City,
		Religion:   p.Religion,
		Education:  p.Education,
		Profession: p.Profession,
		Bio:        p.Bio,
		Interests:  make([]InterestView, 0, len(p.Interests)),
	}
	if age := p.Age(); age >= 0 {
		card.Age = age
	}
	for _, it := range p.Interests {
		card.Interests = append(card.Interests, InterestView{ID: it.ID, Name: it.Name})
	}
	return card
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
