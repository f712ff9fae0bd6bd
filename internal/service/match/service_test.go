package match_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/cache"
	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/service/match"
	"github.com/oggyb/vivahvows/internal/ws"
)

// recordingSink captures notification pushes instead of delivering them.
type recordingSink struct {
	mu     sync.Mutex
	pushes []recordedPush
}

type recordedPush struct {
	UserID  uint64
	Event   db.NotificationEvent
	Payload map[string]any
}

func (r *recordingSink) Push(_ context.Context, userID uint64, event db.NotificationEvent, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, recordedPush{UserID: userID, Event: event, Payload: payload})
	return nil
}

func (r *recordingSink) forEvent(event db.NotificationEvent) []recordedPush {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedPush
	for _, p := range r.pushes {
		if p.Event == event {
			out = append(out, p)
		}
	}
	return out
}

type testEnv struct {
	db      *gorm.DB
	appCtx  *app.AppContext
	sink    *recordingSink
	service *match.Service
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Suggestions.CacheTTL = 60 * time.Second
	cfg.Suggestions.PageSize = 20

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, database, cache.NewRedisCache(cfg), logger, ws.NewHub())

	sink := &recordingSink{}
	return &testEnv{
		db:      database,
		appCtx:  appCtx,
		sink:    sink,
		service: match.NewService(appCtx, sink),
	}
}

func (e *testEnv) createUser(t *testing.T, name, gender string, age int) uint64 {
	t.Helper()
	user := db.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Active: true}
	require.NoError(t, e.db.Create(&user).Error)

	dob := time.Now().UTC().AddDate(-age, 0, 0)
	dob = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	profile := db.Profile{UserID: user.ID, Name: name, Gender: gender, DateOfBirth: &dob}
	require.NoError(t, e.db.Create(&profile).Error)
	return user.ID
}

func TestActLikeWithoutReciprocation(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	res, err := env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Equal(t, "Liked action recorded", res.Detail)

	// target got a like notification, no match events
	likes := env.sink.forEvent(db.EventLike)
	require.Len(t, likes, 1)
	assert.Equal(t, bob, likes[0].UserID)
	assert.Empty(t, env.sink.forEvent(db.EventMatch))

	var count int64
	require.NoError(t, env.db.Model(&db.MutualMatch{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestActReciprocalLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	_, err := env.service.Act(ctx, bob, alice, db.StatusLiked)
	require.NoError(t, err)

	res, err := env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)
	assert.True(t, res.Match)

	// one canonical registry row, lower id first
	var matches []db.MutualMatch
	require.NoError(t, env.db.Find(&matches).Error)
	require.Len(t, matches, 1)
	assert.Equal(t, alice, matches[0].UserOneID)
	assert.Equal(t, bob, matches[0].UserTwoID)

	// chat room provisioned with the same canonical pair
	var rooms []db.ChatRoom
	require.NoError(t, env.db.Find(&rooms).Error)
	require.Len(t, rooms, 1)
	assert.Equal(t, alice, rooms[0].UserOneID)
	assert.Equal(t, bob, rooms[0].UserTwoID)

	// both parties get a match event
	events := env.sink.forEvent(db.EventMatch)
	require.Len(t, events, 2)
	recipients := []uint64{events[0].UserID, events[1].UserID}
	assert.ElementsMatch(t, []uint64{alice, bob}, recipients)
}

func TestActReciprocalLikeIdempotent(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	_, err := env.service.Act(ctx, bob, alice, db.StatusLiked)
	require.NoError(t, err)
	_, err = env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)

	// re-liking an already matched pair converges on the same rows
	res, err := env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)
	assert.True(t, res.Match)

	var matchCount, roomCount int64
	require.NoError(t, env.db.Model(&db.MutualMatch{}).Count(&matchCount).Error)
	require.NoError(t, env.db.Model(&db.ChatRoom{}).Count(&roomCount).Error)
	assert.Equal(t, int64(1), matchCount)
	assert.Equal(t, int64(1), roomCount)
}

func TestActSelfTargetRejected(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)

	_, err := env.service.Act(ctx, alice, alice, db.StatusLiked)
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestActUnknownTarget(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)

	_, err := env.service.Act(ctx, alice, 9999, db.StatusLiked)
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestActBlockRemovesMutualMatch(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	_, err := env.service.Act(ctx, bob, alice, db.StatusLiked)
	require.NoError(t, err)
	_, err = env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)

	// block from the higher id side still finds the canonical row
	_, err = env.service.Act(ctx, bob, alice, db.StatusBlocked)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&db.MutualMatch{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestActBlockThenLikeAllowedAgain(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	_, err := env.service.Act(ctx, alice, bob, db.StatusBlocked)
	require.NoError(t, err)
	_, err = env.service.Act(ctx, alice, bob, db.StatusLiked)
	require.NoError(t, err)

	var action db.MatchAction
	require.NoError(t, env.db.Where("initiator_id = ? AND target_id = ?", alice, bob).First(&action).Error)
	assert.Equal(t, db.StatusLiked, action.Status)
}

func TestSuggestionsRespectPreferencesAndParams(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	env.createUser(t, "bob", "male", 30)
	env.createUser(t, "carol", "female", 27)

	// stored preference narrows to male
	require.NoError(t, env.db.Model(&db.Profile{}).
		Where("user_id = ?", alice).
		Update("preferred_gender", "male").Error)

	cards, err := env.service.Suggestions(ctx, alice, map[string][]string{})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "bob", cards[0].Name)

	// explicit query param overrides the stored preference
	cards, err = env.service.Suggestions(ctx, alice, map[string][]string{"gender": {"female"}})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "carol", cards[0].Name)
}

func TestSuggestionsCacheHit(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	env.createUser(t, "bob", "male", 30)

	cards, err := env.service.Suggestions(ctx, alice, map[string][]string{})
	require.NoError(t, err)
	require.Len(t, cards, 1)

	// a new candidate appearing after the first call stays invisible
	// until the TTL lapses
	env.createUser(t, "dave", "male", 29)

	cards, err = env.service.Suggestions(ctx, alice, map[string][]string{})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSuggestionsOwnBlockNotReflectedWhileCached(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)

	cards, err := env.service.Suggestions(ctx, alice, map[string][]string{})
	require.NoError(t, err)
	require.Len(t, cards, 1)

	_, err = env.service.Act(ctx, alice, bob, db.StatusBlocked)
	require.NoError(t, err)

	// blocking does not invalidate the cached page
	cards, err = env.service.Suggestions(ctx, alice, map[string][]string{})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSuggestionsInvalidAgeParam(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)

	_, err := env.service.Suggestions(ctx, alice, map[string][]string{"age_min": {"abc"}})
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)

	_, err = env.service.Suggestions(ctx, alice, map[string][]string{"age_min": {"40"}, "age_max": {"30"}})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestMutualMatchesListing(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	alice := env.createUser(t, "alice", "female", 28)
	bob := env.createUser(t, "bob", "male", 30)
	carl := env.createUser(t, "carl", "male", 32)

	for _, partner := range []uint64{bob, carl} {
		_, err := env.service.Act(ctx, partner, alice, db.StatusLiked)
		require.NoError(t, err)
		_, err = env.service.Act(ctx, alice, partner, db.StatusLiked)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	items, next, err := env.service.MutualMatches(ctx, alice, nil, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, next)

	// newest first, with partner snapshots rather than own profile
	assert.Equal(t, "carl", items[0].Partner.Name)
	assert.Equal(t, "bob", items[1].Partner.Name)
	assert.Equal(t, 30, items[1].Partner.Age)

	// bob sees only his own match
	items, _, err = env.service.MutualMatches(ctx, bob, nil, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Partner.Name)
}
