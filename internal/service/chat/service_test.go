package chat_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/repository"
	"github.com/oggyb/vivahvows/internal/service/chat"
	"github.com/oggyb/vivahvows/internal/ws"
)

type recordingSink struct {
	mu     sync.Mutex
	pushes []uint64
	events []db.NotificationEvent
}

func (r *recordingSink) Push(_ context.Context, userID uint64, event db.NotificationEvent, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, userID)
	r.events = append(r.events, event)
	return nil
}

type chatEnv struct {
	db      *gorm.DB
	sink    *recordingSink
	service *chat.Service
	rooms   *repository.ChatRepository
}

func setupChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(&config.Config{}, database, nil, logger, ws.NewHub())

	sink := &recordingSink{}
	return &chatEnv{
		db:      database,
		sink:    sink,
		service: chat.NewService(appCtx, sink),
		rooms:   repository.NewChatRepository(appCtx.DB),
	}
}

func TestRoomMembershipEnforced(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	room, _, err := env.rooms.GetOrCreateRoom(ctx, 1, 2)
	require.NoError(t, err)

	_, err = env.service.Room(ctx, room.ID, 3)
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = env.service.Room(ctx, room.ID, 2)
	require.NoError(t, err)
}

func TestRoomNotFound(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	_, err := env.service.Room(ctx, 999, 1)
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestRoomsListsPartner(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	_, _, err := env.rooms.GetOrCreateRoom(ctx, 1, 2)
	require.NoError(t, err)
	_, _, err = env.rooms.GetOrCreateRoom(ctx, 3, 1)
	require.NoError(t, err)

	views, err := env.service.Rooms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	partners := []uint64{views[0].PartnerID, views[1].PartnerID}
	assert.ElementsMatch(t, []uint64{2, 3}, partners)
}

func TestSendAndHistory(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	room, _, err := env.rooms.GetOrCreateRoom(ctx, 1, 2)
	require.NoError(t, err)

	first, err := env.service.Send(ctx, room.ID, 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.SenderID)
	assert.False(t, first.IsRead)

	time.Sleep(2 * time.Millisecond)
	_, err = env.service.Send(ctx, room.ID, 2, "hi there")
	require.NoError(t, err)

	msgs, err := env.service.Messages(ctx, room.ID, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi there", msgs[1].Content)

	// partner of each sender got a message notification
	assert.Equal(t, []uint64{2, 1}, env.sink.pushes)
	assert.Equal(t, []db.NotificationEvent{db.EventMessage, db.EventMessage}, env.sink.events)
}

func TestMessagesMarkPartnerMessagesRead(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	room, _, err := env.rooms.GetOrCreateRoom(ctx, 1, 2)
	require.NoError(t, err)

	_, err = env.service.Send(ctx, room.ID, 2, "ping")
	require.NoError(t, err)

	_, err = env.service.Messages(ctx, room.ID, 1)
	require.NoError(t, err)

	var msg db.Message
	require.NoError(t, env.db.First(&msg).Error)
	assert.True(t, msg.IsRead)
}

func TestSendRejectsEmptyAndOutsider(t *testing.T) {
	ctx := context.Background()
	env := setupChatEnv(t)

	room, _, err := env.rooms.GetOrCreateRoom(ctx, 1, 2)
	require.NoError(t, err)

	_, err = env.service.Send(ctx, room.ID, 1, "")
	var apiErr *httperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = env.service.Send(ctx, room.ID, 3, "let me in")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
