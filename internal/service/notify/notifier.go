// Package notify implements the notification sink: every event is
// persisted as a Notification row (the durable record), the unread
// counter in Redis is bumped, and the event is streamed best-effort to
// the user's live websocket connections. Failed live delivery is not
// retried.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/repository"
	"gorm.io/datatypes"
)

// Sink is the interface the match and chat services depend on.
type Sink interface {
	Push(ctx context.Context, userID uint64, event db.NotificationEvent, payload map[string]any) error
}

// Notifier is the default Sink backed by the DB, Redis and the ws hub.
type Notifier struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
	log    *slog.Logger
}

// NewNotifier creates a Notifier with dependencies from AppContext.
func NewNotifier(appCtx *app.AppContext) *Notifier {
	return &Notifier{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
		log:    appCtx.Logger,
	}
}

// envelope is the frame written to the live stream.
type envelope struct {
	Event     db.NotificationEvent `json:"event"`
	Payload   map[string]any       `json:"payload"`
	CreatedAt time.Time            `json:"created_at"`
}

// Push persists the notification and nudges the live channel.
// Only the DB write can fail the call; cache and stream are best-effort.
func (n *Notifier) Push(ctx context.Context, userID uint64, event db.NotificationEvent, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	row := db.Notification{
		UserID:  userID,
		Event:   event,
		Payload: datatypes.JSON(raw),
	}
	if err := n.repo.Create(ctx, &row); err != nil {
		return err
	}

	if _, err := n.appCtx.RedisCache.Incr(ctx, n.appCtx.RedisCache.KeyForUnreadCount(userID)); err != nil {
		n.log.Warn("failed to bump unread counter", "user_id", userID, "err", err)
	}

	n.appCtx.Hub.PushToUser(userID, envelope{
		Event:     event,
		Payload:   payload,
		CreatedAt: row.CreatedAt,
	})

	return nil
}
