package notify

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// notificationView is the list shape returned to clients.
type notificationView struct {
	ID        uint64               `json:"id"`
	Event     db.NotificationEvent `json:"event"`
	Payload   any                  `json:"payload"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
}

// RegisterRoutes attaches the notification endpoints to the
// authenticated API group.
func (n *Notifier) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/notifications")
	{
		group.GET("", n.handleList)
		group.POST("/read", n.handleMarkRead)
		group.GET("/unread_count", n.handleUnreadCount)
		group.GET("/ws", n.handleStream)
	}
}

func (n *Notifier) handleList(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	items, err := n.repo.ListFor(c.Request.Context(), userID, 50)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	views := make([]notificationView, 0, len(items))
	for _, item := range items {
		views = append(views, notificationView{
			ID:        item.ID,
			Event:     item.Event,
			Payload:   item.Payload,
			IsRead:    item.IsRead,
			CreatedAt: item.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (n *Notifier) handleMarkRead(c *gin.Context) {
	userID := auth.CurrentUserID(c)
	ctx := c.Request.Context()

	if err := n.repo.MarkAllRead(ctx, userID); err != nil {
		httperr.Render(c, err)
		return
	}
	if err := n.appCtx.RedisCache.UpdateUnreadCount(ctx, userID, 0); err != nil {
		n.log.Warn("failed to reset unread counter", "user_id", userID, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{"detail": "notifications marked as read"})
}

// handleUnreadCount serves the unread badge count.
// Cache-first: the Redis counter is authoritative while hot; on a miss
// the DB is counted and the cache repopulated with a 1h TTL.
func (n *Notifier) handleUnreadCount(c *gin.Context) {
	userID := auth.CurrentUserID(c)
	ctx := c.Request.Context()

	if count, ok, err := n.appCtx.RedisCache.GetUnreadCount(ctx, userID); err == nil && ok {
		c.JSON(http.StatusOK, gin.H{"count": count})
		return
	}

	count, err := n.repo.CountUnread(ctx, userID)
	if err != nil {
		httperr.Render(c, err)
		return
	}
	if err := n.appCtx.RedisCache.UpdateUnreadCount(ctx, userID, count); err != nil {
		n.log.Warn("failed to refresh unread counter", "user_id", userID, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// handleStream upgrades GET /notifications/ws to the live event stream.
// The connection only receives; there is no inbound protocol beyond
// pings handled by the read loop.
func (n *Notifier) handleStream(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		n.log.Error("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	client := ws.NewClient(userID, conn)
	n.appCtx.Hub.Register(client)
	defer n.appCtx.Hub.Unregister(client)

	n.log.Info("notification stream connected", "user_id", userID, "conn_id", client.ID)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			n.log.Debug("notification stream disconnected", "conn_id", client.ID, "err", err)
			return
		}
	}
}
