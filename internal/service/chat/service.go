package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/repository"
	"github.com/oggyb/vivahvows/internal/service/notify"
)

// Service implements chat rooms and messages for matched pairs.
// Rooms are provisioned by the match service; this service only reads
// and appends.
type Service struct {
	appCtx   *app.AppContext
	chatRepo *repository.ChatRepository
	notifier notify.Sink
}

// NewService creates the chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier notify.Sink) *Service {
	return &Service{
		appCtx:   appCtx,
		chatRepo: repository.NewChatRepository(appCtx.DB),
		notifier: notifier,
	}
}

// RoomView is the room shape returned to clients.
type RoomView struct {
	ID        uint64    `json:"id"`
	PartnerID uint64    `json:"partner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageView is the message shape returned to clients and broadcast
// over the room websocket.
type MessageView struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Room fetches a room and enforces membership of userID.
func (s *Service) Room(ctx context.Context, roomID, userID uint64) (*db.ChatRoom, error) {
	room, err := s.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("chat room not found")
		}
		return nil, err
	}
	if room.UserOneID != userID && room.UserTwoID != userID {
		return nil, httperr.Permission("you are not a member of this chat room")
	}
	return room, nil
}

// Rooms lists the rooms the user participates in.
func (s *Service) Rooms(ctx context.Context, userID uint64) ([]RoomView, error) {
	rooms, err := s.chatRepo.ListRoomsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		partner := r.UserOneID
		if partner == userID {
			partner = r.UserTwoID
		}
		views = append(views, RoomView{ID: r.ID, PartnerID: partner, CreatedAt: r.CreatedAt})
	}
	return views, nil
}

// Messages returns a room's history and marks the partner's messages
// as read by the requester.
func (s *Service) Messages(ctx context.Context, roomID, userID uint64) ([]MessageView, error) {
	room, err := s.Room(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.chatRepo.ListMessages(ctx, room.ID, 0)
	if err != nil {
		return nil, err
	}
	if err := s.chatRepo.MarkRead(ctx, room.ID, userID); err != nil {
		s.appCtx.Logger.Warn("failed to mark messages read", "room_id", room.ID, "err", err)
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, toMessageView(m))
	}
	return views, nil
}

// Send appends a message to the room, broadcasts it to live room
// connections, and pushes a "message" notification to the partner.
func (s *Service) Send(ctx context.Context, roomID, senderID uint64, content string) (*MessageView, error) {
	if content == "" {
		return nil, httperr.Validation("message content must not be empty")
	}

	room, err := s.Room(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	msg := db.Message{RoomID: room.ID, SenderID: senderID, Content: content}
	if err := s.chatRepo.CreateMessage(ctx, &msg); err != nil {
		return nil, err
	}

	view := toMessageView(msg)
	s.appCtx.Hub.BroadcastRoom(room.ID, view)

	partner := room.UserOneID
	if partner == senderID {
		partner = room.UserTwoID
	}
	if err := s.notifier.Push(ctx, partner, db.EventMessage, map[string]any{
		"room_id":   room.ID,
		"sender_id": senderID,
	}); err != nil {
		s.appCtx.Logger.Warn("message notification failed", "partner", partner, "err", err)
	}

	return &view, nil
}

func toMessageView(m db.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

// RegisterRoutes attaches the chat endpoints to the authenticated API group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/chat")
	{
		group.GET("/rooms", s.handleRooms)
		group.GET("/rooms/:room_id/messages", s.handleMessages)
		group.POST("/rooms/:room_id/messages", s.handleSend)
		group.GET("/ws/:room_id", s.handleRoomSocket)
	}
}

func (s *Service) handleRooms(c *gin.Context) {
	views, err := s.Rooms(c.Request.Context(), currentUser(c))
	if err != nil {
		httperr.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Service) handleMessages(c *gin.Context) {
	roomID, err := roomParam(c)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	views, err := s.Messages(c.Request.Context(), roomID, currentUser(c))
	if err != nil {
		httperr.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Service) handleSend(c *gin.Context) {
	roomID, err := roomParam(c)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Render(c, httperr.Validation("content is required"))
		return
	}

	view, err := s.Send(c.Request.Context(), roomID, currentUser(c), req.Content)
	if err != nil {
		httperr.Render(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}
