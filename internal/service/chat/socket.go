package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socketFrame is the inbound frame on a room socket.
type socketFrame struct {
	Message string `json:"message"`
}

// handleRoomSocket upgrades GET /chat/ws/:room_id to a websocket.
// Membership is checked before the upgrade; each inbound frame is
// persisted via Send, which also broadcasts to the room group.
func (s *Service) handleRoomSocket(c *gin.Context) {
	userID := currentUser(c)

	roomID, err := roomParam(c)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	room, err := s.Room(c.Request.Context(), roomID, userID)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.appCtx.Logger.Error("websocket upgrade failed", "room_id", room.ID, "err", err)
		return
	}

	client := ws.NewClient(userID, conn)
	s.appCtx.Hub.Register(client)
	s.appCtx.Hub.JoinRoom(room.ID, client)
	defer s.appCtx.Hub.Unregister(client)

	s.appCtx.Logger.Info("chat socket connected",
		"room_id", room.ID, "user_id", userID, "conn_id", client.ID)

	for {
		var frame socketFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.appCtx.Logger.Debug("chat socket disconnected", "conn_id", client.ID, "err", err)
			return
		}
		if frame.Message == "" {
			continue
		}
		if _, err := s.Send(c.Request.Context(), room.ID, userID, frame.Message); err != nil {
			s.appCtx.Logger.Warn("chat socket send failed", "room_id", room.ID, "err", err)
		}
	}
}

func currentUser(c *gin.Context) uint64 {
	return auth.CurrentUserID(c)
}

func roomParam(c *gin.Context) (uint64, error) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		return 0, httperr.Validation("room_id must be a valid id")
	}
	return roomID, nil
}
