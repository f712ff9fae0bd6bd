package repository

import (
	"context"

	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/pair"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository provides data access for chat rooms and messages.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new repository bound to the given DB connection.
func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// GetOrCreateRoom provisions the room for the unordered pair.
// Same discipline as the mutual match registry: normalize the pair,
// insert under the unique constraint with conflict-as-no-op, re-fetch
// when the row already exists.
func (r *ChatRepository) GetOrCreateRoom(ctx context.Context, userA, userB uint64) (*db.ChatRoom, bool, error) {
	low, high := pair.Normalize(userA, userB)
	room := db.ChatRoom{UserOneID: low, UserTwoID: high}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_one_id"}, {Name: "user_two_id"}},
			DoNothing: true,
		}).
		Create(&room)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &room, true, nil
	}

	var existing db.ChatRoom
	err := r.db.WithContext(ctx).
		Where("user_one_id = ? AND user_two_id = ?", low, high).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetRoom fetches a room by id.
func (r *ChatRepository) GetRoom(ctx context.Context, roomID uint64) (*db.ChatRoom, error) {
	var room db.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRoomsFor returns the rooms the user participates in, newest first.
func (r *ChatRepository) ListRoomsFor(ctx context.Context, userID uint64) ([]db.ChatRoom, error) {
	var rooms []db.ChatRoom
	err := r.db.WithContext(ctx).
		Where("user_one_id = ? OR user_two_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&rooms).Error
	return rooms, err
}

// CreateMessage appends a message to a room.
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns a room's messages in chronological order.
func (r *ChatRepository) ListMessages(ctx context.Context, roomID uint64, limit int) ([]db.Message, error) {
	var msgs []db.Message
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&msgs).Error
	return msgs, err
}

// MarkRead marks the partner's messages in the room as read by readerID.
func (r *ChatRepository) MarkRead(ctx context.Context, roomID, readerID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true).Error
}
