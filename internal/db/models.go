package db

import (
	"time"

	"gorm.io/datatypes"
)

// ActionStatus is the directed state an initiator holds toward a target.
// Any status may overwrite any other; the ledger keeps no history.
type ActionStatus string

const (
	StatusLiked    ActionStatus = "liked"
	StatusRejected ActionStatus = "rejected"
	StatusBlocked  ActionStatus = "blocked"
)

// Valid reports whether s is one of the known action verbs.
func (s ActionStatus) Valid() bool {
	switch s {
	case StatusLiked, StatusRejected, StatusBlocked:
		return true
	}
	return false
}

// NotificationEvent enumerates the events pushed to users.
type NotificationEvent string

const (
	EventLike    NotificationEvent = "like"
	EventMatch   NotificationEvent = "match"
	EventMessage NotificationEvent = "message"
)

// User table
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Profile *Profile `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile holds the queryable matchmaking attributes of a user.
//
// One row per user, created together with the User and removed by FK
// cascade. Age is never stored; it is derived from DateOfBirth at read
// time so it always agrees with "now".
type Profile struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	UserID      uint64     `gorm:"uniqueIndex;not null"`
	Name        string     `gorm:"size:150"`
	DateOfBirth *time.Time `gorm:"type:date"`
	Gender      string     `gorm:"size:20;index"`
	City        string     `gorm:"size:100;index"`
	Religion    string     `gorm:"size:100;index"`
	Education   string     `gorm:"size:200"`
	Profession  string     `gorm:"size:200"`
	Bio         string     `gorm:"type:text"`
	Photos      datatypes.JSON

	PreferredGender   string `gorm:"size:20"`
	PreferredAgeMin   int    `gorm:"default:21"`
	PreferredAgeMax   int    `gorm:"default:40"`
	PreferredCity     string `gorm:"size:100"`
	PreferredReligion string `gorm:"size:100"`

	Interests []Interest `gorm:"many2many:profile_interests"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Age derives the profile's age from DateOfBirth as of today.
// Returns -1 when no date of birth is set.
func (p *Profile) Age() int {
	return p.AgeAt(time.Now().UTC())
}

// AgeAt derives the age as of the given moment.
func (p *Profile) AgeAt(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// Interest is a named tag shared between profiles (many-to-many).
type Interest struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:100;not null"`
}

// MatchAction is the directed like/reject/block edge from initiator to target.
//
// Composite PK: (InitiatorID, TargetID)
//   - At most one current action per ordered pair; a new action
//     overwrites the previous status.
//
// Indexes:
//   - idx_initiator_status(initiator_id, status) for exclusion queries.
//   - idx_target_status(target_id, status) for reciprocity checks.
type MatchAction struct {
	InitiatorID uint64       `gorm:"primaryKey;index:idx_initiator_status,priority:1"`
	TargetID    uint64       `gorm:"primaryKey;index:idx_target_status,priority:1"`
	Status      ActionStatus `gorm:"size:10;not null;index:idx_initiator_status,priority:2;index:idx_target_status,priority:2"`
	CreatedAt   time.Time    `gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime"`
}

// MutualMatch is the undirected confirmed match, stored canonically with
// UserOneID < UserTwoID. The unique pair constraint is what makes the
// concurrent create race resolvable as a no-op.
type MutualMatch struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserOneID uint64    `gorm:"not null;uniqueIndex:uniq_match_pair,priority:1"`
	UserTwoID uint64    `gorm:"not null;uniqueIndex:uniq_match_pair,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// ChatRoom is the conversation container for a canonical user pair,
// provisioned when a mutual match is confirmed. Same ordering rule and
// uniqueness discipline as MutualMatch.
type ChatRoom struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserOneID uint64    `gorm:"not null;uniqueIndex:uniq_room_pair,priority:1"`
	UserTwoID uint64    `gorm:"not null;uniqueIndex:uniq_room_pair,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is a chat message inside a room.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID    uint64    `gorm:"not null;index:idx_room_created,priority:1"`
	SenderID  uint64    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_room_created,priority:2"`
}

// Notification is the durable record of an event pushed to a user.
// The live channel delivery is best-effort; this row is the source of truth.
type Notification struct {
	ID        uint64            `gorm:"primaryKey;autoIncrement"`
	UserID    uint64            `gorm:"not null;index:idx_user_created,priority:1"`
	Event     NotificationEvent `gorm:"size:20;not null"`
	Payload   datatypes.JSON
	IsRead    bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_user_created,priority:2,sort:desc"`
}
