package store

import "time"

// User is the slice of the account table the live layer reads.
type User struct {
	ID          int64  `gorm:"primarykey"`
	DisplayName string `gorm:"size:64;not null"`
	Avatar      string `gorm:"size:255"`
	CreatedAt   time.Time
}

func (User) TableName() string { return "users" }

// Room participants live in the room_participants join table (room_id, user_id).
type Room struct {
	ID           int64  `gorm:"primarykey"`
	Title        string `gorm:"size:64;not null;uniqueIndex"`
	HostID       int64  `gorm:"not null;index"`
	Capacity     int    `gorm:"not null;default:10"`
	Key          string `gorm:"size:16"`
	Participants []User `gorm:"many2many:room_participants"`
	CreatedAt    time.Time
}

func (Room) TableName() string { return "rooms" }
