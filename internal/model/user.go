package model

import "time"

// User stores a Telegram player and the room they are seated in.
type User struct {
	ID       uint    `gorm:"primaryKey"`
	ChatID   int64   `gorm:"uniqueIndex"`
	Name     string
	Username string
	Passcode *string `gorm:"size:6;index"`
	// Tally holds the deltas of the last settled round only.
	Tally            int64
	Menus            []string `gorm:"serializer:json"`
	MessageIDHistory []int    `gorm:"serializer:json"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Seated reports whether the user currently references a room.
func (u User) Seated() bool {
	return u.Passcode != nil && *u.Passcode != ""
}
