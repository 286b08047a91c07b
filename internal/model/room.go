package model

import "time"

// Room is a scoring table keyed by its passcode. Membership is derived from
// users referencing the passcode.
type Room struct {
	ID        uint   `gorm:"primaryKey"`
	Passcode  string `gorm:"size:6;uniqueIndex"`
	HostID    int64  `gorm:"index"`
	IsShooter bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
