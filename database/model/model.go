// Package model contains the persisted records of authgate.
package model

import "time"

// Session is a server-side session record used by the database session backend.
// Data holds the gob-encoded session values; the row is addressed by the opaque
// ID carried in the session cookie.
type Session struct {
	Id        string    `gorm:"primaryKey;size:64"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
