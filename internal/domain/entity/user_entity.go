package entity

import (
	"time"
)

// User owns the products being tracked.
// Password holds a bcrypt hash, never the plain credential.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
