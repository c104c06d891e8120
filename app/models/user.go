package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account.
type User struct {
	ID        uint      `gorm:"primaryKey"                       json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex;not null"    json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"    json:"email"`
	Password  string    `gorm:"size:255;not null"                json:"-"` // bcrypt hash, never serialised
	Role      string    `gorm:"size:20;not null;default:user"    json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"             json:"created_at"`
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool { return r == RoleUser || r == RoleAdmin }
