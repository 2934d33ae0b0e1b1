package models

import "time"

// Membership records a user belonging to a community. The owner gets one at creation.
type Membership struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	CommunityID int       `gorm:"not null;uniqueIndex:uk_community_user" json:"community_id"`
	UserID      int       `gorm:"not null;uniqueIndex:uk_community_user;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
