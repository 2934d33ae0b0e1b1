package models

import "time"

type Community struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	AvatarURL   string    `json:"avatar_url"`
	OwnerID     int       `gorm:"not null;index" json:"owner_id"`
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommunitySummary is a community with its aggregate counts, used by listings.
type CommunitySummary struct {
	Community
	MemberCount int64 `json:"member_count"`
	PostCount   int64 `json:"post_count"`
}

type CreateCommunityRequest struct {
	Name        string `json:"name" form:"name" binding:"required,max=50,nowhitespace"`
	Description string `json:"description" form:"description"`
}

type UpdateCommunityRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=50"`
	Description *string `json:"description"`
}
