package models

import (
	"time"

	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

// PostVote tracks a single user's vote on a post.
type PostVote struct {
	ID        int            `gorm:"primaryKey" json:"id"`
	PostID    int            `gorm:"not null;uniqueIndex:uk_post_user" json:"post_id"`
	UserID    int            `gorm:"not null;uniqueIndex:uk_post_user;index" json:"user_id"`
	Direction vote.Direction `gorm:"column:vote_type;type:smallint;not null;check:chk_post_votes_type,vote_type IN (-1, 1)" json:"direction"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
