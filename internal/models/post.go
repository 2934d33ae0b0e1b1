package models

import "time"

type Post struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:300;not null" json:"title"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex:uk_community_slug" json:"slug"`
	Content     string    `json:"content,omitempty"`
	CommunityID int       `gorm:"not null;uniqueIndex:uk_community_slug" json:"community_id"`
	AuthorID    int       `gorm:"not null;index" json:"author_id"`
	Author      *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Upvotes     int       `gorm:"not null;default:0;check:chk_posts_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes   int       `gorm:"not null;default:0;check:chk_posts_downvotes,downvotes >= 0" json:"downvotes"`
	Media       []Media   `gorm:"foreignKey:PostID" json:"media"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Media is a file attached to a post. A post's media is always replaced as a whole set.
type Media struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"not null;index" json:"post_id"`
	URL       string    `gorm:"not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Title   string `json:"title" form:"title" binding:"required,max=300"`
	Content string `json:"content" form:"content"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title" form:"title" binding:"omitempty,min=1,max=300"`
	Content *string `json:"content" form:"content"`
}

func (Media) TableName() string { return "post_media" }
