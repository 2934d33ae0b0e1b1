package service

import "github.com/emilythestrangee/subreddit/backend/internal/models"

type CreateCommunityInput struct {
	Name        string
	Description string
	AvatarURL   string
}

type UpdateCommunityInput struct {
	Name        *string
	Description *string
}

type CreatePostInput struct {
	Title     string
	Content   string
	MediaURLs []string
}

// UpdatePostInput is a partial update. When ReplaceMedia is set the post's
// media becomes exactly MediaURLs.
type UpdatePostInput struct {
	Title        *string
	Content      *string
	ReplaceMedia bool
	MediaURLs    []string
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

type UpdateUserInput struct {
	Username    *string
	Email       *string
	Password    *string
	DisplayName *string
	Bio         *string
	Gender      *models.Gender
}
