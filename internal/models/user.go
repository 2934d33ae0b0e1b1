package models

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type User struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email         string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	DisplayName   string    `gorm:"size:100" json:"display_name"`
	Bio           string    `json:"bio"`
	Gender        Gender    `gorm:"size:10" json:"gender,omitempty"`
	AvatarURL     string    `json:"avatar_url"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50,nowhitespace"`
	Email       string `json:"email" binding:"required,email,max=100"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest carries a partial profile update; nil fields are left as is.
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,min=3,max=50"`
	Email       *string `json:"email" binding:"omitempty,email,max=100"`
	Password    *string `json:"password" binding:"omitempty,min=6"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Bio         *string `json:"bio"`
	Gender      *Gender `json:"gender" binding:"omitempty,oneof=male female other"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}
