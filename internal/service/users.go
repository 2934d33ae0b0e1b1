package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/mail"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
)

// UserService covers registration, login and self-service profile changes.
type UserService struct {
	base
	tokens    *auth.Tokens
	mailer    mail.Mailer
	publicURL string
}

// Register creates the account, mails a verification link and returns an access token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (string, *models.User, error) {
	if hasWhitespace(in.Username) {
		return "", nil, apperr.InvalidRequest("Username cannot contain whitespace")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", nil, err
	}

	u := &models.User{
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", nil, apperr.Conflict("Credentials taken")
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	s.sendVerification(ctx, u)
	s.publish(ctx, events.New(events.UserRegistered, u.ID, map[string]any{"username": u.Username}))
	return token, u, nil
}

func (s *UserService) sendVerification(ctx context.Context, u *models.User) {
	token, err := s.tokens.IssueVerification(u.ID, u.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to issue verification token", "user_id", u.ID, "err", err)
		return
	}
	link := s.publicURL + "/api/auth/verify-email?token=" + url.QueryEscape(token)
	if err := s.mailer.Send(ctx, u.Email, "Confirm your email", mail.VerificationHTML(u.Username, link)); err != nil {
		s.log.WarnContext(ctx, "failed to send verification email", "user_id", u.ID, "err", err)
	}
}

// Login checks the credentials and returns an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.UserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", notFound(err, "User not found")
	}
	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Unauthenticated("Credentials incorrect")
	}
	return s.tokens.Issue(u.ID, u.Email)
}

// VerifyEmail marks the address in the token as confirmed.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.VerifyEmailToken(token)
	if err != nil {
		return nil, apperr.InvalidRequest("Invalid or expired verification token")
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, apperr.InvalidRequest("Invalid or expired verification token")
	}
	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Email != claims.Email {
		return nil, apperr.InvalidRequest("Email address changed since the link was sent")
	}
	if u.EmailVerified {
		return u, nil
	}
	u.EmailVerified = true
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return u, nil
}

func (s *UserService) Me(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userByUsername(ctx, username)
}

// Update applies a partial profile update for the user themselves.
func (s *UserService) Update(ctx context.Context, userID int, in UpdateUserInput) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && *in.Username != u.Username {
		if hasWhitespace(*in.Username) {
			return nil, apperr.InvalidRequest("Username cannot contain whitespace")
		}
		if err := s.available(ctx, *in.Username, s.store.UserByUsername); err != nil {
			return nil, err
		}
		u.Username = *in.Username
	}
	emailChanged := in.Email != nil && !strings.EqualFold(*in.Email, u.Email)
	if emailChanged {
		email := strings.ToLower(*in.Email)
		if err := s.available(ctx, email, s.store.UserByEmail); err != nil {
			return nil, err
		}
		u.Email = email
		u.EmailVerified = false
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if in.DisplayName != nil {
		u.DisplayName = *in.DisplayName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Gender != nil {
		u.Gender = *in.Gender
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email is not available")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if emailChanged {
		s.sendVerification(ctx, u)
	}
	return u, nil
}

func (s *UserService) available(ctx context.Context, value string, lookup func(context.Context, string) (*models.User, error)) error {
	_, err := lookup(ctx, value)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	default:
		return apperr.Conflict("%s is not available", value)
	}
}

// SetAvatar replaces the user's avatar and returns the URL it replaced.
// An empty avatarURL removes the avatar.
func (s *UserService) SetAvatar(ctx context.Context, userID int, avatarURL string) (*models.User, string, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	previous := u.AvatarURL
	u.AvatarURL = avatarURL
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, "", fmt.Errorf("update avatar: %w", err)
	}
	return u, previous, nil
}
