package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/response"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

type UserHandler struct {
	users       *service.UserService
	communities *service.CommunityService
	posts       *service.PostService
	uploader    *media.Uploader
}

// profile is the public view of a user; it leaves out the email address.
type profile struct {
	ID          int           `json:"id"`
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Bio         string        `json:"bio"`
	Gender      models.Gender `json:"gender,omitempty"`
	AvatarURL   string        `json:"avatar_url"`
	CreatedAt   time.Time     `json:"created_at"`
}

func toProfile(u *models.User) profile {
	return profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Gender:      u.Gender,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

// GetUserProfile returns the public profile of :username
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	u, err := h.users.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, toProfile(u))
}

// UpdateMe applies a partial update to the authenticated user
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	u, err := h.users.Update(c.Request.Context(), userID, service.UpdateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Gender:      req.Gender,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, u)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	files := formFiles(c, "avatar")
	if len(files) == 0 {
		response.Error(c, apperr.InvalidRequest("avatar file is required"))
		return
	}

	ctx := c.Request.Context()
	url, err := h.uploader.Save(ctx, "avatars", files[0], media.ImageTypes)
	if err != nil {
		response.Error(c, uploadError(err))
		return
	}

	u, previous, err := h.users.SetAvatar(ctx, userID, url)
	if err != nil {
		h.uploader.DeleteAll(ctx, []string{url})
		response.Error(c, err)
		return
	}
	if previous != "" {
		h.uploader.DeleteAll(ctx, []string{previous})
	}
	response.OK(c, http.StatusOK, u)
}

func (h *UserHandler) RemoveAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	u, previous, err := h.users.SetAvatar(ctx, userID, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	if previous != "" {
		h.uploader.DeleteAll(ctx, []string{previous})
	}
	response.OK(c, http.StatusOK, u)
}

// Communities lists the communities :username owns
func (h *UserHandler) Communities(c *gin.Context) {
	communities, count, err := h.communities.OwnedBy(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, communities, count)
}

// Joined lists the communities :username is a member of
func (h *UserHandler) Joined(c *gin.Context) {
	communities, count, err := h.communities.JoinedBy(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, communities, count)
}

// Posts lists the posts :username submitted
func (h *UserHandler) Posts(c *gin.Context) {
	posts, count, err := h.posts.SubmittedBy(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, posts, count)
}

func (h *UserHandler) Upvoted(c *gin.Context) {
	h.voted(c, vote.Up)
}

func (h *UserHandler) Downvoted(c *gin.Context) {
	h.voted(c, vote.Down)
}

func (h *UserHandler) voted(c *gin.Context, d vote.Direction) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	posts, count, err := h.posts.VotedBy(c.Request.Context(), userID, d)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, posts, count)
}
