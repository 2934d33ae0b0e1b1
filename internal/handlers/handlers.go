package handlers

import (
	"errors"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/middleware"
	"github.com/emilythestrangee/subreddit/backend/internal/response"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
)

var errMissingToken = errors.New("token is required")

// Handler combines all handler types
type Handler struct {
	Auth      *AuthHandler
	Community *CommunityHandler
	Post      *PostHandler
	User      *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *service.Services, uploader *media.Uploader) *Handler {
	return &Handler{
		Auth:      &AuthHandler{users: svc.Users},
		Community: &CommunityHandler{communities: svc.Communities, memberships: svc.Memberships, uploader: uploader},
		Post:      &PostHandler{posts: svc.Posts, votes: svc.Votes, uploader: uploader},
		User:      &UserHandler{users: svc.Users, communities: svc.Communities, posts: svc.Posts, uploader: uploader},
	}
}

// currentUser returns the authenticated user id, aborting with 401 on routes
// that were registered without the auth middleware.
func currentUser(c *gin.Context) (int, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Abort(c, apperr.KindUnauthenticated, "User not authenticated")
	}
	return id, ok
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Abort(c, apperr.KindInvalidRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// formFiles returns the files uploaded under field, or nil for non-multipart requests.
func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form.File[field]
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

// uploadError turns rejected uploads into client errors.
func uploadError(err error) error {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return apperr.InvalidRequest("Unsupported file type")
	case errors.Is(err, media.ErrTooLarge):
		return apperr.InvalidRequest("File too large")
	default:
		return err
	}
}
