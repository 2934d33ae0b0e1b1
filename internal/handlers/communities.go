package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/response"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
)

type CommunityHandler struct {
	communities *service.CommunityService
	memberships *service.MembershipService
	uploader    *media.Uploader
}

// List returns every community with its member and post counts
func (h *CommunityHandler) List(c *gin.Context) {
	communities, count, err := h.communities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, communities, count)
}

func (h *CommunityHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	community, err := h.communities.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, community)
}

// GetByName serves /r/:name
func (h *CommunityHandler) GetByName(c *gin.Context) {
	community, err := h.communities.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, community)
}

// Create accepts JSON, or a multipart form with an optional avatar file.
func (h *CommunityHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateCommunityRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	var avatarURL string
	if files := formFiles(c, "avatar"); len(files) > 0 {
		url, err := h.uploader.Save(ctx, "avatars", files[0], media.ImageTypes)
		if err != nil {
			response.Error(c, uploadError(err))
			return
		}
		avatarURL = url
	}

	community, err := h.communities.Create(ctx, userID, service.CreateCommunityInput{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   avatarURL,
	})
	if err != nil {
		if avatarURL != "" {
			h.uploader.DeleteAll(ctx, []string{avatarURL})
		}
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, community)
}

func (h *CommunityHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	community, err := h.communities.Update(c.Request.Context(), id, userID, service.UpdateCommunityInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, community)
}

func (h *CommunityHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.communities.Delete(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *CommunityHandler) Join(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	membership, err := h.memberships.Join(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, membership)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	membership, err := h.memberships.Leave(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, membership)
}

func (h *CommunityHandler) Members(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	members, count, err := h.memberships.ListMembers(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, members, count)
}

// SetAvatar replaces the avatar with the uploaded `avatar` file.
func (h *CommunityHandler) SetAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
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

	community, previous, err := h.communities.SetAvatar(ctx, id, userID, url)
	if err != nil {
		h.uploader.DeleteAll(ctx, []string{url})
		response.Error(c, err)
		return
	}
	if previous != "" {
		h.uploader.DeleteAll(ctx, []string{previous})
	}
	response.OK(c, http.StatusOK, community)
}

func (h *CommunityHandler) RemoveAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	community, previous, err := h.communities.SetAvatar(ctx, id, userID, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	if previous != "" {
		h.uploader.DeleteAll(ctx, []string{previous})
	}
	response.OK(c, http.StatusOK, community)
}
