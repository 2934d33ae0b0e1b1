package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/response"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
)

type PostHandler struct {
	posts    *service.PostService
	votes    *service.VoteService
	uploader *media.Uploader
}

// ListByCommunity returns the posts of /r/:name, newest first
func (h *PostHandler) ListByCommunity(c *gin.Context) {
	posts, count, err := h.posts.ListByCommunity(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, posts, count)
}

// Create publishes a post in /r/:name. A multipart body may carry `media` files.
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	files := formFiles(c, "media")
	if len(files) > 0 {
		if err := h.posts.CanPost(ctx, userID, c.Param("name")); err != nil {
			response.Error(c, err)
			return
		}
	}
	urls, err := h.uploader.SaveAll(ctx, "posts", files, media.PostTypes)
	if err != nil {
		response.Error(c, uploadError(err))
		return
	}

	post, err := h.posts.Create(ctx, userID, c.Param("name"), service.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		MediaURLs: urls,
	})
	if err != nil {
		h.uploader.DeleteAll(ctx, urls)
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, post)
}

func (h *PostHandler) GetBySlug(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("name"), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, post)
}

// Update edits /r/:name/posts/:slug. A multipart body replaces the media with
// the uploaded `media` files; send none with replace_media=true to clear it.
func (h *PostHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	files := formFiles(c, "media")
	in := service.UpdatePostInput{
		Title:        req.Title,
		Content:      req.Content,
		ReplaceMedia: isMultipart(c) && (len(files) > 0 || c.PostForm("replace_media") == "true"),
	}
	if in.ReplaceMedia {
		urls, err := h.uploader.SaveAll(ctx, "posts", files, media.PostTypes)
		if err != nil {
			response.Error(c, uploadError(err))
			return
		}
		in.MediaURLs = urls
	}

	post, dropped, err := h.posts.Update(ctx, c.Param("name"), c.Param("slug"), userID, in)
	if err != nil {
		h.uploader.DeleteAll(ctx, in.MediaURLs)
		response.Error(c, err)
		return
	}
	h.uploader.DeleteAll(ctx, dropped)

	response.OK(c, http.StatusOK, post)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	urls, err := h.posts.Delete(ctx, id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.uploader.DeleteAll(ctx, urls)
	response.NoContent(c)
}

// Upvote toggles the caller's upvote and returns the post with fresh counters
func (h *PostHandler) Upvote(c *gin.Context) {
	h.vote(c, h.votes.Upvote)
}

// Downvote toggles the caller's downvote and returns the post with fresh counters
func (h *PostHandler) Downvote(c *gin.Context) {
	h.vote(c, h.votes.Downvote)
}

func (h *PostHandler) vote(c *gin.Context, toggle func(ctx context.Context, postID, userID int) (*models.Post, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	post, err := toggle(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, post)
}
