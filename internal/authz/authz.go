// Package authz holds the ownership checks that gate every mutation.
// The checks look only at entities the caller has already loaded.
package authz

import (
	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
)

// RequireOwner fails with AccessDenied unless actorID owns the community.
func RequireOwner(c *models.Community, actorID int) error {
	if c.OwnerID != actorID {
		return apperr.AccessDenied("Access denied")
	}
	return nil
}

// RequireNotOwner fails with Forbidden when actorID owns the community.
func RequireNotOwner(c *models.Community, actorID int) error {
	if c.OwnerID == actorID {
		return apperr.Forbidden("User is the owner of the subreddit r/%s", c.Name)
	}
	return nil
}

// RequireSubmitter fails with Forbidden unless actorID wrote the post.
func RequireSubmitter(p *models.Post, actorID int) error {
	if p.AuthorID != actorID {
		return apperr.Forbidden("User is not the submitter of the post")
	}
	return nil
}
