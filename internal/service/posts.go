package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/authz"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/slug"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
	"github.com/emilythestrangee/subreddit/backend/internal/telemetry"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

const slugAttempts = 5

// PostService stores posts. Slugs are unique within a community; a clash gets
// a short random suffix.
type PostService struct {
	base
}

func (s *PostService) uniqueSlug(ctx context.Context, st store.Store, communityID int, title string, exceptPostID int) (string, error) {
	root := slug.Make(title, slug.DefaultMaxLength)
	if root == "" {
		root = "post"
	}
	candidate := root
	for range slugAttempts {
		taken, err := st.SlugExists(ctx, communityID, candidate, exceptPostID)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = root + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return "", apperr.Conflict("Could not derive a unique slug for %q", title)
}

func mediaFrom(urls []string) []models.Media {
	out := make([]models.Media, 0, len(urls))
	for _, u := range urls {
		out = append(out, models.Media{URL: u})
	}
	return out
}

func mediaURLs(media []models.Media) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.URL)
	}
	return out
}

// CanPost reports why authorID may not post in the named community, if
// anything. Handlers call it before accepting uploads.
func (s *PostService) CanPost(ctx context.Context, authorID int, communityName string) error {
	_, err := s.postableCommunity(ctx, authorID, communityName)
	return err
}

func (s *PostService) postableCommunity(ctx context.Context, authorID int, communityName string) (*models.Community, error) {
	c, err := s.communityByName(ctx, s.store, communityName)
	if err != nil {
		return nil, err
	}
	member, err := isMember(ctx, s.store, c.ID, authorID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.InvalidRequest("User is not member of the subreddit r/%s", c.Name)
	}
	return c, nil
}

// Create publishes a post in the named community. Only members may post.
func (s *PostService) Create(ctx context.Context, authorID int, communityName string, in CreatePostInput) (*models.Post, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "PostService.Create",
		trace.WithAttributes(attribute.String("community.name", communityName)))
	defer span.End()

	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidRequest("Post title is required")
	}
	c, err := s.postableCommunity(ctx, authorID, communityName)
	if err != nil {
		return nil, err
	}

	var p *models.Post
	for attempt := 0; ; attempt++ {
		err = s.store.Tx(ctx, func(tx store.Store) error {
			sl, err := s.uniqueSlug(ctx, tx, c.ID, in.Title, 0)
			if err != nil {
				return err
			}
			p = &models.Post{
				Title:       in.Title,
				Slug:        sl,
				Content:     in.Content,
				CommunityID: c.ID,
				AuthorID:    authorID,
				Media:       mediaFrom(in.MediaURLs),
			}
			return tx.CreatePost(ctx, p)
		})
		// a concurrent post can claim the slug between the check and the insert
		if errors.Is(err, store.ErrDuplicate) && attempt == 0 {
			continue
		}
		break
	}
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("A post with this title is being created in r/%s, try again", c.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.publish(ctx, events.New(events.PostCreated, p.ID, map[string]any{
		"community_id": c.ID,
		"author_id":    authorID,
		"slug":         p.Slug,
	}))
	return s.GetByID(ctx, p.ID)
}

// Update changes a post. Only the submitter may update it. A new title
// regenerates the slug; media, when given, replaces the whole set.
// The returned urls are the media that are no longer referenced.
func (s *PostService) Update(ctx context.Context, communityName, postSlug string, actorID int, in UpdatePostInput) (*models.Post, []string, error) {
	p, err := s.GetBySlug(ctx, communityName, postSlug)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.RequireSubmitter(p, actorID); err != nil {
		return nil, nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, nil, apperr.InvalidRequest("Post title is required")
	}

	var dropped []string
	err = s.store.Tx(ctx, func(tx store.Store) error {
		if in.Title != nil && *in.Title != p.Title {
			sl, err := s.uniqueSlug(ctx, tx, p.CommunityID, *in.Title, p.ID)
			if err != nil {
				return err
			}
			p.Title, p.Slug = *in.Title, sl
		}
		if in.Content != nil {
			p.Content = *in.Content
		}
		if err := tx.UpdatePost(ctx, p); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if in.ReplaceMedia {
			dropped = mediaURLs(p.Media)
			if _, err := tx.ReplaceMedia(ctx, p.ID, in.MediaURLs); err != nil {
				return fmt.Errorf("replace media: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, nil, apperr.Conflict("Another post in this subreddit took the same slug, try again")
	}
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.New(events.PostUpdated, p.ID, map[string]any{"slug": p.Slug}))
	updated, err := s.GetByID(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, dropped, nil
}

// Delete removes a post with its votes and media. Only the submitter may
// delete it. The returned urls are the media the post referenced.
func (s *PostService) Delete(ctx context.Context, postID, actorID int) ([]string, error) {
	p, err := s.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireSubmitter(p, actorID); err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		n, err := tx.DeletePost(ctx, postID)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if n == 0 {
			return apperr.Infrastructure(nil, "Failed to delete post %d", postID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.PostDeleted, postID, map[string]any{"community_id": p.CommunityID}))
	return mediaURLs(p.Media), nil
}

func (s *PostService) GetByID(ctx context.Context, id int) (*models.Post, error) {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Post not found")
	}
	return p, nil
}

func (s *PostService) GetBySlug(ctx context.Context, communityName, postSlug string) (*models.Post, error) {
	c, err := s.communityByName(ctx, s.store, communityName)
	if err != nil {
		return nil, err
	}
	p, err := s.store.PostBySlug(ctx, c.ID, postSlug)
	if err != nil {
		return nil, notFound(err, "Post %s not found in r/%s", postSlug, c.Name)
	}
	return p, nil
}

// ListByCommunity returns the community's posts, newest first, with their count.
func (s *PostService) ListByCommunity(ctx context.Context, communityName string) ([]models.Post, int64, error) {
	c, err := s.communityByName(ctx, s.store, communityName)
	if err != nil {
		return nil, 0, err
	}
	return s.store.PostsByCommunity(ctx, c.ID)
}

// SubmittedBy lists the posts written by the user.
func (s *PostService) SubmittedBy(ctx context.Context, username string) ([]models.Post, int64, error) {
	u, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	return s.store.PostsByAuthor(ctx, u.ID)
}

// VotedBy lists the posts the user currently votes on in direction d.
func (s *PostService) VotedBy(ctx context.Context, userID int, d vote.Direction) ([]models.Post, int64, error) {
	return s.store.PostsVotedBy(ctx, userID, d)
}
